/*
Package ports defines the driven ports (interfaces) of the hanoi engine.

These interfaces decouple the learner from concrete implementations, allowing
the Q-table and the event consumers to be swapped without touching the core.

# Key Interfaces

  - QStore: the Q-table, with read-creates (GetOrInsert) and read-only (Peek) lookups.
  - EventSink: a fire-and-forget consumer of step, episode and reset events.
*/
package ports
