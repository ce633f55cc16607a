/*
Package domain contains the core value types of the hanoi learning engine.

It defines the puzzle state, actions, Q-table entries, training statistics and the
events emitted while learning. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - State: peg index per disk, disk 0 being the smallest. Never mutated in place.
  - StateKey / ActionKey: canonical string identities used to index the Q-table.
  - Action: a (disk, from, to) move.
  - Event: envelope for step, episode and reset notifications.
*/
package domain
