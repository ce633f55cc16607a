package ports

import "github.com/aretw0/hanoi/pkg/domain"

// QStore defines the Q-table used by the learner.
// Implementations must be safe for concurrent use: introspection may read while a run writes.
type QStore interface {
	// GetOrInsert returns the stored value. A missing entry is inserted at 0 first.
	GetOrInsert(state domain.StateKey, action domain.ActionKey) float64

	// Peek returns the same value as GetOrInsert but never inserts.
	Peek(state domain.StateKey, action domain.ActionKey) float64

	// Set overwrites the entry unconditionally.
	Set(state domain.StateKey, action domain.ActionKey, value float64)

	// Clear removes every entry.
	Clear()

	// Len returns the number of entries.
	Len() int

	// Entries returns a copy of the table sorted by state key then action key.
	Entries() []domain.QEntry
}
