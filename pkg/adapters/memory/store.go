package memory

import (
	"sort"
	"sync"

	"github.com/aretw0/hanoi/pkg/domain"
)

// Table implements ports.QStore in memory.
// Safe for concurrent use.
type Table struct {
	data map[domain.StateKey]map[domain.ActionKey]float64
	size int
	mu   sync.RWMutex
}

// NewTable creates an empty Q-table.
func NewTable() *Table {
	return &Table{
		data: make(map[domain.StateKey]map[domain.ActionKey]float64),
	}
}

// GetOrInsert returns the stored value, inserting 0 when absent.
func (t *Table) GetOrInsert(state domain.StateKey, action domain.ActionKey) float64 {
	t.mu.RLock()
	v, ok := t.lookup(state, action)
	t.mu.RUnlock()
	if ok {
		return v
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Another writer may have inserted it between the two locks.
	if v, ok := t.lookup(state, action); ok {
		return v
	}
	t.store(state, action, 0)
	return 0
}

// Peek returns the stored value or 0, without inserting.
func (t *Table) Peek(state domain.StateKey, action domain.ActionKey) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, _ := t.lookup(state, action)
	return v
}

// Set overwrites the entry.
func (t *Table) Set(state domain.StateKey, action domain.ActionKey, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store(state, action, value)
}

// Clear removes all entries.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = make(map[domain.StateKey]map[domain.ActionKey]float64)
	t.size = 0
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Entries returns a sorted copy of the table.
func (t *Table) Entries() []domain.QEntry {
	t.mu.RLock()
	entries := make([]domain.QEntry, 0, t.size)
	for s, actions := range t.data {
		for a, v := range actions {
			entries = append(entries, domain.QEntry{State: s, Action: a, Value: v})
		}
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].State != entries[j].State {
			return entries[i].State < entries[j].State
		}
		return entries[i].Action < entries[j].Action
	})
	return entries
}

func (t *Table) lookup(state domain.StateKey, action domain.ActionKey) (float64, bool) {
	actions, ok := t.data[state]
	if !ok {
		return 0, false
	}
	v, ok := actions[action]
	return v, ok
}

// store must be called with the write lock held.
func (t *Table) store(state domain.StateKey, action domain.ActionKey, value float64) {
	actions, ok := t.data[state]
	if !ok {
		actions = make(map[domain.ActionKey]float64)
		t.data[state] = actions
	}
	if _, exists := actions[action]; !exists {
		t.size++
	}
	actions[action] = value
}
