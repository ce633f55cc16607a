package ports

import (
	"sync"
	"testing"

	"github.com/aretw0/hanoi/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunQStoreContract runs a suite of tests to verify that a QStore implementation
// adheres to the defined interface contract. The store must be empty.
func RunQStoreContract(t *testing.T, store QStore) {
	const (
		s1 domain.StateKey  = "0|0|0"
		s2 domain.StateKey  = "2|0|0"
		a1 domain.ActionKey = "0_0_2"
		a2 domain.ActionKey = "0_0_1"
	)

	t.Run("GetOrInsert creates missing entries", func(t *testing.T) {
		store.Clear()
		require.Equal(t, 0, store.Len())

		assert.Equal(t, 0.0, store.GetOrInsert(s1, a1))
		assert.Equal(t, 1, store.Len())

		// Idempotent: a second read neither changes the value nor the size.
		assert.Equal(t, 0.0, store.GetOrInsert(s1, a1))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Peek never inserts", func(t *testing.T) {
		store.Clear()

		assert.Equal(t, 0.0, store.Peek(s1, a1))
		assert.Equal(t, 0, store.Len())

		store.Set(s1, a1, 1.5)
		assert.Equal(t, 1.5, store.Peek(s1, a1))
		assert.Equal(t, store.GetOrInsert(s1, a1), store.Peek(s1, a1))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Set overwrites", func(t *testing.T) {
		store.Clear()

		store.Set(s1, a1, 1)
		store.Set(s1, a1, -2.25)
		assert.Equal(t, -2.25, store.GetOrInsert(s1, a1))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Entries are sorted copies", func(t *testing.T) {
		store.Clear()

		store.Set(s2, a1, 3)
		store.Set(s1, a1, 1)
		store.Set(s1, a2, 2)

		entries := store.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, domain.QEntry{State: s1, Action: a2, Value: 2}, entries[0])
		assert.Equal(t, domain.QEntry{State: s1, Action: a1, Value: 1}, entries[1])
		assert.Equal(t, domain.QEntry{State: s2, Action: a1, Value: 3}, entries[2])

		entries[0].Value = 99
		assert.Equal(t, 2.0, store.Peek(s1, a2))
	})

	t.Run("Clear empties", func(t *testing.T) {
		store.Set(s1, a1, 1)
		store.Clear()
		assert.Equal(t, 0, store.Len())
		assert.Empty(t, store.Entries())
	})

	t.Run("Concurrent access", func(t *testing.T) {
		store.Clear()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					store.Set(s1, a1, float64(j))
					_ = store.Peek(s2, a2)
					_ = store.GetOrInsert(s2, a1)
					_ = store.Entries()
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 2, store.Len())
	})
}
