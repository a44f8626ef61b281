package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Run("should round-trip values", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Put("notes", "api_url", "https://example.com"))

		value, ok := s.Get("notes", "api_url")
		assert.True(t, ok)
		assert.Equal(t, "https://example.com", value)
	})

	t.Run("should default the empty namespace", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Put("", "k", "v"))

		value, ok := s.Get(DefaultNamespace, "k")
		assert.True(t, ok)
		assert.Equal(t, "v", value)
	})

	t.Run("should reject empty keys", func(t *testing.T) {
		s := NewStore()
		assert.Error(t, s.Put("notes", "", "v"))
	})

	t.Run("should hide deleted keys but keep tombstones", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Put("notes", "k", "v"))
		assert.True(t, s.Delete("notes", "k"))

		_, ok := s.Get("notes", "k")
		assert.False(t, ok)
		assert.Empty(t, s.Keys("notes"))

		stats := s.Stats()
		assert.Equal(t, 0, stats.Entries)
		assert.Equal(t, 1, stats.Tombstones)
	})

	t.Run("should revive a tombstoned key on put", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Put("notes", "k", "v1"))
		s.Delete("notes", "k")
		require.NoError(t, s.Put("notes", "k", "v2"))

		value, ok := s.Get("notes", "k")
		assert.True(t, ok)
		assert.Equal(t, "v2", value)
	})

	t.Run("should report false when deleting an absent key", func(t *testing.T) {
		s := NewStore()
		assert.False(t, s.Delete("notes", "missing"))
	})

	t.Run("should list keys sorted", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Put("notes", "b", "2"))
		require.NoError(t, s.Put("notes", "a", "1"))
		require.NoError(t, s.Put("notes", "c", "3"))

		assert.Equal(t, []string{"a", "b", "c"}, s.Keys("notes"))
		assert.Len(t, s.All("notes"), 3)
	})

	t.Run("should isolate namespaces", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Put("alpha", "k", "1"))
		require.NoError(t, s.Put("beta", "k", "2"))

		a, _ := s.Get("alpha", "k")
		b, _ := s.Get("beta", "k")
		assert.Equal(t, "1", a)
		assert.Equal(t, "2", b)
	})

	t.Run("should clear everything", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Put("notes", "k", "v"))
		s.Clear()
		assert.Equal(t, Stats{}, s.Stats())
	})
}
