package prompt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("should serve built-in prompts by skill", func(t *testing.T) {
		r, err := NewRegistry("", zerolog.Nop())
		require.NoError(t, err)

		assert.Contains(t, r.Get(SkillDefault), "sequential_thinking")
		assert.Contains(t, r.Get(SkillWorkflow), "ANALYSIS WORKFLOW")
		assert.Contains(t, r.Get(SkillSmart), "PROTOCOL")
	})

	t.Run("should fall back to default for unknown skills", func(t *testing.T) {
		r, err := NewRegistry("", zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, r.Get(SkillDefault), r.Get("nonexistent"))
		assert.Equal(t, r.Get(SkillDefault), r.Get(""))
	})

	t.Run("should prefer file overrides", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "default.md"), []byte("custom prompt\n"), 0644))

		r, err := NewRegistry(dir, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "custom prompt", r.Get(SkillDefault))
	})

	t.Run("should load overrides for new skills", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewer.md"), []byte("you review code"), 0644))

		r, err := NewRegistry(dir, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "you review code", r.Get("reviewer"))
		assert.Contains(t, r.Skills(), "reviewer")
	})

	t.Run("should tolerate a missing overrides directory", func(t *testing.T) {
		r, err := NewRegistry(filepath.Join(t.TempDir(), "absent"), zerolog.Nop())
		require.NoError(t, err)
		assert.NotEmpty(t, r.Get(SkillDefault))
	})

	t.Run("should pick up changes while watching", func(t *testing.T) {
		dir := t.TempDir()
		r, err := NewRegistry(dir, zerolog.Nop())
		require.NoError(t, err)
		require.NoError(t, r.Watch())
		defer r.Close()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "default.md"), []byte("live override"), 0644))

		assert.Eventually(t, func() bool {
			return r.Get(SkillDefault) == "live override"
		}, 2*time.Second, 20*time.Millisecond)
	})
}
