package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should write to the configured file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "ant.log")
		l, err := New(Config{Level: "info", File: path})
		require.NoError(t, err)

		log := l.Logger()
		log.Info().Str("component", "test").Msg("hello")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
		assert.Contains(t, string(data), `"component":"test"`)
	})

	t.Run("should fall back to info on an unknown level", func(t *testing.T) {
		l, err := New(Config{Level: "noisy", Console: true})
		require.NoError(t, err)
		defer l.Close()

		assert.Equal(t, "info", l.Logger().GetLevel().String())
	})
}
