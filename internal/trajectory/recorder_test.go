package trajectory

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLRecorder(t *testing.T) {
	t.Run("should append one JSON line per event", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "traj", "events.jsonl")
		rec, err := NewJSONLRecorder(path)
		require.NoError(t, err)

		rec.Record(Event{Type: EventMessage, Role: "user", Content: "hello"})
		rec.Record(Event{Type: EventToolResult, ToolName: "bash", Success: true})
		require.NoError(t, rec.Close())

		file, err := os.Open(path)
		require.NoError(t, err)
		defer file.Close()

		var events []Event
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			var ev Event
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
			events = append(events, ev)
		}
		require.Len(t, events, 2)
		assert.Equal(t, "hello", events[0].Content)
		assert.Equal(t, "bash", events[1].ToolName)
		assert.False(t, events[0].Time.IsZero())
	})
}

func TestSQLiteRecorder(t *testing.T) {
	t.Run("should persist events to the database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "events.db")
		rec, err := NewSQLiteRecorder(path)
		require.NoError(t, err)
		defer rec.Close()

		rec.Record(Event{Type: EventMessage, Role: "assistant", Content: "done"})
		rec.Record(Event{
			Type:     EventToolResult,
			ToolName: "task_done",
			Success:  true,
			Metadata: map[string]interface{}{"completed": true},
		})

		n, err := rec.Count()
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}
