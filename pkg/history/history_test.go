package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should seed log with a single system turn", func(t *testing.T) {
		h := New("you are helpful", nil)

		turns := h.Turns()
		require.Len(t, turns, 1)
		assert.Equal(t, RoleSystem, turns[0].Role)
		assert.Equal(t, "you are helpful", turns[0].Content)
	})
}

func TestAppend(t *testing.T) {
	t.Run("should keep turns in append order", func(t *testing.T) {
		h := New("sys", nil)
		h.Append(Turn{Role: RoleUser, Content: "first"})
		h.Append(Turn{Role: RoleAssistant, Content: "second"})

		turns := h.Turns()
		require.Len(t, turns, 3)
		assert.Equal(t, "first", turns[1].Content)
		assert.Equal(t, "second", turns[2].Content)
	})

	t.Run("should accept tool turns answering outstanding calls in any order", func(t *testing.T) {
		h := New("sys", nil)
		h.Append(Turn{Role: RoleUser, Content: "go"})
		h.Append(Turn{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "call-1", Name: "bash"},
			{ID: "call-2", Name: "edit"},
		}})
		assert.Equal(t, 2, h.PendingToolCalls())

		h.Append(Turn{Role: RoleTool, Content: "b", ToolCallID: "call-2"})
		h.Append(Turn{Role: RoleTool, Content: "a", ToolCallID: "call-1"})
		assert.Equal(t, 0, h.PendingToolCalls())

		h.Append(Turn{Role: RoleAssistant, Content: "done"})
	})

	t.Run("should panic when a non-tool turn interrupts an open batch", func(t *testing.T) {
		h := New("sys", nil)
		h.Append(Turn{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1", Name: "bash"}}})

		assert.Panics(t, func() {
			h.Append(Turn{Role: RoleUser, Content: "interrupt"})
		})
	})

	t.Run("should panic on a tool turn with no outstanding calls", func(t *testing.T) {
		h := New("sys", nil)
		assert.Panics(t, func() {
			h.Append(Turn{Role: RoleTool, Content: "orphan", ToolCallID: "ghost"})
		})
	})

	t.Run("should panic on a tool turn answering an unknown call id", func(t *testing.T) {
		h := New("sys", nil)
		h.Append(Turn{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1", Name: "bash"}}})

		assert.Panics(t, func() {
			h.Append(Turn{Role: RoleTool, Content: "x", ToolCallID: "call-9"})
		})
	})

	t.Run("should panic on an empty tool call id", func(t *testing.T) {
		h := New("sys", nil)
		assert.Panics(t, func() {
			h.Append(Turn{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "bash"}}})
		})
	})
}

func TestClear(t *testing.T) {
	t.Run("should reset to the active system prompt", func(t *testing.T) {
		h := New("original", nil)
		h.Append(Turn{Role: RoleUser, Content: "hi"})
		h.SetSystemPrompt("rotated")

		h.Clear()

		turns := h.Turns()
		require.Len(t, turns, 1)
		assert.Equal(t, RoleSystem, turns[0].Role)
		assert.Equal(t, "rotated", turns[0].Content)
	})

	t.Run("should drop outstanding tool calls", func(t *testing.T) {
		h := New("sys", nil)
		h.Append(Turn{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1", Name: "bash"}}})

		h.Clear()
		assert.Equal(t, 0, h.PendingToolCalls())
	})
}

func TestReplaceRange(t *testing.T) {
	t.Run("should substitute the span and keep the tail", func(t *testing.T) {
		h := New("sys", nil)
		for i := 0; i < 4; i++ {
			h.Append(Turn{Role: RoleUser, Content: "u"})
			h.Append(Turn{Role: RoleAssistant, Content: "a"})
		}

		summary := Turn{Role: RoleAssistant, Content: "(compressed) earlier work"}
		require.NoError(t, h.ReplaceRange(1, 7, []Turn{summary}))

		turns := h.Turns()
		require.Len(t, turns, 4)
		assert.Equal(t, RoleSystem, turns[0].Role)
		assert.Equal(t, "(compressed) earlier work", turns[1].Content)
		assert.Equal(t, "a", turns[3].Content)
	})

	t.Run("should reject out-of-bounds ranges", func(t *testing.T) {
		h := New("sys", nil)
		assert.Error(t, h.ReplaceRange(0, 5, nil))
		assert.Error(t, h.ReplaceRange(-1, 0, nil))
	})

	t.Run("should refuse to rewrite while tool calls are outstanding", func(t *testing.T) {
		h := New("sys", nil)
		h.Append(Turn{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1", Name: "bash"}}})

		assert.Error(t, h.ReplaceRange(1, 2, nil))
	})
}

func TestEstimateTokens(t *testing.T) {
	t.Run("should count roughly four characters per token", func(t *testing.T) {
		turns := []Turn{{Content: "12345678"}, {Content: "1234"}}
		assert.Equal(t, 3, EstimateTokens(turns))
	})
}
