package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode(t *testing.T) {
	t.Run("should consume steps from the head", func(t *testing.T) {
		s := NewStack()
		s.Create([]string{"a", "b"})

		require.NoError(t, s.RemoveCurrentStep())
		current, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, []string{"b"}, current.Steps)

		require.NoError(t, s.RemoveCurrentStep())
		assert.True(t, current.IsComplete())
	})

	t.Run("should fail to consume from a complete node", func(t *testing.T) {
		s := NewStack()
		s.Create([]string{"only"})
		require.NoError(t, s.RemoveCurrentStep())

		assert.ErrorIs(t, s.RemoveCurrentStep(), ErrPlanComplete)
	})

	t.Run("should fail to consume with no active plan", func(t *testing.T) {
		s := NewStack()
		assert.ErrorIs(t, s.RemoveCurrentStep(), ErrNoActivePlan)
	})
}

func TestStack(t *testing.T) {
	t.Run("should pop in LIFO order", func(t *testing.T) {
		s := NewStack()
		outer := s.Create([]string{"outer step"})
		inner := s.Create([]string{"inner step"})
		assert.Equal(t, 2, s.Depth())

		node, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, inner.ID, node.ID)

		node, ok = s.Pop()
		require.True(t, ok)
		assert.Equal(t, outer.ID, node.ID)
	})

	t.Run("should return false popping an empty stack", func(t *testing.T) {
		s := NewStack()
		node, ok := s.Pop()
		assert.Nil(t, node)
		assert.False(t, ok)
	})

	t.Run("should replace only the top node", func(t *testing.T) {
		s := NewStack()
		s.Create([]string{"keep me"})
		s.Create([]string{"old"})

		s.Replace([]string{"new"})
		assert.Equal(t, 2, s.Depth())

		current, _ := s.Current()
		assert.Equal(t, []string{"new"}, current.Steps)

		s.Pop()
		current, _ = s.Current()
		assert.Equal(t, []string{"keep me"}, current.Steps)
	})

	t.Run("should push on replace when empty", func(t *testing.T) {
		s := NewStack()
		s.Replace([]string{"fresh"})
		assert.Equal(t, 1, s.Depth())
	})

	t.Run("should assign distinct node ids", func(t *testing.T) {
		s := NewStack()
		a := s.Create([]string{"x"})
		b := s.Create([]string{"y"})
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("should clear all state", func(t *testing.T) {
		s := NewStack()
		s.Create([]string{"a"})
		s.Clear()
		assert.False(t, s.HasActive())
	})
}

func TestContinuationPrompt(t *testing.T) {
	t.Run("should fail with no active plan", func(t *testing.T) {
		s := NewStack()
		_, err := s.ContinuationPrompt()
		assert.ErrorIs(t, err, ErrNoActivePlan)
	})

	t.Run("should describe the current and subsequent steps", func(t *testing.T) {
		s := NewStack()
		s.Create([]string{"inspect the parser", "fix the bug", "run the tests"})

		prompt, err := s.ContinuationPrompt()
		require.NoError(t, err)
		assert.Contains(t, prompt, "Now the current plan step is inspect the parser")
		assert.Contains(t, prompt, "1: fix the bug")
		assert.Contains(t, prompt, "2: run the tests")
	})

	t.Run("should suppress repeats of an unchanged head step", func(t *testing.T) {
		s := NewStack()
		s.Create([]string{"inspect the parser"})

		first, err := s.ContinuationPrompt()
		require.NoError(t, err)

		second, err := s.ContinuationPrompt()
		require.NoError(t, err)
		assert.Equal(t, "Continue with the unaccomplished plan step: inspect the parser", second)
		assert.NotEqual(t, first, second)

		// Idempotent from here on: no escalation between identical calls.
		third, err := s.ContinuationPrompt()
		require.NoError(t, err)
		assert.Equal(t, second, third)
	})

	t.Run("should direct to plan_complete when the node is empty", func(t *testing.T) {
		s := NewStack()
		s.Create([]string{"only step"})
		require.NoError(t, s.RemoveCurrentStep())

		prompt, err := s.ContinuationPrompt()
		require.NoError(t, err)
		assert.Contains(t, prompt, "plan_complete")
	})
}

func TestStripStepNumbers(t *testing.T) {
	t.Run("should strip common numbering formats", func(t *testing.T) {
		steps := []string{"1. first", "(2) second", "3) third", "4- fourth", "plain"}
		assert.Equal(t,
			[]string{"first", "second", "third", "fourth", "plain"},
			StripStepNumbers(steps),
		)
	})
}
