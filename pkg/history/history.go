// Package history holds the ordered conversation log shared by the agent
// loop, the model client, and the memory compressor. The log is append-only;
// the tool-call/tool-response pairing required by tool-calling providers is
// enforced here so no caller can produce a sequence the provider rejects.
package history

import (
	"fmt"
	"sync"

	"github.com/haoyang/ant/internal/trajectory"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured tool request embedded in an assistant turn.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// TokenUsage carries provider-reported token accounting for one reply.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Turn is one entry in the conversation log.
type Turn struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	Usage      *TokenUsage `json:"usage,omitempty"`
}

// History is the append-only message log for one task. All mutation flows
// through Append, Clear, and ReplaceRange so the pairing invariant is
// enforced in one place. A violated invariant is a programming error in the
// orchestrator, not a recoverable condition, so Append panics on one.
type History struct {
	mu           sync.Mutex
	systemPrompt string
	turns        []Turn
	pending      map[string]bool
	recorder     trajectory.Recorder
}

// New creates a history seeded with a single system turn. The recorder may
// be nil.
func New(systemPrompt string, recorder trajectory.Recorder) *History {
	if recorder == nil {
		recorder = trajectory.Nop{}
	}
	h := &History{
		systemPrompt: systemPrompt,
		pending:      make(map[string]bool),
		recorder:     recorder,
	}
	h.turns = []Turn{{Role: RoleSystem, Content: systemPrompt}}
	h.record(h.turns[0])
	return h
}

// Append adds a turn to the end of the log.
//
// Invariant enforcement: after an assistant turn carrying N tool calls, the
// only legal appends are tool turns answering those calls, until all N are
// answered. A tool turn must answer exactly one outstanding call.
func (h *History) Append(turn Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if turn.Role == RoleTool {
		if len(h.pending) == 0 {
			panic(fmt.Sprintf("history: tool turn %q appended with no outstanding tool calls", turn.ToolCallID))
		}
		if !h.pending[turn.ToolCallID] {
			panic(fmt.Sprintf("history: tool turn %q does not answer any outstanding tool call", turn.ToolCallID))
		}
		delete(h.pending, turn.ToolCallID)
	} else if len(h.pending) > 0 {
		panic(fmt.Sprintf("history: %s turn appended while %d tool calls await responses", turn.Role, len(h.pending)))
	}

	if turn.Role == RoleAssistant {
		for _, call := range turn.ToolCalls {
			if call.ID == "" {
				panic(fmt.Sprintf("history: assistant tool call %q has an empty id", call.Name))
			}
			if h.pending[call.ID] {
				panic(fmt.Sprintf("history: duplicate tool call id %q", call.ID))
			}
			h.pending[call.ID] = true
		}
	}

	h.turns = append(h.turns, turn)
	h.record(turn)
}

// Clear resets the log to a single system turn re-derived from the active
// system prompt.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = []Turn{{Role: RoleSystem, Content: h.systemPrompt}}
	h.pending = make(map[string]bool)
}

// SetSystemPrompt updates the active system prompt and rewrites the leading
// system turn in place.
func (h *History) SetSystemPrompt(prompt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.systemPrompt = prompt
	if len(h.turns) > 0 && h.turns[0].Role == RoleSystem {
		h.turns[0].Content = prompt
	}
}

// SystemPrompt returns the active system prompt.
func (h *History) SystemPrompt() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.systemPrompt
}

// ReplaceRange substitutes turns[start:end] with the replacement slice. It
// is the compressor's rewrite primitive and refuses to run while tool calls
// await responses, which would let a rewrite split a call/response pair.
func (h *History) ReplaceRange(start, end int, replacement []Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.pending) > 0 {
		return fmt.Errorf("cannot replace turns while %d tool calls await responses", len(h.pending))
	}
	if start < 0 || end > len(h.turns) || start > end {
		return fmt.Errorf("invalid replace range [%d:%d] for %d turns", start, end, len(h.turns))
	}

	rebuilt := make([]Turn, 0, len(h.turns)-(end-start)+len(replacement))
	rebuilt = append(rebuilt, h.turns[:start]...)
	rebuilt = append(rebuilt, replacement...)
	rebuilt = append(rebuilt, h.turns[end:]...)
	h.turns = rebuilt
	return nil
}

// Turns returns a copy of the log.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := make([]Turn, len(h.turns))
	copy(turns, h.turns)
	return turns
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Last returns the most recent turn.
func (h *History) Last() (Turn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// PendingToolCalls reports how many tool calls still await responses.
func (h *History) PendingToolCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// EstimateTokens gives a rough token count for a set of turns when the
// provider reported no usage. One token per four characters.
func EstimateTokens(turns []Turn) int {
	totalChars := 0
	for _, turn := range turns {
		totalChars += len(turn.Content)
	}
	return (totalChars + 3) / 4
}

func (h *History) record(turn Turn) {
	event := trajectory.Event{
		Type:       trajectory.EventMessage,
		Role:       string(turn.Role),
		Content:    turn.Content,
		ToolCallID: turn.ToolCallID,
	}
	if len(turn.ToolCalls) > 0 {
		names := make([]string, 0, len(turn.ToolCalls))
		for _, call := range turn.ToolCalls {
			names = append(names, call.Name)
		}
		event.Metadata = map[string]interface{}{"tool_calls": names}
	}
	if turn.Usage != nil {
		if event.Metadata == nil {
			event.Metadata = make(map[string]interface{})
		}
		event.Metadata["total_tokens"] = turn.Usage.TotalTokens
	}
	h.recorder.Record(event)
}
