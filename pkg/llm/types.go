// Package llm wraps raw model providers with the retry, backoff, and
// circuit-breaking policy the agent loop depends on. Providers translate
// the conversation log to and from each vendor SDK; the Client owns
// resilience.
package llm

import (
	"context"

	"github.com/haoyang/ant/pkg/history"
)

// ToolSchema describes one tool offered to the model. InputSchema is a
// JSON-Schema object ({"type": "object", "properties": ..., "required": ...}).
type ToolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Request is one model invocation.
type Request struct {
	Model        string
	Messages     []history.Turn
	Tools        []ToolSchema
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Response is the model's reply: plain content, zero or more tool calls,
// and provider-reported usage when available.
type Response struct {
	Content   string
	ToolCalls []history.ToolCall
	Usage     *history.TokenUsage
}

// Provider is the raw model invocation the Client guards. Implementations
// must be safe for sequential reuse; the Client never calls Send
// concurrently on the same instance.
type Provider interface {
	Name() string
	Send(ctx context.Context, req Request) (*Response, error)
}
