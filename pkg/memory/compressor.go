package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/haoyang/ant/internal/metrics"
	"github.com/haoyang/ant/pkg/history"
)

// Summarizer turns a transcript of old conversation turns into a short
// narrative. The model client implements this via its own invocation path.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, transcript string) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}

// Config holds compressor configuration.
type Config struct {
	// ContextWindow is the model's context size in tokens.
	ContextWindow int
	// ThresholdRatio triggers compression when estimated usage exceeds
	// this fraction of the window.
	ThresholdRatio float64
	// KeepRecent is the number of trailing turns preserved verbatim.
	KeepRecent int
	Summarizer Summarizer
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// Compressor folds the oldest stretch of a conversation into a single
// summary turn once estimated token usage crosses the threshold.
type Compressor struct {
	contextWindow  int
	thresholdRatio float64
	keepRecent     int
	summarizer     Summarizer
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// NewCompressor creates a compressor.
func NewCompressor(cfg Config) (*Compressor, error) {
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 200_000
	}
	if cfg.ThresholdRatio <= 0 || cfg.ThresholdRatio > 1 {
		cfg.ThresholdRatio = 0.8
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = 15
	}
	return &Compressor{
		contextWindow:  cfg.ContextWindow,
		thresholdRatio: cfg.ThresholdRatio,
		keepRecent:     cfg.KeepRecent,
		summarizer:     cfg.Summarizer,
		logger:         cfg.Logger.With().Str("component", "memory").Logger(),
		metrics:        cfg.Metrics,
	}, nil
}

// Threshold returns the token count above which compression triggers.
func (c *Compressor) Threshold() int {
	return int(float64(c.contextWindow) * c.thresholdRatio)
}

// MaybeCompress compresses the history when token usage exceeds the
// threshold. totalTokens is the provider-reported usage from the latest
// reply; pass 0 to fall back to a character-based estimate. It returns
// true when the log was rewritten. A summarization failure still rewrites
// the log: the old turns are dropped and replaced with a notice, which
// keeps the loop inside the window at the cost of detail.
func (c *Compressor) MaybeCompress(ctx context.Context, h *history.History, totalTokens int) (bool, error) {
	turns := h.Turns()
	tokens := totalTokens
	if tokens <= 0 {
		tokens = history.EstimateTokens(turns)
	}
	if tokens <= c.Threshold() {
		return false, nil
	}

	if len(turns) <= 1+c.keepRecent {
		return false, nil
	}

	// Turn 0 is the system prompt and is never compressed. Walk the tail
	// boundary backward past tool turns so a tool-call batch is never
	// split from the assistant turn that issued it.
	start := len(turns) - c.keepRecent
	for start > 1 && turns[start].Role == history.RoleTool {
		start--
	}
	if start <= 1 {
		return false, nil
	}

	transcript := renderTranscript(turns[1:start])

	c.logger.Info().
		Int("estimated_tokens", tokens).
		Int("threshold", c.Threshold()).
		Int("turns_compressed", start-1).
		Msg("Compressing conversation history")

	summary, err := c.summarizer.Summarize(ctx, transcript)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Summarization failed, discarding old turns")
		c.metrics.RecordCompression("discarded")
		notice := history.Turn{
			Role:    history.RoleAssistant,
			Content: "(Earlier conversation history was removed to stay within the context window; a summary could not be generated.)",
		}
		if rerr := h.ReplaceRange(1, start, []history.Turn{notice}); rerr != nil {
			return false, rerr
		}
		return true, nil
	}

	c.metrics.RecordCompression("summarized")
	summaryTurn := history.Turn{
		Role:    history.RoleAssistant,
		Content: "(compressed) " + summary,
	}
	if err := h.ReplaceRange(1, start, []history.Turn{summaryTurn}); err != nil {
		return false, err
	}
	return true, nil
}

// renderTranscript flattens turns into the plain-text form fed to the
// summarizer.
func renderTranscript(turns []history.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		switch turn.Role {
		case history.RoleTool:
			fmt.Fprintf(&b, "[tool result %s]: %s\n", turn.ToolCallID, turn.Content)
		case history.RoleAssistant:
			if turn.Content != "" {
				fmt.Fprintf(&b, "[assistant]: %s\n", turn.Content)
			}
			for _, tc := range turn.ToolCalls {
				fmt.Fprintf(&b, "[assistant tool call %s]: %s(%v)\n", tc.ID, tc.Name, tc.Arguments)
			}
		default:
			fmt.Fprintf(&b, "[%s]: %s\n", turn.Role, turn.Content)
		}
	}
	return b.String()
}

// SummaryPrompt is the instruction wrapped around the transcript when the
// agent asks the model to summarize its own history.
const SummaryPrompt = "Summarize the following conversation between an AI agent and its tools. " +
	"Preserve the task goal, key decisions, facts discovered, files or resources touched, " +
	"and any unresolved problems. Be concise.\n\nConversation:\n%s"
