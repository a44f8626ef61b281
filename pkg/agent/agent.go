// Package agent implements the turn-taking orchestrator: it drives the
// model through repeated rounds of think, call tools, observe results,
// until the task is declared complete or the step budget runs out. The
// message log, plan stack, model client, and tool dispatcher are all
// injected; the agent owns the state machine and nothing else.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/haoyang/ant/internal/metrics"
	"github.com/haoyang/ant/internal/trajectory"
	"github.com/haoyang/ant/pkg/history"
	"github.com/haoyang/ant/pkg/llm"
	"github.com/haoyang/ant/pkg/memory"
	"github.com/haoyang/ant/pkg/plan"
	"github.com/haoyang/ant/pkg/toolexec"
)

// ModelInvoker is the slice of the resilient client the agent needs.
type ModelInvoker interface {
	Invoke(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Reason tells the caller why a run ended.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonStepLimit Reason = "step_limit"
)

// Result is the terminal outcome of one run.
type Result struct {
	Output string
	Reason Reason
	Steps  int
}

// Config assembles an agent from its injected parts.
type Config struct {
	History    *history.History
	Plans      *plan.Stack
	Client     ModelInvoker
	Executor   *toolexec.Executor
	Compressor *memory.Compressor
	Recorder   trajectory.Recorder
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics

	Model       string
	Temperature float64
	MaxTokens   int
	MaxSteps    int
	DoneTool    string
	WorkingDir  string
	ToolTimeout time.Duration
}

// Agent is the orchestrator for one task. Not safe for concurrent runs;
// a mutex serializes Run and Reset.
type Agent struct {
	mu         sync.Mutex
	history    *history.History
	plans      *plan.Stack
	client     ModelInvoker
	executor   *toolexec.Executor
	compressor *memory.Compressor
	recorder   trajectory.Recorder
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	model       string
	temperature float64
	maxTokens   int
	maxSteps    int
	doneTool    string
	workingDir  string
	toolTimeout time.Duration

	stepCount     int
	taskCompleted bool
}

// New validates the configuration and builds an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.History == nil {
		return nil, fmt.Errorf("history is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Plans == nil {
		cfg.Plans = plan.NewStack()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = trajectory.Nop{}
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 200
	}
	if cfg.DoneTool == "" {
		cfg.DoneTool = "task_done"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	return &Agent{
		history:       cfg.History,
		plans:         cfg.Plans,
		client:        cfg.Client,
		executor:      cfg.Executor,
		compressor:    cfg.Compressor,
		recorder:      cfg.Recorder,
		logger:        cfg.Logger.With().Str("component", "agent").Logger(),
		metrics:       cfg.Metrics,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		maxSteps:      cfg.MaxSteps,
		doneTool:      cfg.DoneTool,
		workingDir:    cfg.WorkingDir,
		toolTimeout:   cfg.ToolTimeout,
	}, nil
}

// Run drives the loop for one user task until completion or the step
// budget. The budget is checked before each invocation, so a run performs
// at most MaxSteps model calls. Fatal client errors propagate; everything
// a tool does wrong flows back to the model as a tool turn instead.
func (a *Agent) Run(ctx context.Context, input string) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history.Append(history.Turn{Role: history.RoleUser, Content: input})
	a.logger.Info().Str("task", input).Int("max_steps", a.maxSteps).Msg("Starting task")

	for {
		if a.stepCount >= a.maxSteps {
			result := &Result{
				Output: fmt.Sprintf("Maximum step limit (%d) reached. Please provide a more specific task or break it down into smaller steps.", a.maxSteps),
				Reason: ReasonStepLimit,
				Steps:  a.stepCount,
			}
			a.finish(result)
			return result, nil
		}

		resp, err := a.invoke(ctx)
		if err != nil {
			return nil, fmt.Errorf("model invocation failed at step %d: %w", a.stepCount, err)
		}
		a.stepCount++
		a.metrics.RecordAgentStep()

		if len(resp.ToolCalls) == 0 {
			result, done := a.handlePlainReply(ctx, resp)
			if done {
				a.finish(result)
				return result, nil
			}
			continue
		}

		result, done := a.handleToolCalls(ctx, resp)
		if done {
			a.finish(result)
			return result, nil
		}
	}
}

// Reset clears all per-task state: message log, plan stack, counters, and
// the completion flag.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history.Clear()
	a.plans.Clear()
	a.stepCount = 0
	a.taskCompleted = false
}

// Steps returns the number of model invocations so far.
func (a *Agent) Steps() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stepCount
}

// Completed reports whether the done tool has fired.
func (a *Agent) Completed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.taskCompleted
}

func (a *Agent) invoke(ctx context.Context) (*llm.Response, error) {
	return a.client.Invoke(ctx, llm.Request{
		Model:        a.model,
		Messages:     a.history.Turns(),
		Tools:        a.toolSchemas(),
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		SystemPrompt: a.history.SystemPrompt(),
	})
}

func (a *Agent) toolSchemas() []llm.ToolSchema {
	defs := a.executor.Definitions()
	schemas := make([]llm.ToolSchema, 0, len(defs))
	for _, def := range defs {
		schemas = append(schemas, llm.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema(),
		})
	}
	return schemas
}

// handlePlainReply appends the reply and either terminates the run or
// synthesizes the continuation user turn that keeps the model working.
func (a *Agent) handlePlainReply(ctx context.Context, resp *llm.Response) (*Result, bool) {
	a.history.Append(history.Turn{
		Role:    history.RoleAssistant,
		Content: resp.Content,
		Usage:   resp.Usage,
	})
	a.compress(ctx, resp)

	if a.taskCompleted {
		return &Result{Output: resp.Content, Reason: ReasonCompleted, Steps: a.stepCount}, true
	}

	a.history.Append(history.Turn{
		Role:    history.RoleUser,
		Content: a.continuationPrompt(),
	})
	return nil, false
}

// handleToolCalls appends the assistant turn first, then dispatches each
// call sequentially and appends exactly one tool turn per call in request
// order. A failing tool produces a failed tool turn, never a skipped one.
func (a *Agent) handleToolCalls(ctx context.Context, resp *llm.Response) (*Result, bool) {
	a.history.Append(history.Turn{
		Role:      history.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Usage:     resp.Usage,
	})

	execCtx := &toolexec.ExecContext{WorkingDir: a.workingDir, Timeout: a.toolTimeout}
	lines := make([]string, 0, len(resp.ToolCalls))

	for _, call := range resp.ToolCalls {
		result := a.executor.Execute(ctx, call.Name, call.Arguments, execCtx)

		var content string
		if result.Success {
			content = result.Output
			if content == "" {
				content = "Success"
			}
			lines = append(lines, fmt.Sprintf("✓ %s: %s", call.Name, content))
		} else {
			content = result.Error
			if content == "" {
				content = "Tool execution failed"
			}
			lines = append(lines, fmt.Sprintf("✗ %s: %s", call.Name, content))
		}

		a.history.Append(history.Turn{
			Role:       history.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
		})
		a.recorder.Record(trajectory.Event{
			Type:       trajectory.EventToolResult,
			ToolName:   call.Name,
			ToolCallID: call.ID,
			Content:    content,
			Success:    result.Success,
			Error:      result.Error,
		})

		// Completion is sticky, but the batch still finishes so every
		// call gets its tool turn.
		if call.Name == a.doneTool && result.Success {
			a.taskCompleted = true
		}
	}

	a.compress(ctx, resp)

	if a.taskCompleted {
		return &Result{Output: strings.Join(lines, "\n"), Reason: ReasonCompleted, Steps: a.stepCount}, true
	}
	return nil, false
}

// continuationPrompt derives the next user turn from the plan stack, or a
// generic nudge when no plan is active.
func (a *Agent) continuationPrompt() string {
	if prompt, err := a.plans.ContinuationPrompt(); err == nil {
		return prompt
	}
	return "Continue working on the task. Call the task_done tool when the task is finished."
}

func (a *Agent) compress(ctx context.Context, resp *llm.Response) {
	if a.compressor == nil {
		return
	}
	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	if _, err := a.compressor.MaybeCompress(ctx, a.history, tokens); err != nil {
		a.logger.Warn().Err(err).Msg("History compression failed")
	}
}

func (a *Agent) finish(result *Result) {
	a.logger.Info().
		Str("reason", string(result.Reason)).
		Int("steps", result.Steps).
		Msg("Task finished")
	a.metrics.RecordAgentRun(string(result.Reason))
	a.recorder.Record(trajectory.Event{
		Type:    trajectory.EventRun,
		Content: result.Output,
		Success: result.Reason == ReasonCompleted,
		Metadata: map[string]interface{}{
			"reason": string(result.Reason),
			"steps":  result.Steps,
		},
	})
}
