// Package coretools registers the built-in tools the agent loop depends
// on: plan-signal tools that drive the plan stack, memory tools over the
// key-value store, the task_done close-out tool, and baseline workspace
// tools. The orchestrator treats all of them purely by name; state flows
// through the injected stack and store, never through globals.
package coretools

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/haoyang/ant/pkg/memory"
	"github.com/haoyang/ant/pkg/plan"
	"github.com/haoyang/ant/pkg/toolexec"
)

// Options configures core tool registration.
type Options struct {
	Plans         *plan.Stack
	Memory        *memory.Store
	WorkspaceRoot string
	Logger        zerolog.Logger
}

// Register adds the core tool set to the executor.
func Register(executor *toolexec.Executor, opts Options) error {
	if executor == nil {
		return errors.New("tool executor is required")
	}
	if opts.Plans == nil {
		return errors.New("plan stack is required")
	}
	if opts.Memory == nil {
		return errors.New("memory store is required")
	}

	tools := []toolexec.Definition{
		sequentialThinkingTool(opts),
		replanTool(opts),
		stepCompleteTool(opts),
		planCompleteTool(opts),
		taskDoneTool(),
		memoryStoreTool(opts),
		memoryRetrieveTool(opts),
		memoryListTool(opts),
		memoryDeleteTool(opts),
	}
	if opts.WorkspaceRoot != "" {
		tools = append(tools,
			bashTool(opts),
			readFileTool(opts),
			writeFileTool(opts),
			editFileTool(opts),
		)
	}

	for _, tool := range tools {
		if err := executor.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func toStringSlice(value interface{}) []string {
	raw, ok := value.([]interface{})
	if !ok {
		if typed, ok := value.([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
