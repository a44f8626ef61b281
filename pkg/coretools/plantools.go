package coretools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haoyang/ant/pkg/plan"
	"github.com/haoyang/ant/pkg/toolexec"
)

func sequentialThinkingTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name: "sequential_thinking",
		Description: "Use this tool when:\n" +
			"1. User request requires multiple steps -> create a full plan consisting of several steps.\n" +
			"2. Current plan step is so complex that cannot be finished in one go -> spawn fine-grained sub-steps for the current step.\n" +
			"Never use this tool to reason or think instead of making a plan.",
		Parameters: []toolexec.Parameter{
			{Name: "steps", Type: "array", Description: "Ordered list of plan steps", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			steps := plan.StripStepNumbers(toStringSlice(args["steps"]))
			if len(steps) == 0 {
				return nil, fmt.Errorf("steps cannot be empty")
			}

			// Revising mid-plan keeps the unstarted tail: the new steps
			// refine the current head step, the rest still apply.
			if current, ok := opts.Plans.Current(); ok && len(current.Steps) > 1 {
				steps = append(steps, current.Steps[1:]...)
			}
			opts.Plans.Replace(steps)

			return strings.Join(steps, "\n"), nil
		},
	}
}

func replanTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name: "replan",
		Description: "If the current plan step requires a new step-to-step sub-plan, re-plan the remaining steps by " +
			"1) spawning more steps to accomplish the current plan step, " +
			"2) re-planning the other plan steps to interact with the newly spawned steps.",
		Parameters: []toolexec.Parameter{
			{Name: "steps", Type: "array", Description: "Ordered list of plan steps", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			steps := plan.StripStepNumbers(toStringSlice(args["steps"]))
			if len(steps) == 0 {
				return nil, fmt.Errorf("steps cannot be empty")
			}

			opts.Plans.Pop()
			opts.Plans.Create(steps)

			return strings.Join(steps, "\n"), nil
		},
	}
}

func stepCompleteTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name: "step_complete",
		Description: "Mark the current plan step as completed. Call this tool when you have finished the current " +
			"step of your plan and are ready to move to the next step. Only call this if you are confident the " +
			"step is complete and you have found results.",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			if err := opts.Plans.RemoveCurrentStep(); err != nil {
				if errors.Is(err, plan.ErrNoActivePlan) {
					return nil, fmt.Errorf("no active plan; create one first using sequential_thinking")
				}
				return nil, err
			}

			current, ok := opts.Plans.Current()
			if !ok || current.IsComplete() {
				return "After completing this step, the current plan is complete too. Invoke plan_complete tool.", nil
			}

			var b strings.Builder
			b.WriteString("After completing this step, there remain the following steps in the current plan:\n")
			for i, step := range current.Steps {
				fmt.Fprintf(&b, "%d: %s\n", i+1, step)
			}
			return b.String(), nil
		},
	}
}

func planCompleteTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name: "plan_complete",
		Description: "Mark the current plan as completed. Call this tool when you have finished the current plan " +
			"and are ready to roll back to the previous plan. Only call this if you are confident the plan is " +
			"complete and you have found results.",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			opts.Plans.Pop()

			current, ok := opts.Plans.Current()
			if !ok {
				return "No plan remained. Call task_done tool to terminate the task.", nil
			}

			// The outer plan's head step spawned the finished sub-plan,
			// so it is consumed with it. An already-empty outer plan is
			// fine; the continuation prompt will direct the close-out.
			if err := current.RemoveCurrentStep(); err != nil && !errors.Is(err, plan.ErrPlanComplete) {
				return nil, err
			}

			return "After finishing the current plan, let's roll back to the previously unfinished plan, the remaining steps of which are:\n" +
				strings.Join(current.Steps, "\n"), nil
		},
	}
}

func taskDoneTool() toolexec.Definition {
	return toolexec.Definition{
		Name:        "task_done",
		Description: "Mark the current task as completed with a summary",
		Parameters: []toolexec.Parameter{
			{Name: "summary", Type: "string", Description: "Summary of what was accomplished", Required: true},
			{Name: "status", Type: "string", Description: "Completion status (default completed)"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			summary, _ := args["summary"].(string)
			status, _ := args["status"].(string)
			if status == "" {
				status = "completed"
			}

			return toolexec.Detailed{
				Text: fmt.Sprintf("Task %s: %s", status, summary),
				Meta: map[string]interface{}{
					"completed": true,
					"status":    status,
					"summary":   summary,
				},
			}, nil
		},
	}
}
