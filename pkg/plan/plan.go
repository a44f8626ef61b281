// Package plan implements the hierarchical plan stack the agent uses to
// decompose a task into steps and sub-plans. The stack is caller-owned and
// injected into the orchestrator; there is no shared global instance.
package plan

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNoActivePlan is returned by step operations when the stack is empty.
	ErrNoActivePlan = errors.New("no active plan")
	// ErrPlanComplete is returned when a step is consumed from a node whose
	// steps are already exhausted.
	ErrPlanComplete = errors.New("plan is already complete")
)

// Node is one level of task decomposition: an ordered list of step
// descriptions. A node is complete when no steps remain.
type Node struct {
	ID    string   `json:"id"`
	Steps []string `json:"steps"`
}

// IsComplete reports whether all steps have been consumed.
func (n *Node) IsComplete() bool {
	return len(n.Steps) == 0
}

// RemoveCurrentStep pops the head step. Consuming from a complete node is
// an error, not a silent no-op.
func (n *Node) RemoveCurrentStep() error {
	if n.IsComplete() {
		return ErrPlanComplete
	}
	n.Steps = n.Steps[1:]
	return nil
}

// Stack is the LIFO nesting of plan nodes for one task. Step operations
// only ever touch the top node.
type Stack struct {
	mu           sync.Mutex
	nodes        []*Node
	counter      int
	previousStep string
}

// NewStack creates an empty plan stack.
func NewStack() *Stack {
	return &Stack{}
}

// Create pushes a new node holding the given steps. Existing nodes are left
// untouched; this is how the model nests a sub-plan.
func (s *Stack) Create(steps []string) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.push(steps)
}

// Replace pops the current node, if any, and pushes a new one. This is how
// the model revises the current plan rather than nesting a new one.
func (s *Stack) Replace(steps []string) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nodes) > 0 {
		s.nodes = s.nodes[:len(s.nodes)-1]
	}
	return s.push(steps)
}

// Pop removes and returns the top node. On an empty stack it reports false
// instead of failing.
func (s *Stack) Pop() (*Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nodes) == 0 {
		return nil, false
	}
	node := s.nodes[len(s.nodes)-1]
	s.nodes = s.nodes[:len(s.nodes)-1]
	return node, true
}

// RemoveCurrentStep consumes the head step of the current node.
func (s *Stack) RemoveCurrentStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nodes) == 0 {
		return ErrNoActivePlan
	}
	return s.nodes[len(s.nodes)-1].RemoveCurrentStep()
}

// HasActive reports whether any plan node is on the stack.
func (s *Stack) HasActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes) > 0
}

// Current returns the top node without removing it.
func (s *Stack) Current() (*Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nodes) == 0 {
		return nil, false
	}
	return s.nodes[len(s.nodes)-1], true
}

// Depth returns the number of nested plans.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// ContinuationPrompt builds the instruction injected between turns to keep
// the model on the current plan. When the head step has not changed since
// the previous call it returns a short reminder instead of restating the
// whole plan, so the model is not nagged with an identical instruction
// every turn.
func (s *Stack) ContinuationPrompt() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.nodes) == 0 {
		return "", ErrNoActivePlan
	}
	current := s.nodes[len(s.nodes)-1]
	if current.IsComplete() {
		return "The current plan has been finished. Now call the plan_complete tool.", nil
	}
	if current.Steps[0] == s.previousStep {
		return fmt.Sprintf("Continue with the unaccomplished plan step: %s", current.Steps[0]), nil
	}
	s.previousStep = current.Steps[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Now the current plan step is %s\n", current.Steps[0])
	b.WriteString("And the subsequent plan steps are:\n")
	for i, step := range current.Steps[1:] {
		fmt.Fprintf(&b, "%d: %s\n", i+1, step)
	}
	return b.String(), nil
}

// Clear drops all plans and resets the counter.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.counter = 0
	s.previousStep = ""
}

func (s *Stack) push(steps []string) *Node {
	s.counter++
	node := &Node{
		ID:    fmt.Sprintf("plan-%d-%s", s.counter, uuid.New().String()[:8]),
		Steps: StripStepNumbers(steps),
	}
	s.nodes = append(s.nodes, node)
	return node
}

// Models often hand back steps with their own numbering ("1.", "(2)", "3)")
// which would double up with the numbering the continuation prompt adds.
var stepNumberRe = regexp.MustCompile(`^\s*(?:\(\d+\)|\d+[.)\-]+)\s*`)

// StripStepNumbers removes leading list numbering from each step.
func StripStepNumbers(steps []string) []string {
	stripped := make([]string, 0, len(steps))
	for _, step := range steps {
		stripped = append(stripped, strings.TrimSpace(stepNumberRe.ReplaceAllString(step, "")))
	}
	return stripped
}
