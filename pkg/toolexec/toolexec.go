// Package toolexec is the dispatch layer between the model's tool calls and
// the Go functions that implement them. Arguments are validated against a
// JSON Schema generated at registration, execution is bounded by a timeout,
// and a panicking handler is converted into a failed result so one bad tool
// cannot take down the agent loop.
package toolexec

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/haoyang/ant/internal/metrics"
)

// Parameter describes one tool argument.
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// Handler is the function a tool call dispatches to.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Definition is a tool's metadata and implementation.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// InputSchema renders the definition as a JSON-Schema object in the shape
// tool-calling providers expect.
func (d Definition) InputSchema() map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range d.Parameters {
		paramSchema := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Type == "array" {
			paramSchema["items"] = map[string]interface{}{"type": "string"}
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}
		properties[param.Name] = paramSchema
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ExecContext carries per-dispatch runtime settings.
type ExecContext struct {
	WorkingDir string
	Timeout    time.Duration
}

// Result is the outcome of one tool dispatch. Dispatch never returns a Go
// error to the caller; failures are carried in the result so they can be
// fed back to the model as a tool turn.
type Result struct {
	Success   bool                   `json:"success"`
	Output    string                 `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Truncated bool                   `json:"truncated,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Executor holds the tool registry and dispatches calls.
type Executor struct {
	mu      sync.RWMutex
	tools   map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates an empty executor.
func New(logger zerolog.Logger, m *metrics.Metrics) *Executor {
	return &Executor{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger.With().Str("component", "toolexec").Logger(),
		metrics: m,
	}
}

// Register adds a tool. The argument schema is compiled here so a bad
// definition fails at startup, not mid-task.
func (e *Executor) Register(def Definition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	e.tools[def.Name] = &def
	e.schemas[def.Name] = schema

	e.logger.Info().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// Unregister removes a tool. Removing an absent tool is a no-op.
func (e *Executor) Unregister(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tools, name)
	delete(e.schemas, name)
}

// Get returns a tool definition by name.
func (e *Executor) Get(name string) (Definition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.tools[name]
	if !ok {
		return Definition{}, false
	}
	return *def, true
}

// Names returns the registered tool names, sorted.
func (e *Executor) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns copies of all registered definitions, sorted by name.
func (e *Executor) Definitions() []Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	defs := make([]Definition, 0, len(e.tools))
	for _, def := range e.tools {
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches one tool call. Unknown tools, invalid arguments,
// handler errors, panics, and timeouts all come back as failed results.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}, execCtx *ExecContext) Result {
	start := time.Now()

	e.mu.RLock()
	tool := e.tools[name]
	schema := e.schemas[name]
	e.mu.RUnlock()

	if tool == nil {
		e.logger.Error().Str("tool", name).Msg("Tool not found")
		e.metrics.RecordToolExecution(name, "not_found", time.Since(start))
		return Result{
			Success: false,
			Error:   fmt.Sprintf("tool not found: %s", name),
		}
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	if err := validateArgs(schema, args); err != nil {
		e.logger.Error().Str("tool", name).Err(err).Msg("Argument validation failed")
		e.metrics.RecordToolExecution(name, "invalid_args", time.Since(start))
		return Result{
			Success: false,
			Error:   fmt.Sprintf("argument validation failed: %v", err),
		}
	}

	timeout := 30 * time.Second
	if execCtx != nil && execCtx.Timeout > 0 {
		timeout = execCtx.Timeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.logger.Debug().Str("tool", name).Msg("Executing tool")

	type outcome struct {
		output interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		output, err := tool.Handler(timeoutCtx, args)
		done <- outcome{output: output, err: err}
	}()

	select {
	case out := <-done:
		duration := time.Since(start)
		if out.err != nil {
			e.logger.Error().Str("tool", name).Dur("duration", duration).Err(out.err).Msg("Tool execution failed")
			e.metrics.RecordToolExecution(name, "failure", duration)
			return Result{
				Success:  false,
				Error:    out.err.Error(),
				Metadata: map[string]interface{}{"duration_ms": duration.Milliseconds()},
			}
		}

		rendered, truncated := renderOutput(out.output)
		e.logger.Debug().Str("tool", name).Dur("duration", duration).Bool("truncated", truncated).Msg("Tool execution completed")
		e.metrics.RecordToolExecution(name, "success", duration)

		result := Result{
			Success:   true,
			Output:    rendered,
			Truncated: truncated,
			Metadata:  map[string]interface{}{"duration_ms": duration.Milliseconds()},
		}
		if meta, ok := out.output.(ResultMetadata); ok {
			for k, v := range meta.Metadata() {
				result.Metadata[k] = v
			}
		}
		return result

	case <-timeoutCtx.Done():
		duration := time.Since(start)
		e.logger.Error().Str("tool", name).Dur("duration", duration).Msg("Tool execution timeout")
		e.metrics.RecordToolExecution(name, "timeout", duration)
		return Result{
			Success:  false,
			Error:    fmt.Sprintf("tool execution timeout after %v", timeout),
			Metadata: map[string]interface{}{"duration_ms": duration.Milliseconds()},
		}
	}
}

// ResultMetadata lets a handler attach structured metadata to its result
// alongside the rendered output.
type ResultMetadata interface {
	Metadata() map[string]interface{}
}

// Detailed pairs a handler's rendered output with structured metadata the
// dispatcher copies into the result.
type Detailed struct {
	Text string
	Meta map[string]interface{}
}

// String returns the rendered output.
func (d Detailed) String() string { return d.Text }

// Metadata returns the structured metadata.
func (d Detailed) Metadata() map[string]interface{} { return d.Meta }

func validateDefinition(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
	}
	return nil
}

func compileSchema(def Definition) (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema()))
}

func validateArgs(schema *gojsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := []string{}
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}
		return fmt.Errorf("validation errors: %v", msgs)
	}
	return nil
}

// renderOutput flattens a handler's return value to the string fed back to
// the model, truncating oversized output.
func renderOutput(output interface{}) (string, bool) {
	const maxSize = 10 * 1024

	str := ""
	switch v := output.(type) {
	case nil:
	case string:
		str = v
	default:
		str = fmt.Sprintf("%v", v)
	}

	if len(str) <= maxSize {
		return str, false
	}
	return str[:maxSize] + "\n... [output truncated]", true
}
