package trajectory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event types recorded by the core.
const (
	EventMessage    = "message"
	EventToolResult = "tool_result"
	EventRun        = "run"
)

// Event is the minimal shape persisted for audit logging. The core only
// needs Record; storage layout is the recorder's concern.
type Event struct {
	Time       time.Time              `json:"time"`
	Type       string                 `json:"type"`
	Role       string                 `json:"role,omitempty"`
	Content    string                 `json:"content,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	Success    bool                   `json:"success,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder receives execution events. Implementations must tolerate
// concurrent calls; the core functions correctly with no recorder at all.
type Recorder interface {
	Record(event Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Record(Event) {}

// JSONLRecorder appends events to a JSON-lines file.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder opens (or creates) the trajectory file for appending.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trajectory directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory file: %w", err)
	}
	return &JSONLRecorder{file: file, enc: json.NewEncoder(file)}, nil
}

// Record writes one event as a single JSON line. Encoding failures are
// swallowed: observability must never break the task.
func (r *JSONLRecorder) Record(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(event)
}

// Close flushes and closes the underlying file.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
