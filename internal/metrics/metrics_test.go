package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("should expose recorded metrics over the handler", func(t *testing.T) {
		m := New()
		m.RecordModelCall("anthropic", "success", 120*time.Millisecond)
		m.RecordRetry()
		m.RecordBreakerOpen()
		m.RecordBreakerSkip()
		m.RecordToolExecution("bash", "success", 5*time.Millisecond)
		m.RecordToolExecution("bash", "failure", time.Millisecond)
		m.RecordAgentStep()
		m.RecordAgentRun("completed")
		m.RecordCompression("summarized")

		srv := httptest.NewServer(m.Handler())
		defer srv.Close()

		resp, err := srv.Client().Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		buf := make([]byte, 64*1024)
		n, _ := resp.Body.Read(buf)
		body := string(buf[:n])
		assert.Contains(t, body, "ant_model_calls_total")
		assert.Contains(t, body, "ant_tool_executions_total")
		assert.Contains(t, body, "ant_agent_runs_total")
	})

	t.Run("should no-op on a nil receiver", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.RecordModelCall("openai", "failure", time.Second)
			m.RecordRetry()
			m.RecordBreakerOpen()
			m.RecordBreakerSkip()
			m.RecordToolExecution("edit", "success", time.Millisecond)
			m.RecordAgentStep()
			m.RecordAgentRun("step_limit")
			m.RecordCompression("discarded")
		})
	})
}
