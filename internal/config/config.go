// Package config defines the application configuration and its JSON/env
// loading. One Config describes one agent process: which model to talk
// to, how hard to retry it, how much history to keep, and where to record
// what happened.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Agent      AgentConfig      `json:"agent" mapstructure:"agent"`
	Model      ModelConfig      `json:"model" mapstructure:"model"`
	Retry      RetryConfig      `json:"retry" mapstructure:"retry"`
	Memory     MemoryConfig     `json:"memory" mapstructure:"memory"`
	Trajectory TrajectoryConfig `json:"trajectory" mapstructure:"trajectory"`
	Prompts    PromptsConfig    `json:"prompts" mapstructure:"prompts"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `json:"metrics" mapstructure:"metrics"`
}

// AgentConfig drives the orchestrator.
type AgentConfig struct {
	Skill       string        `json:"skill" mapstructure:"skill"`
	MaxSteps    int           `json:"max_steps" mapstructure:"max_steps"`
	WorkingDir  string        `json:"working_dir" mapstructure:"working_dir"`
	ToolTimeout time.Duration `json:"tool_timeout" mapstructure:"tool_timeout"`
}

// ModelConfig selects and configures the provider.
type ModelConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"`
	Model       string  `json:"model" mapstructure:"model"`
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// RetryConfig drives the resilient client.
type RetryConfig struct {
	Strategy         string        `json:"strategy" mapstructure:"strategy"`
	MaxRetries       int           `json:"max_retries" mapstructure:"max_retries"`
	BaseDelay        time.Duration `json:"base_delay" mapstructure:"base_delay"`
	MaxDelay         time.Duration `json:"max_delay" mapstructure:"max_delay"`
	ExponentialBase  float64       `json:"exponential_base" mapstructure:"exponential_base"`
	Jitter           bool          `json:"jitter" mapstructure:"jitter"`
	FailureThreshold int           `json:"failure_threshold" mapstructure:"failure_threshold"`
	BreakerTimeout   time.Duration `json:"breaker_timeout" mapstructure:"breaker_timeout"`
	AttemptTimeout   time.Duration `json:"attempt_timeout" mapstructure:"attempt_timeout"`
}

// MemoryConfig drives the history compressor.
type MemoryConfig struct {
	ContextWindow  int     `json:"context_window" mapstructure:"context_window"`
	ThresholdRatio float64 `json:"threshold_ratio" mapstructure:"threshold_ratio"`
	KeepRecent     int     `json:"keep_recent" mapstructure:"keep_recent"`
}

// TrajectoryConfig drives execution recording.
type TrajectoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Backend string `json:"backend" mapstructure:"backend"` // jsonl, sqlite
	Path    string `json:"path" mapstructure:"path"`
}

// PromptsConfig drives the prompt registry.
type PromptsConfig struct {
	Dir   string `json:"dir" mapstructure:"dir"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// LoggingConfig drives zerolog setup.
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// MetricsConfig drives the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Skill:       "default",
			MaxSteps:    200,
			ToolTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		Retry: RetryConfig{
			Strategy:         "exponential",
			MaxRetries:       10,
			BaseDelay:        time.Second,
			MaxDelay:         60 * time.Second,
			ExponentialBase:  2.0,
			Jitter:           true,
			FailureThreshold: 5,
			BreakerTimeout:   60 * time.Second,
			AttemptTimeout:   120 * time.Second,
		},
		Memory: MemoryConfig{
			ContextWindow:  200_000,
			ThresholdRatio: 0.8,
			KeepRecent:     15,
		},
		Trajectory: TrajectoryConfig{
			Backend: "jsonl",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}
