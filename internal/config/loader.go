package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Loader loads configuration from a JSON file with ANT_* environment
// overrides.
type Loader struct {
	configPath string
}

// NewLoader creates a loader. An empty path means ~/.ant/ant.json.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads the config file, falling back to defaults when it does not
// exist, and validates the result.
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".ant", "ant.json")
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		v.SetEnvPrefix("ANT")
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// The key never belongs in the file; the environment wins regardless.
	if key := os.Getenv("ANT_API_KEY"); key != "" {
		cfg.Model.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as JSON to the loader's path, creating
// the directory if needed.
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to resolve config path")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("agent", cfg.Agent)
	v.Set("model", cfg.Model)
	v.Set("retry", cfg.Retry)
	v.Set("memory", cfg.Memory)
	v.Set("trajectory", cfg.Trajectory)
	v.Set("prompts", cfg.Prompts)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the resolved config file path.
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ant", "ant.json")
}

// Validate checks cross-field constraints the zero value cannot express.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown model provider: %s", c.Model.Provider)
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent max_steps must be positive")
	}
	switch c.Retry.Strategy {
	case "fixed", "linear", "exponential":
	default:
		return fmt.Errorf("unknown retry strategy: %s", c.Retry.Strategy)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries cannot be negative")
	}
	if c.Memory.ThresholdRatio <= 0 || c.Memory.ThresholdRatio > 1 {
		return fmt.Errorf("memory threshold_ratio must be in (0, 1]")
	}
	if c.Memory.KeepRecent <= 0 {
		return fmt.Errorf("memory keep_recent must be positive")
	}
	switch c.Trajectory.Backend {
	case "jsonl", "sqlite":
	default:
		return fmt.Errorf("unknown trajectory backend: %s", c.Trajectory.Backend)
	}
	if c.Trajectory.Enabled && c.Trajectory.Path == "" {
		return fmt.Errorf("trajectory path is required when recording is enabled")
	}
	return nil
}
