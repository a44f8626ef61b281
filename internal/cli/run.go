package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haoyang/ant/internal/config"
	"github.com/haoyang/ant/internal/logger"
	"github.com/haoyang/ant/internal/metrics"
	"github.com/haoyang/ant/internal/prompt"
	"github.com/haoyang/ant/internal/trajectory"
	"github.com/haoyang/ant/pkg/agent"
	"github.com/haoyang/ant/pkg/coretools"
	"github.com/haoyang/ant/pkg/history"
	"github.com/haoyang/ant/pkg/llm"
	"github.com/haoyang/ant/pkg/memory"
	"github.com/haoyang/ant/pkg/plan"
	"github.com/haoyang/ant/pkg/toolexec"
)

var (
	runSkill      string
	runWorkingDir string
	runMaxSteps   int
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run the agent on a task",
	Long: `Run the agent on a single task until it calls task_done or the
step budget is exhausted. The task is given as arguments; everything
after "run" becomes the task text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runSkill, "skill", "", "system prompt skill (default, workflow, smart)")
	runCmd.Flags().StringVar(&runWorkingDir, "working-dir", "", "workspace root for file and shell tools")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "maximum model invocations for this run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if runSkill != "" {
		cfg.Agent.Skill = runSkill
	}
	if runWorkingDir != "" {
		cfg.Agent.WorkingDir = runWorkingDir
	}
	if runMaxSteps > 0 {
		cfg.Agent.MaxSteps = runMaxSteps
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return err
	}
	defer log.Close()
	zl := log.Logger()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, m.Handler()); err != nil {
				zl.Warn().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint stopped")
			}
		}()
	}

	var recorder trajectory.Recorder = trajectory.Nop{}
	if cfg.Trajectory.Enabled {
		switch cfg.Trajectory.Backend {
		case "sqlite":
			r, err := trajectory.NewSQLiteRecorder(cfg.Trajectory.Path)
			if err != nil {
				return fmt.Errorf("failed to open trajectory database: %w", err)
			}
			defer r.Close()
			recorder = r
		default:
			r, err := trajectory.NewJSONLRecorder(cfg.Trajectory.Path)
			if err != nil {
				return fmt.Errorf("failed to open trajectory file: %w", err)
			}
			defer r.Close()
			recorder = r
		}
	}

	prompts, err := prompt.NewRegistry(cfg.Prompts.Dir, zl)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	defer prompts.Close()
	if cfg.Prompts.Watch && cfg.Prompts.Dir != "" {
		if err := prompts.Watch(); err != nil {
			zl.Warn().Err(err).Msg("prompt live reload unavailable")
		}
	}

	provider, err := llm.NewProvider(llm.ProviderConfig{
		Provider: cfg.Model.Provider,
		APIKey:   cfg.Model.APIKey,
		BaseURL:  cfg.Model.BaseURL,
	})
	if err != nil {
		return err
	}
	client, err := llm.NewClient(llm.Config{
		Provider:         provider,
		Strategy:         llm.RetryStrategy(cfg.Retry.Strategy),
		MaxRetries:       cfg.Retry.MaxRetries,
		BaseDelay:        cfg.Retry.BaseDelay,
		MaxDelay:         cfg.Retry.MaxDelay,
		ExponentialBase:  cfg.Retry.ExponentialBase,
		Jitter:           cfg.Retry.Jitter,
		FailureThreshold: cfg.Retry.FailureThreshold,
		BreakerTimeout:   cfg.Retry.BreakerTimeout,
		AttemptTimeout:   cfg.Retry.AttemptTimeout,
		Logger:           zl,
		Metrics:          m,
	})
	if err != nil {
		return err
	}

	hist := history.New(prompts.Get(cfg.Agent.Skill), recorder)
	plans := plan.NewStack()
	store := memory.NewStore()

	executor := toolexec.New(zl, m)
	if err := coretools.Register(executor, coretools.Options{
		Plans:         plans,
		Memory:        store,
		WorkspaceRoot: cfg.Agent.WorkingDir,
		Logger:        zl,
	}); err != nil {
		return fmt.Errorf("failed to register core tools: %w", err)
	}

	summarizer := memory.SummarizerFunc(func(ctx context.Context, transcript string) (string, error) {
		resp, err := client.Invoke(ctx, llm.Request{
			Model:     cfg.Model.Model,
			MaxTokens: cfg.Model.MaxTokens,
			Messages: []history.Turn{{
				Role:    history.RoleUser,
				Content: fmt.Sprintf(memory.SummaryPrompt, transcript),
			}},
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	})
	compressor, err := memory.NewCompressor(memory.Config{
		ContextWindow:  cfg.Memory.ContextWindow,
		ThresholdRatio: cfg.Memory.ThresholdRatio,
		KeepRecent:     cfg.Memory.KeepRecent,
		Summarizer:     summarizer,
		Logger:         zl,
		Metrics:        m,
	})
	if err != nil {
		return err
	}

	ag, err := agent.New(agent.Config{
		History:     hist,
		Plans:       plans,
		Client:      client,
		Executor:    executor,
		Compressor:  compressor,
		Recorder:    recorder,
		Logger:      zl,
		Metrics:     m,
		Model:       cfg.Model.Model,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		MaxSteps:    cfg.Agent.MaxSteps,
		WorkingDir:  cfg.Agent.WorkingDir,
		ToolTimeout: cfg.Agent.ToolTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := ag.Run(ctx, task)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Output)
	zl.Info().
		Str("reason", string(result.Reason)).
		Int("steps", result.Steps).
		Msg("run finished")
	return nil
}
