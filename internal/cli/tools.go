package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/haoyang/ant/internal/config"
	"github.com/haoyang/ant/pkg/coretools"
	"github.com/haoyang/ant/pkg/memory"
	"github.com/haoyang/ant/pkg/plan"
	"github.com/haoyang/ant/pkg/toolexec"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the agent",
	Long: `List every tool the agent can call with the current configuration.
Workspace tools (bash, file access) only appear when a working
directory is configured.`,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}

	executor := toolexec.New(zerolog.Nop(), nil)
	err = coretools.Register(executor, coretools.Options{
		Plans:         plan.NewStack(),
		Memory:        memory.NewStore(),
		WorkspaceRoot: cfg.Agent.WorkingDir,
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		return err
	}

	for _, def := range executor.Definitions() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", def.Name, def.Description)
	}
	return nil
}
