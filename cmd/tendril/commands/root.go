package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tendril",
		Short: "Tendril - Declarative stack reconciliation driver",
		Long: `Tendril reconciles externally-owned infrastructure stacks through a
Terraform-compatible CLI on behalf of a declarative project model.

Features:
  - Readiness checks driven by the tool's detailed plan exit codes
  - Auto-remediation policy per stack (blocking vs. advisory drift)
  - Bounded init recovery for uninitialized stacks
  - Live-streamed applies with full output capture for error reports
  - Operator passthrough to the wrapped tool with variables pre-injected`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "project config file path (default: ./tendril.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newOutputsCommand())
	rootCmd.AddCommand(newTfCommand())
	rootCmd.AddCommand(newTfModuleCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
