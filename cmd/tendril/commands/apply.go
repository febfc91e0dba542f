package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [module]",
		Short: "Apply a stack's pending changes",
		Long: `Apply a stack's pending changes with the external tool.

The apply runs non-interactively and auto-approved as a live child
process: output streams to the status display line by line while being
captured in full for error reporting.`,
		Example: `  # Apply the project-root stack
  tendril apply

  # Apply a module's stack
  tendril apply networking`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}

			spec, err := resolveStack(cfg, args)
			if err != nil {
				return err
			}

			driver, cleanup, err := newDriver(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := driver.Apply(cmd.Context(), spec); err != nil {
				return err
			}

			log.Info().Str("stack", spec.Name).Msg("Stack applied")
			return nil
		},
	}

	return cmd
}
