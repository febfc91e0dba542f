package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [module]",
		Short: "Validate a stack's configuration",
		Long: `Validate a stack's configuration with the external tool.

An uninitialized stack (missing modules or plugins) is initialized once
and revalidated automatically; any other validation failure is reported
with every diagnostic the tool emitted.`,
		Example: `  # Validate the project-root stack
  tendril validate

  # Validate a module's stack
  tendril validate networking`,
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

			if err := driver.Validate(cmd.Context(), spec); err != nil {
				return err
			}

			log.Info().Str("stack", spec.Name).Msg("Stack configuration is valid")
			return nil
		},
	}

	return cmd
}
