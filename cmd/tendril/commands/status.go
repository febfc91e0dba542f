package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [module]",
		Short: "Check whether a stack is ready",
		Long: `Check whether a stack is ready by validating its configuration and
classifying a read-only dry-run plan.

A stack with pending changes is not ready when auto-apply is enabled
(the scheduler should remediate it), and ready-with-a-warning otherwise.`,
		Example: `  # Status of the project-root stack
  tendril status

  # Status of a module's stack
  tendril status networking`,
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

			status, err := driver.Status(cmd.Context(), spec)
			if err != nil {
				return err
			}

			if jsonOutput {
				out, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			log.Info().
				Str("stack", spec.Name).
				Bool("ready", status.Ready).
				Int("outputs", len(status.Outputs)).
				Msg("Stack status")
			return nil
		},
	}

	return cmd
}
