package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newOutputsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outputs [module]",
		Short: "List a stack's outputs",
		Long:  `List a stack's current outputs as a flat name-to-value JSON map.`,
		Example: `  # Outputs of the project-root stack
  tendril outputs

  # Outputs of a module's stack
  tendril outputs networking`,
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

			outputs, err := driver.Outputs(cmd.Context(), spec.Version, spec.Root)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(outputs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	return cmd
}
