package commands

import (
	"github.com/spf13/cobra"
)

func newTfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tf <subcommand> [args...]",
		Short: "Run a tool subcommand against the project-root stack",
		Long: `Run an arbitrary tool subcommand against the project-root stack with the
stack's variables pre-injected.

The command runs attached to the terminal, so prompts and color work as
they would when running the tool directly. Arguments after the
subcommand are forwarded verbatim.`,
		Example: `  # Show the root stack's plan
  tendril tf plan

  # Inspect state, forwarding extra arguments
  tendril tf state list -id=aws_instance.web`,
		Args: cobra.MinimumNArgs(1),
		// Forwarded arguments belong to the wrapped tool, not to tendril.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				return err
			}

			cfg, err := loadProject()
			if err != nil {
				return err
			}

			driver, cleanup, err := newDriver(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			return driver.RunRootCommand(cmd.Context(), cfg, args[0], args[1:])
		},
	}

	return cmd
}

func newTfModuleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tf-module <module> <subcommand> [args...]",
		Short: "Run a tool subcommand against a module's stack",
		Long: `Run an arbitrary tool subcommand against a named module's stack with the
module's variables pre-injected.

The first argument names the module; it must be a terraform module
declared in the project. Remaining arguments are forwarded verbatim to
the tool, attached to the terminal.`,
		Example: `  # Show a module stack's plan
  tendril tf-module networking plan

  # Destroy a module's stack interactively
  tendril tf-module networking destroy`,
		// Forwarded arguments belong to the wrapped tool, not to tendril.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(2)(cmd, args); err != nil {
				return err
			}

			cfg, err := loadProject()
			if err != nil {
				return err
			}

			driver, cleanup, err := newDriver(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// args: [module, subcommand, extra...]
			moduleArgs := append([]string{args[0]}, args[2:]...)
			return driver.RunModuleCommand(cmd.Context(), cfg, moduleArgs, args[1])
		},
	}

	return cmd
}
