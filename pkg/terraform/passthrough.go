package terraform

import (
	"context"
	"fmt"

	"github.com/tendril-dev/tendril/pkg/project"
)

// RunRootCommand forwards an arbitrary subcommand to the project-root stack
// with its variables pre-injected, attached to the calling terminal. This is
// the operator debugging path, not part of automated reconciliation, so full
// interactivity (color, prompts) is preserved. Extra arguments are forwarded
// verbatim after the variable-file arguments.
func (d *Driver) RunRootCommand(ctx context.Context, cfg *project.Config, subcommand string, extraArgs []string) error {
	spec, ok := cfg.RootStack()
	if !ok {
		return NewConfigurationError(
			fmt.Sprintf("project %s does not specify an initRoot for its stack", cfg.Project.Name), nil)
	}
	return d.runPassthrough(ctx, spec, subcommand, extraArgs)
}

// RunModuleCommand forwards an arbitrary subcommand to a named module's
// stack. The first positional argument names the module; a missing or
// unknown name, or a module whose type does not declare stack compatibility,
// is a parameter error.
func (d *Driver) RunModuleCommand(ctx context.Context, cfg *project.Config, args []string, subcommand string) error {
	if len(args) == 0 {
		return NewParameterError(
			fmt.Sprintf("the first argument must be a module name (run `tendril tf-module <module> %s ...`)", subcommand), nil)
	}
	name := args[0]

	module, ok := cfg.Module(name)
	if !ok {
		return NewParameterError(fmt.Sprintf("could not find module %q in the project", name), nil)
	}
	if module.Type != project.StackTypeTerraform {
		return NewParameterError(
			fmt.Sprintf("module %q is a %q module and does not use a terraform stack", name, module.Type), nil)
	}

	return d.runPassthrough(ctx, cfg.Stack(module), subcommand, args[1:])
}

// runPassthrough materializes the stack's variables, prepends the resolved
// subcommand and variable-file arguments, and runs interactively.
func (d *Driver) runPassthrough(ctx context.Context, spec *project.StackSpec, subcommand string, extraArgs []string) error {
	varArgs, err := PrepareVariables(spec.Root, spec.Variables)
	if err != nil {
		return err
	}

	args := append([]string{subcommand}, varArgs...)
	args = append(args, extraArgs...)

	d.logger.Debug().
		Str("root", spec.Root).
		Str("subcommand", subcommand).
		Msg("forwarding command to stack")

	histID := d.beginHistory(ctx, spec.Root, "passthrough:"+subcommand)
	err = d.runner.RunInteractive(ctx, spec.Version, spec.Root, args)
	d.finishHistory(ctx, histID, nil, nil, err)
	return err
}
