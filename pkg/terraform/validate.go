package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tendril-dev/tendril/pkg/project"
)

// recoverableSummaries are the stock diagnostic phrases meaning "the stack
// has not been initialized" or "a required plugin or module is missing".
// Only these trigger the one-shot init recovery; anything else fails
// immediately. Recovery is a narrow enumerated special case, not a generic
// retry-on-failure.
var recoverableSummaries = []string{
	"Backend initialization required",
	"Could not load plugin",
	"Module not installed",
	"Module not found",
	"Required plugins are not installed",
	"Missing required provider",
}

// validationResult is the decoded body of `validate -json`.
type validationResult struct {
	Valid       bool         `json:"valid"`
	Diagnostics []diagnostic `json:"diagnostics"`
}

// diagnostic is one entry of the tool's validation diagnostics.
type diagnostic struct {
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail,omitempty"`
}

// Validate confirms the stack configuration is structurally valid. The tool
// is run with `validate -json`; its exit code is ignored because the JSON
// body's valid field is the source of truth. When validation fails with a
// recoverable diagnostic, the tool's init command runs once under a bounded
// timeout and validation is retried exactly once.
func (d *Driver) Validate(ctx context.Context, spec *project.StackSpec) error {
	ctx, end := d.startSpan(ctx, "terraform.validate", spec.Root)
	var err error
	defer func() { end(err) }()
	done := d.instrument("validate")
	defer func() { done(err) }()

	histID := d.beginHistory(ctx, spec.Root, "validate")
	defer func() { d.finishHistory(ctx, histID, nil, nil, err) }()

	varArgs, err := PrepareVariables(spec.Root, spec.Variables)
	if err != nil {
		return err
	}
	args := append([]string{"validate", "-json"}, varArgs...)

	result, err := d.runValidate(ctx, spec, args)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}

	if !result.recoverable() {
		err = configurationError(spec.Root, result.Diagnostics)
		return err
	}

	d.logger.Info().
		Str("root", spec.Root).
		Msg("stack not initialized, running init")
	if d.metrics != nil {
		d.metrics.RecordInitRecovery(spec.Root)
	}

	if err = d.runInit(ctx, spec); err != nil {
		return err
	}

	result, err = d.runValidate(ctx, spec, args)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}

	err = configurationError(spec.Root, result.Diagnostics)
	return err
}

// runValidate executes one validate invocation and decodes its JSON body.
func (d *Driver) runValidate(ctx context.Context, spec *project.StackSpec, args []string) (*validationResult, error) {
	res, err := d.runner.Run(ctx, spec.Version, spec.Root, args)
	if err != nil {
		return nil, fmt.Errorf("failed to run validate in %s: %w", spec.Root, err)
	}

	result := &validationResult{}
	if jsonErr := json.Unmarshal([]byte(res.Stdout), result); jsonErr != nil {
		return nil, NewPluginError("validate returned an unparsable JSON body", jsonErr).
			WithRoot(spec.Root).
			WithExitCode(res.ExitCode).
			WithOutput(res.Stdout, res.Stderr)
	}
	return result, nil
}

// runInit performs the bounded one-shot initialization recovery.
func (d *Driver) runInit(ctx context.Context, spec *project.StackSpec) error {
	ctx, cancel := context.WithTimeout(ctx, d.initTimeout)
	defer cancel()

	res, err := d.runner.Run(ctx, spec.Version, spec.Root, []string{"init"})
	if err != nil {
		return NewConfigurationError("failed to initialize stack", err).WithRoot(spec.Root)
	}
	if res.ExitCode != 0 {
		return NewConfigurationError("stack initialization failed", nil).
			WithRoot(spec.Root).
			WithExitCode(res.ExitCode).
			WithOutput(res.Stdout, res.Stderr)
	}
	return nil
}

// recoverable reports whether any diagnostic summary is in the enumerated
// recoverable set.
func (r *validationResult) recoverable() bool {
	for _, diag := range r.Diagnostics {
		for _, phrase := range recoverableSummaries {
			if strings.Contains(diag.Summary, phrase) {
				return true
			}
		}
	}
	return false
}

// configurationError builds the terminal validation failure carrying every
// reported diagnostic so the operator sees all problems at once.
func configurationError(root string, diagnostics []diagnostic) error {
	messages := make([]string, 0, len(diagnostics))
	for _, diag := range diagnostics {
		msg := fmt.Sprintf("%s: %s", capitalize(diag.Severity), diag.Summary)
		if diag.Detail != "" {
			msg += "\n" + diag.Detail
		}
		messages = append(messages, msg)
	}
	return NewConfigurationError(
		"stack configuration is invalid:\n"+strings.Join(messages, "\n"),
		nil,
	).WithRoot(root)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
