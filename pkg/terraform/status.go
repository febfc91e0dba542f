package terraform

import (
	"context"
	"fmt"

	"github.com/tendril-dev/tendril/pkg/project"
)

// PlanOutcome classifies the dry-run plan's detailed exit code.
type PlanOutcome string

const (
	// OutcomeUpToDate means the plan reported no pending changes (exit 0).
	OutcomeUpToDate PlanOutcome = "up-to-date"

	// OutcomeErrored means the plan itself failed (exit 1), for example on
	// bad variables. This is a normal operational state, not a driver error:
	// the same failure surfaces again on the next mutating invocation.
	OutcomeErrored PlanOutcome = "errored"

	// OutcomeDrifted means changes are pending (exit 2): external state has
	// drifted from the declared configuration.
	OutcomeDrifted PlanOutcome = "drifted"
)

// planArgs are the fixed flags of the read-only status plan. State refresh
// and the tool's own locking are disabled for latency; the caller serializes
// reconciliation per root instead.
var planArgs = []string{"plan", "-detailed-exitcode", "-input=false", "-refresh=false", "-lock=false"}

// StackStatus is the externally visible result of a status check.
type StackStatus struct {
	// Ready reports whether the stack is usable by dependent work. With
	// auto-apply disabled a drifted stack is still ready: usable, not
	// converged.
	Ready bool `json:"ready"`

	// Outputs holds the stack's current outputs; empty whenever the stack
	// state could not be read.
	Outputs map[string]interface{} `json:"outputs"`
}

// classifyPlanExit maps the plan exit code onto a PlanOutcome. Codes outside
// {0,1,2} violate the tool's contract and are fatal integration defects.
func classifyPlanExit(res *ProcessResult, root string) (PlanOutcome, error) {
	switch res.ExitCode {
	case 0:
		return OutcomeUpToDate, nil
	case 1:
		return OutcomeErrored, nil
	case 2:
		return OutcomeDrifted, nil
	default:
		return "", NewPluginError(
			fmt.Sprintf("plan returned unexpected exit code %d", res.ExitCode), nil).
			WithRoot(root).
			WithExitCode(res.ExitCode).
			WithOutput(res.Stdout, res.Stderr)
	}
}

// readiness is the pure remediation-policy decision for one plan outcome.
type readiness struct {
	ready        bool
	fetchOutputs bool
	warnDrift    bool
}

// decideReadiness applies the auto-remediation policy to a plan outcome.
// This is the one piece of business policy in the driver, kept separate from
// the process plumbing:
//
//   - up-to-date: ready, outputs fetched.
//   - errored: not ready, no outputs, no error raised (the failure surfaces
//     again on the next real invocation; duplicating it here is noise).
//   - drifted with auto-apply: not ready, signalling the caller to trigger a
//     remediating apply.
//   - drifted without auto-apply: ready with current outputs, drift warning
//     emitted. Unmanaged drift must not block dependent work.
func decideReadiness(outcome PlanOutcome, autoApply bool) readiness {
	switch outcome {
	case OutcomeUpToDate:
		return readiness{ready: true, fetchOutputs: true}
	case OutcomeErrored:
		return readiness{}
	case OutcomeDrifted:
		if autoApply {
			return readiness{}
		}
		return readiness{ready: true, fetchOutputs: true, warnDrift: true}
	default:
		return readiness{}
	}
}

// Status validates the stack and classifies a read-only dry-run plan into a
// readiness decision. It never fails for plan exit codes 0, 1 or 2; any
// other code yields a plugin error. Validation failures propagate.
func (d *Driver) Status(ctx context.Context, spec *project.StackSpec) (*StackStatus, error) {
	ctx, end := d.startSpan(ctx, "terraform.status", spec.Root)
	var err error
	defer func() { end(err) }()
	done := d.instrument("status")
	defer func() { done(err) }()

	histID := d.beginHistory(ctx, spec.Root, "status")
	var exitCode *int
	var ready *bool
	defer func() { d.finishHistory(ctx, histID, exitCode, ready, err) }()

	if err = d.Validate(ctx, spec); err != nil {
		return nil, err
	}

	varArgs, err := PrepareVariables(spec.Root, spec.Variables)
	if err != nil {
		return nil, err
	}
	args := append(append([]string{}, planArgs...), varArgs...)

	res, err := d.runner.Run(ctx, spec.Version, spec.Root, args)
	if err != nil {
		err = fmt.Errorf("failed to run plan in %s: %w", spec.Root, err)
		return nil, err
	}
	exitCode = &res.ExitCode

	outcome, err := classifyPlanExit(res, spec.Root)
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.RecordPlanOutcome(string(outcome))
	}

	autoApply := d.effectiveAutoApply(ctx, spec)
	decision := decideReadiness(outcome, autoApply)

	if decision.warnDrift {
		d.logger.Warn().
			Str("root", spec.Root).
			Str("stack", spec.Name).
			Msg("stack configuration has changed but auto-apply is disabled; run `tendril apply` to apply the changes")
		if d.metrics != nil {
			d.metrics.RecordDriftObserved("warn")
		}
	}
	if outcome == OutcomeDrifted && autoApply {
		if d.metrics != nil {
			d.metrics.RecordDriftObserved("remediate")
		}
	}

	status := &StackStatus{Ready: decision.ready, Outputs: map[string]interface{}{}}
	if decision.fetchOutputs {
		outputs, outErr := d.Outputs(ctx, spec.Version, spec.Root)
		if outErr != nil {
			err = outErr
			return nil, err
		}
		status.Outputs = outputs
	}
	ready = &status.Ready
	return status, nil
}

// effectiveAutoApply applies the policy gate to the stack's declared
// auto-apply flag. A veto downgrades remediation to warn-and-continue.
func (d *Driver) effectiveAutoApply(ctx context.Context, spec *project.StackSpec) bool {
	if !spec.AutoApply {
		return false
	}
	if d.gate == nil {
		return true
	}
	allowed, reason, err := d.gate.AllowAutoApply(ctx, spec)
	if err != nil {
		d.logger.Warn().Err(err).
			Str("root", spec.Root).
			Msg("auto-apply policy evaluation failed, treating drift as advisory")
		return false
	}
	if !allowed {
		d.logger.Warn().
			Str("root", spec.Root).
			Str("reason", reason).
			Msg("auto-apply vetoed by policy")
	}
	return allowed
}
