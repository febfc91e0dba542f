package terraform

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tendril-dev/tendril/pkg/project"
	"github.com/tendril-dev/tendril/pkg/telemetry"
)

// DefaultInitTimeout bounds the one-shot init recovery inside Validate.
const DefaultInitTimeout = 300 * time.Second

// AutoApplyGate decides whether automatic remediation may run for a stack.
// A veto downgrades the stack to the warn-and-continue drift policy.
type AutoApplyGate interface {
	// AllowAutoApply returns whether remediation is permitted and, when it
	// is not, the reason for the veto.
	AllowAutoApply(ctx context.Context, spec *project.StackSpec) (allowed bool, reason string, err error)
}

// History records driver operations for post-mortem inspection. Recording is
// best-effort: failures are logged and never fail the operation itself.
type History interface {
	// Begin opens a history record and returns its ID.
	Begin(ctx context.Context, root, action string) (string, error)

	// Finish completes a record. exitCode and ready are nil when the
	// operation did not get far enough to produce them.
	Finish(ctx context.Context, id string, exitCode *int, ready *bool, opErr error)
}

// Driver manages the lifecycle of externally-owned infrastructure stacks by
// interpreting the wrapped tool's process contract. Each operation spawns
// exactly one external process and waits for it; the driver owns no internal
// scheduling.
//
// Callers must serialize reconciliation calls (validate, plan, apply)
// against one stack root: plan runs with the tool's own locking disabled and
// the shared variable file is overwritten per call. The driver does not
// enforce this.
type Driver struct {
	runner      Runner
	logger      zerolog.Logger
	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
	history     History
	gate        AutoApplyGate
	initTimeout time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithMetrics enables metrics recording.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithTracer enables span creation around external invocations.
func WithTracer(t *telemetry.Tracer) Option {
	return func(d *Driver) { d.tracer = t }
}

// WithHistory enables reconciliation history recording.
func WithHistory(h History) Option {
	return func(d *Driver) { d.history = h }
}

// WithAutoApplyGate installs a policy gate consulted before signalling
// automatic remediation.
func WithAutoApplyGate(g AutoApplyGate) Option {
	return func(d *Driver) { d.gate = g }
}

// WithInitTimeout overrides the bounded timeout of the init recovery step.
func WithInitTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.initTimeout = timeout }
}

// NewDriver creates a Driver on top of the given process runner.
func NewDriver(runner Runner, opts ...Option) *Driver {
	d := &Driver{
		runner:      runner,
		logger:      zerolog.Nop(),
		initTimeout: DefaultInitTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("component", "terraform-driver").Logger()
	return d
}

// beginHistory opens a history record when history is configured.
func (d *Driver) beginHistory(ctx context.Context, root, action string) string {
	if d.history == nil {
		return ""
	}
	id, err := d.history.Begin(ctx, root, action)
	if err != nil {
		d.logger.Warn().Err(err).Str("action", action).Msg("failed to record operation start")
		return ""
	}
	return id
}

// finishHistory completes a history record when one was opened.
func (d *Driver) finishHistory(ctx context.Context, id string, exitCode *int, ready *bool, opErr error) {
	if d.history == nil || id == "" {
		return
	}
	d.history.Finish(ctx, id, exitCode, ready, opErr)
}

// startSpan opens a trace span when tracing is configured. The returned end
// function records the outcome and closes the span.
func (d *Driver) startSpan(ctx context.Context, operation, root string) (context.Context, func(error)) {
	if d.tracer == nil {
		return ctx, func(error) {}
	}
	return d.tracer.StartStackSpan(ctx, operation, root)
}

// instrument records operation metrics when metrics are configured. The
// returned done function records completion, duration and error kind.
func (d *Driver) instrument(action string) func(error) {
	if d.metrics == nil {
		return func(error) {}
	}
	d.metrics.RecordReconciliationStarted(action)
	timer := telemetry.NewTimer()
	return func(err error) {
		result := "success"
		if err != nil {
			result = "failure"
			var stackErr *StackError
			if errors.As(err, &stackErr) {
				d.metrics.RecordError(string(stackErr.Kind))
			}
		}
		d.metrics.RecordReconciliationCompleted(action, result, timer.Duration())
	}
}
