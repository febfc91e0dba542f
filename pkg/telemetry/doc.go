// Package telemetry provides observability instrumentation for the Tendril
// stack driver: structured logging (zerolog), distributed tracing
// (OpenTelemetry) and Prometheus metrics.
//
// Initialize at startup and attach to the context:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    log.Fatal().Err(err).Msg("telemetry init failed")
//	}
//	defer tel.Shutdown(ctx)
//	ctx = tel.WithContext(ctx)
//
// Component loggers carry a component field; driver operations open spans
// via Tracer.StartStackSpan and record reconciliation counters and
// durations on Metrics. Disabled tracing and metrics degrade to no-ops so
// call sites never branch on configuration.
//
// Key metrics:
//
//   - tendril_reconciliations_started_total{action}
//   - tendril_reconciliations_completed_total{action,result}
//   - tendril_reconciliation_duration_seconds{action}
//   - tendril_plan_outcomes_total{outcome}
//   - tendril_stack_drift_observed_total{policy}
//   - tendril_init_recoveries_total
//   - tendril_errors_total{kind}
package telemetry
