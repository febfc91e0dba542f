package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tendril-dev/tendril/pkg/policy"
	"github.com/tendril-dev/tendril/pkg/project"
	"github.com/tendril-dev/tendril/pkg/stores"
	"github.com/tendril-dev/tendril/pkg/telemetry"
	"github.com/tendril-dev/tendril/pkg/terraform"
)

// loadProject loads the project configuration from --config or the default
// file in the current directory.
func loadProject() (*project.Config, error) {
	path := configPath
	if path == "" {
		path = project.DefaultConfigFile
	}
	return project.Load(path)
}

// newDriver wires a driver from the project configuration: PATH-based
// binary resolver, policy gate, and the history store when configured.
// The returned cleanup must run after the command finishes.
func newDriver(ctx context.Context, cfg *project.Config) (*terraform.Driver, func(), error) {
	logger := log.Logger

	resolver := terraform.NewPathResolver("terraform", logger)
	runner := terraform.NewCLIRunner(resolver, logger)

	gate, err := policy.NewEngine(logger, cfg.Project.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	opts := []terraform.Option{
		terraform.WithLogger(logger),
		terraform.WithAutoApplyGate(gate),
	}

	telemetryOpts, telemetryCleanup, err := telemetryOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, telemetryOpts...)

	cleanup := telemetryCleanup
	if cfg.History != nil && cfg.History.Path != "" {
		store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.History.Path})
		if err != nil {
			return nil, nil, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		opts = append(opts, terraform.WithHistory(stores.NewReconciliationHistory(store, logger)))
		cleanup = func() {
			_ = store.Close()
			telemetryCleanup()
		}
	}

	return terraform.NewDriver(runner, opts...), cleanup, nil
}

// telemetryOptions builds metrics and tracing driver options from the
// environment. TENDRIL_METRICS_ADDR enables a Prometheus endpoint on that
// address; TENDRIL_TRACE_EXPORTER (otlp, stdout) enables tracing, with
// TENDRIL_OTLP_ENDPOINT pointing the OTLP exporter at a collector.
func telemetryOptions(cfg *project.Config) ([]terraform.Option, func(), error) {
	metricsAddr := os.Getenv("TENDRIL_METRICS_ADDR")
	traceExporter := os.Getenv("TENDRIL_TRACE_EXPORTER")
	if metricsAddr == "" && traceExporter == "" {
		return nil, func() {}, nil
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.Environment = cfg.Project.Environment
	if metricsAddr != "" {
		tcfg.Metrics.Enabled = true
		tcfg.Metrics.ListenAddress = metricsAddr
	}
	if traceExporter != "" {
		tcfg.Tracing.Enabled = true
		tcfg.Tracing.Exporter = traceExporter
		tcfg.Tracing.Endpoint = os.Getenv("TENDRIL_OTLP_ENDPOINT")
	}

	tel, err := telemetry.NewTelemetry(tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if err := tel.StartMetricsServer(); err != nil {
		return nil, nil, err
	}

	opts := []terraform.Option{
		terraform.WithMetrics(tel.Metrics),
		terraform.WithTracer(tel.Tracer),
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	}
	return opts, cleanup, nil
}

// resolveStack picks the stack a command operates on: the project-root
// stack by default, or a named module's stack.
func resolveStack(cfg *project.Config, args []string) (*project.StackSpec, error) {
	if len(args) == 0 {
		spec, ok := cfg.RootStack()
		if !ok {
			return nil, terraform.NewConfigurationError(
				fmt.Sprintf("project %s does not specify an initRoot for its stack", cfg.Project.Name), nil)
		}
		return spec, nil
	}

	name := args[0]
	module, ok := cfg.Module(name)
	if !ok {
		return nil, terraform.NewParameterError(
			fmt.Sprintf("could not find module %q in the project", name), nil)
	}
	if module.Type != project.StackTypeTerraform {
		return nil, terraform.NewParameterError(
			fmt.Sprintf("module %q is a %q module and does not use a terraform stack", name, module.Type), nil)
	}
	return cfg.Stack(module), nil
}
