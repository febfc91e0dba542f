package terraform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// ProcessResult is the captured result of a non-interactive invocation.
// A non-zero exit code is not an error at this layer: the caller interprets
// exit codes against the tool's contract.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Child is a live external process. Stdout and Stderr stream while the
// process runs; Wait blocks until exit and returns the exit code. Wait
// returns a non-nil error only for process-level failures, not for non-zero
// exits.
type Child interface {
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() (int, error)
}

// Runner executes the external tool. It is the single seam between the
// reconciliation logic and the operating system: tests inject a fake Runner
// returning canned results, so no real binary is needed.
type Runner interface {
	// Run executes the tool from root, capturing output. The error is
	// non-nil only when the process could not be started or was killed by
	// the context; tool-level failures surface through ProcessResult.
	Run(ctx context.Context, version, root string, args []string) (*ProcessResult, error)

	// RunInteractive executes the tool attached to the calling terminal.
	// Used by the operator passthrough path so prompts and color survive.
	RunInteractive(ctx context.Context, version, root string, args []string) error

	// Spawn starts the tool as a live child process for long-running
	// commands whose output must stream.
	Spawn(ctx context.Context, version, root string, args []string) (Child, error)
}

// CLIRunner runs the tool binary located by a Resolver.
type CLIRunner struct {
	resolver Resolver
	logger   zerolog.Logger
}

// NewCLIRunner creates a runner backed by the given binary resolver.
func NewCLIRunner(resolver Resolver, logger zerolog.Logger) *CLIRunner {
	return &CLIRunner{
		resolver: resolver,
		logger:   logger.With().Str("component", "runner").Logger(),
	}
}

// Run executes the tool from root and captures stdout/stderr.
func (r *CLIRunner) Run(ctx context.Context, version, root string, args []string) (*ProcessResult, error) {
	bin, err := r.resolver.Resolve(ctx, version)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r.logger.Debug().
		Str("binary", bin).
		Str("root", root).
		Strs("args", args).
		Msg("executing tool")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = root

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	code, perr := exitStatus(err)
	if perr != nil {
		return nil, perr
	}

	r.logger.Debug().
		Int("exit_code", code).
		Dur("duration", time.Since(start)).
		Msg("tool exited")

	return &ProcessResult{
		ExitCode: code,
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
	}, nil
}

// RunInteractive executes the tool attached to the calling terminal.
func (r *CLIRunner) RunInteractive(ctx context.Context, version, root string, args []string) error {
	bin, err := r.resolver.Resolve(ctx, version)
	if err != nil {
		return err
	}

	r.logger.Debug().
		Str("binary", bin).
		Str("root", root).
		Strs("args", args).
		Msg("executing tool interactively")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = root
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// Spawn starts the tool as a live child process with streaming pipes.
func (r *CLIRunner) Spawn(ctx context.Context, version, root string, args []string) (Child, error) {
	bin, err := r.resolver.Resolve(ctx, version)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("binary", bin).
		Str("root", root).
		Strs("args", args).
		Msg("spawning tool")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = root

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &osChild{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// osChild wraps a started exec.Cmd as a Child.
type osChild struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (c *osChild) Stdout() io.Reader { return c.stdout }
func (c *osChild) Stderr() io.Reader { return c.stderr }

func (c *osChild) Wait() (int, error) {
	return exitStatus(c.cmd.Wait())
}

// exitStatus splits an exec error into (exit code, process-level error).
// A non-zero exit is a normal result here, not an error.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
