package terraform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tendril-dev/tendril/pkg/project"
)

// applyArgs are the fixed flags of the non-interactive mutating apply.
// Locking is deliberately not disabled here: the tool's native lock still
// protects concurrent applies against the same root invoked from elsewhere.
var applyArgs = []string{"apply", "-auto-approve", "-input=false"}

// Apply runs the mutating apply command as a live child process. Both output
// streams are simultaneously tee'd into line-oriented status logging, so the
// operator sees progress on a long apply, and accumulated in full for error
// reporting. Exit 0 succeeds; any other exit code fails with a runtime error
// carrying the accumulated output and code. A process-level failure (for
// example failure to spawn) fails immediately.
func (d *Driver) Apply(ctx context.Context, spec *project.StackSpec) error {
	ctx, end := d.startSpan(ctx, "terraform.apply", spec.Root)
	var err error
	defer func() { end(err) }()
	done := d.instrument("apply")
	defer func() { done(err) }()

	histID := d.beginHistory(ctx, spec.Root, "apply")
	var exitCode *int
	defer func() { d.finishHistory(ctx, histID, exitCode, nil, err) }()

	varArgs, err := PrepareVariables(spec.Root, spec.Variables)
	if err != nil {
		return err
	}
	args := append(append([]string{}, applyArgs...), varArgs...)

	d.logger.Info().
		Str("root", spec.Root).
		Str("stack", spec.Name).
		Msg("applying stack")

	child, err := d.runner.Spawn(ctx, spec.Version, spec.Root, args)
	if err != nil {
		err = fmt.Errorf("failed to start apply in %s: %w", spec.Root, err)
		return err
	}

	streamLogger := d.logger.With().Str("root", spec.Root).Logger()

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		teeLines(child.Stdout(), &stdoutBuf, streamLogger, zerolog.InfoLevel)
	}()
	go func() {
		defer wg.Done()
		teeLines(child.Stderr(), &stderrBuf, streamLogger, zerolog.WarnLevel)
	}()
	wg.Wait()

	code, err := child.Wait()
	if err != nil {
		err = fmt.Errorf("apply process failed in %s: %w", spec.Root, err)
		return err
	}
	exitCode = &code

	if code != 0 {
		err = NewRuntimeError("failed to apply stack", nil).
			WithRoot(spec.Root).
			WithExitCode(code).
			WithOutput(stdoutBuf.String(), stderrBuf.String())
		return err
	}

	d.logger.Info().
		Str("root", spec.Root).
		Str("stack", spec.Name).
		Msg("stack applied")
	return nil
}

// teeLines consumes one output stream, emitting each line to the status
// logger while accumulating the full stream for post-mortem reporting.
func teeLines(r io.Reader, buf *bytes.Buffer, logger zerolog.Logger, level zerolog.Level) {
	scanner := bufio.NewScanner(io.TeeReader(r, buf))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.WithLevel(level).Msg(scanner.Text())
	}
}
