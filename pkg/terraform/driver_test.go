package terraform

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/tendril-dev/tendril/pkg/project"
)

// fakeRunner returns canned results in call order and records every call, so
// tests can assert both the tool contract interpretation and the exact
// invocations the driver makes.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string

	results []*ProcessResult
	errs    []error

	interactiveCalls [][]string
	interactiveErr   error

	child    Child
	spawnErr error
}

func (f *fakeRunner) Run(ctx context.Context, version, root string, args []string) (*ProcessResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, args)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &ProcessResult{}, nil
}

func (f *fakeRunner) RunInteractive(ctx context.Context, version, root string, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactiveCalls = append(f.interactiveCalls, args)
	return f.interactiveErr
}

func (f *fakeRunner) Spawn(ctx context.Context, version, root string, args []string) (Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)
	if f.spawnErr != nil {
		return nil, f.spawnErr
	}
	return f.child, nil
}

// countCalls returns how many recorded invocations start with the given
// subcommand.
func (f *fakeRunner) countCalls(subcommand string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if len(call) > 0 && call[0] == subcommand {
			n++
		}
	}
	return n
}

// fakeChild is a finished child process with fixed output and exit code.
type fakeChild struct {
	stdout  string
	stderr  string
	exit    int
	waitErr error
}

func (c *fakeChild) Stdout() io.Reader { return strings.NewReader(c.stdout) }
func (c *fakeChild) Stderr() io.Reader { return strings.NewReader(c.stderr) }
func (c *fakeChild) Wait() (int, error) {
	if c.waitErr != nil {
		return -1, c.waitErr
	}
	return c.exit, nil
}

// fakeGate returns a fixed auto-apply decision.
type fakeGate struct {
	allowed bool
	reason  string
	err     error
}

func (g *fakeGate) AllowAutoApply(ctx context.Context, spec *project.StackSpec) (bool, string, error) {
	return g.allowed, g.reason, g.err
}

// fakeHistory records Begin/Finish calls for assertion.
type fakeHistory struct {
	mu       sync.Mutex
	begun    []string
	exitCode *int
	ready    *bool
	opErr    error
}

func (h *fakeHistory) Begin(ctx context.Context, root, action string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.begun = append(h.begun, action)
	return "rec-1", nil
}

func (h *fakeHistory) Finish(ctx context.Context, id string, exitCode *int, ready *bool, opErr error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exitCode = exitCode
	h.ready = ready
	h.opErr = opErr
}

func testSpec(root string) *project.StackSpec {
	return &project.StackSpec{
		Name:    "web",
		Root:    root,
		Version: "1.7.0",
	}
}

const validValidateJSON = `{"valid": true, "diagnostics": []}`
