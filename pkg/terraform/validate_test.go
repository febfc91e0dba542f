package terraform

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func invalidValidateJSON(summary string) string {
	return `{"valid": false, "diagnostics": [{"severity": "error", "summary": "` + summary + `", "detail": "see docs"}]}`
}

func TestValidateValid(t *testing.T) {
	runner := &fakeRunner{
		results: []*ProcessResult{{Stdout: validValidateJSON}},
	}
	d := NewDriver(runner)

	if err := d.Validate(context.Background(), testSpec(t.TempDir())); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := runner.countCalls("init"); got != 0 {
		t.Errorf("init ran %d times on a valid stack, want 0", got)
	}
}

func TestValidateIgnoresExitCode(t *testing.T) {
	// The JSON body is the source of truth; a non-zero exit with a valid body
	// still passes.
	runner := &fakeRunner{
		results: []*ProcessResult{{ExitCode: 1, Stdout: validValidateJSON}},
	}
	d := NewDriver(runner)

	if err := d.Validate(context.Background(), testSpec(t.TempDir())); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRecoversWithInit(t *testing.T) {
	runner := &fakeRunner{
		results: []*ProcessResult{
			{ExitCode: 1, Stdout: invalidValidateJSON("Module not installed")},
			{ExitCode: 0, Stdout: "Initialized"},
			{ExitCode: 0, Stdout: validValidateJSON},
		},
	}
	d := NewDriver(runner)

	if err := d.Validate(context.Background(), testSpec(t.TempDir())); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := runner.countCalls("init"); got != 1 {
		t.Errorf("init ran %d times, want exactly 1", got)
	}
	if got := runner.countCalls("validate"); got != 2 {
		t.Errorf("validate ran %d times, want 2 (original plus one retry)", got)
	}
}

func TestValidateRecoverableSummaries(t *testing.T) {
	for _, summary := range []string{
		"Backend initialization required",
		"Could not load plugin",
		"Module not installed",
		"Module not found",
		"Required plugins are not installed",
		"Missing required provider",
	} {
		t.Run(summary, func(t *testing.T) {
			runner := &fakeRunner{
				results: []*ProcessResult{
					{ExitCode: 1, Stdout: invalidValidateJSON(summary)},
					{ExitCode: 0},
					{ExitCode: 0, Stdout: validValidateJSON},
				},
			}
			d := NewDriver(runner)
			if err := d.Validate(context.Background(), testSpec(t.TempDir())); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if got := runner.countCalls("init"); got != 1 {
				t.Errorf("init ran %d times, want 1", got)
			}
		})
	}
}

func TestValidateNonRecoverableFailsWithoutInit(t *testing.T) {
	runner := &fakeRunner{
		results: []*ProcessResult{
			{ExitCode: 1, Stdout: invalidValidateJSON("Unsupported argument")},
		},
	}
	d := NewDriver(runner)

	err := d.Validate(context.Background(), testSpec(t.TempDir()))
	if !IsConfiguration(err) {
		t.Fatalf("err = %v, want a configuration error", err)
	}
	if got := runner.countCalls("init"); got != 0 {
		t.Errorf("init ran %d times for a non-recoverable failure, want 0", got)
	}
	if !strings.Contains(err.Error(), "Unsupported argument") {
		t.Errorf("error does not carry the diagnostic summary: %v", err)
	}
}

func TestValidateRetriesOnlyOnce(t *testing.T) {
	// Still invalid after the recovery attempt: fail, do not init again.
	runner := &fakeRunner{
		results: []*ProcessResult{
			{ExitCode: 1, Stdout: invalidValidateJSON("Module not installed")},
			{ExitCode: 0},
			{ExitCode: 1, Stdout: invalidValidateJSON("Module not installed")},
		},
	}
	d := NewDriver(runner)

	err := d.Validate(context.Background(), testSpec(t.TempDir()))
	if !IsConfiguration(err) {
		t.Fatalf("err = %v, want a configuration error", err)
	}
	if got := runner.countCalls("init"); got != 1 {
		t.Errorf("init ran %d times, want exactly 1", got)
	}
}

func TestValidateInitFailure(t *testing.T) {
	runner := &fakeRunner{
		results: []*ProcessResult{
			{ExitCode: 1, Stdout: invalidValidateJSON("Backend initialization required")},
			{ExitCode: 1, Stderr: "backend unreachable"},
		},
	}
	d := NewDriver(runner)

	err := d.Validate(context.Background(), testSpec(t.TempDir()))
	if !IsConfiguration(err) {
		t.Fatalf("err = %v, want a configuration error", err)
	}
	var stackErr *StackError
	if !errors.As(err, &stackErr) {
		t.Fatalf("err = %v, want a *StackError", err)
	}
	if stackErr.Stderr != "backend unreachable" {
		t.Errorf("error does not carry init stderr: %+v", stackErr)
	}
	if got := runner.countCalls("validate"); got != 1 {
		t.Errorf("validate ran %d times after failed init, want 1", got)
	}
}

func TestValidateUnparsableBody(t *testing.T) {
	runner := &fakeRunner{
		results: []*ProcessResult{{ExitCode: 0, Stdout: "not json at all"}},
	}
	d := NewDriver(runner)

	err := d.Validate(context.Background(), testSpec(t.TempDir()))
	if !IsPlugin(err) {
		t.Fatalf("err = %v, want a plugin error", err)
	}
}

func TestValidateCollectsAllDiagnostics(t *testing.T) {
	body := `{"valid": false, "diagnostics": [
		{"severity": "error", "summary": "first problem", "detail": "fix the first"},
		{"severity": "warning", "summary": "second problem"}
	]}`
	runner := &fakeRunner{results: []*ProcessResult{{ExitCode: 1, Stdout: body}}}
	d := NewDriver(runner)

	err := d.Validate(context.Background(), testSpec(t.TempDir()))
	if !IsConfiguration(err) {
		t.Fatalf("err = %v, want a configuration error", err)
	}
	msg := err.Error()
	for _, want := range []string{"Error: first problem", "fix the first", "Warning: second problem"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing diagnostic %q", msg, want)
		}
	}
}

func TestValidatePassesVarFileArgs(t *testing.T) {
	root := t.TempDir()
	runner := &fakeRunner{
		results: []*ProcessResult{{Stdout: validValidateJSON}},
	}
	d := NewDriver(runner)

	spec := testSpec(root)
	spec.Variables = map[string]interface{}{"region": "eu-west-1"}
	if err := d.Validate(context.Background(), spec); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	call := runner.calls[0]
	found := false
	for _, arg := range call {
		if arg == "-var-file" {
			found = true
		}
	}
	if !found {
		t.Errorf("validate invocation %v missing -var-file", call)
	}
}
