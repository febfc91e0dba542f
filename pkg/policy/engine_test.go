package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tendril-dev/tendril/pkg/project"
)

func newTestEngine(t *testing.T, environment string) *Engine {
	t.Helper()
	e, err := NewEngine(zerolog.Nop(), environment)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestAllowAutoApplyUnprotected(t *testing.T) {
	e := newTestEngine(t, "staging")

	allowed, reason, err := e.AllowAutoApply(context.Background(), &project.StackSpec{
		Name: "web",
		Root: "/srv/web",
	})
	if err != nil {
		t.Fatalf("AllowAutoApply: %v", err)
	}
	if !allowed {
		t.Errorf("unprotected stack vetoed: %q", reason)
	}
}

func TestAllowAutoApplyProtectedVetoed(t *testing.T) {
	e := newTestEngine(t, "staging")

	allowed, reason, err := e.AllowAutoApply(context.Background(), &project.StackSpec{
		Name:      "database",
		Root:      "/srv/database",
		Protected: true,
	})
	if err != nil {
		t.Fatalf("AllowAutoApply: %v", err)
	}
	if allowed {
		t.Error("protected stack was not vetoed")
	}
	if !strings.Contains(reason, "database") || !strings.Contains(reason, "protected") {
		t.Errorf("reason = %q, want it to name the stack and the protection", reason)
	}
}

func TestAllowAutoApplyProductionWarningDoesNotVeto(t *testing.T) {
	e := newTestEngine(t, "production")

	allowed, reason, err := e.AllowAutoApply(context.Background(), &project.StackSpec{
		Name: "web",
		Root: "/srv/web",
	})
	if err != nil {
		t.Fatalf("AllowAutoApply: %v", err)
	}
	if !allowed {
		t.Errorf("production warning vetoed remediation: %q", reason)
	}
	if reason != "" {
		t.Errorf("reason = %q, warnings must not appear in the veto reason", reason)
	}
}

func TestEvaluateCollectsViolations(t *testing.T) {
	e := newTestEngine(t, "production")

	decision, err := e.Evaluate(context.Background(), &AutoApplyInput{
		Name:        "database",
		Environment: "production",
		Protected:   true,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Allowed {
		t.Error("decision allowed despite an error-severity violation")
	}
	if len(decision.Violations) != 2 {
		t.Fatalf("violations = %d, want 2 (protection error plus production warning)", len(decision.Violations))
	}

	bySeverity := map[Severity]int{}
	for _, v := range decision.Violations {
		bySeverity[v.Severity]++
	}
	if bySeverity[SeverityError] != 1 || bySeverity[SeverityWarning] != 1 {
		t.Errorf("violations by severity = %v", bySeverity)
	}
}

func TestLoadPolicyFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no-weekend.rego")
	src := `package tendril.policies.weekend

import rego.v1

deny contains violation if {
	input.name == "fragile"
	violation := {
		"message": "fragile stacks are applied manually",
		"severity": "error",
	}
}
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("writing policy file: %v", err)
	}

	e := newTestEngine(t, "")
	if err := e.LoadPolicyFiles(context.Background(), []string{path}); err != nil {
		t.Fatalf("LoadPolicyFiles: %v", err)
	}

	allowed, reason, err := e.AllowAutoApply(context.Background(), &project.StackSpec{Name: "fragile"})
	if err != nil {
		t.Fatalf("AllowAutoApply: %v", err)
	}
	if allowed {
		t.Error("file policy did not veto")
	}
	if !strings.Contains(reason, "manually") {
		t.Errorf("reason = %q", reason)
	}
}

func TestLoadPolicyFilesRejectsBadRego(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.rego")
	if err := os.WriteFile(path, []byte("this is not rego"), 0644); err != nil {
		t.Fatalf("writing policy file: %v", err)
	}

	e := newTestEngine(t, "")
	if err := e.LoadPolicyFiles(context.Background(), []string{path}); err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestRegoPackage(t *testing.T) {
	pkg, err := regoPackage("# comment\npackage tendril.policies.x\n\ndeny contains v if { false }\n")
	if err != nil {
		t.Fatalf("regoPackage: %v", err)
	}
	if pkg != "tendril.policies.x" {
		t.Errorf("pkg = %q", pkg)
	}

	if _, err := regoPackage("deny contains v if { true }"); err == nil {
		t.Error("expected an error for source without a package line")
	}
}
