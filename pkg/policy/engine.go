// Package policy implements the OPA-backed auto-apply gate: Rego guard
// rules that can veto automatic remediation of a drifted stack.
package policy

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"

	"github.com/tendril-dev/tendril/pkg/project"
)

// Engine evaluates auto-apply guard policies.
type Engine struct {
	mu          sync.RWMutex
	policies    map[string]*compiledPolicy
	logger      zerolog.Logger
	environment string
}

// compiledPolicy represents a compiled Rego policy.
type compiledPolicy struct {
	policy   *Policy
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// NewEngine creates a policy engine with the built-in guard policies loaded.
// The environment is attached to every evaluation input.
func NewEngine(logger zerolog.Logger, environment string) (*Engine, error) {
	e := &Engine{
		policies:    make(map[string]*compiledPolicy),
		logger:      logger.With().Str("component", "policy-engine").Logger(),
		environment: environment,
	}

	for _, p := range GetBuiltinPolicies() {
		policy := p
		if err := e.addPolicy(context.Background(), &policy); err != nil {
			return nil, fmt.Errorf("failed to load built-in policy %s: %w", policy.Name, err)
		}
	}

	return e, nil
}

// LoadPolicyFiles loads and compiles additional .rego policy files.
func (e *Engine) LoadPolicyFiles(ctx context.Context, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read policy file %s: %w", path, err)
		}
		name := strings.TrimSuffix(path, ".rego")
		policy := &Policy{
			Name:      name,
			Rego:      string(data),
			Enabled:   true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := e.addPolicy(ctx, policy); err != nil {
			return fmt.Errorf("failed to compile policy %s: %w", path, err)
		}
	}
	return nil
}

// addPolicy compiles a policy and prepares its deny query.
func (e *Engine) addPolicy(ctx context.Context, policy *Policy) error {
	pkg, err := regoPackage(policy.Rego)
	if err != nil {
		return err
	}

	query, err := rego.New(
		rego.Query(fmt.Sprintf("data.%s.deny", pkg)),
		rego.Module(policy.Name+".rego", policy.Rego),
	).PrepareForEval(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies[policy.Name] = &compiledPolicy{
		policy:   policy,
		query:    query,
		compiled: time.Now(),
	}

	e.logger.Debug().Str("policy", policy.Name).Msg("policy compiled")
	return nil
}

// Evaluate runs all enabled policies against the input and collects
// violations.
func (e *Engine) Evaluate(ctx context.Context, input *AutoApplyInput) (*Decision, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var violations []Violation
	for _, cp := range e.policies {
		if !cp.policy.Enabled {
			continue
		}

		results, err := cp.query.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			return nil, fmt.Errorf("policy %s evaluation failed: %w", cp.policy.Name, err)
		}

		violations = append(violations, extractViolations(cp.policy.Name, results)...)
	}

	allowed := true
	for i := range violations {
		if violations[i].Severity == SeverityError {
			allowed = false
			break
		}
	}

	return &Decision{Allowed: allowed, Violations: violations}, nil
}

// AllowAutoApply implements the driver's auto-apply gate: it evaluates the
// guard policies for the stack and returns the veto reason when remediation
// is denied. Warning-severity violations are logged but do not veto.
func (e *Engine) AllowAutoApply(ctx context.Context, spec *project.StackSpec) (bool, string, error) {
	input := &AutoApplyInput{
		Name:        spec.Name,
		Root:        spec.Root,
		Environment: e.environment,
		Protected:   spec.Protected,
	}

	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return false, "", err
	}

	var reasons []string
	for _, v := range decision.Violations {
		if v.Severity == SeverityWarning {
			e.logger.Warn().
				Str("policy", v.Policy).
				Str("stack", spec.Name).
				Msg(v.Message)
			continue
		}
		reasons = append(reasons, v.Message)
	}

	return decision.Allowed, strings.Join(reasons, "; "), nil
}

// extractViolations decodes the deny set of one policy evaluation.
func extractViolations(policyName string, results rego.ResultSet) []Violation {
	var violations []Violation
	for _, result := range results {
		for _, expr := range result.Expressions {
			entries, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, entry := range entries {
				fields, ok := entry.(map[string]interface{})
				if !ok {
					continue
				}
				v := Violation{Policy: policyName, Severity: SeverityError}
				if msg, ok := fields["message"].(string); ok {
					v.Message = msg
				}
				if sev, ok := fields["severity"].(string); ok {
					v.Severity = Severity(sev)
				}
				violations = append(violations, v)
			}
		}
	}
	return violations
}

// regoPackage extracts the package path from Rego source.
func regoPackage(src string) (string, error) {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "package ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "package ")), nil
		}
	}
	return "", fmt.Errorf("policy source has no package declaration")
}
