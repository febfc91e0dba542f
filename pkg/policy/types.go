package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityWarning is for violations that should be reviewed but do not
	// veto remediation.
	SeverityWarning Severity = "warning"

	// SeverityError is for violations that veto automatic remediation.
	SeverityError Severity = "error"
)

// Policy represents one guard rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. Each policy exposes a
	// `deny contains violation` set over the auto-apply input document.
	Rego string `json:"rego"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity.
	Severity Severity `json:"severity"`
}

// AutoApplyInput is the input document evaluated by the auto-apply gate.
type AutoApplyInput struct {
	// Name is the stack name.
	Name string `json:"name"`

	// Root is the stack root directory.
	Root string `json:"root"`

	// Environment is the project's deployment environment.
	Environment string `json:"environment,omitempty"`

	// Protected marks the stack as exempt from automatic remediation.
	Protected bool `json:"protected"`
}

// Decision is the result of the auto-apply gate evaluation.
type Decision struct {
	// Allowed reports whether automatic remediation may run.
	Allowed bool `json:"allowed"`

	// Violations lists the violations that caused or accompanied the
	// decision.
	Violations []Violation `json:"violations,omitempty"`
}
