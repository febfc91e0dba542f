package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in auto-apply guard policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		protectedStackPolicy(),
		productionEnvironmentPolicy(),
	}
}

// protectedStackPolicy vetoes automatic remediation of protected stacks.
func protectedStackPolicy() Policy {
	return Policy{
		Name:        "protected-stack",
		Description: "Vetoes automatic remediation of stacks marked protected",
		Enabled:     true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package tendril.policies.protected

import rego.v1

deny contains violation if {
	input.protected
	violation := {
		"message": sprintf("stack %q is marked protected; apply it manually", [input.name]),
		"severity": "error",
	}
}
`,
	}
}

// productionEnvironmentPolicy warns on automatic remediation in production.
// Warning severity only: it does not veto, it leaves an audit trail.
func productionEnvironmentPolicy() Policy {
	return Policy{
		Name:        "production-environment",
		Description: "Flags automatic remediation in production environments",
		Enabled:     true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package tendril.policies.production

import rego.v1

deny contains violation if {
	input.environment == "production"
	violation := {
		"message": sprintf("stack %q will be auto-applied in production", [input.name]),
		"severity": "warning",
	}
}
`,
	}
}
