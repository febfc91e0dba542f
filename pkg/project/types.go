package project

import (
	"path/filepath"
)

// StackTypeTerraform is the module type that declares compatibility with the
// Terraform stack driver. Passthrough commands refuse modules of other types.
const StackTypeTerraform = "terraform"

// StackSpec identifies one reconcilable unit of external infrastructure: the
// project-root stack or a single module's stack. It is immutable per
// reconciliation call and constructed from project configuration; the driver
// never mutates it.
type StackSpec struct {
	// Name is a human-readable identifier for logs and history records.
	Name string `json:"name"`

	// Root is the directory the external tool is invoked from.
	Root string `json:"root"`

	// Version is the requested external tool version.
	Version string `json:"version"`

	// Variables is the input variable map materialized into the var file.
	Variables map[string]interface{} `json:"variables,omitempty"`

	// AutoApply controls the remediation policy: true means detected drift
	// blocks readiness until an apply runs; false means drift is advisory.
	AutoApply bool `json:"auto_apply"`

	// Dependencies lists names of stacks that must be reconciled first.
	// Ordering is enforced by the calling scheduler, not by the driver.
	Dependencies []string `json:"dependencies,omitempty"`

	// Protected marks the stack as exempt from automatic remediation
	// regardless of AutoApply; enforced through the policy gate.
	Protected bool `json:"protected,omitempty"`
}

// Config is the parsed project configuration (tendril.yaml).
type Config struct {
	// Project holds project-level metadata.
	Project ProjectConfig `yaml:"project" validate:"required"`

	// Terraform configures the project-root stack. Nil when the project
	// declares no root stack.
	Terraform *ProviderConfig `yaml:"terraform,omitempty"`

	// Modules lists the project's modules.
	Modules []ModuleConfig `yaml:"modules,omitempty" validate:"dive"`

	// History configures the reconciliation history store.
	History *HistoryConfig `yaml:"history,omitempty"`

	// baseDir is the directory containing the config file; stack roots are
	// resolved relative to it.
	baseDir string
}

// ProjectConfig holds project-level metadata.
type ProjectConfig struct {
	// Name is the project name.
	Name string `yaml:"name" validate:"required"`

	// Environment is the deployment environment this configuration targets.
	Environment string `yaml:"environment,omitempty"`
}

// ProviderConfig configures the project-root Terraform stack.
type ProviderConfig struct {
	// InitRoot is the directory containing the root stack configuration,
	// relative to the project directory. Required for root-stack commands.
	InitRoot string `yaml:"initRoot,omitempty"`

	// Version is the Terraform version to run.
	Version string `yaml:"version,omitempty"`

	// AutoApply enables automatic remediation of detected drift.
	AutoApply bool `yaml:"autoApply,omitempty"`

	// Variables are the root stack's input variables.
	Variables map[string]interface{} `yaml:"variables,omitempty"`

	// Protected exempts the root stack from automatic remediation.
	Protected bool `yaml:"protected,omitempty"`
}

// ModuleConfig describes one module of the project.
type ModuleConfig struct {
	// Name is the module name, unique within the project.
	Name string `yaml:"name" validate:"required"`

	// Type is the module type; only "terraform" modules own a stack.
	Type string `yaml:"type" validate:"required,oneof=terraform container exec"`

	// Path is the module directory, relative to the project directory.
	Path string `yaml:"path" validate:"required"`

	// Version overrides the Terraform version for this module's stack.
	Version string `yaml:"version,omitempty"`

	// AutoApply enables automatic remediation for this module's stack.
	AutoApply bool `yaml:"autoApply,omitempty"`

	// Variables are the module stack's input variables.
	Variables map[string]interface{} `yaml:"variables,omitempty"`

	// Dependencies lists module names that must be ready first.
	Dependencies []string `yaml:"dependencies,omitempty"`

	// Protected exempts this module's stack from automatic remediation.
	Protected bool `yaml:"protected,omitempty"`
}

// HistoryConfig configures the reconciliation history store.
type HistoryConfig struct {
	// Path is the SQLite database path. Empty disables history recording.
	Path string `yaml:"path,omitempty"`
}

// BaseDir returns the directory the configuration was loaded from.
func (c *Config) BaseDir() string {
	return c.baseDir
}

// Module returns the named module, or false when no such module exists.
func (c *Config) Module(name string) (*ModuleConfig, bool) {
	for i := range c.Modules {
		if c.Modules[i].Name == name {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

// RootStack builds the StackSpec for the project-root stack. It returns
// false when the project declares no initialization root.
func (c *Config) RootStack() (*StackSpec, bool) {
	if c.Terraform == nil || c.Terraform.InitRoot == "" {
		return nil, false
	}
	return &StackSpec{
		Name:      c.Project.Name,
		Root:      filepath.Join(c.baseDir, c.Terraform.InitRoot),
		Version:   c.Terraform.Version,
		Variables: c.Terraform.Variables,
		AutoApply: c.Terraform.AutoApply,
		Protected: c.Terraform.Protected,
	}, true
}

// Stack builds the StackSpec for a module's stack. The module's version
// falls back to the project-level Terraform version when unset.
func (c *Config) Stack(m *ModuleConfig) *StackSpec {
	version := m.Version
	if version == "" && c.Terraform != nil {
		version = c.Terraform.Version
	}
	return &StackSpec{
		Name:         m.Name,
		Root:         filepath.Join(c.baseDir, m.Path),
		Version:      version,
		Variables:    m.Variables,
		AutoApply:    m.AutoApply,
		Dependencies: m.Dependencies,
		Protected:    m.Protected,
	}
}
