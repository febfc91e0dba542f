package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the project configuration filename looked up when no
// explicit path is given.
const DefaultConfigFile = "tendril.yaml"

var validate = validator.New()

// Load reads and validates a project configuration file. Stack roots in the
// returned config resolve relative to the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config %s: %w", path, err)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	cfg.baseDir = abs

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems: struct-tag
// violations, duplicate module names, and dependencies on unknown modules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid project config: %w", err)
	}

	seen := make(map[string]bool, len(c.Modules))
	for i := range c.Modules {
		m := &c.Modules[i]
		if seen[m.Name] {
			return fmt.Errorf("invalid project config: duplicate module name %q", m.Name)
		}
		seen[m.Name] = true
	}

	for i := range c.Modules {
		m := &c.Modules[i]
		for _, dep := range m.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("invalid project config: module %q depends on unknown module %q", m.Name, dep)
			}
		}
	}
	return nil
}
