package terraform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// VarFileName is the fixed variable file name written into each stack root.
// The external tool consumes it through its -var-file mechanism.
const VarFileName = "garden.tfvars.json"

// PrepareVariables materializes the variable map as a JSON var file under
// root and returns the argument pair pointing the tool at it. An empty map
// performs no I/O and returns no arguments, so stacks without inputs never
// grow a spurious file.
//
// The file is overwritten wholesale on every call. Concurrent calls against
// the same root race on it; the caller serializes reconciliation per root.
func PrepareVariables(root string, variables map[string]interface{}) ([]string, error) {
	if len(variables) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize stack variables: %w", err)
	}

	path := filepath.Join(root, VarFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write variable file %s: %w", path, err)
	}

	return []string{"-var-file", path}, nil
}
