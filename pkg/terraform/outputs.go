package terraform

import (
	"context"
	"encoding/json"
)

// outputEntry is one top-level entry of `output -json`; the actual output
// value sits in the nested value field.
type outputEntry struct {
	Value interface{} `json:"value"`
}

// Outputs lists the stack's outputs as a flat name-to-value map. Values are
// passed through opaquely with no filtering or type coercion.
func (d *Driver) Outputs(ctx context.Context, version, root string) (map[string]interface{}, error) {
	res, err := d.runner.Run(ctx, version, root, []string{"output", "-json"})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, NewRuntimeError("failed to list stack outputs", nil).
			WithRoot(root).
			WithExitCode(res.ExitCode).
			WithOutput(res.Stdout, res.Stderr)
	}

	entries := map[string]outputEntry{}
	if err := json.Unmarshal([]byte(res.Stdout), &entries); err != nil {
		return nil, NewPluginError("output returned an unparsable JSON body", err).
			WithRoot(root).
			WithOutput(res.Stdout, res.Stderr)
	}

	outputs := make(map[string]interface{}, len(entries))
	for name, entry := range entries {
		outputs[name] = entry.Value
	}
	return outputs, nil
}
