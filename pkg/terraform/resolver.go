package terraform

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// Resolver locates the tool binary for a requested version. The production
// deployment plugs in a download-and-cache resolver; the in-repo default
// resolves from PATH and treats the version as advisory.
type Resolver interface {
	// Resolve returns the path of a binary satisfying the requested
	// version. An empty version means "whatever is available".
	Resolve(ctx context.Context, version string) (string, error)
}

// PathResolver resolves the tool binary from PATH. It does not download
// specific versions; when a version is requested it is logged so operators
// can spot a mismatch with what is actually installed.
type PathResolver struct {
	binary string
	logger zerolog.Logger

	mu       sync.Mutex
	resolved string
	warned   map[string]bool
}

// NewPathResolver creates a resolver for the named binary (normally
// "terraform", or a compatible drop-in).
func NewPathResolver(binary string, logger zerolog.Logger) *PathResolver {
	if binary == "" {
		binary = "terraform"
	}
	return &PathResolver{
		binary: binary,
		logger: logger.With().Str("component", "resolver").Logger(),
		warned: make(map[string]bool),
	}
}

// Resolve looks up the binary on PATH, caching the result.
func (r *PathResolver) Resolve(_ context.Context, version string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if version != "" && !r.warned[version] {
		r.warned[version] = true
		r.logger.Debug().
			Str("binary", r.binary).
			Str("requested_version", version).
			Msg("PATH resolver ignores version pinning")
	}

	if r.resolved != "" {
		return r.resolved, nil
	}

	path, err := exec.LookPath(r.binary)
	if err != nil {
		return "", fmt.Errorf("tool binary %q not found on PATH: %w", r.binary, err)
	}
	r.resolved = path
	return path, nil
}
