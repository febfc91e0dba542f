package terraform

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a driver failure for the caller's handling policy.
type ErrorKind string

const (
	// ErrorKindConfiguration indicates the stack's declared configuration is
	// invalid per the external tool, or required project configuration is
	// missing. The user must fix configuration; not retried beyond the one
	// bounded init recovery in Validate.
	ErrorKindConfiguration ErrorKind = "configuration"

	// ErrorKindParameter indicates a malformed operator-supplied passthrough
	// invocation (missing or unknown module name, incompatible module type).
	ErrorKindParameter ErrorKind = "parameter"

	// ErrorKindPlugin indicates the external tool violated its process
	// contract (for example a plan exit code outside {0,1,2}). Treated as a
	// defect in the integration or tool version, never retried.
	ErrorKindPlugin ErrorKind = "plugin"

	// ErrorKindRuntime indicates a mutating command failed at runtime after
	// the tool actually ran. Carries the tool's own output verbatim since
	// remediation requires reading it.
	ErrorKindRuntime ErrorKind = "runtime"
)

// StackError is a classified driver error with process context attached.
type StackError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Root is the stack root the operation ran against, if applicable.
	Root string `json:"root,omitempty"`

	// ExitCode is the external process exit code. Only meaningful when
	// HasExitCode is true.
	ExitCode int `json:"exit_code,omitempty"`

	// HasExitCode reports whether ExitCode was captured.
	HasExitCode bool `json:"-"`

	// Stdout is the captured standard output of the failing invocation.
	Stdout string `json:"stdout,omitempty"`

	// Stderr is the captured standard error of the failing invocation.
	Stderr string `json:"stderr,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *StackError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Root != "" {
		msg = fmt.Sprintf("%s (root=%s)", msg, e.Root)
	}
	if e.HasExitCode {
		msg = fmt.Sprintf("%s (exit code %d)", msg, e.ExitCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *StackError) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is based on the classification.
func (e *StackError) Is(target error) bool {
	t, ok := target.(*StackError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string, err error) *StackError {
	return &StackError{Kind: ErrorKindConfiguration, Message: message, Err: err}
}

// NewParameterError creates a parameter error.
func NewParameterError(message string, err error) *StackError {
	return &StackError{Kind: ErrorKindParameter, Message: message, Err: err}
}

// NewPluginError creates a plugin contract-violation error.
func NewPluginError(message string, err error) *StackError {
	return &StackError{Kind: ErrorKindPlugin, Message: message, Err: err}
}

// NewRuntimeError creates a runtime error.
func NewRuntimeError(message string, err error) *StackError {
	return &StackError{Kind: ErrorKindRuntime, Message: message, Err: err}
}

// WithRoot attaches the stack root the operation ran against.
func (e *StackError) WithRoot(root string) *StackError {
	e.Root = root
	return e
}

// WithExitCode attaches the external process exit code.
func (e *StackError) WithExitCode(code int) *StackError {
	e.ExitCode = code
	e.HasExitCode = true
	return e
}

// WithOutput attaches the captured process output.
func (e *StackError) WithOutput(stdout, stderr string) *StackError {
	e.Stdout = stdout
	e.Stderr = stderr
	return e
}

// IsConfiguration returns true if the error is a configuration error.
func IsConfiguration(err error) bool {
	return hasKind(err, ErrorKindConfiguration)
}

// IsParameter returns true if the error is a parameter error.
func IsParameter(err error) bool {
	return hasKind(err, ErrorKindParameter)
}

// IsPlugin returns true if the error is a plugin contract violation.
func IsPlugin(err error) bool {
	return hasKind(err, ErrorKindPlugin)
}

// IsRuntime returns true if the error is a runtime error.
func IsRuntime(err error) bool {
	return hasKind(err, ErrorKindRuntime)
}

func hasKind(err error, kind ErrorKind) bool {
	var e *StackError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
