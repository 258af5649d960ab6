package tools

import (
	"errors"
	"fmt"
)

var (
	ErrToolNotFound          = errors.New("tool not found")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrArgumentCoercion      = errors.New("invalid tool arguments")
	ErrToolExecution         = errors.New("tool execution failed")
	ErrContextUnavailable    = errors.New("invocation context unavailable")
	ErrInvalidDescriptor     = errors.New("invalid tool descriptor")
)

// ArgumentError reports a missing, unexpected or type-incompatible argument.
type ArgumentError struct {
	Tool  string
	Param string
	Msg   string
}

func (e *ArgumentError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %s", e.Tool, e.Msg)
	}
	return fmt.Sprintf("%s: parameter %q: %s", e.Tool, e.Param, e.Msg)
}

func (e *ArgumentError) Unwrap() error { return ErrArgumentCoercion }

// ExecutionError wraps a failure raised by a tool body, including panics.
type ExecutionError struct {
	Tool   string
	Err    error
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() []error { return []error{ErrToolExecution, e.Err} }

// ErrorResult renders err in the tool result contract:
// {"success": false, "error": "...", "reason": "..."}.
func ErrorResult(err error) string {
	out := map[string]any{"success": false, "error": err.Error()}

	var argErr *ArgumentError
	var execErr *ExecutionError
	switch {
	case errors.As(err, &execErr):
		out["error"] = execErr.Err.Error()
		if execErr.Reason != "" {
			out["reason"] = execErr.Reason
		}
	case errors.As(err, &argErr):
		out["reason"] = "invalid arguments"
	case errors.Is(err, ErrToolNotFound):
		out["reason"] = "unknown tool"
	case errors.Is(err, ErrContextUnavailable):
		out["reason"] = "context unavailable"
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// Failure lets a handler attach a short reason to its error.
type Failure struct {
	Err error
	Why string
}

// Fail wraps err with reason.
func Fail(reason string, err error) error { return &Failure{Err: err, Why: reason} }

func (f *Failure) Error() string  { return f.Err.Error() }
func (f *Failure) Unwrap() error  { return f.Err }
func (f *Failure) Reason() string { return f.Why }
