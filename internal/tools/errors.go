package tools

import (
	"errors"
	"fmt"

	"github.com/AltairaLabs/run-tools-mcp/internal/schema"
)

// ErrorKind classifies a failed dispatch
type ErrorKind string

const (
	// UnknownTool means no definition matches the requested name
	UnknownTool ErrorKind = "unknown_tool"
	// InvalidArguments means the arguments failed schema validation
	InvalidArguments ErrorKind = "invalid_arguments"
	// HandlerFailure means the handler itself returned an error
	HandlerFailure ErrorKind = "handler_failure"
)

// ErrUnknownTool is wrapped by every UnknownTool dispatch error
var ErrUnknownTool = errors.New("unknown tool")

// DispatchError is returned by Registry.Dispatch
type DispatchError struct {
	Kind ErrorKind
	Tool string
	Err  error
}

func (e *DispatchError) Error() string {
	switch e.Kind {
	case UnknownTool:
		return fmt.Sprintf("%s: %s", ErrUnknownTool, e.Tool)
	case InvalidArguments:
		return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
	default:
		return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
	}
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Validation returns the validator failure of an InvalidArguments error
func (e *DispatchError) Validation() *schema.ValidationError {
	var vErr *schema.ValidationError
	if errors.As(e.Err, &vErr) {
		return vErr
	}
	return nil
}

// KindOf returns the dispatch error kind of err, or "" when err is not a
// DispatchError
func KindOf(err error) ErrorKind {
	var dErr *DispatchError
	if errors.As(err, &dErr) {
		return dErr.Kind
	}
	return ""
}
