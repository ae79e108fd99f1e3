package counters

import (
	"errors"
	"fmt"
)

// Code categorizes registry errors
type Code string

const (
	CodeInvalidArgument  Code = "invalid_argument"
	CodePermissionDenied Code = "permission_denied"
	CodeNotFound         Code = "not_found"
)

// Sentinel errors for errors.Is matching. Every *Error unwraps to the
// sentinel matching its Code.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
)

// Error represents a standardized registry failure
type Error struct {
	Code      Code   // Categorized error code
	Namespace string // Namespace involved, if any
	Counter   string // Counter involved, if any
	Message   string // Human-readable message
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Counter != "":
		return fmt.Sprintf("counters: %s (namespace=%q, counter=%q, code=%s)", e.Message, e.Namespace, e.Counter, e.Code)
	case e.Namespace != "":
		return fmt.Sprintf("counters: %s (namespace=%q, code=%s)", e.Message, e.Namespace, e.Code)
	default:
		return fmt.Sprintf("counters: %s (code=%s)", e.Message, e.Code)
	}
}

// Unwrap returns the sentinel for the error's code so callers can use errors.Is
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodePermissionDenied:
		return ErrPermissionDenied
	case CodeNotFound:
		return ErrNotFound
	}
	return nil
}

func invalidArgumentf(namespace, counter, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Namespace: namespace, Counter: counter, Message: fmt.Sprintf(format, args...)}
}

func permissionDeniedf(namespace, format string, args ...any) *Error {
	return &Error{Code: CodePermissionDenied, Namespace: namespace, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(namespace, counter, format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Namespace: namespace, Counter: counter, Message: fmt.Sprintf(format, args...)}
}
