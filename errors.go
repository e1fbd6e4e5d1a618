package toolbind

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for toolbind. Use errors.Is to check.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSchemaGeneration = errors.New("schema generation failed")
	ErrDecode           = errors.New("malformed tool input")
	ErrCoercion         = errors.New("coercion failed")
	ErrInvocation       = errors.New("invocation failed")
	ErrValidation       = errors.New("validation failed")

	ErrToolNotFound = errors.New("tool not found")
	ErrTimeout      = errors.New("tool execution timeout")
	ErrShutdown     = errors.New("registry is shutting down")
)

// ClientError is an error that should be sent back to the LLM for self-correction
// (e.g. invalid JSON, a value that does not fit its parameter, a bad enum symbol).
// Do not expose stack traces or internal details to the LLM.
// Err wraps a sentinel or a *CoercionError for errors.Is/errors.As.
type ClientError struct {
	Reason string
	// Retryable is set by the application (not by toolbind). When true, the orchestrator
	// may retry the same call without changing arguments (e.g. transient rate limit).
	Retryable bool
	Err       error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool input: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.Is(err, ErrCoercion)).
func (e *ClientError) Unwrap() error { return e.Err }

// SystemError represents an internal failure outside the invoked method (a panic in
// middleware, a result that cannot be encoded). The LLM should not see the cause.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal system error during tool execution"
}

func (e *SystemError) Unwrap() error { return e.Err }

// SchemaError reports a parameter whose type cannot be modeled as JSON Schema.
// It is returned by NewMethodCallback; no callback is built.
type SchemaError struct {
	Param string
	Type  reflect.Type
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("schema generation failed: %v", e.Err)
	}
	return fmt.Sprintf("schema generation failed for parameter %q (%v): %v", e.Param, e.Type, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchemaGeneration }

// CoercionError reports a JSON value that could not be converted to its parameter type.
type CoercionError struct {
	Param string
	Type  reflect.Type
	Value any
	Err   error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("parameter %q: cannot convert %v to %v", e.Param, e.Value, e.Type)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error { return e.Err }

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }

// InvocationError carries an error returned (or a panic raised) by the invoked method.
// The cause is preserved; errors.Unwrap yields it.
type InvocationError struct {
	Method string
	Err    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("method %q failed: %v", e.Method, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// wrapJSONParseError returns a ClientError for call-time JSON decode failures.
func wrapJSONParseError(err error) error {
	return &ClientError{Reason: "json parse error: " + err.Error(), Err: fmt.Errorf("%w: %w", ErrDecode, err)}
}

func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// panicError wraps a recovered panic value; used by the callback, Registry and WithRecovery.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
