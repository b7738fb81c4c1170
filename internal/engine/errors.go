package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/graphscript/internal/graph"
)

// RuntimeError represents an error detected while creating or running an
// object.
//
// Runtime errors include:
//   - Unknown class: no compiled class is registered for the GUID
//   - Missing component: a component type is not in the env registry
//   - Component failures: attach, property application or Init failed
//   - Pool exhaustion: the slot table is at its ceiling
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ObjectID identifies the affected object, InvalidObjectID if none was
	// assigned yet.
	ObjectID ObjectID

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownClass indicates no compiled class exists for the GUID.
	ErrCodeUnknownClass RuntimeErrorCode = "UNKNOWN_CLASS"

	// ErrCodeMissingComponent indicates a component type is not registered.
	ErrCodeMissingComponent RuntimeErrorCode = "MISSING_COMPONENT"

	// ErrCodeComponentFailed indicates attaching, configuring or
	// initializing a component failed.
	ErrCodeComponentFailed RuntimeErrorCode = "COMPONENT_FAILED"

	// ErrCodeMissingAction indicates an action type is not registered.
	ErrCodeMissingAction RuntimeErrorCode = "MISSING_ACTION"

	// ErrCodePoolExhausted indicates the pool cannot grow any further.
	ErrCodePoolExhausted RuntimeErrorCode = "POOL_EXHAUSTED"

	// ErrCodeInvalidMode indicates an unknown simulation mode.
	ErrCodeInvalidMode RuntimeErrorCode = "INVALID_MODE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.ObjectID != InvalidObjectID {
		return fmt.Sprintf("%s: %s (object=%s)", e.Code, e.Message, e.ObjectID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newRuntimeError(code RuntimeErrorCode, id ObjectID, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, ObjectID: id, Message: fmt.Sprintf(format, args...)}
}

// IsRuntimeError reports whether err is or wraps a RuntimeError with the
// given code. An empty code matches any RuntimeError.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return code == "" || re.Code == code
	}
	return false
}

// IsQuotaError reports whether err is a graph step quota violation.
func IsQuotaError(err error) bool {
	return graph.IsStepsExceededError(err)
}
