package optimization

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is(err, ErrConfig) and friends to classify an error.
var (
	// ErrConfig reports malformed layout or optimizer configuration.
	ErrConfig = errors.New("configuration error")
	// ErrInvalidPermutation reports a permutation that is not a bijection over the slot set.
	ErrInvalidPermutation = errors.New("invalid permutation")
	// ErrParse reports layout text that does not fit the slot configuration.
	ErrParse = errors.New("parse error")
	// ErrInvalidParameter reports an optimizer parameter that cannot be corrected.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrAlreadyTerminated reports a step on an optimizer that has already finished.
	ErrAlreadyTerminated = errors.New("optimizer already terminated")
	// ErrEvaluation reports a failure of the evaluation contract.
	ErrEvaluation = errors.New("evaluation failed")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind is one of the Err* sentinels of this package.
	Kind error
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	msg := e.Message
	if e.Kind != nil {
		if msg == "" {
			msg = e.Kind.Error()
		} else {
			msg = fmt.Sprintf("%s: %s", e.Kind, msg)
		}
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e != nil && e.Kind != nil && e.Kind == target
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// NewErrorf creates a new error of the given kind with a formatted message.
func NewErrorf(kind error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with a kind and additional context.
// If err is nil, WrapError returns nil.
func WrapError(kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
