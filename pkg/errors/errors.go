// Package errors provides typed errors for oganesson. Every error carries a
// category used for retry decisions and CLI exit handling, optional
// key/value details, and the stack of the place it was first created.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType is the category of an error.
type ErrorType string

const (
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeFile       ErrorType = "file"
	// ErrorTypeTimeout marks an operation that ran out of time.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeExhausted marks a pool with no free instance.
	ErrorTypeExhausted   ErrorType = "exhausted"
	ErrorTypeCompression ErrorType = "compression"
)

const maxStackDepth = 32

// Error is a categorized error with optional cause and details.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]any
	Stack   []StackFrame
}

// StackFrame is one call site in Error.Stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Type) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail records key=value on the error and returns it for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 2)
	}
	e.Details[key] = value
	return e
}

// New returns an error of the given type.
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message, Stack: callers(1)}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Stack: callers(1)}
}

// Wrap categorizes err. It returns nil for a nil err. When err already
// contains an *Error, its stack is kept so the trace points at the origin.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := &Error{Type: errType, Message: message, Cause: err}
	var inner *Error
	if errors.As(err, &inner) {
		wrapped.Stack = inner.Stack
	} else {
		wrapped.Stack = callers(1)
	}
	return wrapped
}

// IsType reports whether the outermost *Error in err's chain has type
// errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errType
}

// IsRetryable reports whether retrying may succeed. An exhausted pool can
// have a free instance again once another holder releases one.
func IsRetryable(err error) bool {
	return IsType(err, ErrorTypeTimeout) || IsType(err, ErrorTypeExhausted)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// callers returns the stack above the caller of callers, skipping skip
// further frames.
func callers(skip int) []StackFrame {
	var pcs [maxStackDepth]uintptr
	// 2 skips runtime.Callers and callers itself.
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]StackFrame, 0, n)
	for {
		f, more := frames.Next()
		stack = append(stack, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			return stack
		}
	}
}
