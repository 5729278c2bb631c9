// Package errz defines the error taxonomy surfaced by the Zephyr engine.
//
// Every error raised during bytecode execution carries an ErrorKind that
// matches one of the script-visible error constructors, plus an optional
// cause chain and the engine stack frames that were live when it was raised.
package errz

import (
	"bytes"
	"fmt"
)

// ErrorKind represents the category of a runtime error.
type ErrorKind int

const (
	// ErrPlain is the base error kind.
	ErrPlain ErrorKind = iota
	// ErrEval indicates an error regarding the global eval function.
	ErrEval
	// ErrRange indicates a value outside the set of allowed values.
	ErrRange
	// ErrReference indicates a reference to an unresolvable or
	// uninitialized binding.
	ErrReference
	// ErrSyntax indicates invalid program text.
	ErrSyntax
	// ErrType indicates an operation applied to a value of the wrong type.
	ErrType
	// ErrURI indicates misuse of the URI handling functions.
	ErrURI
	// ErrAggregate wraps several errors in one.
	ErrAggregate
	// ErrRuntimeLimit indicates an enforced execution budget was exceeded.
	// Unlike every other kind it cannot be caught by script handlers.
	ErrRuntimeLimit
)

// String returns the script-visible name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrPlain:
		return "Error"
	case ErrEval:
		return "EvalError"
	case ErrRange:
		return "RangeError"
	case ErrReference:
		return "ReferenceError"
	case ErrSyntax:
		return "SyntaxError"
	case ErrType:
		return "TypeError"
	case ErrURI:
		return "URIError"
	case ErrAggregate:
		return "AggregateError"
	case ErrRuntimeLimit:
		return "RuntimeLimitError"
	default:
		return "Error"
	}
}

// Catchable reports whether script-visible handlers may observe this kind.
// RuntimeLimit errors unwind past every handler to the host.
func (k ErrorKind) Catchable() bool {
	return k != ErrRuntimeLimit
}

// StackFrame identifies one activation record in an error trace.
type StackFrame struct {
	Function string
	PC       int
}

// String returns a one-line description of the frame.
func (f StackFrame) String() string {
	name := f.Function
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("at %s (pc %d)", name, f.PC)
}

// Error is a structured engine error with a kind, message, cause chain and
// the engine stack frames captured when it was raised.
type Error struct {
	Kind    ErrorKind
	Message string
	Stack   []StackFrame
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches a cause to the error and returns it.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStack attaches engine stack frames to the error and returns it.
func (e *Error) WithStack(stack []StackFrame) *Error {
	e.Stack = stack
	return e
}

// FriendlyMessage returns a multi-line description including the cause
// chain and stack trace.
func (e *Error) FriendlyMessage() string {
	var buf bytes.Buffer
	buf.WriteString(e.Error())
	for cause := e.Cause; cause != nil; {
		buf.WriteString("\n  caused by: ")
		buf.WriteString(cause.Error())
		next, ok := cause.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cause = next.Unwrap()
	}
	for _, frame := range e.Stack {
		buf.WriteString("\n    ")
		buf.WriteString(frame.String())
	}
	return buf.String()
}

// New creates a new Error of the given kind.
func New(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new Error of the given kind with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// TypeErrorf creates a TypeError with a formatted message.
func TypeErrorf(format string, args ...any) *Error {
	return Newf(ErrType, format, args...)
}

// ReferenceErrorf creates a ReferenceError with a formatted message.
func ReferenceErrorf(format string, args ...any) *Error {
	return Newf(ErrReference, format, args...)
}

// RangeErrorf creates a RangeError with a formatted message.
func RangeErrorf(format string, args ...any) *Error {
	return Newf(ErrRange, format, args...)
}

// LimitErrorf creates a non-catchable RuntimeLimit error.
func LimitErrorf(format string, args ...any) *Error {
	return Newf(ErrRuntimeLimit, format, args...)
}

// Kind returns the ErrorKind of err if it is an *Error, or ErrPlain.
func Kind(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ErrPlain
}

// IsCatchable reports whether script handlers may observe the error.
func IsCatchable(err error) bool {
	return Kind(err).Catchable()
}
