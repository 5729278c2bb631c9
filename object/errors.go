package object

import (
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/gc"
)

// Error is a thrown error as a script value. It pairs the structured
// engine error with an optional property map so script code can attach
// and read properties on caught errors.
type Error struct {
	err     *errz.Error
	props   *Object
	members *List // AggregateError members, nil otherwise
}

// NewError wraps a structured error as a script value.
func NewError(err *errz.Error) *Error {
	return &Error{err: err}
}

// NewAggregateError wraps several script errors in one value.
func NewAggregateError(message string, members []Value) *Error {
	errs := make([]error, 0, len(members))
	for _, m := range members {
		if e, ok := m.(*Error); ok {
			errs = append(errs, e.err)
		}
	}
	return &Error{
		err:     errz.Aggregate(message, errs),
		members: NewList(members),
	}
}

func (e *Error) Type() Type { return ERROR }

func (e *Error) Inspect() string { return e.err.Error() }

func (e *Error) IsTruthy() bool { return true }

// Err returns the underlying structured error.
func (e *Error) Err() *errz.Error { return e.err }

// Kind returns the error's taxonomy kind.
func (e *Error) Kind() errz.ErrorKind { return e.err.Kind }

// Message returns the error message.
func (e *Error) Message() string { return e.err.Message }

// Members returns the member list of an AggregateError, or nil.
func (e *Error) Members() *List { return e.members }

// Get reads a named property. The name, message and errors properties are
// synthesized from the structured error; everything else comes from the
// expando property map.
func (e *Error) Get(name string) (Value, bool) {
	switch name {
	case "name":
		return NewString(e.err.Kind.String()), true
	case "message":
		return NewString(e.err.Message), true
	case "errors":
		if e.members != nil {
			return e.members, true
		}
	}
	if e.props == nil {
		return nil, false
	}
	return e.props.Get(name)
}

// Set assigns an expando property on the error value.
func (e *Error) Set(name string, value Value) {
	if e.props == nil {
		e.props = NewObject(nil)
	}
	e.props.Set(name, value)
}

// FromThrown converts an engine error into the script value observed by a
// catch handler. A host error that already wraps a script value passes it
// through unchanged so rethrown values keep identity.
func FromThrown(err error) Value {
	if t, ok := err.(*thrownValue); ok {
		return t.value
	}
	if e, ok := err.(*errz.Error); ok {
		return NewError(e)
	}
	return NewError(errz.New(errz.ErrPlain, err.Error()))
}

// thrownValue carries an arbitrary thrown script value (throw 42) through
// the engine's error path.
type thrownValue struct {
	value Value
}

func (t *thrownValue) Error() string {
	return "uncaught: " + t.value.Inspect()
}

// Unwrap exposes the structured error inside a thrown Error value so that
// kind checks and stack attachment see through the wrapper.
func (t *thrownValue) Unwrap() error {
	if e, ok := t.value.(*Error); ok {
		return e.err
	}
	return nil
}

// AsThrown converts a script value being thrown into the error the engine
// propagates. The value itself rides along, so a catch handler observes
// the identical value, expando properties included.
func AsThrown(v Value) error {
	return &thrownValue{value: v}
}

// TraceRefs implements gc.Traceable.
func (e *Error) TraceRefs(mark func(gc.Traceable)) {
	if e.props != nil {
		mark(e.props)
	}
	if e.members != nil {
		mark(e.members)
	}
}
