package object

import (
	"fmt"

	"github.com/zephyr-lang/zephyr/gc"
)

// slotRef aliases one binding slot of a scope. Mapped arguments entries
// read and write through these so that parameter bindings and arguments
// indices stay in sync both ways.
type slotRef struct {
	scope *Scope
	slot  int
}

// Arguments is the arguments object materialized at invocation. In mapped
// form (non-strict functions with simple parameter lists) the leading
// entries alias the parameter binding slots of the function scope; in
// unmapped form every entry is a snapshot of the value passed at the call.
type Arguments struct {
	length int
	refs   []slotRef // mapped entries, one per aliased parameter
	values []Value   // snapshot entries beyond the aliased parameters
}

// NewMappedArguments creates an arguments object for a call that passed
// argCount values to a function declaring paramCount parameters bound at
// slots firstSlot..firstSlot+paramCount-1 of scope. The first
// min(argCount, paramCount) entries alias those slots; entries beyond the
// declared parameters are snapshots from extra.
func NewMappedArguments(scope *Scope, firstSlot, paramCount, argCount int, extra []Value) *Arguments {
	a := &Arguments{length: argCount}
	mapped := paramCount
	if argCount < mapped {
		mapped = argCount
	}
	for i := 0; i < mapped; i++ {
		a.refs = append(a.refs, slotRef{scope: scope, slot: firstSlot + i})
	}
	a.values = extra
	return a
}

// NewUnmappedArguments creates an arguments object over a snapshot of the
// passed values. Later writes to parameter bindings are not observable.
func NewUnmappedArguments(args []Value) *Arguments {
	values := make([]Value, len(args))
	copy(values, args)
	return &Arguments{length: len(args), values: values}
}

func (a *Arguments) Type() Type { return ARGUMENTS }

func (a *Arguments) Inspect() string {
	return fmt.Sprintf("[arguments length=%d]", a.length)
}

func (a *Arguments) IsTruthy() bool { return true }

// Len returns the number of arguments passed at the call, independent of
// the declared parameter count.
func (a *Arguments) Len() int { return a.length }

// IsMapped reports whether any entries alias parameter binding slots.
func (a *Arguments) IsMapped() bool { return len(a.refs) > 0 }

// Get returns the argument at index i, or Undefined when out of range.
// Mapped entries read through to the current parameter binding value.
func (a *Arguments) Get(i int) (Value, error) {
	if i < 0 || i >= a.length {
		return Undefined, nil
	}
	if i < len(a.refs) {
		return a.refs[i].scope.GetSlot(a.refs[i].slot)
	}
	return a.values[i-len(a.refs)], nil
}

// Set assigns the argument at index i. Mapped entries write through to the
// parameter binding; out-of-range writes are ignored.
func (a *Arguments) Set(i int, v Value) error {
	if i < 0 || i >= a.length {
		return nil
	}
	if i < len(a.refs) {
		return a.refs[i].scope.SetSlot(a.refs[i].slot, v)
	}
	a.values[i-len(a.refs)] = v
	return nil
}

// TraceRefs implements gc.Traceable. Aliased scopes are marked so that a
// leaked arguments object keeps its activation alive.
func (a *Arguments) TraceRefs(mark func(gc.Traceable)) {
	for _, ref := range a.refs {
		mark(ref.scope)
	}
	for _, v := range a.values {
		if t, ok := v.(gc.Traceable); ok {
			mark(t)
		}
	}
}
