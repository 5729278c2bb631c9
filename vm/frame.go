package vm

import (
	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/object"
)

// completionKind classifies how control is leaving a protected region.
type completionKind int

const (
	completionNone completionKind = iota
	completionReturn
	completionThrow
)

// completion is the pending completion a finally block must re-deliver at
// its END_FINALLY instruction. Only one is pending per frame at a time: a
// finally that itself completes abruptly replaces it.
type completion struct {
	kind  completionKind
	value object.Value
	err   error
}

// frame is one activation record. The operand stack is shared across
// frames; bp marks this frame's base within it, and every handler restore
// is relative to bp and baseScopeDepth.
type frame struct {
	fn   *object.Callable
	unit *bytecode.Unit

	pc int
	bp int

	// scope is the innermost active scope; baseScopeDepth is the chain
	// depth right after the invocation prologue, the zero point for
	// handler ScopeCount restores.
	scope          *object.Scope
	baseScopeDepth int

	registers []object.Value

	pending completion
}

func newFrame(fn *object.Callable, unit *bytecode.Unit, scope *object.Scope, bp int) *frame {
	return &frame{
		fn:             fn,
		unit:           unit,
		bp:             bp,
		scope:          scope,
		baseScopeDepth: scope.Depth(),
		registers:      make([]object.Value, unit.RegisterCount()),
	}
}

// name returns the frame's function name for stack traces.
func (f *frame) name() string {
	if f.fn != nil {
		return f.fn.Name()
	}
	return f.unit.Name()
}
