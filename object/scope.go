package object

import (
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/gc"

	"github.com/zephyr-lang/zephyr/bytecode"
)

// Scope is one link of the binding scope chain. Scopes are shared by
// reference: a closure may capture a scope and outlive the call that
// created it, which is why scopes are heap structures reclaimed by the
// external tracing collector rather than stack frames.
//
// A slot holding nil is declared but uninitialized; reading it raises a
// ReferenceError (temporal dead zone semantics).
type Scope struct {
	parent *Scope
	depth  int
	kind   bytecode.ScopeKind
	names  []string
	slots  []Value

	// Function scopes carry the this binding and invocation metadata.
	hasThis   bool
	thisValue Value
	thisBound bool
	function  *Callable
	newTarget Value
}

// NewGlobalScope creates the outermost scope of a realm at depth 0, with
// this bound to the given global object.
func NewGlobalScope(globalThis Value, desc bytecode.ScopeDescriptor) *Scope {
	return &Scope{
		kind:      bytecode.ScopeGlobal,
		names:     desc.Names,
		slots:     make([]Value, desc.SlotCount()),
		hasThis:   true,
		thisValue: globalThis,
		thisBound: true,
	}
}

// NewScope creates a lexical scope nested in parent.
func NewScope(parent *Scope, desc bytecode.ScopeDescriptor) *Scope {
	return &Scope{
		parent: parent,
		depth:  parent.depth + 1,
		kind:   desc.Kind,
		names:  desc.Names,
		slots:  make([]Value, desc.SlotCount()),
	}
}

// NewFunctionScope creates a function activation scope. For ordinary
// invocations this is bound; derived constructors pass bound=false and
// initialize this later via BindThis when the super constructor returns.
func NewFunctionScope(parent *Scope, desc bytecode.ScopeDescriptor, fn *Callable, this Value, bound bool, newTarget Value) *Scope {
	return &Scope{
		parent:    parent,
		depth:     parent.depth + 1,
		kind:      bytecode.ScopeFunction,
		names:     desc.Names,
		slots:     make([]Value, desc.SlotCount()),
		hasThis:   true,
		thisValue: this,
		thisBound: bound,
		function:  fn,
		newTarget: newTarget,
	}
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Depth returns the absolute chain depth (0 is the global scope).
func (s *Scope) Depth() int { return s.depth }

// Kind returns the scope kind.
func (s *Scope) Kind() bytecode.ScopeKind { return s.kind }

// SlotCount returns the number of binding slots.
func (s *Scope) SlotCount() int { return len(s.slots) }

// SlotName returns the name of slot i for diagnostics.
func (s *Scope) SlotName(i int) string {
	if i < 0 || i >= len(s.names) {
		return ""
	}
	return s.names[i]
}

// Ancestor walks outward to the scope at the given absolute depth.
// Locators store absolute depths, so this resolves in chain-length hops
// without a search.
func (s *Scope) Ancestor(depth int) *Scope {
	scope := s
	for scope != nil && scope.depth > depth {
		scope = scope.parent
	}
	return scope
}

// GetSlot reads a binding slot; reading an uninitialized slot is a
// ReferenceError.
func (s *Scope) GetSlot(i int) (Value, error) {
	if i < 0 || i >= len(s.slots) {
		return nil, errz.ReferenceErrorf("binding slot %d out of range", i)
	}
	if s.slots[i] == nil {
		return nil, errz.ReferenceErrorf(
			"cannot access %q before initialization", s.SlotName(i))
	}
	return s.slots[i], nil
}

// SetSlot assigns a binding slot; assigning an uninitialized slot is a
// ReferenceError.
func (s *Scope) SetSlot(i int, v Value) error {
	if i < 0 || i >= len(s.slots) {
		return errz.ReferenceErrorf("binding slot %d out of range", i)
	}
	if s.slots[i] == nil {
		return errz.ReferenceErrorf(
			"cannot assign %q before initialization", s.SlotName(i))
	}
	s.slots[i] = v
	return nil
}

// InitSlot initializes a binding slot, ending its temporal dead zone.
func (s *Scope) InitSlot(i int, v Value) error {
	if i < 0 || i >= len(s.slots) {
		return errz.ReferenceErrorf("binding slot %d out of range", i)
	}
	s.slots[i] = v
	return nil
}

// homeScope returns the nearest enclosing scope that carries a this
// binding. Lexical (arrow-like) units inherit this through it.
func (s *Scope) homeScope() *Scope {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.hasThis {
			return scope
		}
	}
	return nil
}

// This resolves the this binding. Inside a derived constructor before the
// super call has completed, this is unbound and the access is a
// ReferenceError.
func (s *Scope) This() (Value, error) {
	home := s.homeScope()
	if home == nil {
		return Undefined, nil
	}
	if !home.thisBound {
		return nil, errz.ReferenceErrorf(
			"must call super constructor before accessing 'this'")
	}
	return home.thisValue, nil
}

// ThisBound reports whether the nearest this-carrying scope is bound.
func (s *Scope) ThisBound() bool {
	home := s.homeScope()
	return home != nil && home.thisBound
}

// BindThis initializes the this binding of the nearest this-carrying
// scope. Binding twice is a ReferenceError (a second super call).
func (s *Scope) BindThis(v Value) error {
	home := s.homeScope()
	if home == nil {
		return errz.ReferenceErrorf("no home scope for 'this'")
	}
	if home.thisBound {
		return errz.ReferenceErrorf("super constructor may only be called once")
	}
	home.thisValue = v
	home.thisBound = true
	return nil
}

// Function returns the active function of the nearest function scope, or
// nil at the top level.
func (s *Scope) Function() *Callable {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.function != nil {
			return scope.function
		}
	}
	return nil
}

// NewTarget returns the new-target of the nearest function scope, or
// Undefined for ordinary calls and top-level code.
func (s *Scope) NewTarget() Value {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.hasThis && scope.kind == bytecode.ScopeFunction {
			if scope.newTarget == nil {
				return Undefined
			}
			return scope.newTarget
		}
	}
	return Undefined
}

// TraceRefs implements gc.Traceable.
func (s *Scope) TraceRefs(mark func(gc.Traceable)) {
	if s.parent != nil {
		mark(s.parent)
	}
	for _, v := range s.slots {
		if t, ok := v.(gc.Traceable); ok {
			mark(t)
		}
	}
	if t, ok := s.thisValue.(gc.Traceable); ok {
		mark(t)
	}
	if s.function != nil {
		mark(s.function)
	}
	if t, ok := s.newTarget.(gc.Traceable); ok {
		mark(t)
	}
}
