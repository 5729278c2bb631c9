package bytecode

import "fmt"

// BindingLocator identifies one variable's storage location: the scope
// chain depth and the slot index within that scope, resolved once at
// compile time and reused on every access.
type BindingLocator struct {
	// Name is the source-level identifier, kept for diagnostics and for
	// global lookups.
	Name string
	// Depth is the absolute scope chain depth (0 is the global scope).
	Depth int
	// Slot is the index within the scope's slot array.
	Slot int
	// Global marks a binding resolved on the global object rather than in
	// a declarative scope; Depth and Slot are ignored for these.
	Global bool
}

// String returns a compact representation for diagnostics.
func (l BindingLocator) String() string {
	if l.Global {
		return fmt.Sprintf("%s@global", l.Name)
	}
	return fmt.Sprintf("%s@%d:%d", l.Name, l.Depth, l.Slot)
}

// ScopeKind classifies a scope descriptor.
type ScopeKind byte

const (
	// ScopeLexical is a block scope.
	ScopeLexical ScopeKind = iota
	// ScopeFunction is a function activation scope; it carries the this
	// binding.
	ScopeFunction
	// ScopeGlobal is the realm's outermost scope.
	ScopeGlobal
)

// String returns the kind name.
func (k ScopeKind) String() string {
	switch k {
	case ScopeLexical:
		return "lexical"
	case ScopeFunction:
		return "function"
	case ScopeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// ScopeDescriptor is the compile-time shape of one scope: its kind and
// the names of its slots. Descriptors live in unit constant pools and are
// instantiated into runtime scopes by PushScope and by the invocation
// protocol.
type ScopeDescriptor struct {
	Kind  ScopeKind
	Names []string
}

// SlotCount returns the number of slots a runtime scope instantiated from
// this descriptor carries.
func (d ScopeDescriptor) SlotCount() int { return len(d.Names) }
