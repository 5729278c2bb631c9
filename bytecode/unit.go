package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/zephyr-lang/zephyr/gc"
)

// Flags is the bitset of boolean attributes of a compiled unit.
type Flags uint16

const (
	// FlagStrict marks a unit compiled in strict mode.
	FlagStrict Flags = 1 << iota
	// FlagGenerator marks a generator function body.
	FlagGenerator
	// FlagClassConstructor marks a class constructor, which cannot be
	// invoked without new.
	FlagClassConstructor
	// FlagDerivedConstructor marks a derived class constructor, whose
	// this binding stays uninitialized until a super-constructor call.
	FlagDerivedConstructor
	// FlagNeedsFunctionScope requests a function scope at invocation.
	FlagNeedsFunctionScope
	// FlagHasParameterScope requests an additional scope for parameter
	// expressions so defaults cannot observe body bindings.
	FlagHasParameterScope
	// FlagNeedsArguments requests an arguments object at invocation.
	FlagNeedsArguments
	// FlagSimpleParameters is set when the parameter list contains only
	// plain identifiers: no rest, no defaults, no destructuring. This is
	// the authoritative gate for mapped arguments objects.
	FlagSimpleParameters
	// FlagNamedBinding marks a named function expression, whose own name
	// binds to the function itself in a scope enclosing the body.
	FlagNamedBinding
)

// ThisMode determines how the this argument binds during invocation.
type ThisMode byte

const (
	// ThisGlobal coerces null/undefined this to the global object and
	// primitives to their wrapper objects (non-strict functions).
	ThisGlobal ThisMode = iota
	// ThisStrict passes this through unchanged.
	ThisStrict
	// ThisLexical leaves this unbound; it is inherited from the
	// enclosing scope (arrow-like units).
	ThisLexical
)

// String returns a short name for the this-mode.
func (m ThisMode) String() string {
	switch m {
	case ThisGlobal:
		return "global"
	case ThisStrict:
		return "strict"
	case ThisLexical:
		return "lexical"
	default:
		return "unknown"
	}
}

// Unit is a compiled function unit: the instruction stream, constant pool,
// binding locator table, exception handler table and flags for one
// function body. A Unit is immutable after construction and is shared
// read-only by every closure created from it.
type Unit struct {
	id              string
	name            string
	parameterLength int
	registerCount   int
	code            []byte
	constants       []any
	bindings        []BindingLocator
	handlers        []Handler
	flags           Flags
	thisMode        ThisMode

	// Constant-pool indices of the scope descriptors the engine pushes at
	// invocation, or -1 when the corresponding flag is unset.
	functionScope  int
	parameterScope int
}

// ID returns the unique identifier assigned when the unit was built.
func (u *Unit) ID() string { return u.id }

// Name returns the function name, or empty for anonymous units.
func (u *Unit) Name() string { return u.name }

// ParameterLength returns the declared parameter count.
func (u *Unit) ParameterLength() int { return u.parameterLength }

// RegisterCount returns the size of the register file each activation of
// this unit requires.
func (u *Unit) RegisterCount() int { return u.registerCount }

// CodeLength returns the length of the instruction stream in bytes.
func (u *Unit) CodeLength() int { return len(u.code) }

// Flags returns the unit's flag bitset.
func (u *Unit) Flags() Flags { return u.flags }

// ThisMode returns how this binds when the unit is invoked.
func (u *Unit) ThisMode() ThisMode { return u.thisMode }

// IsStrict reports whether the unit was compiled in strict mode.
func (u *Unit) IsStrict() bool { return u.flags&FlagStrict != 0 }

// IsGenerator reports whether the unit is a generator body.
func (u *Unit) IsGenerator() bool { return u.flags&FlagGenerator != 0 }

// IsClassConstructor reports whether the unit is a class constructor.
func (u *Unit) IsClassConstructor() bool { return u.flags&FlagClassConstructor != 0 }

// IsDerivedConstructor reports whether the unit is a derived constructor.
func (u *Unit) IsDerivedConstructor() bool { return u.flags&FlagDerivedConstructor != 0 }

// NeedsFunctionScope reports whether invocation pushes a function scope.
func (u *Unit) NeedsFunctionScope() bool { return u.flags&FlagNeedsFunctionScope != 0 }

// HasParameterScope reports whether invocation pushes an additional
// parameter-expression scope.
func (u *Unit) HasParameterScope() bool { return u.flags&FlagHasParameterScope != 0 }

// HasNamedBinding reports whether the unit's own name binds to the
// function in a scope enclosing the body.
func (u *Unit) HasNamedBinding() bool { return u.flags&FlagNamedBinding != 0 }

// NeedsArguments reports whether invocation creates an arguments object.
func (u *Unit) NeedsArguments() bool { return u.flags&FlagNeedsArguments != 0 }

// HasSimpleParameters reports whether the parameter list contains only
// plain identifiers. Mapped arguments objects require this and non-strict
// mode; everything else gets an unmapped snapshot.
func (u *Unit) HasSimpleParameters() bool { return u.flags&FlagSimpleParameters != 0 }

// FunctionScopeIndex returns the constant-pool index of the function scope
// descriptor, or -1 if the unit does not need a function scope.
func (u *Unit) FunctionScopeIndex() int { return u.functionScope }

// ParameterScopeIndex returns the constant-pool index of the parameter
// scope descriptor, or -1.
func (u *Unit) ParameterScopeIndex() int { return u.parameterScope }

// ConstantCount returns the number of constant pool entries.
func (u *Unit) ConstantCount() int { return len(u.constants) }

// ConstantAt returns the constant at the given index. The value is one of
// string, *big.Int, *Unit or ScopeDescriptor.
func (u *Unit) ConstantAt(index int) any {
	if index < 0 || index >= len(u.constants) {
		panic(fmt.Sprintf("bytecode: constant index %d out of range (pool size %d)",
			index, len(u.constants)))
	}
	return u.constants[index]
}

// StringConstant returns the string constant at the given index.
func (u *Unit) StringConstant(index int) string {
	s, ok := u.ConstantAt(index).(string)
	if !ok {
		panic(fmt.Sprintf("bytecode: constant %d is not a string", index))
	}
	return s
}

// ScopeConstant returns the scope descriptor constant at the given index.
func (u *Unit) ScopeConstant(index int) ScopeDescriptor {
	d, ok := u.ConstantAt(index).(ScopeDescriptor)
	if !ok {
		panic(fmt.Sprintf("bytecode: constant %d is not a scope descriptor", index))
	}
	return d
}

// UnitConstant returns the nested unit constant at the given index.
func (u *Unit) UnitConstant(index int) *Unit {
	child, ok := u.ConstantAt(index).(*Unit)
	if !ok {
		panic(fmt.Sprintf("bytecode: constant %d is not a function unit", index))
	}
	return child
}

// BindingCount returns the number of binding locators.
func (u *Unit) BindingCount() int { return len(u.bindings) }

// BindingAt returns the binding locator at the given index.
func (u *Unit) BindingAt(index int) BindingLocator {
	if index < 0 || index >= len(u.bindings) {
		panic(fmt.Sprintf("bytecode: binding index %d out of range (table size %d)",
			index, len(u.bindings)))
	}
	return u.bindings[index]
}

// HandlerCount returns the number of exception handlers.
func (u *Unit) HandlerCount() int { return len(u.handlers) }

// HandlerAt returns the exception handler at the given index.
func (u *Unit) HandlerAt(index int) Handler { return u.handlers[index] }

// FindHandler returns the innermost handler whose range contains pc.
// Handlers are scanned in reverse registration order: nested handlers are
// appended after their enclosing handler, so the first containing match in
// reverse order is the innermost without explicit nesting pointers.
func (u *Unit) FindHandler(pc int) (Handler, bool) {
	for i := len(u.handlers) - 1; i >= 0; i-- {
		if u.handlers[i].Contains(pc) {
			return u.handlers[i], true
		}
	}
	return Handler{}, false
}

// FindFinallyHandler is like FindHandler but only matches handlers marked
// as finally blocks. Injected return completions (generator close) bind to
// finally handlers only; catch handlers must not intercept them.
func (u *Unit) FindFinallyHandler(pc int) (Handler, bool) {
	for i := len(u.handlers) - 1; i >= 0; i-- {
		if u.handlers[i].Finally && u.handlers[i].Contains(pc) {
			return u.handlers[i], true
		}
	}
	return Handler{}, false
}

// HandlerIndexAt returns the index of the innermost handler containing pc,
// or -1. Used by the disassembler's handler column.
func (u *Unit) HandlerIndexAt(pc int) int {
	for i := len(u.handlers) - 1; i >= 0; i-- {
		if u.handlers[i].Contains(pc) {
			return i
		}
	}
	return -1
}

// The Read accessors decode primitive values from the instruction stream.
// An out-of-range read is a program-integrity violation: units are
// validated at build time, so these panic rather than return an error.

func (u *Unit) boundsCheck(offset, size int) {
	if offset < 0 || offset+size > len(u.code) {
		panic(fmt.Sprintf("bytecode: read of %d bytes at %d exceeds code length %d",
			size, offset, len(u.code)))
	}
}

// ReadU8 decodes an unsigned byte at offset.
func (u *Unit) ReadU8(offset int) byte {
	u.boundsCheck(offset, 1)
	return u.code[offset]
}

// ReadU16 decodes a little-endian uint16 at offset.
func (u *Unit) ReadU16(offset int) uint16 {
	u.boundsCheck(offset, 2)
	return binary.LittleEndian.Uint16(u.code[offset:])
}

// ReadU32 decodes a little-endian uint32 at offset.
func (u *Unit) ReadU32(offset int) uint32 {
	u.boundsCheck(offset, 4)
	return binary.LittleEndian.Uint32(u.code[offset:])
}

// ReadI8 decodes a signed byte at offset.
func (u *Unit) ReadI8(offset int) int8 { return int8(u.ReadU8(offset)) }

// ReadI16 decodes a little-endian int16 at offset.
func (u *Unit) ReadI16(offset int) int16 { return int16(u.ReadU16(offset)) }

// ReadI32 decodes a little-endian int32 at offset.
func (u *Unit) ReadI32(offset int) int32 { return int32(u.ReadU32(offset)) }

// ReadF64 decodes a little-endian float64 at offset.
func (u *Unit) ReadF64(offset int) float64 {
	u.boundsCheck(offset, 8)
	return math.Float64frombits(binary.LittleEndian.Uint64(u.code[offset:]))
}

// ReadIndex decodes a scalable operand of the given width (1, 2 or 4).
func (u *Unit) ReadIndex(offset, width int) int {
	switch width {
	case 1:
		return int(u.ReadU8(offset))
	case 2:
		return int(u.ReadU16(offset))
	case 4:
		return int(u.ReadU32(offset))
	default:
		panic(fmt.Sprintf("bytecode: invalid operand width %d", width))
	}
}

// TraceRefs implements gc.Traceable. Units are plain shared data, but
// their constant pools hold references to nested units which must stay
// reachable as long as any closure over this unit is live.
func (u *Unit) TraceRefs(mark func(gc.Traceable)) {
	for _, c := range u.constants {
		if child, ok := c.(*Unit); ok {
			mark(child)
		}
	}
}

// Stats summarizes a unit for diagnostics.
type Stats struct {
	CodeBytes     int
	ConstantCount int
	BindingCount  int
	HandlerCount  int
	NestedUnits   int
	BigIntCount   int
}

// Stats returns statistics about this unit.
func (u *Unit) Stats() Stats {
	s := Stats{
		CodeBytes:     len(u.code),
		ConstantCount: len(u.constants),
		BindingCount:  len(u.bindings),
		HandlerCount:  len(u.handlers),
	}
	for _, c := range u.constants {
		switch c.(type) {
		case *Unit:
			s.NestedUnits++
		case *big.Int:
			s.BigIntCount++
		}
	}
	return s
}
