package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/zephyr-lang/zephyr/op"
)

const jumpPlaceholder = 0xffff_ffff

// Builder assembles a Unit instruction by instruction. It is the concrete
// form of the compiler/engine boundary: an external compiler drives a
// Builder, and Build validates the result against the unit's own tables
// before anything can execute it.
type Builder struct {
	name            string
	parameterLength int
	registerCount   int
	flags           Flags
	thisMode        ThisMode
	code            []byte
	constants       []any
	strings         map[string]int
	bindings        []BindingLocator
	handlers        []Handler
	functionScope   int
	parameterScope  int
	openJumps       map[int]bool
}

// NewBuilder creates a builder for a unit with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:           name,
		strings:        map[string]int{},
		functionScope:  -1,
		parameterScope: -1,
		openJumps:      map[int]bool{},
	}
}

// SetParameterLength declares the unit's parameter count.
func (b *Builder) SetParameterLength(n int) *Builder {
	b.parameterLength = n
	return b
}

// SetRegisterCount declares the size of the unit's register file.
func (b *Builder) SetRegisterCount(n int) *Builder {
	b.registerCount = n
	return b
}

// AddFlags ORs the given flags into the unit's flag bitset.
func (b *Builder) AddFlags(flags Flags) *Builder {
	b.flags |= flags
	return b
}

// SetThisMode declares how this binds when the unit is invoked.
func (b *Builder) SetThisMode(mode ThisMode) *Builder {
	b.thisMode = mode
	return b
}

// Constant interns a value into the constant pool and returns its index.
// Strings are deduplicated; other constants always get a fresh entry.
// Accepted types: string, *big.Int, *Unit, ScopeDescriptor.
func (b *Builder) Constant(value any) int {
	if s, ok := value.(string); ok {
		if idx, ok := b.strings[s]; ok {
			return idx
		}
		idx := len(b.constants)
		b.constants = append(b.constants, s)
		b.strings[s] = idx
		return idx
	}
	switch value.(type) {
	case *big.Int, *Unit, ScopeDescriptor:
	default:
		panic(fmt.Sprintf("bytecode: unsupported constant type %T", value))
	}
	idx := len(b.constants)
	b.constants = append(b.constants, value)
	return idx
}

// Binding appends a locator to the binding table and returns its index.
func (b *Builder) Binding(loc BindingLocator) int {
	idx := len(b.bindings)
	b.bindings = append(b.bindings, loc)
	return idx
}

// SetFunctionScope declares the function scope pushed at invocation.
func (b *Builder) SetFunctionScope(desc ScopeDescriptor) *Builder {
	desc.Kind = ScopeFunction
	b.functionScope = b.Constant(desc)
	b.flags |= FlagNeedsFunctionScope
	return b
}

// SetParameterScope declares the extra parameter-expression scope.
func (b *Builder) SetParameterScope(desc ScopeDescriptor) *Builder {
	desc.Kind = ScopeLexical
	b.parameterScope = b.Constant(desc)
	b.flags |= FlagHasParameterScope
	return b
}

// Offset returns the current end of the instruction stream; the next
// emitted instruction will start here.
func (b *Builder) Offset() int { return len(b.code) }

// Emit appends an instruction with no operands.
func (b *Builder) Emit(code op.Code) *Builder {
	b.code = append(b.code, byte(code))
	return b
}

// EmitIndex appends an instruction with one scalable index operand,
// choosing the narrowest width and emitting a width prefix when needed.
func (b *Builder) EmitIndex(code op.Code, index int) *Builder {
	switch {
	case index < 0:
		panic(fmt.Sprintf("bytecode: negative operand %d", index))
	case index <= math.MaxUint8:
		b.code = append(b.code, byte(code), byte(index))
	case index <= math.MaxUint16:
		b.code = append(b.code, byte(op.Wide), byte(code))
		b.code = binary.LittleEndian.AppendUint16(b.code, uint16(index))
	case index <= math.MaxUint32:
		b.code = append(b.code, byte(op.ExtraWide), byte(code))
		b.code = binary.LittleEndian.AppendUint32(b.code, uint32(index))
	default:
		panic(fmt.Sprintf("bytecode: operand %d exceeds u32", index))
	}
	return b
}

// EmitInt8 appends an instruction with one signed byte immediate.
func (b *Builder) EmitInt8(code op.Code, value int8) *Builder {
	b.code = append(b.code, byte(code), byte(value))
	return b
}

// EmitInt16 appends an instruction with one int16 immediate.
func (b *Builder) EmitInt16(code op.Code, value int16) *Builder {
	b.code = append(b.code, byte(code))
	b.code = binary.LittleEndian.AppendUint16(b.code, uint16(value))
	return b
}

// EmitInt32 appends an instruction with one int32 immediate.
func (b *Builder) EmitInt32(code op.Code, value int32) *Builder {
	b.code = append(b.code, byte(code))
	b.code = binary.LittleEndian.AppendUint32(b.code, uint32(value))
	return b
}

// EmitFloat64 appends an instruction with one float64 immediate.
func (b *Builder) EmitFloat64(code op.Code, value float64) *Builder {
	b.code = append(b.code, byte(code))
	b.code = binary.LittleEndian.AppendUint64(b.code, math.Float64bits(value))
	return b
}

// EmitJump appends a jump instruction with a placeholder target and
// returns a patch handle for PatchJump.
func (b *Builder) EmitJump(code op.Code) int {
	b.code = append(b.code, byte(code))
	patch := len(b.code)
	b.code = binary.LittleEndian.AppendUint32(b.code, jumpPlaceholder)
	b.openJumps[patch] = true
	return patch
}

// PatchJump resolves a jump emitted by EmitJump to the current offset.
func (b *Builder) PatchJump(patch int) *Builder {
	return b.PatchJumpTo(patch, len(b.code))
}

// PatchJumpTo resolves a jump emitted by EmitJump to the given offset.
func (b *Builder) PatchJumpTo(patch, target int) *Builder {
	if !b.openJumps[patch] {
		panic(fmt.Sprintf("bytecode: no open jump at %d", patch))
	}
	binary.LittleEndian.PutUint32(b.code[patch:], uint32(target))
	delete(b.openJumps, patch)
	return b
}

// EmitJumpTo appends a jump instruction with a known target.
func (b *Builder) EmitJumpTo(code op.Code, target int) *Builder {
	b.code = append(b.code, byte(code))
	b.code = binary.LittleEndian.AppendUint32(b.code, uint32(target))
	return b
}

// AddHandler registers an exception handler. Nested handlers must be
// added after their enclosing handler so that reverse scans find the
// innermost first.
func (b *Builder) AddHandler(h Handler) *Builder {
	b.handlers = append(b.handlers, h)
	return b
}

// Build validates the assembled unit and returns it. The returned unit is
// immutable and detached from the builder.
func (b *Builder) Build() (*Unit, error) {
	if len(b.openJumps) > 0 {
		return nil, fmt.Errorf("bytecode: %d unpatched jumps", len(b.openJumps))
	}
	// The tables are copied so the unit stays frozen even if the builder
	// keeps appending afterwards.
	unit := &Unit{
		id:              uuid.NewString(),
		name:            b.name,
		parameterLength: b.parameterLength,
		registerCount:   b.registerCount,
		code:            append([]byte(nil), b.code...),
		constants:       append([]any(nil), b.constants...),
		bindings:        append([]BindingLocator(nil), b.bindings...),
		handlers:        append([]Handler(nil), b.handlers...),
		flags:           b.flags,
		thisMode:        b.thisMode,
		functionScope:   b.functionScope,
		parameterScope:  b.parameterScope,
	}
	if err := validateUnit(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// MustBuild is Build for hand-assembled units in tests and tools; it
// panics on validation failure.
func (b *Builder) MustBuild() *Unit {
	unit, err := b.Build()
	if err != nil {
		panic(err)
	}
	return unit
}

func validateUnit(u *Unit) error {
	for _, h := range u.handlers {
		if h.Start < 0 || h.End < h.Start || h.End > len(u.code) {
			return fmt.Errorf("bytecode: handler range [%d, %d) invalid for code length %d",
				h.Start, h.End, len(u.code))
		}
		if h.ScopeCount < 0 || h.StackCount < 0 {
			return fmt.Errorf("bytecode: handler with negative restore counts")
		}
	}
	if u.functionScope >= 0 {
		if _, ok := u.ConstantAt(u.functionScope).(ScopeDescriptor); !ok {
			return fmt.Errorf("bytecode: function scope constant %d is not a scope descriptor",
				u.functionScope)
		}
	}
	if u.parameterScope >= 0 {
		if _, ok := u.ConstantAt(u.parameterScope).(ScopeDescriptor); !ok {
			return fmt.Errorf("bytecode: parameter scope constant %d is not a scope descriptor",
				u.parameterScope)
		}
	}
	// Decode the whole stream once: unknown opcodes, truncated operands
	// and out-of-range indices all surface here instead of at run time.
	iter := NewInstructionIter(u)
	for {
		instr, ok, err := iter.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch instr.Opcode {
		case op.PushScope:
			if _, ok := u.ConstantAt(int(instr.Operands[0])).(ScopeDescriptor); !ok {
				return fmt.Errorf("bytecode: PUSH_SCOPE constant %d is not a scope descriptor",
					instr.Operands[0])
			}
		case op.MakeClosure:
			if _, ok := u.ConstantAt(int(instr.Operands[0])).(*Unit); !ok {
				return fmt.Errorf("bytecode: MAKE_CLOSURE constant %d is not a function unit",
					instr.Operands[0])
			}
		case op.GetPropertyByName, op.SetPropertyByName:
			if _, ok := u.ConstantAt(int(instr.Operands[0])).(string); !ok {
				return fmt.Errorf("bytecode: property name constant %d is not a string",
					instr.Operands[0])
			}
		}
	}
	return nil
}
