// Package op defines the opcodes executed by the Zephyr virtual machine.
//
// Instructions are encoded as a dense byte stream: a one-byte opcode
// followed by zero or more operands. The number and width of the operands
// is determined solely by the opcode and the active width marker, which
// makes a generic decoder possible (see the bytecode package).
package op

// Code is a byte opcode that indicates an operation to execute.
type Code byte

const (
	Invalid Code = 0

	// Width prefixes. Wide promotes the scalable operands of the next
	// instruction from one byte to two; ExtraWide promotes them to four.
	Wide      Code = 1
	ExtraWide Code = 2

	// Execution
	Nop    Code = 3
	Pop    Code = 4
	Dup    Code = 5
	Swap   Code = 6
	Return Code = 7
	Throw  Code = 8

	// Push immediates
	PushUndefined Code = 10
	PushNull      Code = 11
	PushTrue      Code = 12
	PushFalse     Code = 13
	PushZero      Code = 14
	PushOne       Code = 15
	PushInt8      Code = 16
	PushInt16     Code = 17
	PushInt32     Code = 18
	PushFloat64   Code = 19
	PushConst     Code = 20 // Constant pool: string or big-integer literal

	// Registers
	GetRegister Code = 25
	SetRegister Code = 26

	// Bindings and scopes
	PushScope      Code = 30 // Constant pool: scope descriptor
	PopScope       Code = 31
	DefInitBinding Code = 32
	GetBinding     Code = 33
	SetBinding     Code = 34

	// This and closures
	This         Code = 40
	GetNewTarget Code = 41
	MakeClosure  Code = 42 // Constant pool: nested function unit

	// Properties
	NewObject          Code = 50
	GetPropertyByName  Code = 51
	SetPropertyByName  Code = 52
	GetPropertyByValue Code = 53
	SetPropertyByValue Code = 54

	// Calls
	Call      Code = 60
	New       Code = 61
	SuperCall Code = 62

	// Jumps (absolute four-byte targets, never width-scaled)
	Jump               Code = 70
	JumpIfFalse        Code = 71
	JumpIfTrue         Code = 72
	JumpIfUndefined    Code = 73
	JumpIfNotUndefined Code = 74

	// Arithmetic and comparison
	Add       Code = 80
	Subtract  Code = 81
	Multiply  Code = 82
	Divide    Code = 83
	Modulo    Code = 84
	Negate    Code = 85
	Not       Code = 86
	TypeOf    Code = 87
	Equal     Code = 90
	NotEqual  Code = 91
	Less      Code = 92
	LessEq    Code = 93
	Greater   Code = 94
	GreaterEq Code = 95

	// Generators and finally blocks
	Yield      Code = 100
	EndFinally Code = 101
)

// OperandKind describes one operand of an instruction.
type OperandKind byte

const (
	// OperandNone is the zero value and marks an absent operand.
	OperandNone OperandKind = iota

	// OperandIndex is a scalable unsigned index (register, constant pool
	// entry, binding, or argument count). One byte by default, two after a
	// Wide prefix, four after ExtraWide.
	OperandIndex

	// OperandAddress is an absolute four-byte jump target. Addresses are
	// never width-scaled.
	OperandAddress

	// Fixed-width immediates, unaffected by width prefixes.
	OperandInt8
	OperandInt16
	OperandInt32
	OperandFloat64
)

// Width returns the encoded size in bytes of the operand under the given
// scalable operand width (1, 2 or 4).
func (k OperandKind) Width(scalable int) int {
	switch k {
	case OperandIndex:
		return scalable
	case OperandAddress:
		return 4
	case OperandInt8:
		return 1
	case OperandInt16:
		return 2
	case OperandInt32:
		return 4
	case OperandFloat64:
		return 8
	default:
		return 0
	}
}

// Info contains information about an opcode.
type Info struct {
	Code     Code
	Name     string
	Operands []OperandKind
}

// OperandCount returns the number of operands the opcode consumes.
func (i Info) OperandCount() int {
	return len(i.Operands)
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op       Code
		name     string
		operands []OperandKind
	}
	index := []OperandKind{OperandIndex}
	addr := []OperandKind{OperandAddress}
	ops := []opInfo{
		{Wide, "WIDE", nil},
		{ExtraWide, "EXTRA_WIDE", nil},
		{Nop, "NOP", nil},
		{Pop, "POP", nil},
		{Dup, "DUP", nil},
		{Swap, "SWAP", nil},
		{Return, "RETURN", nil},
		{Throw, "THROW", nil},
		{PushUndefined, "PUSH_UNDEFINED", nil},
		{PushNull, "PUSH_NULL", nil},
		{PushTrue, "PUSH_TRUE", nil},
		{PushFalse, "PUSH_FALSE", nil},
		{PushZero, "PUSH_ZERO", nil},
		{PushOne, "PUSH_ONE", nil},
		{PushInt8, "PUSH_INT8", []OperandKind{OperandInt8}},
		{PushInt16, "PUSH_INT16", []OperandKind{OperandInt16}},
		{PushInt32, "PUSH_INT32", []OperandKind{OperandInt32}},
		{PushFloat64, "PUSH_FLOAT64", []OperandKind{OperandFloat64}},
		{PushConst, "PUSH_CONST", index},
		{GetRegister, "GET_REGISTER", index},
		{SetRegister, "SET_REGISTER", index},
		{PushScope, "PUSH_SCOPE", index},
		{PopScope, "POP_SCOPE", nil},
		{DefInitBinding, "DEF_INIT_BINDING", index},
		{GetBinding, "GET_BINDING", index},
		{SetBinding, "SET_BINDING", index},
		{This, "THIS", nil},
		{GetNewTarget, "GET_NEW_TARGET", nil},
		{MakeClosure, "MAKE_CLOSURE", index},
		{NewObject, "NEW_OBJECT", nil},
		{GetPropertyByName, "GET_PROPERTY_BY_NAME", index},
		{SetPropertyByName, "SET_PROPERTY_BY_NAME", index},
		{GetPropertyByValue, "GET_PROPERTY_BY_VALUE", nil},
		{SetPropertyByValue, "SET_PROPERTY_BY_VALUE", nil},
		{Call, "CALL", index},
		{New, "NEW", index},
		{SuperCall, "SUPER_CALL", index},
		{Jump, "JUMP", addr},
		{JumpIfFalse, "JUMP_IF_FALSE", addr},
		{JumpIfTrue, "JUMP_IF_TRUE", addr},
		{JumpIfUndefined, "JUMP_IF_UNDEFINED", addr},
		{JumpIfNotUndefined, "JUMP_IF_NOT_UNDEFINED", addr},
		{Add, "ADD", nil},
		{Subtract, "SUBTRACT", nil},
		{Multiply, "MULTIPLY", nil},
		{Divide, "DIVIDE", nil},
		{Modulo, "MODULO", nil},
		{Negate, "NEGATE", nil},
		{Not, "NOT", nil},
		{TypeOf, "TYPE_OF", nil},
		{Equal, "EQUAL", nil},
		{NotEqual, "NOT_EQUAL", nil},
		{Less, "LESS", nil},
		{LessEq, "LESS_EQ", nil},
		{Greater, "GREATER", nil},
		{GreaterEq, "GREATER_EQ", nil},
		{Yield, "YIELD", nil},
		{EndFinally, "END_FINALLY", nil},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:     o.op,
			Name:     o.name,
			Operands: o.operands,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(code Code) Info {
	return infos[code]
}

// IsWidthPrefix reports whether the opcode is a width marker rather than an
// executable instruction.
func IsWidthPrefix(code Code) bool {
	return code == Wide || code == ExtraWide
}
