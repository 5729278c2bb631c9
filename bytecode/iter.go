package bytecode

import (
	"fmt"
	"math"

	"github.com/zephyr-lang/zephyr/op"
)

// Instruction is one decoded instruction: its byte offset, the opcode, the
// scalable operand width in effect, and the decoded operand values.
// Float64 operands are stored as their IEEE-754 bit pattern.
type Instruction struct {
	Offset   int
	Opcode   op.Code
	Width    int
	Prefixed bool
	Operands []int64
}

// Float64Operand returns operand i interpreted as a float64 immediate.
func (in Instruction) Float64Operand(i int) float64 {
	return math.Float64frombits(uint64(in.Operands[i]))
}

// InstructionIter decodes an instruction stream sequentially. Because
// every instruction's operand count and width is determined solely by its
// opcode and the width marker, the iterator consumes exactly the declared
// operands and never reads past them.
type InstructionIter struct {
	unit *Unit
	pos  int
}

// NewInstructionIter returns an iterator positioned at offset 0.
func NewInstructionIter(u *Unit) *InstructionIter {
	return &InstructionIter{unit: u}
}

// Offset returns the byte offset of the next instruction.
func (it *InstructionIter) Offset() int { return it.pos }

// Next decodes the next instruction. It returns ok=false at the end of the
// stream and an error for unknown opcodes, truncated operands or
// out-of-range pool indices.
func (it *InstructionIter) Next() (Instruction, bool, error) {
	u := it.unit
	if it.pos >= len(u.code) {
		return Instruction{}, false, nil
	}
	start := it.pos
	width := 1
	prefixed := false
	code := op.Code(u.code[it.pos])
	it.pos++
	if op.IsWidthPrefix(code) {
		prefixed = true
		if code == op.Wide {
			width = 2
		} else {
			width = 4
		}
		if it.pos >= len(u.code) {
			return Instruction{}, false, fmt.Errorf(
				"bytecode: width prefix at %d with no instruction", start)
		}
		code = op.Code(u.code[it.pos])
		it.pos++
	}
	info := op.GetInfo(code)
	if info.Name == "" {
		return Instruction{}, false, fmt.Errorf(
			"bytecode: unknown opcode %d at offset %d", code, start)
	}
	operands := make([]int64, 0, len(info.Operands))
	for _, kind := range info.Operands {
		size := kind.Width(width)
		if it.pos+size > len(u.code) {
			return Instruction{}, false, fmt.Errorf(
				"bytecode: truncated %s operand at offset %d", info.Name, it.pos)
		}
		var value int64
		switch kind {
		case op.OperandIndex:
			value = int64(u.ReadIndex(it.pos, size))
		case op.OperandAddress:
			value = int64(u.ReadU32(it.pos))
		case op.OperandInt8:
			value = int64(u.ReadI8(it.pos))
		case op.OperandInt16:
			value = int64(u.ReadI16(it.pos))
		case op.OperandInt32:
			value = int64(u.ReadI32(it.pos))
		case op.OperandFloat64:
			value = int64(math.Float64bits(u.ReadF64(it.pos)))
		}
		it.pos += size
		operands = append(operands, value)
	}
	if err := it.validate(code, operands); err != nil {
		return Instruction{}, false, err
	}
	return Instruction{
		Offset:   start,
		Opcode:   code,
		Width:    width,
		Prefixed: prefixed,
		Operands: operands,
	}, true, nil
}

// validate checks pool and table indices against the unit's own tables.
// This is the decode-time half of the compiler/engine contract.
func (it *InstructionIter) validate(code op.Code, operands []int64) error {
	u := it.unit
	switch code {
	case op.PushConst, op.PushScope, op.MakeClosure,
		op.GetPropertyByName, op.SetPropertyByName:
		idx := int(operands[0])
		if idx >= len(u.constants) {
			return fmt.Errorf("bytecode: %s constant index %d out of range (pool size %d)",
				op.GetInfo(code).Name, idx, len(u.constants))
		}
	case op.DefInitBinding, op.GetBinding, op.SetBinding:
		idx := int(operands[0])
		if idx >= len(u.bindings) {
			return fmt.Errorf("bytecode: %s binding index %d out of range (table size %d)",
				op.GetInfo(code).Name, idx, len(u.bindings))
		}
	case op.Jump, op.JumpIfFalse, op.JumpIfTrue,
		op.JumpIfUndefined, op.JumpIfNotUndefined:
		target := int(operands[0])
		if target > len(u.code) {
			return fmt.Errorf("bytecode: jump target %d beyond code length %d",
				target, len(u.code))
		}
	case op.GetRegister, op.SetRegister:
		idx := int(operands[0])
		if idx >= u.registerCount {
			return fmt.Errorf("bytecode: register %d out of range (file size %d)",
				idx, u.registerCount)
		}
	}
	return nil
}
