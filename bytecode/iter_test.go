package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zephyr-lang/zephyr/op"
)

func TestIterDecodesSimpleStream(t *testing.T) {
	b := NewBuilder("simple")
	idx := b.Constant("greeting")
	b.EmitIndex(op.PushConst, idx)
	b.EmitInt8(op.PushInt8, -5)
	b.Emit(op.Add)
	b.Emit(op.Return)
	unit := b.MustBuild()

	iter := NewInstructionIter(unit)

	instr, ok, err := iter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, op.PushConst, instr.Opcode)
	require.Equal(t, 0, instr.Offset)
	require.False(t, instr.Prefixed)
	require.Equal(t, []int64{int64(idx)}, instr.Operands)

	instr, ok, err = iter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, op.PushInt8, instr.Opcode)
	require.Equal(t, []int64{-5}, instr.Operands)

	instr, ok, err = iter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, op.Add, instr.Opcode)
	require.Empty(t, instr.Operands)

	instr, ok, err = iter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, op.Return, instr.Opcode)

	_, ok, err = iter.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIterDecodesWidePrefix(t *testing.T) {
	b := NewBuilder("wide")
	for i := 0; i < 260; i++ {
		b.Binding(BindingLocator{Name: "v", Depth: 1, Slot: i})
	}
	b.EmitIndex(op.GetBinding, 259)
	b.Emit(op.Return)
	unit := b.MustBuild()

	iter := NewInstructionIter(unit)
	instr, ok, err := iter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, op.GetBinding, instr.Opcode)
	require.True(t, instr.Prefixed)
	require.Equal(t, 2, instr.Width)
	require.Equal(t, int64(259), instr.Operands[0])
	// The prefix byte belongs to the instruction's offset.
	require.Equal(t, 0, instr.Offset)
}

func TestIterFloatOperand(t *testing.T) {
	b := NewBuilder("float")
	b.EmitFloat64(op.PushFloat64, 3.25)
	b.Emit(op.Return)
	unit := b.MustBuild()

	iter := NewInstructionIter(unit)
	instr, ok, err := iter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3.25, instr.Float64Operand(0))
}

func TestIterRejectsTruncatedOperand(t *testing.T) {
	unit := &Unit{code: []byte{byte(op.PushInt32), 0x01, 0x02}}
	iter := NewInstructionIter(unit)
	_, _, err := iter.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "truncated")
}

func TestIterRejectsUnknownOpcode(t *testing.T) {
	unit := &Unit{code: []byte{200}}
	iter := NewInstructionIter(unit)
	_, _, err := iter.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown opcode")
}

func TestIterRejectsDanglingPrefix(t *testing.T) {
	unit := &Unit{code: []byte{byte(op.Wide)}}
	iter := NewInstructionIter(unit)
	_, _, err := iter.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "width prefix")
}

func TestIterValidatesRegisterIndices(t *testing.T) {
	unit := &Unit{
		code:          []byte{byte(op.GetRegister), 3, byte(op.Return)},
		registerCount: 2,
	}
	iter := NewInstructionIter(unit)
	_, _, err := iter.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "register")
}
