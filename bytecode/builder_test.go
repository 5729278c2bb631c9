package bytecode

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zephyr-lang/zephyr/op"
)

func TestBuilderEmitsNarrowOperands(t *testing.T) {
	unit := NewBuilder("test").
		EmitIndex(op.PushConst, 0).
		Emit(op.Return).
		mustBuildWithConstant(t, "hello")
	require.Equal(t, 3, unit.CodeLength())
	require.Equal(t, byte(op.PushConst), unit.ReadU8(0))
	require.Equal(t, 0, unit.ReadIndex(1, 1))
}

// mustBuildWithConstant interns the constant before building so EmitIndex
// references resolve during validation.
func (b *Builder) mustBuildWithConstant(t *testing.T, value any) *Unit {
	t.Helper()
	// Constants referenced by index 0 in these tests.
	require.Equal(t, 0, b.Constant(value))
	unit, err := b.Build()
	require.NoError(t, err)
	return unit
}

func TestBuilderWidthPromotion(t *testing.T) {
	b := NewBuilder("wide")
	for i := 0; i < 300; i++ {
		b.Constant(string(rune('a'+i%26)) + string(rune('0'+i/26)))
	}
	require.Equal(t, 300, len(b.constants))

	b.EmitIndex(op.PushConst, 299)
	b.Emit(op.Return)
	unit, err := b.Build()
	require.NoError(t, err)

	// A Wide prefix plus two-byte operand.
	require.Equal(t, byte(op.Wide), unit.ReadU8(0))
	require.Equal(t, byte(op.PushConst), unit.ReadU8(1))
	require.Equal(t, 299, unit.ReadIndex(2, 2))
}

func TestBuilderStringDedup(t *testing.T) {
	b := NewBuilder("dedup")
	first := b.Constant("x")
	second := b.Constant("x")
	third := b.Constant("y")
	require.Equal(t, first, second)
	require.NotEqual(t, first, third)

	// Big integers are never deduplicated.
	a := b.Constant(big.NewInt(7))
	c := b.Constant(big.NewInt(7))
	require.NotEqual(t, a, c)
}

func TestBuilderJumpPatching(t *testing.T) {
	b := NewBuilder("jumps")
	b.Emit(op.PushTrue)
	patch := b.EmitJump(op.JumpIfFalse)
	b.Emit(op.PushOne)
	b.Emit(op.Return)
	b.PatchJump(patch)
	b.Emit(op.PushZero)
	b.Emit(op.Return)
	unit, err := b.Build()
	require.NoError(t, err)

	// The patched target is the offset right after the true branch.
	require.Equal(t, uint32(8), unit.ReadU32(2))
}

func TestBuilderUnpatchedJumpFails(t *testing.T) {
	b := NewBuilder("broken")
	b.EmitJump(op.Jump)
	_, err := b.Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unpatched")
}

func TestBuildValidatesHandlerRanges(t *testing.T) {
	b := NewBuilder("handlers")
	b.Emit(op.PushUndefined)
	b.Emit(op.Return)
	b.AddHandler(Handler{Start: 0, End: 99})
	_, err := b.Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "handler range")
}

func TestBuildValidatesConstantTypes(t *testing.T) {
	b := NewBuilder("badclosure")
	idx := b.Constant("not a unit")
	b.EmitIndex(op.MakeClosure, idx)
	b.Emit(op.Return)
	_, err := b.Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MAKE_CLOSURE")
}

func TestBuildValidatesOperandIndices(t *testing.T) {
	b := NewBuilder("badconst")
	b.EmitIndex(op.PushConst, 5)
	b.Emit(op.Return)
	_, err := b.Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestBuildAssignsUniqueIDs(t *testing.T) {
	a := NewBuilder("a").Emit(op.Return).MustBuild()
	b := NewBuilder("b").Emit(op.Return).MustBuild()
	require.NotEmpty(t, a.ID())
	require.NotEqual(t, a.ID(), b.ID())
}

func TestBuildDetachesFromBuilder(t *testing.T) {
	b := NewBuilder("frozen")
	b.Emit(op.PushOne)
	b.Emit(op.Return)
	unit, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 2, unit.CodeLength())

	// Further builder use must not leak into the built unit.
	b.Emit(op.Nop)
	b.Constant("later")
	b.Binding(BindingLocator{Name: "x", Global: true})
	b.AddHandler(Handler{Start: 0, End: 1})

	require.Equal(t, 2, unit.CodeLength())
	require.Equal(t, 0, unit.ConstantCount())
	require.Equal(t, 0, unit.BindingCount())
	require.Equal(t, 0, unit.HandlerCount())
	require.Equal(t, byte(op.Return), unit.ReadU8(1))
}

func TestScopeConstants(t *testing.T) {
	b := NewBuilder("scoped")
	b.SetFunctionScope(ScopeDescriptor{Names: []string{"a", "b"}})
	b.Emit(op.Return)
	unit, err := b.Build()
	require.NoError(t, err)
	require.True(t, unit.NeedsFunctionScope())

	desc := unit.ScopeConstant(unit.FunctionScopeIndex())
	require.Equal(t, ScopeFunction, desc.Kind)
	require.Equal(t, 2, desc.SlotCount())
}
