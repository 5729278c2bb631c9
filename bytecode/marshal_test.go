package bytecode

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zephyr-lang/zephyr/op"
)

func buildNestedUnit(t *testing.T) *Unit {
	t.Helper()
	inner := NewBuilder("inner")
	inner.SetParameterLength(1)
	inner.AddFlags(FlagStrict | FlagSimpleParameters)
	inner.SetThisMode(ThisStrict)
	inner.SetFunctionScope(ScopeDescriptor{Names: []string{"a"}})
	inner.Binding(BindingLocator{Name: "a", Depth: 1, Slot: 0})
	inner.EmitIndex(op.GetBinding, 0)
	inner.Emit(op.Return)
	innerUnit := inner.MustBuild()

	outer := NewBuilder("outer")
	outer.SetRegisterCount(2)
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	uIdx := outer.Constant(innerUnit)
	outer.Constant("hello")
	outer.Constant(big1)
	outer.EmitIndex(op.MakeClosure, uIdx)
	outer.EmitInt8(op.PushInt8, 7)
	outer.EmitIndex(op.Call, 1)
	outer.Emit(op.Return)
	outer.AddHandler(Handler{Start: 0, End: 4, ScopeCount: 0, StackCount: 0, Finally: true})
	return outer.MustBuild()
}

func TestMarshalRoundTrip(t *testing.T) {
	unit := buildNestedUnit(t)
	data, err := Marshal(unit)
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, unit.ID(), restored.ID())
	require.Equal(t, unit.Name(), restored.Name())
	require.Equal(t, unit.RegisterCount(), restored.RegisterCount())
	require.Equal(t, unit.CodeLength(), restored.CodeLength())
	require.Equal(t, unit.HandlerCount(), restored.HandlerCount())
	require.Equal(t, unit.HandlerAt(0), restored.HandlerAt(0))

	// Nested unit survives with flags, scopes and bindings intact.
	inner := restored.UnitConstant(0)
	require.Equal(t, "inner", inner.Name())
	require.True(t, inner.IsStrict())
	require.True(t, inner.HasSimpleParameters())
	require.Equal(t, ThisStrict, inner.ThisMode())
	require.Equal(t, 1, inner.ParameterLength())
	require.Equal(t, BindingLocator{Name: "a", Depth: 1, Slot: 0}, inner.BindingAt(0))
	require.Equal(t, []string{"a"}, inner.ScopeConstant(inner.FunctionScopeIndex()).Names)

	// Big integers round-trip exactly.
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.Equal(t, 0, restored.ConstantAt(2).(*big.Int).Cmp(big1))
}

func TestMarshalNegativeBigInt(t *testing.T) {
	b := NewBuilder("neg")
	idx := b.Constant(big.NewInt(-99))
	b.EmitIndex(op.PushConst, idx)
	b.Emit(op.Return)
	data, err := Marshal(b.MustBuild())
	require.NoError(t, err)
	restored, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, int64(-99), restored.ConstantAt(idx).(*big.Int).Int64())
}

func TestUnmarshalRevalidates(t *testing.T) {
	b := NewBuilder("valid")
	b.Emit(op.PushUndefined)
	b.Emit(op.Return)
	unit := b.MustBuild()

	data, err := Marshal(unit)
	require.NoError(t, err)

	// Corrupting the payload must fail decoding or validation, never
	// produce a runnable unit with out-of-range indices.
	_, err = Unmarshal([]byte("not cbor at all"))
	require.Error(t, err)

	require.NotPanics(t, func() {
		for i := range data {
			mutated := append([]byte(nil), data...)
			mutated[i] ^= 0xff
			_, _ = Unmarshal(mutated)
		}
	})
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	unit := NewBuilder("v").Emit(op.Return).MustBuild()
	wire, err := toWire(unit)
	require.NoError(t, err)
	wire.Version = 99
	_, err = fromWire(wire)
	require.Error(t, err)
	require.Contains(t, err.Error(), "wire version")
}
