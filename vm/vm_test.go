package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/object"
	"github.com/zephyr-lang/zephyr/op"
)

// buildAddUnit assembles: function add(a, b) { return a + b }
func buildAddUnit(t *testing.T) *bytecode.Unit {
	t.Helper()
	b := bytecode.NewBuilder("add")
	b.SetParameterLength(2)
	b.AddFlags(bytecode.FlagStrict | bytecode.FlagSimpleParameters)
	b.SetThisMode(bytecode.ThisStrict)
	b.SetFunctionScope(bytecode.ScopeDescriptor{Names: []string{"a", "b"}})
	aIdx := b.Binding(bytecode.BindingLocator{Name: "a", Depth: 1, Slot: 0})
	bIdx := b.Binding(bytecode.BindingLocator{Name: "b", Depth: 1, Slot: 1})
	b.EmitIndex(op.GetBinding, aIdx)
	b.EmitIndex(op.GetBinding, bIdx)
	b.Emit(op.Add)
	b.Emit(op.Return)
	return b.MustBuild()
}

func closureOf(m *Machine, unit *bytecode.Unit) *object.Callable {
	return object.NewClosure(unit, m.Realm().GlobalScope(), m.Realm())
}

func TestCallWithExactArguments(t *testing.T) {
	m := New()
	fn := closureOf(m, buildAddUnit(t))
	result, err := m.Call(context.Background(), fn, object.Undefined,
		[]object.Value{object.NewNumber(2), object.NewNumber(3)})
	require.NoError(t, err)
	require.Equal(t, 5.0, result.(*object.Number).Value())
}

func TestMissingArgumentsBindUndefined(t *testing.T) {
	m := New()
	fn := closureOf(m, buildAddUnit(t))
	result, err := m.Call(context.Background(), fn, object.Undefined,
		[]object.Value{object.NewNumber(2)})
	require.NoError(t, err)
	// 2 + undefined is NaN, not an error.
	require.True(t, result.(*object.Number).IsNaN())
}

func TestExtraArgumentsIgnoredWithoutArgumentsObject(t *testing.T) {
	m := New()
	fn := closureOf(m, buildAddUnit(t))
	result, err := m.Call(context.Background(), fn, object.Undefined,
		[]object.Value{object.NewNumber(2), object.NewNumber(3), object.NewNumber(99)})
	require.NoError(t, err)
	require.Equal(t, 5.0, result.(*object.Number).Value())
}

func TestRunTopLevelUnit(t *testing.T) {
	m := New()
	addUnit := buildAddUnit(t)

	// Top-level units use lexical this so they add no function scope and
	// closures created at the top level sit directly over the global scope.
	b := bytecode.NewBuilder("main")
	b.SetThisMode(bytecode.ThisLexical)
	uIdx := b.Constant(addUnit)
	b.EmitIndex(op.MakeClosure, uIdx)
	b.EmitInt8(op.PushInt8, 2)
	b.EmitInt8(op.PushInt8, 3)
	b.EmitIndex(op.Call, 2)
	b.Emit(op.Return)

	result, err := m.Run(context.Background(), b.MustBuild())
	require.NoError(t, err)
	require.Equal(t, 5.0, result.(*object.Number).Value())
}

func TestRunOffTheEndReturnsUndefined(t *testing.T) {
	m := New()
	b := bytecode.NewBuilder("empty")
	b.SetThisMode(bytecode.ThisLexical)
	b.Emit(op.Nop)
	result, err := m.Run(context.Background(), b.MustBuild())
	require.NoError(t, err)
	require.Equal(t, object.Undefined, result)
}

func TestCallingNonFunctionFails(t *testing.T) {
	m := New()
	_, err := m.Call(context.Background(), object.NewNumber(1), object.Undefined, nil)
	require.Error(t, err)
	require.Equal(t, errz.ErrType, errz.Kind(err))
}

func TestNativeFunctionCall(t *testing.T) {
	double := object.NewNative("double", func(_ context.Context, _ object.Value, args []object.Value) (object.Value, error) {
		n, err := object.ToNumber(args[0])
		if err != nil {
			return nil, err
		}
		return object.NewNumber(n.Value() * 2), nil
	})
	m := New(WithGlobals(map[string]object.Value{"double": double}))

	b := bytecode.NewBuilder("main")
	b.SetThisMode(bytecode.ThisLexical)
	idx := b.Binding(bytecode.BindingLocator{Name: "double", Global: true})
	b.EmitIndex(op.GetBinding, idx)
	b.EmitInt8(op.PushInt8, 21)
	b.EmitIndex(op.Call, 1)
	b.Emit(op.Return)

	result, err := m.Run(context.Background(), b.MustBuild())
	require.NoError(t, err)
	require.Equal(t, 42.0, result.(*object.Number).Value())
}

func TestClosureCapturesOuterScope(t *testing.T) {
	// function makeAdder(x) { return function(y) { return x + y } }
	inner := bytecode.NewBuilder("adder")
	inner.SetParameterLength(1)
	inner.AddFlags(bytecode.FlagStrict | bytecode.FlagSimpleParameters)
	inner.SetThisMode(bytecode.ThisStrict)
	inner.SetFunctionScope(bytecode.ScopeDescriptor{Names: []string{"y"}})
	xRef := inner.Binding(bytecode.BindingLocator{Name: "x", Depth: 1, Slot: 0})
	yRef := inner.Binding(bytecode.BindingLocator{Name: "y", Depth: 2, Slot: 0})
	inner.EmitIndex(op.GetBinding, xRef)
	inner.EmitIndex(op.GetBinding, yRef)
	inner.Emit(op.Add)
	inner.Emit(op.Return)
	innerUnit := inner.MustBuild()

	outer := bytecode.NewBuilder("makeAdder")
	outer.SetParameterLength(1)
	outer.AddFlags(bytecode.FlagStrict | bytecode.FlagSimpleParameters)
	outer.SetThisMode(bytecode.ThisStrict)
	outer.SetFunctionScope(bytecode.ScopeDescriptor{Names: []string{"x"}})
	uIdx := outer.Constant(innerUnit)
	outer.EmitIndex(op.MakeClosure, uIdx)
	outer.Emit(op.Return)

	m := New()
	ctx := context.Background()
	makeAdder := closureOf(m, outer.MustBuild())

	adder, err := m.Call(ctx, makeAdder, object.Undefined,
		[]object.Value{object.NewNumber(10)})
	require.NoError(t, err)

	result, err := m.Call(ctx, adder, object.Undefined,
		[]object.Value{object.NewNumber(5)})
	require.NoError(t, err)
	require.Equal(t, 15.0, result.(*object.Number).Value())

	// The capture is shared, not copied: a second call sees it again.
	result, err = m.Call(ctx, adder, object.Undefined,
		[]object.Value{object.NewNumber(1)})
	require.NoError(t, err)
	require.Equal(t, 11.0, result.(*object.Number).Value())
}

func TestRegisters(t *testing.T) {
	b := bytecode.NewBuilder("regs")
	b.SetThisMode(bytecode.ThisLexical)
	b.SetRegisterCount(1)
	b.EmitInt8(op.PushInt8, 7)
	b.EmitIndex(op.SetRegister, 0)
	b.Emit(op.PushTrue)
	b.Emit(op.Pop)
	b.EmitIndex(op.GetRegister, 0)
	b.Emit(op.Return)

	m := New()
	result, err := m.Run(context.Background(), b.MustBuild())
	require.NoError(t, err)
	require.Equal(t, 7.0, result.(*object.Number).Value())
}

func TestLexicalScopeBindings(t *testing.T) {
	b := bytecode.NewBuilder("block")
	b.SetThisMode(bytecode.ThisStrict)
	b.AddFlags(bytecode.FlagStrict)
	descIdx := b.Constant(bytecode.ScopeDescriptor{Kind: bytecode.ScopeLexical, Names: []string{"v"}})
	// The implicit function scope sits at depth 1, the pushed block at 2.
	vIdx := b.Binding(bytecode.BindingLocator{Name: "v", Depth: 2, Slot: 0})
	b.EmitIndex(op.PushScope, descIdx)
	b.EmitInt8(op.PushInt8, 9)
	b.EmitIndex(op.DefInitBinding, vIdx)
	b.EmitIndex(op.GetBinding, vIdx)
	b.Emit(op.PopScope)
	b.Emit(op.Return)

	m := New()
	result, err := m.Call(context.Background(), closureOf(m, b.MustBuild()), object.Undefined, nil)
	require.NoError(t, err)
	require.Equal(t, 9.0, result.(*object.Number).Value())
}

func TestReadBeforeInitialization(t *testing.T) {
	b := bytecode.NewBuilder("tdz")
	b.SetThisMode(bytecode.ThisStrict)
	b.AddFlags(bytecode.FlagStrict)
	descIdx := b.Constant(bytecode.ScopeDescriptor{Kind: bytecode.ScopeLexical, Names: []string{"v"}})
	vIdx := b.Binding(bytecode.BindingLocator{Name: "v", Depth: 2, Slot: 0})
	b.EmitIndex(op.PushScope, descIdx)
	b.EmitIndex(op.GetBinding, vIdx)
	b.Emit(op.Return)

	m := New()
	_, err := m.Call(context.Background(), closureOf(m, b.MustBuild()), object.Undefined, nil)
	require.Error(t, err)
	require.Equal(t, errz.ErrReference, errz.Kind(err))
}

func TestUndefinedGlobalIsReferenceError(t *testing.T) {
	b := bytecode.NewBuilder("missing")
	b.SetThisMode(bytecode.ThisLexical)
	idx := b.Binding(bytecode.BindingLocator{Name: "nope", Global: true})
	b.EmitIndex(op.GetBinding, idx)
	b.Emit(op.Return)

	m := New()
	_, err := m.Run(context.Background(), b.MustBuild())
	require.Error(t, err)
	require.Equal(t, errz.ErrReference, errz.Kind(err))
	require.Contains(t, err.Error(), "nope is not defined")
}

func TestThisCoercionNonStrict(t *testing.T) {
	b := bytecode.NewBuilder("whoami")
	b.SetThisMode(bytecode.ThisGlobal)
	b.Emit(op.This)
	b.Emit(op.Return)
	unit := b.MustBuild()

	m := New()
	ctx := context.Background()
	fn := closureOf(m, unit)

	// undefined this coerces to the global object.
	result, err := m.Call(ctx, fn, object.Undefined, nil)
	require.NoError(t, err)
	require.Equal(t, m.Realm().GlobalObject(), result)

	// A primitive this is boxed into a wrapper object.
	result, err = m.Call(ctx, fn, object.NewNumber(5), nil)
	require.NoError(t, err)
	wrapper, ok := result.(*object.Object)
	require.True(t, ok)
	require.Equal(t, 5.0, wrapper.Primitive().(*object.Number).Value())
}

func TestThisPassedThroughInStrictMode(t *testing.T) {
	b := bytecode.NewBuilder("whoami")
	b.AddFlags(bytecode.FlagStrict)
	b.SetThisMode(bytecode.ThisStrict)
	b.Emit(op.This)
	b.Emit(op.Return)

	m := New()
	five := object.NewNumber(5)
	result, err := m.Call(context.Background(), closureOf(m, b.MustBuild()), five, nil)
	require.NoError(t, err)
	require.Equal(t, five, result)
}

func TestPropertyAccess(t *testing.T) {
	b := bytecode.NewBuilder("props")
	b.SetThisMode(bytecode.ThisLexical)
	b.SetRegisterCount(1)
	nameIdx := b.Constant("answer")
	b.Emit(op.NewObject)
	b.EmitIndex(op.SetRegister, 0)
	b.EmitIndex(op.GetRegister, 0)
	b.EmitInt8(op.PushInt8, 42)
	b.EmitIndex(op.SetPropertyByName, nameIdx)
	b.EmitIndex(op.GetRegister, 0)
	b.EmitIndex(op.GetPropertyByName, nameIdx)
	b.Emit(op.Return)

	m := New()
	result, err := m.Run(context.Background(), b.MustBuild())
	require.NoError(t, err)
	require.Equal(t, 42.0, result.(*object.Number).Value())
}

func TestPropertyReadOnUndefinedFails(t *testing.T) {
	b := bytecode.NewBuilder("bad")
	b.SetThisMode(bytecode.ThisLexical)
	nameIdx := b.Constant("x")
	b.Emit(op.PushUndefined)
	b.EmitIndex(op.GetPropertyByName, nameIdx)
	b.Emit(op.Return)

	m := New()
	_, err := m.Run(context.Background(), b.MustBuild())
	require.Error(t, err)
	require.Equal(t, errz.ErrType, errz.Kind(err))
}

func TestConditionalJumps(t *testing.T) {
	// if (false) return 1; return 2
	b := bytecode.NewBuilder("branch")
	b.SetThisMode(bytecode.ThisLexical)
	b.Emit(op.PushFalse)
	patch := b.EmitJump(op.JumpIfFalse)
	b.Emit(op.PushOne)
	b.Emit(op.Return)
	b.PatchJump(patch)
	b.EmitInt8(op.PushInt8, 2)
	b.Emit(op.Return)

	m := New()
	result, err := m.Run(context.Background(), b.MustBuild())
	require.NoError(t, err)
	require.Equal(t, 2.0, result.(*object.Number).Value())
}

func TestStackTraceOnError(t *testing.T) {
	inner := bytecode.NewBuilder("inner")
	inner.AddFlags(bytecode.FlagStrict)
	inner.SetThisMode(bytecode.ThisStrict)
	idx := inner.Binding(bytecode.BindingLocator{Name: "ghost", Global: true})
	inner.EmitIndex(op.GetBinding, idx)
	inner.Emit(op.Return)
	innerUnit := inner.MustBuild()

	outer := bytecode.NewBuilder("outer")
	outer.SetThisMode(bytecode.ThisLexical)
	uIdx := outer.Constant(innerUnit)
	outer.EmitIndex(op.MakeClosure, uIdx)
	outer.EmitIndex(op.Call, 0)
	outer.Emit(op.Return)

	m := New()
	_, err := m.Run(context.Background(), outer.MustBuild())
	require.Error(t, err)
	var e *errz.Error
	require.ErrorAs(t, err, &e)
	require.NotEmpty(t, e.Stack)
	require.Equal(t, "inner", e.Stack[0].Function)
}

func TestNamedFunctionExpressionBindsItself(t *testing.T) {
	// countdown(n) calls itself through its own name binding, which lives
	// in a scope between the closure scope and the function scope.
	b := bytecode.NewBuilder("countdown")
	b.SetParameterLength(1)
	b.AddFlags(bytecode.FlagStrict | bytecode.FlagSimpleParameters |
		bytecode.FlagNamedBinding | bytecode.FlagNeedsFunctionScope)
	b.SetThisMode(bytecode.ThisStrict)
	b.SetFunctionScope(bytecode.ScopeDescriptor{Kind: bytecode.ScopeFunction, Names: []string{"n"}})
	selfIdx := b.Binding(bytecode.BindingLocator{Name: "countdown", Depth: 1, Slot: 0})
	nIdx := b.Binding(bytecode.BindingLocator{Name: "n", Depth: 2, Slot: 0})

	b.EmitIndex(op.GetBinding, nIdx)
	b.Emit(op.PushZero)
	b.Emit(op.LessEq)
	els := b.EmitJump(op.JumpIfFalse)
	b.Emit(op.PushZero)
	b.Emit(op.Return)
	b.PatchJump(els)
	b.EmitIndex(op.GetBinding, selfIdx)
	b.EmitIndex(op.GetBinding, nIdx)
	b.Emit(op.PushOne)
	b.Emit(op.Subtract)
	b.EmitIndex(op.Call, 1)
	b.Emit(op.Return)

	m := New()
	fn := closureOf(m, b.MustBuild())
	result, err := m.Call(context.Background(), fn, object.Undefined,
		[]object.Value{object.NewNumber(3)})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.(*object.Number).Value())
}

func TestStringLengthCountsCodeUnits(t *testing.T) {
	m := New()
	n, err := m.getProperty(object.NewString("hello"), "length")
	require.NoError(t, err)
	require.Equal(t, 5.0, n.(*object.Number).Value())

	// A character outside the basic plane counts as a surrogate pair.
	n, err = m.getProperty(object.NewString("a\U0001D11E"), "length")
	require.NoError(t, err)
	require.Equal(t, 3.0, n.(*object.Number).Value())

	// Multi-byte BMP characters still count as one unit each.
	n, err = m.getProperty(object.NewString("héllo"), "length")
	require.NoError(t, err)
	require.Equal(t, 5.0, n.(*object.Number).Value())
}
