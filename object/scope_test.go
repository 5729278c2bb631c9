package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/errz"
)

func newTestChain(t *testing.T) (*Scope, *Scope, *Scope) {
	t.Helper()
	global := NewGlobalScope(NewObject(nil), bytecode.ScopeDescriptor{
		Kind: bytecode.ScopeGlobal, Names: []string{"g"},
	})
	fn := NewFunctionScope(global, bytecode.ScopeDescriptor{
		Kind: bytecode.ScopeFunction, Names: []string{"a", "b"},
	}, nil, NewNumber(1), true, nil)
	block := NewScope(fn, bytecode.ScopeDescriptor{
		Kind: bytecode.ScopeLexical, Names: []string{"x"},
	})
	return global, fn, block
}

func TestScopeDepths(t *testing.T) {
	global, fn, block := newTestChain(t)
	require.Equal(t, 0, global.Depth())
	require.Equal(t, 1, fn.Depth())
	require.Equal(t, 2, block.Depth())
	require.Equal(t, fn, block.Parent())
}

func TestAncestorResolvesByAbsoluteDepth(t *testing.T) {
	global, fn, block := newTestChain(t)
	require.Equal(t, block, block.Ancestor(2))
	require.Equal(t, fn, block.Ancestor(1))
	require.Equal(t, global, block.Ancestor(0))
}

func TestSlotLifecycle(t *testing.T) {
	_, fn, _ := newTestChain(t)

	// Reading before initialization is a ReferenceError.
	_, err := fn.GetSlot(0)
	require.Error(t, err)
	require.Equal(t, errz.ErrReference, errz.Kind(err))

	// Assigning before initialization is also a ReferenceError.
	err = fn.SetSlot(0, NewNumber(1))
	require.Error(t, err)

	require.NoError(t, fn.InitSlot(0, NewNumber(1)))
	v, err := fn.GetSlot(0)
	require.NoError(t, err)
	require.Equal(t, 1.0, v.(*Number).Value())

	require.NoError(t, fn.SetSlot(0, NewNumber(2)))
	v, err = fn.GetSlot(0)
	require.NoError(t, err)
	require.Equal(t, 2.0, v.(*Number).Value())

	_, err = fn.GetSlot(9)
	require.Error(t, err)
}

func TestThisResolvesThroughLexicalScopes(t *testing.T) {
	_, _, block := newTestChain(t)
	v, err := block.This()
	require.NoError(t, err)
	require.Equal(t, 1.0, v.(*Number).Value())
}

func TestUnboundThis(t *testing.T) {
	global := NewGlobalScope(NewObject(nil), bytecode.ScopeDescriptor{})
	fn := NewFunctionScope(global, bytecode.ScopeDescriptor{}, nil, Undefined, false, nil)

	_, err := fn.This()
	require.Error(t, err)
	require.Equal(t, errz.ErrReference, errz.Kind(err))
	require.False(t, fn.ThisBound())

	obj := NewObject(nil)
	require.NoError(t, fn.BindThis(obj))
	v, err := fn.This()
	require.NoError(t, err)
	require.Equal(t, obj, v)

	// Binding twice models a second super call.
	err = fn.BindThis(obj)
	require.Error(t, err)
}

func TestNewTarget(t *testing.T) {
	global := NewGlobalScope(NewObject(nil), bytecode.ScopeDescriptor{})
	require.Equal(t, Undefined, global.NewTarget())

	ctor := NewNative("C", nil)
	fn := NewFunctionScope(global, bytecode.ScopeDescriptor{}, ctor, Undefined, true, ctor)
	require.Equal(t, ctor, fn.NewTarget())

	block := NewScope(fn, bytecode.ScopeDescriptor{})
	require.Equal(t, ctor, block.NewTarget())
	require.Equal(t, ctor, block.Function())
}
