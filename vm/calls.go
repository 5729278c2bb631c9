package vm

import (
	"context"
	"strconv"
	"unicode/utf16"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/object"
)

// callValue dispatches an invocation on the callable's variant tag. A nil
// newTarget marks an ordinary call; construction passes the constructor
// (or the original new-target for super chains).
func (m *Machine) callValue(ctx context.Context, callee object.Value, this object.Value, args []object.Value, newTarget object.Value) (object.Value, error) {
	fn, ok := callee.(*object.Callable)
	if !ok {
		return nil, fmtNotCallable(callee)
	}
	if len(m.frames) >= m.callDepthLimit() {
		return nil, errz.LimitErrorf("call depth limit of %d exceeded", m.callDepthLimit())
	}
	switch fn.Kind() {
	case object.KindNative:
		return fn.Native()(ctx, this, args)
	case object.KindHostClosure:
		hostFn, captured := fn.HostClosure()
		return hostFn(ctx, this, args, captured)
	case object.KindGenerator:
		f, err := m.prepareFrame(fn, this, args, nil, true)
		if err != nil {
			return nil, err
		}
		return newGenerator(m, fn, f), nil
	case object.KindOrdinary:
		if fn.Unit().IsClassConstructor() && newTarget == nil {
			return nil, errz.TypeErrorf(
				"class constructor %s cannot be invoked without 'new'", fn.Name())
		}
		f, err := m.prepareFrame(fn, this, args, newTarget, newTarget == nil || !fn.Unit().IsDerivedConstructor())
		if err != nil {
			return nil, err
		}
		return m.runFrame(ctx, f)
	default:
		return nil, fmtNotCallable(callee)
	}
}

// prepareFrame sets up the activation for a compiled unit: this coercion,
// the parameter and function scopes, parameter slot binding, and the
// arguments object. thisBound is false only for derived constructors,
// whose this stays uninitialized until the super call.
func (m *Machine) prepareFrame(fn *object.Callable, this object.Value, args []object.Value, newTarget object.Value, thisBound bool) (*frame, error) {
	unit := fn.Unit()
	scope := fn.Scope()

	if thisBound {
		switch unit.ThisMode() {
		case bytecode.ThisGlobal:
			if this == object.Undefined || this == object.Null {
				this = m.realm.GlobalObject()
			} else {
				this = m.realm.WrapPrimitive(this)
			}
		case bytecode.ThisStrict:
			// Passed through unchanged.
		}
	}

	if unit.HasNamedBinding() {
		desc := bytecode.ScopeDescriptor{Kind: bytecode.ScopeLexical, Names: []string{unit.Name()}}
		scope = object.NewScope(scope, desc)
		if err := scope.InitSlot(0, fn); err != nil {
			return nil, err
		}
	}

	if unit.HasParameterScope() && unit.ParameterScopeIndex() >= 0 {
		scope = object.NewScope(scope, unit.ScopeConstant(unit.ParameterScopeIndex()))
	}

	paramBase := 0
	if unit.NeedsArguments() {
		paramBase = 1
	}
	needsFuncScope := unit.NeedsFunctionScope() ||
		unit.ThisMode() != bytecode.ThisLexical ||
		unit.ParameterLength() > 0 ||
		unit.NeedsArguments()
	if needsFuncScope {
		desc := bytecode.ScopeDescriptor{Kind: bytecode.ScopeFunction}
		if unit.FunctionScopeIndex() >= 0 {
			desc = unit.ScopeConstant(unit.FunctionScopeIndex())
		}
		if desc.SlotCount() < paramBase+unit.ParameterLength() {
			return nil, errz.TypeErrorf(
				"function %s: scope has %d slots for %d parameters",
				fn.Name(), desc.SlotCount(), unit.ParameterLength())
		}
		scope = object.NewFunctionScope(scope, desc, fn, this, thisBound, newTarget)
	}

	f := newFrame(fn, unit, scope, len(m.stack))

	// Missing arguments bind as undefined; extras are observable only
	// through the arguments object.
	for i := 0; i < unit.ParameterLength(); i++ {
		v := object.Value(object.Undefined)
		if i < len(args) {
			v = args[i]
		}
		if err := scope.InitSlot(paramBase+i, v); err != nil {
			return nil, err
		}
	}

	if unit.NeedsArguments() {
		var argsObj *object.Arguments
		if !unit.IsStrict() && unit.HasSimpleParameters() {
			var extra []object.Value
			if len(args) > unit.ParameterLength() {
				extra = append(extra, args[unit.ParameterLength():]...)
			}
			argsObj = object.NewMappedArguments(scope, 1, unit.ParameterLength(), len(args), extra)
		} else {
			argsObj = object.NewUnmappedArguments(args)
		}
		if err := scope.InitSlot(0, argsObj); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// runFrame executes a prepared frame to completion. The operand stack is
// truncated back to the frame's base on every exit path, so a throwing
// callee can never leave residue on the caller's stack.
func (m *Machine) runFrame(ctx context.Context, f *frame) (object.Value, error) {
	m.frames = append(m.frames, f)
	if m.observer != nil && f.fn != nil {
		m.observer.OnCall(f.fn, len(m.frames))
	}
	result, yielded, err := m.evalFrame(ctx, f)
	if err != nil {
		err = m.withTrace(err)
	}
	m.frames = m.frames[:len(m.frames)-1]
	m.stack = m.stack[:f.bp]
	if err == nil && yielded {
		err = errz.Newf(errz.ErrSyntax, "yield outside of a generator")
	}
	if m.observer != nil && f.fn != nil {
		m.observer.OnReturn(f.fn, result, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// construct implements the new operator. newTarget is nil for a direct
// new and carries the original target through super-constructor chains so
// the instance prototype comes from the most-derived class.
func (m *Machine) construct(ctx context.Context, target object.Value, args []object.Value, newTarget object.Value) (object.Value, error) {
	fn, ok := target.(*object.Callable)
	if !ok || !fn.IsConstructor() {
		return nil, errz.TypeErrorf("%s is not a constructor", describe(target))
	}
	if len(m.frames) >= m.callDepthLimit() {
		return nil, errz.LimitErrorf("call depth limit of %d exceeded", m.callDepthLimit())
	}
	if newTarget == nil {
		newTarget = fn
	}
	if fn.Kind() == object.KindNative {
		return fn.Native()(ctx, object.Undefined, args)
	}
	unit := fn.Unit()

	protoSource := fn
	if nt, ok := newTarget.(*object.Callable); ok {
		protoSource = nt
	}

	var this object.Value = object.Undefined
	bound := false
	if !unit.IsDerivedConstructor() {
		obj := object.NewObject(protoSource.PrototypeObject())
		m.installFields(fn, obj)
		this = obj
		bound = true
	}

	f, err := m.prepareFrame(fn, this, args, newTarget, bound)
	if err != nil {
		return nil, err
	}
	result, err := m.runFrame(ctx, f)
	if err != nil {
		return nil, err
	}

	if obj, ok := result.(*object.Object); ok {
		return obj, nil
	}
	if unit.IsDerivedConstructor() {
		if result != object.Undefined {
			return nil, errz.TypeErrorf(
				"derived constructors may only return an object or undefined")
		}
		// The bound this lives in the frame's scope; an unbound this here
		// means the body never called super.
		return f.scope.This()
	}
	return this, nil
}

// superCall runs the parent constructor, binds the result as this, and
// installs the current class's instance fields on it.
func (m *Machine) superCall(ctx context.Context, f *frame, args []object.Value) (object.Value, error) {
	fn := f.scope.Function()
	if fn == nil || fn.Parent() == nil {
		return nil, errz.Newf(errz.ErrSyntax, "'super' keyword unexpected here")
	}
	newTarget := f.scope.NewTarget()
	if newTarget == object.Undefined {
		newTarget = fn
	}
	result, err := m.construct(ctx, fn.Parent(), args, newTarget)
	if err != nil {
		return nil, err
	}
	if err := f.scope.BindThis(result); err != nil {
		return nil, err
	}
	if obj, ok := result.(*object.Object); ok {
		m.installFields(fn, obj)
	}
	return result, nil
}

func (m *Machine) installFields(fn *object.Callable, obj *object.Object) {
	for _, field := range fn.Fields() {
		obj.Set(field.Name, field.Init)
	}
}

// getProperty implements property reads across the value model. Missing
// properties read as undefined; reads on undefined or null are TypeErrors.
func (m *Machine) getProperty(v object.Value, name string) (object.Value, error) {
	switch v := v.(type) {
	case *object.Object:
		if prop, ok := v.Get(name); ok {
			return prop, nil
		}
		return object.Undefined, nil
	case *object.Error:
		if prop, ok := v.Get(name); ok {
			return prop, nil
		}
		return object.Undefined, nil
	case *object.Callable:
		switch name {
		case "name":
			return object.NewString(v.Name()), nil
		case "length":
			return object.NewNumber(float64(v.ParameterLength())), nil
		case "prototype":
			if v.IsConstructor() {
				return v.PrototypeObject(), nil
			}
		}
		return object.Undefined, nil
	case *object.Arguments:
		if name == "length" {
			return object.NewNumber(float64(v.Len())), nil
		}
		if i, err := strconv.Atoi(name); err == nil {
			return v.Get(i)
		}
		return object.Undefined, nil
	case *object.List:
		if name == "length" {
			return object.NewNumber(float64(v.Len())), nil
		}
		if i, err := strconv.Atoi(name); err == nil {
			return v.Get(i), nil
		}
		return object.Undefined, nil
	case *object.String:
		if name == "length" {
			// Length counts UTF-16 code units, not bytes.
			return object.NewNumber(float64(len(utf16.Encode([]rune(v.Value()))))), nil
		}
		return object.Undefined, nil
	case *Generator:
		switch name {
		case "next":
			return v.nextMethod(), nil
		case "return":
			return v.returnMethod(), nil
		case "throw":
			return v.throwMethod(), nil
		}
		return object.Undefined, nil
	default:
		if v == object.Undefined || v == object.Null {
			return nil, errz.TypeErrorf(
				"cannot read properties of %s (reading %q)", v.Type(), name)
		}
		return object.Undefined, nil
	}
}

// setProperty implements property writes. Writes to undefined or null are
// TypeErrors; writes to other primitives are silently dropped.
func (m *Machine) setProperty(v object.Value, name string, value object.Value) error {
	switch v := v.(type) {
	case *object.Object:
		v.Set(name, value)
		return nil
	case *object.Error:
		v.Set(name, value)
		return nil
	case *object.Arguments:
		if i, err := strconv.Atoi(name); err == nil {
			return v.Set(i, value)
		}
		return nil
	case *object.Callable:
		if name == "prototype" {
			if obj, ok := value.(*object.Object); ok {
				v.SetPrototypeObject(obj)
			}
		}
		return nil
	default:
		if v == object.Undefined || v == object.Null {
			return errz.TypeErrorf(
				"cannot set properties of %s (setting %q)", v.Type(), name)
		}
		return nil
	}
}
