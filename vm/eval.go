package vm

import (
	"context"
	"math/big"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/object"
	"github.com/zephyr-lang/zephyr/op"
)

func (f *frame) readIndex(width int) int {
	v := f.unit.ReadIndex(f.pc, width)
	f.pc += width
	return v
}

func (f *frame) readAddress() int {
	v := int(f.unit.ReadU32(f.pc))
	f.pc += 4
	return v
}

// evalFrame is the dispatch loop for one activation. It returns the
// frame's completion value, or yielded=true when a generator body
// suspended at a yield with the yielded value as the result. Errors that
// no handler in this frame catches propagate to the caller; the caller is
// responsible for truncating the shared stack back to the frame base.
func (m *Machine) evalFrame(ctx context.Context, f *frame) (object.Value, bool, error) {
	for f.pc < f.unit.CodeLength() {
		m.steps++
		if m.limits.Instructions > 0 && m.steps > m.limits.Instructions {
			return nil, false, errz.LimitErrorf(
				"instruction budget of %d exceeded", m.limits.Instructions)
		}
		if m.steps%int64(m.checkInterval) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			if m.limits.StackSize > 0 && len(m.stack) > m.limits.StackSize {
				return nil, false, errz.LimitErrorf(
					"operand stack limit of %d exceeded", m.limits.StackSize)
			}
		}

		// ip is the instruction's first byte, including any width prefix;
		// handler ranges are matched against it.
		ip := f.pc
		code := op.Code(f.unit.ReadU8(f.pc))
		f.pc++
		width := 1
		for op.IsWidthPrefix(code) {
			if code == op.Wide {
				width = 2
			} else {
				width = 4
			}
			code = op.Code(f.unit.ReadU8(f.pc))
			f.pc++
		}
		if m.observer != nil {
			m.observer.OnInstruction(f.unit.Name(), ip, code)
		}

		var err error
		switch code {
		case op.Nop:

		case op.Pop:
			m.pop()

		case op.Dup:
			m.push(m.peek())

		case op.Swap:
			n := len(m.stack)
			m.stack[n-1], m.stack[n-2] = m.stack[n-2], m.stack[n-1]

		case op.Return:
			v := m.pop()
			if m.interceptReturn(f, ip, v) {
				continue
			}
			return v, false, nil

		case op.Throw:
			err = object.AsThrown(m.pop())

		case op.PushUndefined:
			m.push(object.Undefined)
		case op.PushNull:
			m.push(object.Null)
		case op.PushTrue:
			m.push(object.True)
		case op.PushFalse:
			m.push(object.False)
		case op.PushZero:
			m.push(object.NewNumber(0))
		case op.PushOne:
			m.push(object.NewNumber(1))

		case op.PushInt8:
			m.push(object.NewNumber(float64(f.unit.ReadI8(f.pc))))
			f.pc++
		case op.PushInt16:
			m.push(object.NewNumber(float64(f.unit.ReadI16(f.pc))))
			f.pc += 2
		case op.PushInt32:
			m.push(object.NewNumber(float64(f.unit.ReadI32(f.pc))))
			f.pc += 4
		case op.PushFloat64:
			m.push(object.NewNumber(f.unit.ReadF64(f.pc)))
			f.pc += 8

		case op.PushConst:
			switch c := f.unit.ConstantAt(f.readIndex(width)).(type) {
			case string:
				m.push(object.NewString(c))
			case *big.Int:
				m.push(object.NewBigInt(c))
			default:
				err = errz.TypeErrorf("constant of type %T is not a value", c)
			}

		case op.GetRegister:
			v := f.registers[f.readIndex(width)]
			if v == nil {
				v = object.Undefined
			}
			m.push(v)
		case op.SetRegister:
			f.registers[f.readIndex(width)] = m.pop()

		case op.PushScope:
			desc := f.unit.ScopeConstant(f.readIndex(width))
			f.scope = object.NewScope(f.scope, desc)
		case op.PopScope:
			f.scope = f.scope.Parent()

		case op.DefInitBinding:
			loc := f.unit.BindingAt(f.readIndex(width))
			v := m.pop()
			if loc.Global {
				m.realm.GlobalObject().Set(loc.Name, v)
			} else {
				var target *object.Scope
				target, err = m.resolveScope(f, loc)
				if err == nil {
					err = target.InitSlot(loc.Slot, v)
				}
			}
		case op.GetBinding:
			loc := f.unit.BindingAt(f.readIndex(width))
			if loc.Global {
				v, ok := m.realm.GlobalObject().Get(loc.Name)
				if !ok {
					err = errz.ReferenceErrorf("%s is not defined", loc.Name)
				} else {
					m.push(v)
				}
			} else {
				var target *object.Scope
				target, err = m.resolveScope(f, loc)
				if err == nil {
					var v object.Value
					v, err = target.GetSlot(loc.Slot)
					if err == nil {
						m.push(v)
					}
				}
			}
		case op.SetBinding:
			loc := f.unit.BindingAt(f.readIndex(width))
			v := m.pop()
			if loc.Global {
				m.realm.GlobalObject().Set(loc.Name, v)
			} else {
				var target *object.Scope
				target, err = m.resolveScope(f, loc)
				if err == nil {
					err = target.SetSlot(loc.Slot, v)
				}
			}

		case op.This:
			var v object.Value
			v, err = f.scope.This()
			if err == nil {
				m.push(v)
			}
		case op.GetNewTarget:
			m.push(f.scope.NewTarget())
		case op.MakeClosure:
			child := f.unit.UnitConstant(f.readIndex(width))
			m.push(object.NewClosure(child, f.scope, m.realm))

		case op.NewObject:
			m.push(object.NewObject(m.realm.ObjectPrototype()))
		case op.GetPropertyByName:
			name := f.unit.StringConstant(f.readIndex(width))
			obj := m.pop()
			var v object.Value
			v, err = m.getProperty(obj, name)
			if err == nil {
				m.push(v)
			}
		case op.SetPropertyByName:
			name := f.unit.StringConstant(f.readIndex(width))
			v := m.pop()
			obj := m.pop()
			err = m.setProperty(obj, name, v)
		case op.GetPropertyByValue:
			key := m.pop()
			obj := m.pop()
			var v object.Value
			v, err = m.getProperty(obj, object.ToString(key).Value())
			if err == nil {
				m.push(v)
			}
		case op.SetPropertyByValue:
			v := m.pop()
			key := m.pop()
			obj := m.pop()
			err = m.setProperty(obj, object.ToString(key).Value(), v)

		case op.Call:
			args := m.popN(f.readIndex(width))
			callee := m.pop()
			var result object.Value
			result, err = m.callValue(ctx, callee, object.Undefined, args, nil)
			if err == nil {
				m.push(result)
			}
		case op.New:
			args := m.popN(f.readIndex(width))
			target := m.pop()
			var result object.Value
			result, err = m.construct(ctx, target, args, nil)
			if err == nil {
				m.push(result)
			}
		case op.SuperCall:
			args := m.popN(f.readIndex(width))
			var result object.Value
			result, err = m.superCall(ctx, f, args)
			if err == nil {
				m.push(result)
			}

		case op.Jump:
			f.pc = f.readAddress()
		case op.JumpIfFalse:
			target := f.readAddress()
			if !m.pop().IsTruthy() {
				f.pc = target
			}
		case op.JumpIfTrue:
			target := f.readAddress()
			if m.pop().IsTruthy() {
				f.pc = target
			}
		case op.JumpIfUndefined:
			target := f.readAddress()
			if m.pop() == object.Undefined {
				f.pc = target
			}
		case op.JumpIfNotUndefined:
			target := f.readAddress()
			if m.pop() != object.Undefined {
				f.pc = target
			}

		case op.Add:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Add(a, b)
			if err == nil {
				m.push(v)
			}
		case op.Subtract:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Subtract(a, b)
			if err == nil {
				m.push(v)
			}
		case op.Multiply:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Multiply(a, b)
			if err == nil {
				m.push(v)
			}
		case op.Divide:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Divide(a, b)
			if err == nil {
				m.push(v)
			}
		case op.Modulo:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Modulo(a, b)
			if err == nil {
				m.push(v)
			}
		case op.Negate:
			var v object.Value
			v, err = object.Negate(m.pop())
			if err == nil {
				m.push(v)
			}
		case op.Not:
			m.push(object.Not(m.pop()))
		case op.TypeOf:
			m.push(object.TypeOf(m.pop()))

		case op.Equal:
			b, a := m.pop(), m.pop()
			m.push(object.StrictEquals(a, b))
		case op.NotEqual:
			b, a := m.pop(), m.pop()
			m.push(object.Not(object.StrictEquals(a, b)))
		case op.Less:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Compare("<", a, b)
			if err == nil {
				m.push(v)
			}
		case op.LessEq:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Compare("<=", a, b)
			if err == nil {
				m.push(v)
			}
		case op.Greater:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Compare(">", a, b)
			if err == nil {
				m.push(v)
			}
		case op.GreaterEq:
			b, a := m.pop(), m.pop()
			var v object.Value
			v, err = object.Compare(">=", a, b)
			if err == nil {
				m.push(v)
			}

		case op.Yield:
			if !f.unit.IsGenerator() {
				err = errz.Newf(errz.ErrSyntax, "yield outside of a generator")
				break
			}
			return m.pop(), true, nil

		case op.EndFinally:
			pending := f.pending
			f.pending = completion{}
			switch pending.kind {
			case completionReturn:
				if m.interceptReturn(f, ip, pending.value) {
					continue
				}
				return pending.value, false, nil
			case completionThrow:
				err = pending.err
			}

		default:
			err = errz.Newf(errz.ErrSyntax, "invalid opcode %d at offset %d", code, ip)
		}

		if err != nil {
			if m.unwind(f, ip, err) {
				continue
			}
			return nil, false, err
		}
	}
	return object.Undefined, false, nil
}

// resolveScope locates the scope a binding locator refers to. Locators
// carry absolute chain depths, which stay valid across invocations because
// the runtime chain mirrors lexical nesting.
func (m *Machine) resolveScope(f *frame, loc bytecode.BindingLocator) (*object.Scope, error) {
	scope := f.scope.Ancestor(loc.Depth)
	if scope == nil || scope.Depth() != loc.Depth {
		return nil, errz.ReferenceErrorf("%s is not defined", loc.Name)
	}
	return scope, nil
}
