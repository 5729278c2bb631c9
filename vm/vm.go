// Package vm executes compiled bytecode units.
//
// A Machine owns one shared operand stack and a stack of activation
// frames. Calls recurse through the host stack rather than threading a
// single dispatch loop, so each activation runs its own fetch/decode/
// execute cycle and unwinds naturally when an error propagates.
package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/gc"
	"github.com/zephyr-lang/zephyr/object"
)

// Machine executes bytecode units within one realm. A Machine is not safe
// for concurrent use.
type Machine struct {
	realm   *object.Realm
	globals map[string]object.Value

	stack  []object.Value
	frames []*frame

	observer      Observer
	limits        RuntimeLimits
	checkInterval int
	steps         int64
}

// New creates a machine. Without WithRealm it runs in a fresh empty realm.
func New(opts ...Option) *Machine {
	m := &Machine{
		globals:       map[string]object.Value{},
		checkInterval: defaultCheckInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.realm == nil {
		m.realm = object.NewRealm(bytecode.ScopeDescriptor{})
	}
	for name, value := range m.globals {
		m.realm.DefineGlobal(name, value)
	}
	return m
}

// Realm returns the realm the machine executes in.
func (m *Machine) Realm() *object.Realm { return m.realm }

// Run executes a top-level unit in the realm's global scope and returns
// the value of its final Return, or Undefined if the unit falls off the
// end of its code.
func (m *Machine) Run(ctx context.Context, unit *bytecode.Unit) (object.Value, error) {
	fn := object.NewClosure(unit, m.realm.GlobalScope(), m.realm)
	return m.Call(ctx, fn, object.Undefined, nil)
}

// Call invokes a callable from the host with an explicit this and
// argument list.
func (m *Machine) Call(ctx context.Context, fn object.Value, this object.Value, args []object.Value) (object.Value, error) {
	result, err := m.callValue(ctx, fn, this, args, nil)
	if err != nil {
		return nil, m.withTrace(err)
	}
	return result, nil
}

// Construct invokes a callable as a constructor from the host.
func (m *Machine) Construct(ctx context.Context, fn object.Value, args []object.Value) (object.Value, error) {
	result, err := m.construct(ctx, fn, args, nil)
	if err != nil {
		return nil, m.withTrace(err)
	}
	return result, nil
}

// Roots returns the machine's live references for an external reachability
// walk: the realm, every stacked value and every frame's scope chain.
func (m *Machine) Roots() []gc.Traceable {
	roots := []gc.Traceable{m.realm}
	for _, v := range m.stack {
		if t, ok := v.(gc.Traceable); ok {
			roots = append(roots, t)
		}
	}
	for _, f := range m.frames {
		roots = append(roots, f.scope)
		for _, r := range f.registers {
			if t, ok := r.(gc.Traceable); ok {
				roots = append(roots, t)
			}
		}
	}
	return roots
}

func (m *Machine) push(v object.Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() object.Value {
	n := len(m.stack)
	if n == 0 {
		panic("vm: pop from empty stack")
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v
}

func (m *Machine) peek() object.Value {
	return m.stack[len(m.stack)-1]
}

// popN removes the top n values and returns them in push order.
func (m *Machine) popN(n int) []object.Value {
	top := len(m.stack)
	args := make([]object.Value, n)
	copy(args, m.stack[top-n:])
	m.stack = m.stack[:top-n]
	return args
}

func (m *Machine) callDepthLimit() int {
	if m.limits.CallDepth > 0 {
		return m.limits.CallDepth
	}
	return defaultCallDepthLimit
}

// stackTrace captures the live activation frames, innermost first.
func (m *Machine) stackTrace() []errz.StackFrame {
	trace := make([]errz.StackFrame, 0, len(m.frames))
	for i := len(m.frames) - 1; i >= 0; i-- {
		f := m.frames[i]
		trace = append(trace, errz.StackFrame{Function: f.name(), PC: f.pc})
	}
	return trace
}

// withTrace attaches the current stack trace to structured errors that do
// not already carry one. It must run while the faulting frames are still
// on the frame stack.
func (m *Machine) withTrace(err error) error {
	var e *errz.Error
	if errors.As(err, &e) && len(e.Stack) == 0 {
		e.Stack = m.stackTrace()
	}
	return err
}

// catchable reports whether a propagating error may be observed by script
// handlers. RuntimeLimit errors and host cancellation unwind to the host.
func catchable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errz.IsCatchable(err)
}

// restore rolls the frame back to a handler's recorded entry state: scope
// chain depth and operand stack height, both relative to the frame.
func (m *Machine) restore(f *frame, h bytecode.Handler) {
	for f.scope.Depth() > f.baseScopeDepth+h.ScopeCount {
		f.scope = f.scope.Parent()
	}
	m.stack = m.stack[:f.bp+h.StackCount]
}

// unwind delivers a thrown error at instruction offset ip. It returns true
// when a handler in this frame took over (pc updated); false means the
// frame cannot handle it and the error propagates to the caller.
func (m *Machine) unwind(f *frame, ip int, err error) bool {
	if !catchable(err) {
		return false
	}
	h, ok := f.unit.FindHandler(ip)
	if !ok {
		return false
	}
	m.restore(f, h)
	if h.Finally {
		f.pending = completion{kind: completionThrow, err: err}
	} else {
		m.push(object.FromThrown(err))
	}
	f.pc = h.End
	return true
}

// interceptReturn diverts a return completion at offset ip into an
// enclosing finally block, if any. Catch-only handlers never intercept
// returns.
func (m *Machine) interceptReturn(f *frame, ip int, v object.Value) bool {
	h, ok := f.unit.FindFinallyHandler(ip)
	if !ok {
		return false
	}
	m.restore(f, h)
	f.pending = completion{kind: completionReturn, value: v}
	f.pc = h.End
	return true
}

func fmtNotCallable(v object.Value) error {
	return errz.TypeErrorf("%s is not a function", describe(v))
}

func describe(v object.Value) string {
	switch v := v.(type) {
	case *object.Callable:
		return fmt.Sprintf("function %s", v.Name())
	default:
		return string(v.Type())
	}
}
