package vm

import (
	"context"
	"fmt"

	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/gc"
	"github.com/zephyr-lang/zephyr/object"
)

// GeneratorState tracks where a generator is in its lifecycle.
type GeneratorState int

const (
	// SuspendedStart: created, body not yet entered.
	SuspendedStart GeneratorState = iota
	// SuspendedYield: paused at a yield.
	SuspendedYield
	// Executing: currently running; resuming again is a TypeError.
	Executing
	// Completed: finished, normally or abruptly. Terminal.
	Completed
)

// String returns a short name for the state.
func (s GeneratorState) String() string {
	switch s {
	case SuspendedStart:
		return "suspended-start"
	case SuspendedYield:
		return "suspended-yield"
	case Executing:
		return "executing"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Generator is a suspended generator activation. Between resumptions it
// owns its frame and a snapshot of the frame's operand stack segment;
// while executing, the segment lives back on the machine's shared stack.
// The frame is prepared eagerly at the call site, so this coercion and
// parameter binding errors surface before the first resumption.
type Generator struct {
	machine *Machine
	fn      *object.Callable

	state GeneratorState
	frame *frame
	saved []object.Value
}

func newGenerator(m *Machine, fn *object.Callable, f *frame) *Generator {
	return &Generator{
		machine: m,
		fn:      fn,
		frame:   f,
		state:   SuspendedStart,
	}
}

func (g *Generator) Type() object.Type { return object.GENERATOR }

func (g *Generator) Inspect() string {
	name := g.fn.Name()
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("[generator %s %s]", name, g.state)
}

func (g *Generator) IsTruthy() bool { return true }

// State returns the generator's current lifecycle state.
func (g *Generator) State() GeneratorState { return g.state }

// Next resumes the generator, delivering sent as the value of the paused
// yield expression. It returns the next yielded (or final return) value
// and done=true once the generator has completed. Resuming a completed
// generator yields undefined/done forever.
func (g *Generator) Next(ctx context.Context, sent object.Value) (object.Value, bool, error) {
	switch g.state {
	case Executing:
		return nil, false, errz.TypeErrorf("generator is already running")
	case Completed:
		return object.Undefined, true, nil
	case SuspendedStart:
		g.frame.bp = len(g.machine.stack)
		g.state = Executing
		return g.run(ctx)
	default: // SuspendedYield
		g.reenter(sent)
		return g.run(ctx)
	}
}

// Throw resumes the generator by raising thrown at the paused yield. The
// generator's own handlers may catch it and keep yielding; otherwise the
// generator completes and the error propagates to the caller.
func (g *Generator) Throw(ctx context.Context, thrown object.Value) (object.Value, bool, error) {
	err := object.AsThrown(thrown)
	switch g.state {
	case Executing:
		return nil, false, errz.TypeErrorf("generator is already running")
	case SuspendedStart, Completed:
		g.state = Completed
		return nil, true, err
	default: // SuspendedYield
		g.reenter(nil)
		if !g.machine.unwind(g.frame, g.frame.pc, err) {
			g.machine.stack = g.machine.stack[:g.frame.bp]
			g.state = Completed
			return nil, true, err
		}
		return g.run(ctx)
	}
}

// Return resumes the generator with an injected return completion. A
// finally block enclosing the paused yield runs first (and may yield or
// override the completion); catch handlers never observe the injection.
func (g *Generator) Return(ctx context.Context, value object.Value) (object.Value, bool, error) {
	switch g.state {
	case Executing:
		return nil, false, errz.TypeErrorf("generator is already running")
	case SuspendedStart, Completed:
		g.state = Completed
		return value, true, nil
	default: // SuspendedYield
		g.reenter(nil)
		if !g.machine.interceptReturn(g.frame, g.frame.pc, value) {
			g.machine.stack = g.machine.stack[:g.frame.bp]
			g.state = Completed
			return value, true, nil
		}
		return g.run(ctx)
	}
}

// Close drives the generator to completion, running any pending finally
// blocks, and discards the result.
func (g *Generator) Close(ctx context.Context) error {
	_, _, err := g.Return(ctx, object.Undefined)
	return err
}

// reenter moves the saved stack segment back onto the machine stack and
// optionally pushes the sent value as the paused yield's result.
func (g *Generator) reenter(sent object.Value) {
	m := g.machine
	g.frame.bp = len(m.stack)
	m.stack = append(m.stack, g.saved...)
	g.saved = nil
	if sent != nil {
		m.push(sent)
	}
	g.state = Executing
}

// run executes the frame until it yields, returns or throws.
func (g *Generator) run(ctx context.Context) (object.Value, bool, error) {
	m := g.machine
	m.frames = append(m.frames, g.frame)
	result, yielded, err := m.evalFrame(ctx, g.frame)
	if err != nil {
		err = m.withTrace(err)
	}
	m.frames = m.frames[:len(m.frames)-1]
	if yielded {
		g.saved = append([]object.Value(nil), m.stack[g.frame.bp:]...)
		m.stack = m.stack[:g.frame.bp]
		g.state = SuspendedYield
		return result, false, nil
	}
	m.stack = m.stack[:g.frame.bp]
	g.state = Completed
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

// result builds the {value, done} object the iterator methods return.
func (g *Generator) result(value object.Value, done bool) *object.Object {
	obj := object.NewObject(g.machine.realm.GeneratorPrototype())
	obj.Set("value", value)
	obj.Set("done", object.NewBool(done))
	return obj
}

func (g *Generator) nextMethod() *object.Callable {
	return object.NewNative("next", func(ctx context.Context, _ object.Value, args []object.Value) (object.Value, error) {
		sent := object.Value(object.Undefined)
		if len(args) > 0 {
			sent = args[0]
		}
		value, done, err := g.Next(ctx, sent)
		if err != nil {
			return nil, err
		}
		return g.result(value, done), nil
	})
}

func (g *Generator) returnMethod() *object.Callable {
	return object.NewNative("return", func(ctx context.Context, _ object.Value, args []object.Value) (object.Value, error) {
		value := object.Value(object.Undefined)
		if len(args) > 0 {
			value = args[0]
		}
		result, done, err := g.Return(ctx, value)
		if err != nil {
			return nil, err
		}
		return g.result(result, done), nil
	})
}

func (g *Generator) throwMethod() *object.Callable {
	return object.NewNative("throw", func(ctx context.Context, _ object.Value, args []object.Value) (object.Value, error) {
		thrown := object.Value(object.Undefined)
		if len(args) > 0 {
			thrown = args[0]
		}
		value, done, err := g.Throw(ctx, thrown)
		if err != nil {
			return nil, err
		}
		return g.result(value, done), nil
	})
}

// TraceRefs implements gc.Traceable. A suspended generator keeps its
// whole saved activation alive: frame scope, registers and stack segment.
func (g *Generator) TraceRefs(mark func(gc.Traceable)) {
	mark(g.fn)
	for _, v := range g.saved {
		if t, ok := v.(gc.Traceable); ok {
			mark(t)
		}
	}
	if g.frame != nil {
		mark(g.frame.scope)
		for _, r := range g.frame.registers {
			if t, ok := r.(gc.Traceable); ok {
				mark(t)
			}
		}
	}
}
