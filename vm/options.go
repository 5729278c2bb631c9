package vm

import (
	"github.com/zephyr-lang/zephyr/object"
)

// Option configures a Machine.
type Option func(*Machine)

// WithRealm runs the machine inside an existing realm instead of a fresh
// one. Multiple machines may share a realm but not concurrently.
func WithRealm(realm *object.Realm) Option {
	return func(m *Machine) {
		m.realm = realm
	}
}

// WithGlobals installs named values on the realm's global object before
// execution starts.
func WithGlobals(globals map[string]object.Value) Option {
	return func(m *Machine) {
		for name, value := range globals {
			m.globals[name] = value
		}
	}
}

// WithObserver attaches an execution observer.
func WithObserver(obs Observer) Option {
	return func(m *Machine) {
		m.observer = obs
	}
}

// WithRuntimeLimits sets enforced execution budgets. Exceeding one raises
// a RuntimeLimit error that no script handler can catch.
func WithRuntimeLimits(limits RuntimeLimits) Option {
	return func(m *Machine) {
		m.limits = limits
	}
}

// WithContextCheckInterval sets how many instructions execute between
// checks of the context for cancellation. Smaller values respond faster
// and cost more.
func WithContextCheckInterval(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.checkInterval = n
		}
	}
}

// RuntimeLimits are enforced execution budgets. A zero field means
// unlimited, except CallDepth which defaults to defaultCallDepthLimit to
// keep runaway recursion from exhausting the Go stack.
type RuntimeLimits struct {
	// CallDepth caps nested function activations.
	CallDepth int
	// StackSize caps the shared operand stack length.
	StackSize int
	// Instructions caps the total instructions executed by the machine.
	Instructions int64
}

const (
	defaultCallDepthLimit = 1000
	defaultCheckInterval  = 1024
)
