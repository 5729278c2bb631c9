package object

import (
	"context"
	"fmt"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/gc"
)

// CallableKind tags the variant of a Callable.
type CallableKind int

const (
	// KindNative is a host function with no captured state.
	KindNative CallableKind = iota
	// KindHostClosure is a host function with captured values.
	KindHostClosure
	// KindOrdinary is a compiled function unit closed over a scope chain.
	KindOrdinary
	// KindGenerator is a compiled generator unit closed over a scope chain.
	// Calling it creates a suspended generator instead of running the body.
	KindGenerator
)

// String returns a short name for the callable kind.
func (k CallableKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindHostClosure:
		return "host closure"
	case KindOrdinary:
		return "function"
	case KindGenerator:
		return "generator function"
	default:
		return "unknown"
	}
}

// NativeFunc is the signature of a host function exposed to scripts. The
// returned error, if it carries an errz kind, is translated into a thrown
// script error at the call site.
type NativeFunc func(ctx context.Context, this Value, args []Value) (Value, error)

// ClosureFunc is a host function with access to captured values.
type ClosureFunc func(ctx context.Context, this Value, args []Value, captured []Value) (Value, error)

// Field is one instance field installed on this during construction.
type Field struct {
	Name string
	Init Value
}

// Callable is the tagged union of everything invocable: native host
// functions, host closures and compiled units (ordinary or generator)
// closed over a scope chain.
type Callable struct {
	kind     CallableKind
	name     string
	fn       NativeFunc
	closure  ClosureFunc
	captured []Value

	// Compiled kinds only.
	unit  *bytecode.Unit
	scope *Scope
	realm *Realm

	// Constructor support.
	fields    []Field
	parent    *Callable
	prototype *Object
}

// NewNative creates a native host function.
func NewNative(name string, fn NativeFunc) *Callable {
	return &Callable{kind: KindNative, name: name, fn: fn}
}

// NewHostClosure creates a host function over captured values.
func NewHostClosure(name string, fn ClosureFunc, captured []Value) *Callable {
	return &Callable{kind: KindHostClosure, name: name, closure: fn, captured: captured}
}

// NewClosure creates a callable for a compiled unit closed over the given
// scope chain. Generator units produce a KindGenerator callable.
func NewClosure(unit *bytecode.Unit, scope *Scope, realm *Realm) *Callable {
	kind := KindOrdinary
	if unit.IsGenerator() {
		kind = KindGenerator
	}
	return &Callable{
		kind:  kind,
		name:  unit.Name(),
		unit:  unit,
		scope: scope,
		realm: realm,
	}
}

func (c *Callable) Type() Type { return FUNCTION }

func (c *Callable) Inspect() string {
	name := c.name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("[%s %s]", c.kind, name)
}

func (c *Callable) IsTruthy() bool { return true }

// Kind returns the callable's variant tag.
func (c *Callable) Kind() CallableKind { return c.kind }

// Name returns the function name, or empty for anonymous functions.
func (c *Callable) Name() string { return c.name }

// Unit returns the compiled unit for ordinary and generator callables, or
// nil for host functions.
func (c *Callable) Unit() *bytecode.Unit { return c.unit }

// Scope returns the captured scope chain for compiled callables.
func (c *Callable) Scope() *Scope { return c.scope }

// Realm returns the realm the callable was created in.
func (c *Callable) Realm() *Realm { return c.realm }

// Native returns the host function for KindNative callables.
func (c *Callable) Native() NativeFunc { return c.fn }

// HostClosure returns the host function and captured values for
// KindHostClosure callables.
func (c *Callable) HostClosure() (ClosureFunc, []Value) { return c.closure, c.captured }

// ParameterLength returns the declared parameter count, or 0 for host
// functions.
func (c *Callable) ParameterLength() int {
	if c.unit != nil {
		return c.unit.ParameterLength()
	}
	return 0
}

// IsConstructor reports whether the callable may be a construct target.
// Generator functions and host closures are never constructors.
func (c *Callable) IsConstructor() bool {
	switch c.kind {
	case KindOrdinary:
		return true
	case KindNative:
		return c.fn != nil
	default:
		return false
	}
}

// Fields returns the instance fields installed during construction.
func (c *Callable) Fields() []Field { return c.fields }

// AddField appends an instance field initializer.
func (c *Callable) AddField(name string, init Value) {
	c.fields = append(c.fields, Field{Name: name, Init: init})
}

// Parent returns the super constructor for derived class constructors.
func (c *Callable) Parent() *Callable { return c.parent }

// SetParent links the super constructor of a derived class.
func (c *Callable) SetParent(parent *Callable) { c.parent = parent }

// PrototypeObject returns the object new instances inherit from, creating
// it lazily. The parent link, when present, chains the prototype to the
// super constructor's prototype.
func (c *Callable) PrototypeObject() *Object {
	if c.prototype == nil {
		var proto *Object
		if c.parent != nil {
			proto = c.parent.PrototypeObject()
		} else if c.realm != nil {
			proto = c.realm.ObjectPrototype()
		}
		c.prototype = NewObject(proto)
	}
	return c.prototype
}

// SetPrototypeObject overrides the lazily created prototype object.
func (c *Callable) SetPrototypeObject(proto *Object) { c.prototype = proto }

// TraceRefs implements gc.Traceable.
func (c *Callable) TraceRefs(mark func(gc.Traceable)) {
	for _, v := range c.captured {
		if t, ok := v.(gc.Traceable); ok {
			mark(t)
		}
	}
	if c.unit != nil {
		mark(c.unit)
	}
	if c.scope != nil {
		mark(c.scope)
	}
	if c.realm != nil {
		mark(c.realm)
	}
	for _, f := range c.fields {
		if t, ok := f.Init.(gc.Traceable); ok {
			mark(t)
		}
	}
	if c.parent != nil {
		mark(c.parent)
	}
	if c.prototype != nil {
		mark(c.prototype)
	}
}
