package object

import (
	"sort"
	"strings"

	"github.com/zephyr-lang/zephyr/gc"
)

// Object is a property map with a prototype link. Wrapper objects for
// primitives additionally carry the wrapped primitive.
type Object struct {
	properties map[string]Value
	prototype  *Object
	primitive  Value // non-nil for wrapper objects only
}

// NewObject creates an empty object with the given prototype (may be nil).
func NewObject(prototype *Object) *Object {
	return &Object{
		properties: map[string]Value{},
		prototype:  prototype,
	}
}

// NewWrapper creates a wrapper object around a primitive value.
func NewWrapper(prototype *Object, primitive Value) *Object {
	obj := NewObject(prototype)
	obj.primitive = primitive
	return obj
}

func (o *Object) Type() Type { return OBJECT }

func (o *Object) Inspect() string {
	if o.primitive != nil {
		return "[wrapper " + o.primitive.Inspect() + "]"
	}
	if len(o.properties) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(o.properties))
	for k := range o.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(o.properties[k].Inspect())
	}
	sb.WriteString("}")
	return sb.String()
}

func (o *Object) IsTruthy() bool { return true }

// Primitive returns the wrapped primitive for wrapper objects, or nil.
func (o *Object) Primitive() Value { return o.primitive }

// Prototype returns the object's prototype, or nil.
func (o *Object) Prototype() *Object { return o.prototype }

// SetPrototype replaces the object's prototype link.
func (o *Object) SetPrototype(proto *Object) { o.prototype = proto }

// Get looks the property up on the object and then along its prototype
// chain.
func (o *Object) Get(name string) (Value, bool) {
	for obj := o; obj != nil; obj = obj.prototype {
		if v, ok := obj.properties[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// GetOwn looks the property up on the object itself only.
func (o *Object) GetOwn(name string) (Value, bool) {
	v, ok := o.properties[name]
	return v, ok
}

// Set creates or updates an own property.
func (o *Object) Set(name string, value Value) {
	o.properties[name] = value
}

// Has reports whether the property exists on the object or its prototypes.
func (o *Object) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// Delete removes an own property.
func (o *Object) Delete(name string) {
	delete(o.properties, name)
}

// Keys returns the own property names in sorted order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.properties))
	for k := range o.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TraceRefs implements gc.Traceable.
func (o *Object) TraceRefs(mark func(gc.Traceable)) {
	for _, v := range o.properties {
		if t, ok := v.(gc.Traceable); ok {
			mark(t)
		}
	}
	if o.prototype != nil {
		mark(o.prototype)
	}
	if t, ok := o.primitive.(gc.Traceable); ok {
		mark(t)
	}
}
