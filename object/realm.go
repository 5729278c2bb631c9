package object

import (
	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/gc"
)

// Realm is one isolated execution world: a global object, the global
// scope, and the intrinsic prototype objects primitives wrap to under
// non-strict this coercion.
type Realm struct {
	globalObject *Object
	globalScope  *Scope

	objectProto    *Object
	functionProto  *Object
	generatorProto *Object
	numberProto    *Object
	stringProto    *Object
	boolProto      *Object
	errorProtos    map[errz.ErrorKind]*Object
}

// NewRealm creates a realm with empty intrinsics and a global scope sized
// by the given descriptor.
func NewRealm(globalDesc bytecode.ScopeDescriptor) *Realm {
	r := &Realm{
		objectProto: NewObject(nil),
		errorProtos: map[errz.ErrorKind]*Object{},
	}
	r.functionProto = NewObject(r.objectProto)
	r.generatorProto = NewObject(r.objectProto)
	r.numberProto = NewObject(r.objectProto)
	r.stringProto = NewObject(r.objectProto)
	r.boolProto = NewObject(r.objectProto)
	r.globalObject = NewObject(r.objectProto)
	globalDesc.Kind = bytecode.ScopeGlobal
	r.globalScope = NewGlobalScope(r.globalObject, globalDesc)
	return r
}

// GlobalObject returns the realm's global object.
func (r *Realm) GlobalObject() *Object { return r.globalObject }

// GlobalScope returns the realm's outermost scope.
func (r *Realm) GlobalScope() *Scope { return r.globalScope }

// ObjectPrototype returns the root prototype object.
func (r *Realm) ObjectPrototype() *Object { return r.objectProto }

// FunctionPrototype returns the intrinsic function prototype.
func (r *Realm) FunctionPrototype() *Object { return r.functionProto }

// GeneratorPrototype returns the intrinsic generator prototype.
func (r *Realm) GeneratorPrototype() *Object { return r.generatorProto }

// ErrorPrototype returns the intrinsic prototype for the given error kind,
// creating it on first use.
func (r *Realm) ErrorPrototype(kind errz.ErrorKind) *Object {
	if proto, ok := r.errorProtos[kind]; ok {
		return proto
	}
	proto := NewObject(r.objectProto)
	proto.Set("name", NewString(kind.String()))
	r.errorProtos[kind] = proto
	return proto
}

// DefineGlobal installs a named value on the global object.
func (r *Realm) DefineGlobal(name string, value Value) {
	r.globalObject.Set(name, value)
}

// WrapPrimitive boxes a primitive into a wrapper object carrying the
// realm's intrinsic prototype for its type. Non-strict this coercion uses
// this for primitive receivers; values that are already objects pass
// through unchanged.
func (r *Realm) WrapPrimitive(v Value) Value {
	switch v.(type) {
	case *Number:
		return NewWrapper(r.numberProto, v)
	case *String:
		return NewWrapper(r.stringProto, v)
	case *Bool:
		return NewWrapper(r.boolProto, v)
	case *BigInt:
		return NewWrapper(r.objectProto, v)
	default:
		return v
	}
}

// TraceRefs implements gc.Traceable.
func (r *Realm) TraceRefs(mark func(gc.Traceable)) {
	mark(r.globalObject)
	mark(r.globalScope)
	mark(r.objectProto)
	mark(r.functionProto)
	mark(r.generatorProto)
	mark(r.numberProto)
	mark(r.stringProto)
	mark(r.boolProto)
	for _, proto := range r.errorProtos {
		mark(proto)
	}
}
