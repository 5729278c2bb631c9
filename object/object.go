// Package object defines the runtime value and object model of the Zephyr
// engine: primitive values, property-map objects with prototype chains,
// the tagged callable union, lexical scopes, arguments objects and realms.
package object

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/zephyr-lang/zephyr/gc"
)

// Type identifies the kind of a runtime value.
type Type string

const (
	UNDEFINED Type = "undefined"
	NULL      Type = "null"
	BOOL      Type = "bool"
	NUMBER    Type = "number"
	BIGINT    Type = "bigint"
	STRING    Type = "string"
	OBJECT    Type = "object"
	FUNCTION  Type = "function"
	LIST      Type = "list"
	ARGUMENTS Type = "arguments"
	GENERATOR Type = "generator"
	ERROR     Type = "error"
)

// Value is the interface implemented by every runtime value.
type Value interface {
	// Type returns the kind of the value.
	Type() Type
	// Inspect returns a developer-facing representation of the value.
	Inspect() string
	// IsTruthy reports whether the value coerces to boolean true.
	IsTruthy() bool
}

// undefinedValue is the "undefined" sentinel.
type undefinedValue struct{}

func (u *undefinedValue) Type() Type      { return UNDEFINED }
func (u *undefinedValue) Inspect() string { return "undefined" }
func (u *undefinedValue) IsTruthy() bool  { return false }

// nullValue is the "null" sentinel.
type nullValue struct{}

func (n *nullValue) Type() Type      { return NULL }
func (n *nullValue) Inspect() string { return "null" }
func (n *nullValue) IsTruthy() bool  { return false }

// Bool is a boolean value.
type Bool struct {
	value bool
}

func (b *Bool) Type() Type      { return BOOL }
func (b *Bool) Inspect() string { return strconv.FormatBool(b.value) }
func (b *Bool) IsTruthy() bool  { return b.value }

// Value returns the underlying bool.
func (b *Bool) Value() bool { return b.value }

var (
	// Undefined is the undefined sentinel; there is exactly one.
	Undefined Value = &undefinedValue{}
	// Null is the null sentinel; there is exactly one.
	Null Value = &nullValue{}
	// True is the boolean true value.
	True = &Bool{value: true}
	// False is the boolean false value.
	False = &Bool{value: false}
)

// NewBool returns the shared Bool for the given value.
func NewBool(value bool) *Bool {
	if value {
		return True
	}
	return False
}

// Number is a float64-backed numeric value.
type Number struct {
	value float64
}

// NewNumber creates a Number.
func NewNumber(value float64) *Number { return &Number{value: value} }

// NaN returns the not-a-number value.
func NaN() *Number { return &Number{value: math.NaN()} }

func (n *Number) Type() Type { return NUMBER }

func (n *Number) Inspect() string {
	if math.IsNaN(n.value) {
		return "NaN"
	}
	if n.value == math.Trunc(n.value) && math.Abs(n.value) < 1e21 {
		return strconv.FormatFloat(n.value, 'f', -1, 64)
	}
	return strconv.FormatFloat(n.value, 'g', -1, 64)
}

func (n *Number) IsTruthy() bool {
	return n.value != 0 && !math.IsNaN(n.value)
}

// Value returns the underlying float64.
func (n *Number) Value() float64 { return n.value }

// IsNaN reports whether the number is NaN.
func (n *Number) IsNaN() bool { return math.IsNaN(n.value) }

// BigInt is an arbitrary-precision integer value.
type BigInt struct {
	value *big.Int
}

// NewBigInt creates a BigInt. The argument is not copied; big-integer
// constants are immutable by convention.
func NewBigInt(value *big.Int) *BigInt { return &BigInt{value: value} }

func (b *BigInt) Type() Type      { return BIGINT }
func (b *BigInt) Inspect() string { return b.value.String() + "n" }
func (b *BigInt) IsTruthy() bool  { return b.value.Sign() != 0 }

// Value returns the underlying big.Int.
func (b *BigInt) Value() *big.Int { return b.value }

// String is an immutable string value.
type String struct {
	value string
}

// NewString creates a String.
func NewString(value string) *String { return &String{value: value} }

func (s *String) Type() Type      { return STRING }
func (s *String) Inspect() string { return fmt.Sprintf("%q", s.value) }
func (s *String) IsTruthy() bool  { return s.value != "" }

// Value returns the underlying string.
func (s *String) Value() string { return s.value }

// List is an ordered collection, used for rest parameters and aggregate
// error members.
type List struct {
	items []Value
}

// NewList creates a List over the given items (not copied).
func NewList(items []Value) *List { return &List{items: items} }

func (l *List) Type() Type { return LIST }

func (l *List) Inspect() string {
	out := "["
	for i, item := range l.items {
		if i > 0 {
			out += ", "
		}
		out += item.Inspect()
	}
	return out + "]"
}

func (l *List) IsTruthy() bool { return true }

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// Get returns the item at index i, or Undefined when out of range.
func (l *List) Get(i int) Value {
	if i < 0 || i >= len(l.items) {
		return Undefined
	}
	return l.items[i]
}

// Items returns the underlying slice.
func (l *List) Items() []Value { return l.items }

// TraceRefs implements gc.Traceable.
func (l *List) TraceRefs(mark func(gc.Traceable)) {
	for _, item := range l.items {
		if t, ok := item.(gc.Traceable); ok {
			mark(t)
		}
	}
}
