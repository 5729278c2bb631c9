package object

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zephyr-lang/zephyr/errz"
)

// Abstract operations over runtime values. These implement the coercion
// and operator semantics the dispatch loop delegates to, so the loop
// itself stays a pure fetch/decode/execute cycle.

// ToBoolean coerces a value to a boolean.
func ToBoolean(v Value) *Bool {
	return NewBool(v.IsTruthy())
}

// ToNumber coerces a value to a Number. Undefined coerces to NaN, null to
// zero, strings parse numerically (an unparseable string is NaN, not an
// error). BigInt values do not implicitly lose precision: coercing one is
// a TypeError.
func ToNumber(v Value) (*Number, error) {
	switch v := v.(type) {
	case *Number:
		return v, nil
	case *undefinedValue:
		return NaN(), nil
	case *nullValue:
		return NewNumber(0), nil
	case *Bool:
		if v.value {
			return NewNumber(1), nil
		}
		return NewNumber(0), nil
	case *String:
		s := strings.TrimSpace(v.value)
		if s == "" {
			return NewNumber(0), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NaN(), nil
		}
		return NewNumber(f), nil
	case *BigInt:
		return nil, errz.TypeErrorf("cannot convert a BigInt to a number")
	case *Object:
		if p := v.Primitive(); p != nil {
			return ToNumber(p)
		}
		return NaN(), nil
	default:
		return NaN(), nil
	}
}

// ToString coerces a value to its string form. Unlike Inspect, strings
// convert without quoting.
func ToString(v Value) *String {
	switch v := v.(type) {
	case *String:
		return v
	case *BigInt:
		return NewString(v.value.String())
	case *Object:
		if p := v.Primitive(); p != nil {
			return ToString(p)
		}
		return NewString(v.Inspect())
	default:
		return NewString(v.Inspect())
	}
}

// TypeOf returns the script-visible type name of a value.
func TypeOf(v Value) *String {
	switch v.(type) {
	case *undefinedValue:
		return NewString("undefined")
	case *nullValue:
		return NewString("object")
	case *Bool:
		return NewString("boolean")
	case *Number:
		return NewString("number")
	case *BigInt:
		return NewString("bigint")
	case *String:
		return NewString("string")
	case *Callable:
		return NewString("function")
	default:
		return NewString("object")
	}
}

// Add implements the addition operator: string concatenation when either
// operand is a string, big-integer addition when both are BigInt, numeric
// addition otherwise. Mixing BigInt with other numeric types is a
// TypeError.
func Add(a, b Value) (Value, error) {
	if _, ok := a.(*String); ok {
		return NewString(ToString(a).value + ToString(b).value), nil
	}
	if _, ok := b.(*String); ok {
		return NewString(ToString(a).value + ToString(b).value), nil
	}
	if ba, aok := a.(*BigInt); aok {
		bb, bok := b.(*BigInt)
		if !bok {
			return nil, errz.TypeErrorf("cannot mix BigInt and other types in addition")
		}
		return NewBigInt(new(big.Int).Add(ba.value, bb.value)), nil
	}
	if _, ok := b.(*BigInt); ok {
		return nil, errz.TypeErrorf("cannot mix BigInt and other types in addition")
	}
	an, err := ToNumber(a)
	if err != nil {
		return nil, err
	}
	bn, err := ToNumber(b)
	if err != nil {
		return nil, err
	}
	return NewNumber(an.value + bn.value), nil
}

// numericPair coerces both operands for an arithmetic operator, returning
// either two floats or two big integers.
func numericPair(opName string, a, b Value) (float64, float64, *big.Int, *big.Int, error) {
	ba, aok := a.(*BigInt)
	bb, bok := b.(*BigInt)
	if aok && bok {
		return 0, 0, ba.value, bb.value, nil
	}
	if aok || bok {
		return 0, 0, nil, nil,
			errz.TypeErrorf("cannot mix BigInt and other types in %s", opName)
	}
	an, err := ToNumber(a)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	bn, err := ToNumber(b)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	return an.value, bn.value, nil, nil, nil
}

// Subtract implements the subtraction operator.
func Subtract(a, b Value) (Value, error) {
	af, bf, abig, bbig, err := numericPair("subtraction", a, b)
	if err != nil {
		return nil, err
	}
	if abig != nil {
		return NewBigInt(new(big.Int).Sub(abig, bbig)), nil
	}
	return NewNumber(af - bf), nil
}

// Multiply implements the multiplication operator.
func Multiply(a, b Value) (Value, error) {
	af, bf, abig, bbig, err := numericPair("multiplication", a, b)
	if err != nil {
		return nil, err
	}
	if abig != nil {
		return NewBigInt(new(big.Int).Mul(abig, bbig)), nil
	}
	return NewNumber(af * bf), nil
}

// Divide implements the division operator. BigInt division truncates
// toward zero; BigInt division by zero is a RangeError. Number division by
// zero yields an infinity.
func Divide(a, b Value) (Value, error) {
	af, bf, abig, bbig, err := numericPair("division", a, b)
	if err != nil {
		return nil, err
	}
	if abig != nil {
		if bbig.Sign() == 0 {
			return nil, errz.RangeErrorf("division by zero")
		}
		return NewBigInt(new(big.Int).Quo(abig, bbig)), nil
	}
	return NewNumber(af / bf), nil
}

// Modulo implements the remainder operator.
func Modulo(a, b Value) (Value, error) {
	af, bf, abig, bbig, err := numericPair("remainder", a, b)
	if err != nil {
		return nil, err
	}
	if abig != nil {
		if bbig.Sign() == 0 {
			return nil, errz.RangeErrorf("division by zero")
		}
		return NewBigInt(new(big.Int).Rem(abig, bbig)), nil
	}
	return NewNumber(math.Mod(af, bf)), nil
}

// Negate implements unary minus.
func Negate(v Value) (Value, error) {
	if b, ok := v.(*BigInt); ok {
		return NewBigInt(new(big.Int).Neg(b.value)), nil
	}
	n, err := ToNumber(v)
	if err != nil {
		return nil, err
	}
	return NewNumber(-n.value), nil
}

// Not implements logical not.
func Not(v Value) Value {
	return NewBool(!v.IsTruthy())
}

// Compare evaluates a relational operator. Two strings compare
// lexicographically; everything else compares numerically, with BigInt
// comparing exactly against BigInt. A NaN operand makes every relation
// false.
func Compare(opName string, a, b Value) (Value, error) {
	if as, aok := a.(*String); aok {
		if bs, bok := b.(*String); bok {
			return compareOrdered(opName, strings.Compare(as.value, bs.value)), nil
		}
	}
	ba, aok := a.(*BigInt)
	bb, bok := b.(*BigInt)
	if aok && bok {
		return compareOrdered(opName, ba.value.Cmp(bb.value)), nil
	}
	if aok || bok {
		return nil, errz.TypeErrorf("cannot mix BigInt and other types in comparison")
	}
	an, err := ToNumber(a)
	if err != nil {
		return nil, err
	}
	bn, err := ToNumber(b)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(an.value) || math.IsNaN(bn.value) {
		return False, nil
	}
	switch {
	case an.value < bn.value:
		return compareOrdered(opName, -1), nil
	case an.value > bn.value:
		return compareOrdered(opName, 1), nil
	default:
		return compareOrdered(opName, 0), nil
	}
}

func compareOrdered(opName string, cmp int) Value {
	switch opName {
	case "<":
		return NewBool(cmp < 0)
	case "<=":
		return NewBool(cmp <= 0)
	case ">":
		return NewBool(cmp > 0)
	case ">=":
		return NewBool(cmp >= 0)
	default:
		return False
	}
}

// StrictEquals implements the strict equality operator: no coercion,
// values of different types are never equal. NaN is not equal to itself.
func StrictEquals(a, b Value) *Bool {
	switch a := a.(type) {
	case *undefinedValue:
		_, ok := b.(*undefinedValue)
		return NewBool(ok)
	case *nullValue:
		_, ok := b.(*nullValue)
		return NewBool(ok)
	case *Bool:
		bv, ok := b.(*Bool)
		return NewBool(ok && a.value == bv.value)
	case *Number:
		bv, ok := b.(*Number)
		return NewBool(ok && a.value == bv.value)
	case *BigInt:
		bv, ok := b.(*BigInt)
		return NewBool(ok && a.value.Cmp(bv.value) == 0)
	case *String:
		bv, ok := b.(*String)
		return NewBool(ok && a.value == bv.value)
	default:
		// Reference identity for objects, functions and the rest.
		return NewBool(a == b)
	}
}
