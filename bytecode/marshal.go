package bytecode

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// The wire format is CBOR. It is an internal contract between engine
// versions: no byte-exact stability is promised, only that Unmarshal
// accepts what Marshal produced and re-validates it.

const wireVersion = 1

type unitWire struct {
	Version         int              `cbor:"1,keyasint"`
	ID              string           `cbor:"2,keyasint"`
	Name            string           `cbor:"3,keyasint,omitempty"`
	ParameterLength int              `cbor:"4,keyasint,omitempty"`
	RegisterCount   int              `cbor:"5,keyasint,omitempty"`
	Flags           uint16           `cbor:"6,keyasint,omitempty"`
	ThisMode        byte             `cbor:"7,keyasint,omitempty"`
	Code            []byte           `cbor:"8,keyasint"`
	Constants       []constantWire   `cbor:"9,keyasint,omitempty"`
	Bindings        []BindingLocator `cbor:"10,keyasint,omitempty"`
	Handlers        []Handler        `cbor:"11,keyasint,omitempty"`
	FunctionScope   int              `cbor:"12,keyasint"`
	ParameterScope  int              `cbor:"13,keyasint"`
}

const (
	wireConstString byte = iota
	wireConstBigInt
	wireConstUnit
	wireConstScope
)

type constantWire struct {
	Kind  byte             `cbor:"1,keyasint"`
	Str   string           `cbor:"2,keyasint,omitempty"`
	Big   []byte           `cbor:"3,keyasint,omitempty"`
	Neg   bool             `cbor:"4,keyasint,omitempty"`
	Unit  *unitWire        `cbor:"5,keyasint,omitempty"`
	Scope *ScopeDescriptor `cbor:"6,keyasint,omitempty"`
}

// Marshal serializes the unit, including nested units, to CBOR.
func Marshal(u *Unit) ([]byte, error) {
	wire, err := toWire(u)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(wire)
}

// Unmarshal restores a unit serialized by Marshal. The restored unit is
// re-validated exactly like a freshly built one.
func Unmarshal(data []byte) (*Unit, error) {
	var wire unitWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("bytecode: decoding unit: %w", err)
	}
	return fromWire(&wire)
}

func toWire(u *Unit) (*unitWire, error) {
	wire := &unitWire{
		Version:         wireVersion,
		ID:              u.id,
		Name:            u.name,
		ParameterLength: u.parameterLength,
		RegisterCount:   u.registerCount,
		Flags:           uint16(u.flags),
		ThisMode:        byte(u.thisMode),
		Code:            u.code,
		Bindings:        u.bindings,
		Handlers:        u.handlers,
		FunctionScope:   u.functionScope,
		ParameterScope:  u.parameterScope,
	}
	for i, c := range u.constants {
		switch c := c.(type) {
		case string:
			wire.Constants = append(wire.Constants, constantWire{
				Kind: wireConstString, Str: c,
			})
		case *big.Int:
			wire.Constants = append(wire.Constants, constantWire{
				Kind: wireConstBigInt, Big: c.Bytes(), Neg: c.Sign() < 0,
			})
		case *Unit:
			child, err := toWire(c)
			if err != nil {
				return nil, err
			}
			wire.Constants = append(wire.Constants, constantWire{
				Kind: wireConstUnit, Unit: child,
			})
		case ScopeDescriptor:
			desc := c
			wire.Constants = append(wire.Constants, constantWire{
				Kind: wireConstScope, Scope: &desc,
			})
		default:
			return nil, fmt.Errorf("bytecode: constant %d has unsupported type %T", i, c)
		}
	}
	return wire, nil
}

func fromWire(wire *unitWire) (*Unit, error) {
	if wire.Version != wireVersion {
		return nil, fmt.Errorf("bytecode: unsupported wire version %d", wire.Version)
	}
	u := &Unit{
		id:              wire.ID,
		name:            wire.Name,
		parameterLength: wire.ParameterLength,
		registerCount:   wire.RegisterCount,
		code:            wire.Code,
		bindings:        wire.Bindings,
		handlers:        wire.Handlers,
		flags:           Flags(wire.Flags),
		thisMode:        ThisMode(wire.ThisMode),
		functionScope:   wire.FunctionScope,
		parameterScope:  wire.ParameterScope,
	}
	for i, c := range wire.Constants {
		switch c.Kind {
		case wireConstString:
			u.constants = append(u.constants, c.Str)
		case wireConstBigInt:
			n := new(big.Int).SetBytes(c.Big)
			if c.Neg {
				n.Neg(n)
			}
			u.constants = append(u.constants, n)
		case wireConstUnit:
			child, err := fromWire(c.Unit)
			if err != nil {
				return nil, err
			}
			u.constants = append(u.constants, child)
		case wireConstScope:
			if c.Scope == nil {
				return nil, fmt.Errorf("bytecode: constant %d missing scope descriptor", i)
			}
			u.constants = append(u.constants, *c.Scope)
		default:
			return nil, fmt.Errorf("bytecode: constant %d has unknown kind %d", i, c.Kind)
		}
	}
	if err := validateUnit(u); err != nil {
		return nil, err
	}
	return u, nil
}
