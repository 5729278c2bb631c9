// Package bytecode provides immutable representations of compiled Zephyr
// function units.
//
// This package defines the compiler/engine boundary: pure data structures
// that represent a compiled function body — its instruction stream,
// constant pool, binding locators, exception handler table and flags.
// These types are created once by a compiler (or by the Builder in this
// package) and shared read-only by every closure instantiated from them.
//
// # Key Types
//
//   - [Unit]: an immutable compiled function unit
//   - [Handler]: a program-counter range paired with the scope depth to
//     restore when an exception enters it (value type)
//   - [BindingLocator]: a resolved (depth, slot) address for a variable
//   - [ScopeDescriptor]: the compile-time shape of a lexical scope
//   - [Builder]: constructs validated units instruction by instruction
//   - [InstructionIter]: a generic decoder over the instruction stream
//
// # Immutability Guarantees
//
// A Unit is immutable after construction: no mutation methods exist, all
// fields are unexported, and constructors copy input slices. The engine
// never writes to a unit at run time, which is what makes sharing one unit
// across many closures safe.
//
// Units can be serialized with [Marshal] and restored with [Unmarshal];
// the wire format is CBOR and is an internal contract, not a stable one.
package bytecode
