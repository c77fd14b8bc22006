// Copyright 2025 The mirivm Authors
// This file is part of the mirivm library.
//
// The mirivm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The mirivm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the mirivm library. If not, see <http://www.gnu.org/licenses/>.

package interp

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/mirivm/mirivm/ir"
)

// Kind discriminates the payload of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindDouble
	KindPointer
	KindAggregate
	KindPair
)

// Value is the runtime representation of one IR value. Integers are
// width-tagged words; pointers carry an address plus provenance; aggregates
// hold one Value per element. The Pair kind is the packed two-index encoding
// used by the va_list protocol.
//
// Values are plain data and copy by assignment; provenance travels with the
// copy.
type Value struct {
	kind Kind

	// Ty is the IR type the value was produced at. Operand resolution stamps
	// it; intermediate kernel results may leave it nil.
	Ty ir.Type

	X    uint256.Int // integer payload, masked to Bits
	Bits uint32      // integer width

	F32 float32
	F64 float64

	Addr uint64
	Prov Provenance

	Agg []Value

	First, Second uint32 // packed pair payload
}

// Kind returns the payload discriminator.
func (v Value) Kind() Kind { return v.kind }

// IntValue builds an integer value of the given width from a uint64.
func IntValue(bits uint32, x uint64) Value {
	v := Value{kind: KindInt, Bits: bits}
	v.X.SetUint64(x)
	maskTo(&v.X, bits)
	return v
}

// IntValue256 builds an integer value of the given width from a full word.
func IntValue256(bits uint32, x *uint256.Int) Value {
	v := Value{kind: KindInt, Bits: bits}
	v.X.Set(x)
	maskTo(&v.X, bits)
	return v
}

// BoolValue builds an i1 from a Go bool.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1, 1)
	}
	return IntValue(1, 0)
}

// FloatValue builds a 32-bit float value.
func FloatValue(f float32) Value { return Value{kind: KindFloat, F32: f} }

// DoubleValue builds a 64-bit float value.
func DoubleValue(f float64) Value { return Value{kind: KindDouble, F64: f} }

// PointerValue builds a pointer value from an address with provenance.
func PointerValue(p Ptr) Value {
	return Value{kind: KindPointer, Addr: p.Addr, Prov: p.Prov}
}

// AggregateValue builds an aggregate from its elements.
func AggregateValue(elems []Value) Value {
	return Value{kind: KindAggregate, Agg: elems}
}

// PairValue builds the packed two-index value used for va_lists.
func PairValue(first, second uint32) Value {
	return Value{kind: KindPair, First: first, Second: second}
}

// Pointer reconstitutes the (address, provenance) pair. Integer values
// convert with no provenance, so a round-trip through ptrtoint arithmetic
// behaves like the original address with provenance stripped.
func (v Value) Pointer() Ptr {
	switch v.kind {
	case KindPointer:
		return Ptr{Addr: v.Addr, Prov: v.Prov}
	case KindInt:
		return Ptr{Addr: v.X.Uint64()}
	}
	return Ptr{}
}

// Uint64 returns the low 64 bits of an integer value, or the raw address of
// a pointer value.
func (v Value) Uint64() uint64 {
	if v.kind == KindPointer {
		return v.Addr
	}
	return v.X.Uint64()
}

// IsZeroInt reports whether an integer value is zero.
func (v Value) IsZeroInt() bool { return v.X.IsZero() }

// Pair decodes the packed two-index encoding. The oracle stores and loads
// the 64-bit encoding verbatim, so a value that made a round trip through
// memory may come back as an integer or pointer payload; those are decoded
// from the low and high halves of the word.
func (v Value) Pair() (first, second uint32) {
	switch v.kind {
	case KindPair:
		return v.First, v.Second
	case KindPointer:
		return uint32(v.Addr), uint32(v.Addr >> 32)
	default:
		w := v.X.Uint64()
		return uint32(w), uint32(w >> 32)
	}
}

// PairWord returns the 64-bit wire encoding of a pair value.
func (v Value) PairWord() uint64 {
	first, second := v.Pair()
	return uint64(first) | uint64(second)<<32
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("i%d %s", v.Bits, v.X.Dec())
	case KindFloat:
		return fmt.Sprintf("float %g", v.F32)
	case KindDouble:
		return fmt.Sprintf("double %g", v.F64)
	case KindPointer:
		return fmt.Sprintf("ptr 0x%x (alloc %d, tag %d)", v.Addr, v.Prov.AllocID, v.Prov.Tag)
	case KindAggregate:
		return fmt.Sprintf("agg[%d]", len(v.Agg))
	case KindPair:
		return fmt.Sprintf("pair(%d, %d)", v.First, v.Second)
	}
	return "invalid"
}

// maskTo clears all bits of x at and above the given width.
func maskTo(x *uint256.Int, bits uint32) {
	if bits >= 256 {
		return
	}
	var m uint256.Int
	m.Lsh(uint256.NewInt(1), uint(bits))
	m.SubUint64(&m, 1)
	x.And(x, &m)
}

// signExtend widens the two's complement interpretation of a bits-wide value
// to the full word.
func signExtend(x *uint256.Int, bits uint32) {
	if bits == 0 || bits >= 256 {
		return
	}
	if x.BitLen() == int(bits) { // sign bit set
		var m uint256.Int
		m.Lsh(uint256.NewInt(1), uint(bits))
		m.SubUint64(&m, 1)
		m.Not(&m)
		x.Or(x, &m)
	}
}

// isNegative reports whether the sign bit of a bits-wide value is set.
func isNegative(x *uint256.Int, bits uint32) bool {
	if bits == 0 || bits > 256 {
		return false
	}
	return x.BitLen() == int(bits)
}

// intToFloat converts an unsigned word to float64.
func intToFloat(x *uint256.Int) float64 {
	if x.BitLen() <= 64 {
		return float64(x.Uint64())
	}
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}

// signedToFloat converts the two's complement interpretation of a bits-wide
// value to float64.
func signedToFloat(x *uint256.Int, bits uint32) float64 {
	if !isNegative(x, bits) {
		return intToFloat(x)
	}
	var w uint256.Int
	w.Set(x)
	signExtend(&w, bits)
	var mag uint256.Int
	mag.Neg(&w)
	return -intToFloat(&mag)
}

// floatToSigned truncates a float to a bits-wide two's complement integer.
// Inputs beyond the 64-bit signed range clamp to its bounds before masking;
// the bare conversion would be implementation-defined there.
func floatToSigned(f float64, bits uint32) Value {
	if math.IsNaN(f) {
		return IntValue(bits, 0)
	}
	var i int64
	switch {
	case f >= math.MaxInt64:
		i = math.MaxInt64
	case f <= math.MinInt64:
		i = math.MinInt64
	default:
		i = int64(f)
	}
	v := Value{kind: KindInt, Bits: bits}
	v.X.SetUint64(uint64(i))
	signExtend(&v.X, 64)
	maskTo(&v.X, bits)
	return v
}

// floatToUnsigned truncates a float to a bits-wide unsigned integer, with
// the same clamping at the 64-bit bound.
func floatToUnsigned(f float64, bits uint32) Value {
	if math.IsNaN(f) || f < 0 {
		return IntValue(bits, 0)
	}
	if f >= math.MaxUint64 {
		return IntValue(bits, math.MaxUint64)
	}
	return IntValue(bits, uint64(f))
}
