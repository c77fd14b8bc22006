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

package ir

import "fmt"

// PointerBytes is the byte size of every pointer value. The simulated address
// space is 64-bit regardless of host platform.
const PointerBytes = 8

// DataLayout answers size, alignment and field-offset queries for IR types.
// The zero value is a little-endian layout.
type DataLayout struct {
	BigEndian bool
}

// Lower resolves target extension types to their layout type. All memory
// operations go through Lower before sizing.
func (dl DataLayout) Lower(t Type) Type {
	for {
		te, ok := t.(*TargetExtType)
		if !ok {
			return t
		}
		t = te.Layout
	}
}

// StoreSize returns the number of bytes written when a value of type t is
// stored to memory. Scalars exclude tail padding; structs include their tail
// padding, and arrays and vectors count each element at its alloc size.
func (dl DataLayout) StoreSize(t Type) uint64 {
	switch t := dl.Lower(t).(type) {
	case *IntType:
		return uint64(t.BitSize+7) / 8
	case *FloatType:
		return 4
	case *DoubleType:
		return 8
	case *PointerType:
		return PointerBytes
	case *VectorType:
		return uint64(t.Len) * dl.AllocSize(t.Elem)
	case *ArrayType:
		return uint64(t.Len) * dl.AllocSize(t.Elem)
	case *StructType:
		size, _ := dl.structLayout(t)
		return size
	}
	panic(fmt.Sprintf("ir: no store size for type %s", t))
}

// AllocSize returns the byte stride between consecutive values of type t,
// i.e. the store size rounded up to the ABI alignment.
func (dl DataLayout) AllocSize(t Type) uint64 {
	return roundUp(dl.StoreSize(t), dl.ABIAlign(t))
}

// ABIAlign returns the ABI alignment of type t in bytes.
func (dl DataLayout) ABIAlign(t Type) uint64 {
	switch t := dl.Lower(t).(type) {
	case *IntType:
		switch {
		case t.BitSize <= 8:
			return 1
		case t.BitSize <= 16:
			return 2
		case t.BitSize <= 32:
			return 4
		case t.BitSize <= 64:
			return 8
		default:
			return 16
		}
	case *FloatType:
		return 4
	case *DoubleType:
		return 8
	case *PointerType:
		return PointerBytes
	case *VectorType:
		// Vectors align to their size rounded up to a power of two,
		// capped at 16 bytes.
		a := nextPow2(uint64(t.Len) * dl.AllocSize(t.Elem))
		if a > 16 {
			a = 16
		}
		return a
	case *ArrayType:
		return dl.ABIAlign(t.Elem)
	case *StructType:
		if t.Packed {
			return 1
		}
		var a uint64 = 1
		for _, f := range t.Fields {
			if fa := dl.ABIAlign(f); fa > a {
				a = fa
			}
		}
		return a
	}
	panic(fmt.Sprintf("ir: no alignment for type %s", t))
}

// FieldOffsets returns the byte offset of every field of t.
func (dl DataLayout) FieldOffsets(t *StructType) []uint64 {
	_, offs := dl.structLayout(t)
	return offs
}

func (dl DataLayout) structLayout(t *StructType) (size uint64, offsets []uint64) {
	offsets = make([]uint64, len(t.Fields))
	var off uint64
	for i, f := range t.Fields {
		if !t.Packed {
			off = roundUp(off, dl.ABIAlign(f))
		}
		offsets[i] = off
		// Fields occupy their alloc size, so a field whose store size is
		// narrower than its stride still pads the one after it.
		off += dl.AllocSize(f)
	}
	if !t.Packed {
		off = roundUp(off, dl.ABIAlign(t))
	}
	return off, offsets
}

func roundUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

func nextPow2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}
