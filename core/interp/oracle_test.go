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
	"encoding/binary"
	"math"

	"github.com/holiman/uint256"
	"github.com/mirivm/mirivm/ir"
)

// flatOracle backs the hook table with a flat 64-KiB byte array and a bump
// allocator, and records every hook invocation so tests can assert on exact
// oracle traffic.
type flatOracle struct {
	mem    [64 * 1024]byte
	next   uint64
	nextID uint64

	mallocs int
	frees   int
	loads   int
	stores  int

	freeOrder []Ptr
	gepDeltas []uint64

	calledNames    []string
	calledArgs     [][]Value
	calledPtr      []Ptr
	registered     map[string]Ptr
	traces         []ErrorTrace
	faultInst      string
	recorderCalled int

	failLoads  bool
	failStores bool
}

func newFlatOracle() *flatOracle {
	return &flatOracle{next: 0x1000, nextID: 1, registered: make(map[string]Ptr)}
}

func (m *flatOracle) hooks() *Oracle {
	return &Oracle{
		Wrapper: m,
		Malloc: func(w any, size, align uint64, stack bool) Ptr {
			o := w.(*flatOracle)
			o.mallocs++
			if align > 0 {
				o.next = (o.next + align - 1) &^ (align - 1)
			}
			p := Ptr{Addr: o.next, Prov: Provenance{AllocID: o.nextID, Tag: o.nextID}}
			o.next += size
			o.nextID++
			return p
		},
		Free: func(w any, p Ptr) bool {
			o := w.(*flatOracle)
			o.frees++
			o.freeOrder = append(o.freeOrder, p)
			return false
		},
		Load: func(w any, out *Value, p Ptr, ty ir.Type, size, align uint64) bool {
			o := w.(*flatOracle)
			o.loads++
			if o.failLoads || p.Addr+size > uint64(len(o.mem)) {
				return true
			}
			*out = o.decode(p.Addr, ty, size)
			return false
		},
		Store: func(w any, val *Value, p Ptr, ty ir.Type, size, align uint64) bool {
			o := w.(*flatOracle)
			o.stores++
			if o.failStores || p.Addr+size > uint64(len(o.mem)) {
				return true
			}
			o.encode(p.Addr, val, size)
			return false
		},
		Memset: func(w any, p Ptr, b int32, n uint64) bool {
			o := w.(*flatOracle)
			for i := uint64(0); i < n; i++ {
				o.mem[p.Addr+i] = byte(b)
			}
			return false
		},
		Memcpy: func(w any, p Ptr, src []byte) bool {
			o := w.(*flatOracle)
			copy(o.mem[p.Addr:], src)
			return false
		},
		IntToPtr: func(w any, x uint64) Ptr {
			return Ptr{Addr: x}
		},
		PtrToInt: func(w any, p Ptr) uint64 {
			return p.Addr
		},
		Gep: func(w any, p Ptr, delta uint64) Ptr {
			o := w.(*flatOracle)
			o.gepDeltas = append(o.gepDeltas, delta)
			return Ptr{Addr: p.Addr + delta, Prov: p.Prov}
		},
		RegisterGlobal: func(w any, name string, size uint64, p Ptr) bool {
			o := w.(*flatOracle)
			o.registered[name] = p
			return false
		},
		CallByName: func(w any, args []Value, name string, retTy ir.Type) bool {
			o := w.(*flatOracle)
			o.calledNames = append(o.calledNames, name)
			o.calledArgs = append(o.calledArgs, args)
			return false
		},
		CallByPointer: func(w any, p Ptr, args []Value, retTy ir.Type) bool {
			o := w.(*flatOracle)
			o.calledPtr = append(o.calledPtr, p)
			o.calledArgs = append(o.calledArgs, args)
			return false
		},
		StackTraceRecorder: func(w any, traces []ErrorTrace, inst string) {
			o := w.(*flatOracle)
			o.recorderCalled++
			o.traces = append([]ErrorTrace(nil), traces...)
			o.faultInst = inst
		},
	}
}

// encode writes a scalar value little-endian. Pair values store their packed
// 64-bit encoding verbatim.
func (m *flatOracle) encode(addr uint64, v *Value, size uint64) {
	var word [32]byte
	switch v.Kind() {
	case KindInt:
		be := v.X.Bytes32()
		for i := 0; i < 32; i++ {
			word[i] = be[31-i]
		}
	case KindFloat:
		binary.LittleEndian.PutUint32(word[:4], math.Float32bits(v.F32))
	case KindDouble:
		binary.LittleEndian.PutUint64(word[:8], math.Float64bits(v.F64))
	case KindPointer:
		binary.LittleEndian.PutUint64(word[:8], v.Addr)
	case KindPair:
		binary.LittleEndian.PutUint64(word[:8], v.PairWord())
	default:
		panic("flatOracle: unsupported store kind")
	}
	copy(m.mem[addr:addr+size], word[:size])
}

func (m *flatOracle) decode(addr uint64, ty ir.Type, size uint64) Value {
	var word [32]byte
	copy(word[:size], m.mem[addr:addr+size])
	switch t := ty.(type) {
	case *ir.IntType:
		var be [32]byte
		for i := 0; i < 32; i++ {
			be[i] = word[31-i]
		}
		var x uint256.Int
		x.SetBytes(be[:])
		return IntValue256(t.BitSize, &x)
	case *ir.FloatType:
		return FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(word[:4])))
	case *ir.DoubleType:
		return DoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(word[:8])))
	case *ir.PointerType:
		return PointerValue(Ptr{Addr: binary.LittleEndian.Uint64(word[:8])})
	}
	panic("flatOracle: unsupported load type")
}
