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

import "github.com/mirivm/mirivm/ir"

// Provenance identifies the origin of a pointer: an allocation identifier and
// an oracle-defined tag. The zero value means "no provenance" and marks plain
// integers and null pointers.
type Provenance struct {
	AllocID uint64
	Tag     uint64
}

// NoProvenance is the sentinel provenance of non-pointer data.
var NoProvenance = Provenance{}

// Ptr is an address paired with its provenance. It is the unit of exchange
// with the oracle for everything address-shaped.
type Ptr struct {
	Addr uint64
	Prov Provenance
}

// IsNull reports whether the pointer has a zero address.
func (p Ptr) IsNull() bool { return p.Addr == 0 }

// ErrorTrace is one stack-trace entry handed to the oracle when a memory
// error is latched.
type ErrorTrace struct {
	Directory string
	File      string
	Line      uint32
	Column    uint32
}

// Oracle is the hook table through which the interpreter performs every
// memory effect: allocation, loads and stores, pointer arithmetic,
// integer/pointer conversions, global registration and externally-handled
// calls. The interpreter owns no simulated memory itself.
//
// Every hook receives the opaque Wrapper as its first argument. Hooks that
// return bool use true to signal failure; a failing memory hook latches the
// interpreter's error flag and captures a stack trace.
//
// Return values of externally-handled calls are not produced by the call
// hooks. They arrive through the pending-return argument of the next
// StepThread on the suspended thread.
type Oracle struct {
	// Wrapper is a borrowed reference threaded through every hook call. The
	// interpreter never inspects or frees it.
	Wrapper any

	Malloc func(w any, size, align uint64, stack bool) Ptr
	Free   func(w any, p Ptr) bool

	Load  func(w any, out *Value, p Ptr, ty ir.Type, size, align uint64) bool
	Store func(w any, val *Value, p Ptr, ty ir.Type, size, align uint64) bool

	Memset func(w any, p Ptr, b int32, n uint64) bool
	Memcpy func(w any, p Ptr, src []byte) bool

	IntToPtr func(w any, x uint64) Ptr
	PtrToInt func(w any, p Ptr) uint64

	// Gep applies a byte delta to a pointer. Whether provenance survives is
	// the oracle's decision.
	Gep func(w any, p Ptr, delta uint64) Ptr

	RegisterGlobal func(w any, name string, size uint64, p Ptr) bool

	CallByName    func(w any, args []Value, name string, retTy ir.Type) bool
	CallByPointer func(w any, p Ptr, args []Value, retTy ir.Type) bool

	StackTraceRecorder func(w any, traces []ErrorTrace, inst string)
}
