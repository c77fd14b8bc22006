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

// allocaHolder tracks the oracle allocations made by one frame's alloca
// instructions. They are released through the oracle's free hook, in LIFO
// order, when the frame pops.
type allocaHolder struct {
	allocs []Ptr
}

func (h *allocaHolder) add(p Ptr) {
	h.allocs = append(h.allocs, p)
}

func (h *allocaHolder) release(in *Interpreter) {
	o := in.requireOracle()
	for i := len(h.allocs) - 1; i >= 0; i-- {
		oracleFreeCounter.Inc(1)
		if o.Free(o.Wrapper, h.allocs[i]) {
			in.registerFault(nil)
		}
	}
	h.allocs = nil
}

// Frame is one activation record: the executing function, the instruction
// cursor, the SSA environment of this invocation, variadic arguments, and
// the allocations to release on pop.
type Frame struct {
	Fn    *ir.Func
	Block *ir.Block
	pc    int      // index of the next instruction within Block
	prev  *ir.Inst // last executed instruction

	// Caller is the call or invoke this frame has in flight, or nil when no
	// call is outstanding. A returning callee delivers its result to it, and
	// while a call is suspended on the oracle it marks where the pending
	// return lands.
	Caller *ir.Inst

	mustResolvePendingReturn bool
	awaitingReturn           Value

	env     map[ir.Value]Value
	varargs []Value
	allocas allocaHolder
}

func newFrame(fn *ir.Func) *Frame {
	return &Frame{
		Fn:  fn,
		env: make(map[ir.Value]Value),
	}
}

// set binds an SSA definition for this invocation.
func (f *Frame) set(def ir.Value, v Value) {
	f.env[def] = v
}

// lookup reads an SSA binding.
func (f *Frame) lookup(def ir.Value) (Value, bool) {
	v, ok := f.env[def]
	return v, ok
}

// Thread is one logical thread of execution: a stack of frames, the exit
// value produced when the stack drains, and the arguments the thread was
// created with.
type Thread struct {
	id       uint64
	stack    []*Frame
	exit     Value
	initArgs []Value
}

// ID returns the thread identifier.
func (t *Thread) ID() uint64 { return t.id }

func (t *Thread) top() *Frame {
	if len(t.stack) == 0 {
		fatalf("empty stack on thread %d", t.id)
	}
	return t.stack[len(t.stack)-1]
}

func (t *Thread) push(f *Frame) {
	t.stack = append(t.stack, f)
}

// pop removes the top frame and releases its oracle allocas.
func (t *Thread) pop(in *Interpreter) {
	f := t.top()
	f.allocas.release(in)
	t.stack = t.stack[:len(t.stack)-1]
}
