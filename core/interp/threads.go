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

// The interpreter has no scheduler. The driver decides which thread advances
// and by how much; nothing interleaves between two StepThread calls.

// CreateThread installs a new thread positioned at the first instruction of
// fn with the given arguments bound (truncated to the declared arity). The
// thread has not executed anything yet. The current thread is unchanged,
// unless no existing thread was current, in which case the new thread
// becomes current.
func (in *Interpreter) CreateThread(id uint64, fn *ir.Func, args []Value) {
	if _, ok := in.threads[id]; ok {
		fatalf("thread %d already exists", id)
	}
	t := &Thread{id: id, initArgs: args}
	in.threads[id] = t
	threadCounter.Inc(1)

	old := in.switchThread(id)
	if n := len(fn.Params); len(args) > n {
		args = args[:n]
	}
	in.callFunction(fn, args)
	// The first thread ever created stays current so Run has something to
	// drain; otherwise the driver's current thread is restored.
	if _, ok := in.threads[old]; ok {
		in.switchThread(old)
	}
	in.logger.Debug("thread created", "thread", id, "func", fn.FuncName)
}

// StepThread makes id the current thread, resolves a pending external return
// if one is due, then executes exactly one instruction. It reports whether
// the thread's stack is empty afterwards.
//
// Passing a pending return when none is expected, or none when one is
// required, is a protocol violation and fatal.
func (in *Interpreter) StepThread(id uint64, pending *Value) bool {
	in.switchThread(id)
	t := in.currentThread()
	if len(t.stack) == 0 {
		return true
	}
	// A latched memory error freezes the faulty thread until the driver
	// clears it; other threads may keep stepping.
	if in.errFlag && in.errThread == id {
		return false
	}

	f := t.top()
	if f.mustResolvePendingReturn {
		f.mustResolvePendingReturn = false
		if pending == nil {
			fatalf("thread %d expected a pending return value and none was supplied", id)
		}
		f.awaitingReturn = *pending
		call := f.Caller
		if call == nil {
			fatalf("pending return with no recorded caller on thread %d", id)
		}
		if !ir.IsVoid(call.Type()) {
			f.set(call, in.stamp(*pending, call.Type()))
		}
		if call.Op == ir.OpInvoke {
			in.switchToBlock(call.Blocks[0], f)
		}
		f.Caller = nil
	} else if pending != nil {
		fatalf("thread %d was handed a pending return value it did not expect", id)
	}

	in.step()
	return len(t.stack) == 0
}

// ThreadExitValue returns a pointer to the thread's exit slot, or nil when
// no such thread exists. The slot is zero until the thread's stack drains.
func (in *Interpreter) ThreadExitValue(id uint64) *Value {
	t, ok := in.threads[id]
	if !ok {
		return nil
	}
	return &t.exit
}

// HasThread reports whether a thread with the given id exists.
func (in *Interpreter) HasThread(id uint64) bool {
	_, ok := in.threads[id]
	return ok
}

// TerminateThread drops the thread and all of its frames. Frames unwind from
// the top; each releases its oracle allocas in LIFO order.
func (in *Interpreter) TerminateThread(id uint64) {
	t, ok := in.threads[id]
	if !ok {
		return
	}
	for len(t.stack) > 0 {
		t.pop(in)
	}
	delete(in.threads, id)
	in.logger.Debug("thread terminated", "thread", id)
}

// switchThread makes id current and returns the previous current thread.
func (in *Interpreter) switchThread(id uint64) uint64 {
	old := in.curThread
	in.curThread = id
	return old
}

// currentThread returns the current thread; a missing current thread is a
// driver error.
func (in *Interpreter) currentThread() *Thread {
	t, ok := in.threads[in.curThread]
	if !ok {
		fatalf("current thread %d not found", in.curThread)
	}
	return t
}
