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
	"testing"

	"github.com/mirivm/mirivm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constRetFunc(mod *ir.Module, name string, x uint64) *ir.Func {
	f := mod.NewFunc(name, ir.Signature(ir.I32))
	f.NewBlock("entry").NewRet(ir.NewIntConst(ir.I32, x))
	return f
}

func TestThreadsProduceIndependentExitValues(t *testing.T) {
	mod := ir.NewModule()
	fa := constRetFunc(mod, "a", 17)
	fb := constRetFunc(mod, "b", 23)

	in, _ := newTestInterp(t, mod)
	in.CreateThread(1, fa, nil)
	in.CreateThread(2, fb, nil)

	// Interleave: the driver picks the order; nothing crosses over.
	require.True(t, in.StepThread(2, nil))
	require.True(t, in.StepThread(1, nil))

	assert.Equal(t, uint64(17), in.ThreadExitValue(1).Uint64())
	assert.Equal(t, uint64(23), in.ThreadExitValue(2).Uint64())
}

func TestHasThreadAndTermination(t *testing.T) {
	mod := ir.NewModule()
	f := constRetFunc(mod, "main", 1)

	in, _ := newTestInterp(t, mod)
	assert.False(t, in.HasThread(7))
	in.CreateThread(7, f, nil)
	assert.True(t, in.HasThread(7))
	in.TerminateThread(7)
	assert.False(t, in.HasThread(7))
	assert.Nil(t, in.ThreadExitValue(7))

	// Terminating a missing thread is a no-op.
	in.TerminateThread(7)
}

func TestTerminateThreadFreesAllocasLIFO(t *testing.T) {
	// Three frames deep, one alloca each. Termination must fire exactly
	// three frees, newest allocation first.
	mod := ir.NewModule()
	var inner *ir.Func
	for _, name := range []string{"leaf", "mid", "top"} {
		f := mod.NewFunc(name, ir.Signature(ir.Void))
		b := f.NewBlock("entry")
		b.NewAlloca("buf", ir.I64, ir.NewIntConst(ir.I32, 1), 0)
		if inner == nil {
			// The leaf spins so the stack stays three deep.
			loop := f.NewBlock("loop")
			b.NewBr(loop)
			loop.NewBr(loop)
		} else {
			b.NewCall("", inner.Sig, inner)
			b.NewRet(nil)
		}
		inner = f
	}

	in, o := newTestInterp(t, mod)
	in.CreateThread(1, mod.Func("top"), nil)
	for i := 0; i < 12; i++ { // deep enough to run all three allocas
		require.False(t, in.StepThread(1, nil))
	}
	require.Equal(t, 3, o.mallocs)
	require.Zero(t, o.frees)

	in.TerminateThread(1)
	require.Equal(t, 3, o.frees)
	require.Len(t, o.freeOrder, 3)
	// LIFO: the leaf's allocation (latest) is freed first.
	assert.True(t, o.freeOrder[0].Addr > o.freeOrder[1].Addr)
	assert.True(t, o.freeOrder[1].Addr > o.freeOrder[2].Addr)
}

func TestCreateThreadDuplicateIsFatal(t *testing.T) {
	mod := ir.NewModule()
	f := constRetFunc(mod, "main", 1)
	in, _ := newTestInterp(t, mod)
	in.CreateThread(1, f, nil)
	require.Panics(t, func() { in.CreateThread(1, f, nil) })
}

func TestStepThreadOnDrainedThreadReportsEmpty(t *testing.T) {
	mod := ir.NewModule()
	f := constRetFunc(mod, "main", 9)
	in, _ := newTestInterp(t, mod)
	in.CreateThread(1, f, nil)
	require.True(t, in.StepThread(1, nil))
	// Further steps observe the drained stack without executing anything.
	require.True(t, in.StepThread(1, nil))
}

func TestFaultFreezesOnlyTheFaultyThread(t *testing.T) {
	mod := ir.NewModule()
	bad := mod.NewFunc("bad", ir.Signature(ir.I32))
	bb := bad.NewBlock("entry")
	bb.NewLoad("v", ir.I32, &ir.NullConst{})
	bb.NewRet(ir.NewIntConst(ir.I32, 1))
	good := constRetFunc(mod, "good", 5)

	in, o := newTestInterp(t, mod)
	o.failLoads = true
	in.CreateThread(1, bad, nil)
	in.CreateThread(2, good, nil)

	require.False(t, in.StepThread(1, nil))
	require.True(t, in.ErrorFlag())

	// The faulty thread refuses to advance while the latch is set.
	require.False(t, in.StepThread(1, nil))
	// An unaffected thread still runs to completion.
	require.True(t, in.StepThread(2, nil))
	assert.Equal(t, uint64(5), in.ThreadExitValue(2).Uint64())

	// Clearing the latch unfreezes the faulty thread.
	in.ClearError()
	require.True(t, in.StepThread(1, nil))
}
