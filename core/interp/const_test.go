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

func TestConstantMaterialization(t *testing.T) {
	mod := ir.NewModule()
	in, _ := newTestInterp(t, mod)

	v := in.constantValue(ir.NewIntConst(ir.IntN(33), 1<<32))
	assert.Equal(t, uint64(1)<<32, v.Uint64())
	assert.Equal(t, uint32(33), v.Bits)

	f := in.constantValue(&ir.FloatConst{V: 0.5})
	assert.Equal(t, float32(0.5), f.F32)

	n := in.constantValue(&ir.NullConst{})
	assert.True(t, n.Pointer().IsNull())

	z := in.constantValue(&ir.ZeroConst{Ty: ir.StructOf(ir.I32, ir.Ptr)})
	require.Len(t, z.Agg, 2)
	assert.True(t, z.Agg[0].IsZeroInt())
	assert.True(t, z.Agg[1].Pointer().IsNull())
}

func TestConstantExprFoldsNestedArithmetic(t *testing.T) {
	mod := ir.NewModule()
	in, _ := newTestInterp(t, mod)

	// (2 * 5) - 3 nested as expression constants.
	mul := &ir.ExprConst{Expr: &ir.Inst{Op: ir.OpMul, Ty: ir.I32,
		Args: []ir.Value{ir.NewIntConst(ir.I32, 2), ir.NewIntConst(ir.I32, 5)}}}
	sub := &ir.ExprConst{Expr: &ir.Inst{Op: ir.OpSub, Ty: ir.I32,
		Args: []ir.Value{mul, ir.NewIntConst(ir.I32, 3)}}}

	v := in.constantValue(sub)
	assert.Equal(t, uint64(7), v.Uint64())
}

func TestConstantExprGEPOverGlobal(t *testing.T) {
	mod := ir.NewModule()
	arr := ir.ArrayOf(8, ir.I32)
	g := mod.NewGlobal("table", arr, &ir.ZeroConst{Ty: arr})

	in, o := newTestInterp(t, mod)
	in.InitGlobals()

	gep := &ir.ExprConst{Expr: &ir.Inst{
		Op: ir.OpGEP, Ty: ir.Ptr, SrcTy: ir.I32,
		Args: []ir.Value{g, ir.NewIntConst(ir.I64, 2)},
	}}
	v := in.constantValue(gep)
	base := o.registered["table"]
	assert.Equal(t, base.Addr+8, v.Pointer().Addr)
	assert.Equal(t, base.Prov, v.Pointer().Prov)
}

func TestOperandResolutionStampsTypes(t *testing.T) {
	mod := ir.NewModule()
	f := mod.NewFunc("main", ir.Signature(ir.I32, ir.I32), "x")
	in, _ := newTestInterp(t, mod)

	frame := newFrame(f)
	frame.set(f.Params[0], IntValue(32, 9))
	got := in.getOperand(f.Params[0], frame)
	require.Equal(t, ir.I32, got.Ty)
	require.Equal(t, uint64(9), got.Uint64())

	fn := in.getOperand(f, frame)
	assert.Equal(t, ir.Ptr, fn.Ty)
	assert.NotZero(t, fn.Pointer().Addr)
	assert.Equal(t, NoProvenance, fn.Pointer().Prov, "direct function references carry no provenance")
}

func TestUndefinedValueIsFatal(t *testing.T) {
	mod := ir.NewModule()
	f := mod.NewFunc("main", ir.Signature(ir.I32, ir.I32), "x")
	in, _ := newTestInterp(t, mod)
	frame := newFrame(f)
	require.Panics(t, func() { in.getOperand(f.Params[0], frame) })
}
