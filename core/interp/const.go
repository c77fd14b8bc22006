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
	"github.com/mirivm/mirivm/ir"
)

// getOperand resolves any operand to a runtime value: constant expressions
// fold through the kernels, constants materialize, globals and functions
// resolve to registered pointers, and everything else reads the frame's SSA
// environment. The result is stamped with the operand's IR type.
func (in *Interpreter) getOperand(v ir.Value, f *Frame) Value {
	var out Value
	switch v := v.(type) {
	case *ir.ExprConst:
		out = in.foldConstExpr(v, f)
	case *ir.Global:
		out = PointerValue(in.globalPtr(v))
	case *ir.Func:
		out = PointerValue(Ptr{Addr: in.funcAddr(v)})
	case ir.Constant:
		out = in.constantValue(v)
	default:
		var ok bool
		out, ok = f.lookup(v)
		if !ok {
			fatalf("use of undefined value %s", ir.ValueString(v))
		}
	}
	out.Ty = v.Type()
	return out
}

// constantValue materializes a plain constant.
func (in *Interpreter) constantValue(c ir.Constant) Value {
	switch c := c.(type) {
	case *ir.IntConst:
		return IntValue256(c.Ty.BitSize, &c.V)
	case *ir.FloatConst:
		return FloatValue(c.V)
	case *ir.DoubleConst:
		return DoubleValue(c.V)
	case *ir.NullConst:
		return PointerValue(Ptr{})
	case *ir.ZeroConst:
		return in.zeroValue(c.Ty)
	case *ir.AggregateConst:
		elems := make([]Value, len(c.Elems))
		for i, e := range c.Elems {
			elems[i] = in.constantValue(e)
			elems[i].Ty = e.Type()
		}
		return AggregateValue(elems)
	case *ir.BlockAddr:
		return PointerValue(Ptr{Addr: in.blockAddr(c.Block)})
	case *ir.ExprConst:
		return in.foldConstExpr(c, nil)
	case *ir.Func:
		return PointerValue(Ptr{Addr: in.funcAddr(c)})
	case *ir.Global:
		return PointerValue(in.globalPtr(c))
	}
	fatalf("unhandled constant %s", c.Literal())
	return Value{}
}

func (in *Interpreter) globalPtr(g *ir.Global) Ptr {
	p, ok := in.globals[g]
	if !ok {
		fatalf("global @%s referenced before InitGlobals", g.GlobalName)
	}
	return p
}

// zeroValue builds the zero of any type: zero integers and floats, the null
// pointer, recursively zeroed aggregates.
func (in *Interpreter) zeroValue(t ir.Type) Value {
	switch t := in.layout.Lower(t).(type) {
	case *ir.IntType:
		return IntValue(t.BitSize, 0)
	case *ir.FloatType:
		return FloatValue(0)
	case *ir.DoubleType:
		return DoubleValue(0)
	case *ir.PointerType:
		return PointerValue(Ptr{})
	case *ir.VectorType:
		elems := make([]Value, t.Len)
		for i := range elems {
			elems[i] = in.zeroValue(t.Elem)
		}
		return AggregateValue(elems)
	case *ir.ArrayType:
		elems := make([]Value, t.Len)
		for i := range elems {
			elems[i] = in.zeroValue(t.Elem)
		}
		return AggregateValue(elems)
	case *ir.StructType:
		elems := make([]Value, len(t.Fields))
		for i, ft := range t.Fields {
			elems[i] = in.zeroValue(ft)
		}
		return AggregateValue(elems)
	}
	fatalf("no zero value for type %s", t)
	return Value{}
}

// foldConstExpr folds an instruction-shaped constant expression with the
// same kernels the dispatcher uses. The frame is only consulted for nested
// operand resolution and may be nil at global-init time.
func (in *Interpreter) foldConstExpr(c *ir.ExprConst, f *Frame) Value {
	e := c.Expr
	op := func(i int) Value { return in.getConstOperand(e.Args[i], f) }
	switch e.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
		ir.OpShl, ir.OpLShr, ir.OpAShr, ir.OpAnd, ir.OpOr, ir.OpXor,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv, ir.OpFRem:
		return execBinOp(e.Op, op(0), op(1), e.Type())
	case ir.OpFNeg:
		return execFNeg(op(0), e.Type())
	case ir.OpICmp:
		return execICmp(e.IPred, op(0), op(1), e.Args[0].Type())
	case ir.OpFCmp:
		return execFCmp(e.FPred, op(0), op(1), e.Args[0].Type())
	case ir.OpSelect:
		return execSelect(op(0), op(1), op(2), e.Args[0].Type())
	case ir.OpExtractValue:
		return execExtractValue(op(0), e.Indices)
	case ir.OpInsertValue:
		return execInsertValue(op(0), op(1), e.Indices)
	case ir.OpExtractElement:
		return execExtractElement(op(0), op(1))
	case ir.OpInsertElement:
		return execInsertElement(op(0), op(1), op(2))
	case ir.OpShuffleVector:
		return execShuffleVector(op(0), op(1), e.Mask)
	case ir.OpTrunc, ir.OpZExt, ir.OpSExt, ir.OpFPTrunc, ir.OpFPExt,
		ir.OpFPToUI, ir.OpFPToSI, ir.OpUIToFP, ir.OpSIToFP,
		ir.OpPtrToInt, ir.OpIntToPtr, ir.OpBitCast:
		return in.execCast(e.Op, op(0), e.Args[0].Type(), e.Type())
	case ir.OpGEP:
		base := op(0)
		rest := make([]Value, len(e.Args)-1)
		for i := range rest {
			rest[i] = op(i + 1)
		}
		return in.execGEP(e.SrcTy, base, rest)
	}
	fatalf("unhandled constant expression %s", e.Op)
	return Value{}
}

func (in *Interpreter) getConstOperand(v ir.Value, f *Frame) Value {
	if f != nil {
		return in.getOperand(v, f)
	}
	c, ok := v.(ir.Constant)
	if !ok {
		fatalf("non-constant operand %s in constant expression", ir.ValueString(v))
	}
	out := in.constantValue(c)
	out.Ty = v.Type()
	return out
}
