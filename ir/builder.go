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

// Builder-style helpers for assembling blocks. Embedders materializing a
// module from a front end use these; so does the test suite.

// NewRet appends a return of v, which may be nil for ret void.
func (b *Block) NewRet(v Value) *Inst {
	i := &Inst{Op: OpRet}
	if v != nil {
		i.Args = []Value{v}
	}
	return b.Append(i)
}

// NewBr appends an unconditional branch.
func (b *Block) NewBr(dest *Block) *Inst {
	return b.Append(&Inst{Op: OpBr, Blocks: []*Block{dest}})
}

// NewCondBr appends a conditional branch on cond's bit zero.
func (b *Block) NewCondBr(cond Value, then, els *Block) *Inst {
	return b.Append(&Inst{Op: OpBr, Args: []Value{cond}, Blocks: []*Block{then, els}})
}

// NewSwitch appends a switch; dflt is taken when no case matches.
func (b *Block) NewSwitch(cond Value, dflt *Block, cases ...SwitchCase) *Inst {
	return b.Append(&Inst{Op: OpSwitch, Args: []Value{cond}, Blocks: []*Block{dflt}, Cases: cases})
}

// NewIndirectBr appends an indirect branch through a block address value.
func (b *Block) NewIndirectBr(addr Value, candidates ...*Block) *Inst {
	return b.Append(&Inst{Op: OpIndirectBr, Args: []Value{addr}, Blocks: candidates})
}

// NewUnreachable appends an unreachable terminator.
func (b *Block) NewUnreachable() *Inst {
	return b.Append(&Inst{Op: OpUnreachable})
}

// NewPhi appends a phi node with the given incoming pairs.
func (b *Block) NewPhi(name string, ty Type, incoming ...Incoming) *Inst {
	return b.Append(&Inst{Op: OpPhi, Name: name, Ty: ty, Incoming: incoming})
}

// NewBinOp appends a two-operand arithmetic or bitwise instruction. The
// result type follows the first operand.
func (b *Block) NewBinOp(op Op, name string, x, y Value) *Inst {
	switch op {
	case OpAdd, OpSub, OpMul, OpUDiv, OpSDiv, OpURem, OpSRem,
		OpShl, OpLShr, OpAShr, OpAnd, OpOr, OpXor,
		OpFAdd, OpFSub, OpFMul, OpFDiv, OpFRem:
	default:
		panic(fmt.Sprintf("ir: %s is not a binary op", op))
	}
	return b.Append(&Inst{Op: op, Name: name, Ty: x.Type(), Args: []Value{x, y}})
}

// NewFNeg appends a floating negation.
func (b *Block) NewFNeg(name string, x Value) *Inst {
	return b.Append(&Inst{Op: OpFNeg, Name: name, Ty: x.Type(), Args: []Value{x}})
}

// NewICmp appends an integer or pointer comparison. Vector operands yield a
// vector of i1.
func (b *Block) NewICmp(name string, pred IntPred, x, y Value) *Inst {
	return b.Append(&Inst{Op: OpICmp, Name: name, Ty: cmpResultType(x.Type()), IPred: pred, Args: []Value{x, y}})
}

// NewFCmp appends a floating comparison.
func (b *Block) NewFCmp(name string, pred FloatPred, x, y Value) *Inst {
	return b.Append(&Inst{Op: OpFCmp, Name: name, Ty: cmpResultType(x.Type()), FPred: pred, Args: []Value{x, y}})
}

func cmpResultType(operand Type) Type {
	if vt, ok := operand.(*VectorType); ok {
		return VecOf(vt.Len, I1)
	}
	return I1
}

// NewSelect appends a select between t and f on cond.
func (b *Block) NewSelect(name string, cond, t, f Value) *Inst {
	return b.Append(&Inst{Op: OpSelect, Name: name, Ty: t.Type(), Args: []Value{cond, t, f}})
}

// NewExtractElement appends a vector lane read.
func (b *Block) NewExtractElement(name string, vec, idx Value) *Inst {
	elem := vec.Type().(*VectorType).Elem
	return b.Append(&Inst{Op: OpExtractElement, Name: name, Ty: elem, Args: []Value{vec, idx}})
}

// NewInsertElement appends a vector lane write.
func (b *Block) NewInsertElement(name string, vec, elem, idx Value) *Inst {
	return b.Append(&Inst{Op: OpInsertElement, Name: name, Ty: vec.Type(), Args: []Value{vec, elem, idx}})
}

// NewShuffleVector appends a lane shuffle of two same-typed vectors.
func (b *Block) NewShuffleVector(name string, x, y Value, mask []int) *Inst {
	elem := x.Type().(*VectorType).Elem
	return b.Append(&Inst{
		Op: OpShuffleVector, Name: name, Ty: VecOf(len(mask), elem),
		Args: []Value{x, y}, Mask: mask,
	})
}

// NewExtractValue appends an aggregate field read along an index path.
func (b *Block) NewExtractValue(name string, agg Value, ty Type, indices ...uint32) *Inst {
	return b.Append(&Inst{Op: OpExtractValue, Name: name, Ty: ty, Args: []Value{agg}, Indices: indices})
}

// NewInsertValue appends an aggregate field write along an index path.
func (b *Block) NewInsertValue(name string, agg, elem Value, indices ...uint32) *Inst {
	return b.Append(&Inst{Op: OpInsertValue, Name: name, Ty: agg.Type(), Args: []Value{agg, elem}, Indices: indices})
}

// NewAlloca appends a stack allocation of n elements of elemTy.
func (b *Block) NewAlloca(name string, elemTy Type, n Value, align uint64) *Inst {
	return b.Append(&Inst{Op: OpAlloca, Name: name, Ty: Ptr, SrcTy: elemTy, Args: []Value{n}, Align: align})
}

// NewLoad appends a typed load through ptr.
func (b *Block) NewLoad(name string, ty Type, ptr Value) *Inst {
	return b.Append(&Inst{Op: OpLoad, Name: name, Ty: ty, Args: []Value{ptr}})
}

// NewStore appends a store of val through ptr.
func (b *Block) NewStore(val, ptr Value) *Inst {
	return b.Append(&Inst{Op: OpStore, Args: []Value{val, ptr}})
}

// NewGEP appends an address computation over srcTy starting at ptr.
func (b *Block) NewGEP(name string, srcTy Type, ptr Value, indices ...Value) *Inst {
	return b.Append(&Inst{Op: OpGEP, Name: name, Ty: Ptr, SrcTy: srcTy, Args: append([]Value{ptr}, indices...)})
}

// NewCast appends any of the cast instructions.
func (b *Block) NewCast(op Op, name string, x Value, to Type) *Inst {
	switch op {
	case OpTrunc, OpZExt, OpSExt, OpFPTrunc, OpFPExt, OpFPToUI, OpFPToSI,
		OpUIToFP, OpSIToFP, OpPtrToInt, OpIntToPtr, OpBitCast:
	default:
		panic(fmt.Sprintf("ir: %s is not a cast op", op))
	}
	return b.Append(&Inst{Op: op, Name: name, Ty: to, Args: []Value{x}})
}

// NewCall appends a call. Callee may be a *Func or any pointer-typed value.
func (b *Block) NewCall(name string, sig *FuncType, callee Value, args ...Value) *Inst {
	return b.Append(&Inst{Op: OpCall, Name: name, Ty: sig.Ret, FnSig: sig, Args: append([]Value{callee}, args...)})
}

// NewInvoke appends an invoke with explicit normal and unwind successors.
func (b *Block) NewInvoke(name string, sig *FuncType, callee Value, args []Value, normal, unwind *Block) *Inst {
	return b.Append(&Inst{
		Op: OpInvoke, Name: name, Ty: sig.Ret, FnSig: sig,
		Args: append([]Value{callee}, args...), Blocks: []*Block{normal, unwind},
	})
}

// NewVAStart appends a va_start on the given va_list pointer.
func (b *Block) NewVAStart(list Value) *Inst {
	return b.Append(&Inst{Op: OpVAStart, Args: []Value{list}})
}

// NewVAArg appends a va_arg producing ty from the given va_list pointer.
func (b *Block) NewVAArg(name string, ty Type, list Value) *Inst {
	return b.Append(&Inst{Op: OpVAArg, Name: name, Ty: ty, Args: []Value{list}})
}

// NewVAEnd appends a va_end.
func (b *Block) NewVAEnd(list Value) *Inst {
	return b.Append(&Inst{Op: OpVAEnd, Args: []Value{list}})
}

// NewVACopy appends a va_copy from src to dest.
func (b *Block) NewVACopy(dest, src Value) *Inst {
	return b.Append(&Inst{Op: OpVACopy, Args: []Value{dest, src}})
}
