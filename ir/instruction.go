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

import (
	"fmt"
	"strings"
)

// Value is anything an instruction operand can name: instruction results,
// parameters, constants, globals, functions and basic blocks.
type Value interface {
	Type() Type
}

// Op identifies an instruction kind. The set is closed; the interpreter
// dispatches with an exhaustive switch and treats unknown values as fatal.
type Op uint8

const (
	OpInvalid Op = iota

	// Terminators.
	OpRet
	OpBr
	OpSwitch
	OpIndirectBr
	OpInvoke
	OpUnreachable

	// Integer arithmetic and bitwise.
	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor

	// Floating point.
	OpFNeg
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem

	// Comparisons and selection.
	OpICmp
	OpFCmp
	OpSelect

	// Vector and aggregate.
	OpExtractElement
	OpInsertElement
	OpShuffleVector
	OpExtractValue
	OpInsertValue

	// Memory.
	OpAlloca
	OpLoad
	OpStore
	OpGEP

	// Casts.
	OpTrunc
	OpZExt
	OpSExt
	OpFPTrunc
	OpFPExt
	OpFPToUI
	OpFPToSI
	OpUIToFP
	OpSIToFP
	OpPtrToInt
	OpIntToPtr
	OpBitCast

	// Calls and control transfer into callees.
	OpCall
	OpPhi

	// Variadic argument bookkeeping.
	OpVAStart
	OpVAArg
	OpVAEnd
	OpVACopy
)

var opNames = [...]string{
	OpInvalid: "invalid", OpRet: "ret", OpBr: "br", OpSwitch: "switch",
	OpIndirectBr: "indirectbr", OpInvoke: "invoke", OpUnreachable: "unreachable",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpUDiv: "udiv", OpSDiv: "sdiv",
	OpURem: "urem", OpSRem: "srem", OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpFNeg: "fneg", OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul",
	OpFDiv: "fdiv", OpFRem: "frem",
	OpICmp: "icmp", OpFCmp: "fcmp", OpSelect: "select",
	OpExtractElement: "extractelement", OpInsertElement: "insertelement",
	OpShuffleVector: "shufflevector", OpExtractValue: "extractvalue",
	OpInsertValue: "insertvalue",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpGEP: "getelementptr",
	OpTrunc: "trunc", OpZExt: "zext", OpSExt: "sext", OpFPTrunc: "fptrunc",
	OpFPExt: "fpext", OpFPToUI: "fptoui", OpFPToSI: "fptosi",
	OpUIToFP: "uitofp", OpSIToFP: "sitofp", OpPtrToInt: "ptrtoint",
	OpIntToPtr: "inttoptr", OpBitCast: "bitcast",
	OpCall: "call", OpPhi: "phi",
	OpVAStart: "va_start", OpVAArg: "va_arg", OpVAEnd: "va_end", OpVACopy: "va_copy",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// IntPred is an integer comparison predicate. Pointer comparisons use the
// same predicates over the stored address.
type IntPred uint8

const (
	IntEQ IntPred = iota
	IntNE
	IntUGT
	IntUGE
	IntULT
	IntULE
	IntSGT
	IntSGE
	IntSLT
	IntSLE
)

var intPredNames = [...]string{"eq", "ne", "ugt", "uge", "ult", "ule", "sgt", "sge", "slt", "sle"}

func (p IntPred) String() string { return intPredNames[p] }

// FloatPred is an IEEE-754 comparison predicate. Ordered predicates are false
// on any NaN operand; unordered predicates are true on any NaN operand.
type FloatPred uint8

const (
	FloatFalse FloatPred = iota
	FloatOEQ
	FloatOGT
	FloatOGE
	FloatOLT
	FloatOLE
	FloatONE
	FloatORD
	FloatUEQ
	FloatUGT
	FloatUGE
	FloatULT
	FloatULE
	FloatUNE
	FloatUNO
	FloatTrue
)

var floatPredNames = [...]string{
	"false", "oeq", "ogt", "oge", "olt", "ole", "one", "ord",
	"ueq", "ugt", "uge", "ult", "ule", "une", "uno", "true",
}

func (p FloatPred) String() string { return floatPredNames[p] }

// SourceLoc is a source position attached to an instruction by the front end.
type SourceLoc struct {
	Directory string
	File      string
	Line      uint32
	Column    uint32
}

// Incoming is one (value, predecessor) pair of a phi node.
type Incoming struct {
	Value Value
	Pred  *Block
}

// SwitchCase is one (value, destination) pair of a switch instruction.
type SwitchCase struct {
	Value Constant
	Dest  *Block
}

// Inst is a single instruction. Which fields are populated depends on Op;
// Args holds the ordinary operands in instruction order. For calls, Args[0]
// is the callee and the remainder are call arguments.
type Inst struct {
	Op   Op
	Name string // SSA result name, "" when the result is unused or void
	Ty   Type   // result type; Void for non-producing instructions

	Args     []Value
	Blocks   []*Block     // br: [then] or [then, else]; invoke: [normal, unwind]; indirectbr: candidates
	Cases    []SwitchCase // switch only; Blocks[0] is the default destination
	Incoming []Incoming   // phi only
	IPred    IntPred      // icmp
	FPred    FloatPred    // fcmp
	Indices  []uint32     // extractvalue/insertvalue index path
	Mask     []int        // shufflevector; -1 marks an undef lane
	SrcTy    Type         // alloca element type; gep source element type
	FnSig    *FuncType    // call/invoke callee signature
	Align    uint64       // alloca alignment; 0 selects the ABI alignment
	Loc      *SourceLoc

	block *Block
}

// Type returns the instruction's result type.
func (i *Inst) Type() Type {
	if i.Ty == nil {
		return Void
	}
	return i.Ty
}

// Block returns the basic block containing the instruction.
func (i *Inst) Block() *Block { return i.block }

// IsTerminator reports whether the instruction ends a basic block.
func (i *Inst) IsTerminator() bool {
	switch i.Op {
	case OpRet, OpBr, OpSwitch, OpIndirectBr, OpInvoke, OpUnreachable:
		return true
	}
	return false
}

// String renders the instruction in assembly-like form, primarily for
// diagnostics and error traces.
func (i *Inst) String() string {
	var sb strings.Builder
	if i.Name != "" {
		fmt.Fprintf(&sb, "%%%s = ", i.Name)
	}
	sb.WriteString(i.Op.String())
	switch i.Op {
	case OpICmp:
		sb.WriteString(" " + i.IPred.String())
	case OpFCmp:
		sb.WriteString(" " + i.FPred.String())
	}
	if !IsVoid(i.Type()) {
		sb.WriteString(" " + i.Type().String())
	}
	for n, a := range i.Args {
		if n > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" " + ValueString(a))
	}
	for _, b := range i.Blocks {
		fmt.Fprintf(&sb, " label %%%s", b.BlockName)
	}
	return sb.String()
}

// ValueString renders an operand reference the way the instruction printer
// does: SSA names for instructions and parameters, @-names for globals and
// functions, literals for constants.
func ValueString(v Value) string {
	switch v := v.(type) {
	case *Inst:
		if v.Name == "" {
			return "%<tmp>"
		}
		return "%" + v.Name
	case *Param:
		return "%" + v.ParamName
	case *Func:
		return "@" + v.FuncName
	case *Global:
		return "@" + v.GlobalName
	case *Block:
		return "label %" + v.BlockName
	case Constant:
		return v.Literal()
	}
	return "<?>"
}
