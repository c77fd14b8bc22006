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
	"strings"

	"github.com/mirivm/mirivm/ir"
)

// execRet pops the frame and delivers the result to the caller's SSA slot,
// or to the thread's exit slot when the stack drains.
func (in *Interpreter) execRet(inst *ir.Inst, f *Frame) {
	var retTy ir.Type = ir.Void
	var result Value
	if len(inst.Args) > 0 {
		retTy = inst.Args[0].Type()
		result = in.stamp(in.getOperand(inst.Args[0], f), retTy)
	}
	in.popAndReturn(retTy, result)
}

// popAndReturn pops the current frame and passes the result to the frame
// below, switching an invoke caller to its normal successor. With an empty
// stack the result becomes the thread's exit value.
func (in *Interpreter) popAndReturn(retTy ir.Type, result Value) {
	t := in.currentThread()
	t.pop(in)
	in.passReturnToLowerFrame(retTy, result)
}

func (in *Interpreter) passReturnToLowerFrame(retTy ir.Type, result Value) {
	t := in.currentThread()
	if len(t.stack) == 0 {
		if !ir.IsVoid(retTy) {
			t.exit = result
		} else {
			t.exit = Value{}
		}
		return
	}
	caller := t.top()
	if caller.Caller == nil {
		return
	}
	call := caller.Caller
	if !ir.IsVoid(call.Type()) {
		caller.set(call, result)
	}
	if call.Op == ir.OpInvoke {
		in.switchToBlock(call.Blocks[0], caller)
	}
	caller.Caller = nil
}

// execCall evaluates a call or invoke. A callee with live provenance is a
// pointer-typed function reference and goes to the oracle; a direct callee
// with a body pushes a frame; a declaration goes to the oracle by name.
// Either oracle path suspends the thread until the next step delivers the
// pending return.
func (in *Interpreter) execCall(inst *ir.Inst, f *Frame) {
	f.Caller = inst
	args := in.operandValues(inst.Args[1:], f)
	callee := in.getOperand(inst.Args[0], f)

	if callee.Prov.AllocID != 0 {
		o := in.requireOracle()
		if o.CallByPointer(o.Wrapper, callee.Pointer(), args, inst.FnSig.Ret) {
			in.registerFault(inst)
			return
		}
		f.mustResolvePendingReturn = true
		return
	}

	fn, ok := in.funcByAddr[callee.Pointer().Addr]
	if !ok {
		fatalf("call through unknown function address 0x%x", callee.Pointer().Addr)
	}
	if fn.IsDecl() && strings.HasPrefix(fn.FuncName, "llvm.") {
		in.execIntrinsic(inst, fn, args, f)
		return
	}
	in.callFunction(fn, args)
}

// callFunction pushes a frame for fn. Declarations are handed to the oracle
// and the fresh frame is popped immediately, leaving the caller suspended on
// the pending return. Recognized runtime interceptions (exit, atexit) never
// suspend.
func (in *Interpreter) callFunction(fn *ir.Func, args []Value) {
	t := in.currentThread()
	frame := newFrame(fn)
	t.push(frame)

	if fn.IsDecl() {
		in.callExternalFunction(fn, args)
		return
	}

	frame.Block = fn.Entry()
	frame.pc = 0
	if len(args) < len(fn.Params) {
		fatalf("call to @%s with %d arguments, %d required", fn.FuncName, len(args), len(fn.Params))
	}
	for i, p := range fn.Params {
		v := args[i]
		v.Ty = p.Ty
		frame.set(p, v)
	}
	if extra := args[len(fn.Params):]; len(extra) > 0 {
		if !fn.Sig.Variadic {
			fatalf("call to non-variadic @%s with %d extra arguments", fn.FuncName, len(extra))
		}
		frame.varargs = append([]Value(nil), extra...)
	}
}

// callExternalFunction hands a declaration-only callee to the oracle. The
// callee frame exists only for the duration of the hook, mirroring a ret.
func (in *Interpreter) callExternalFunction(fn *ir.Func, args []Value) {
	t := in.currentThread()
	switch fn.FuncName {
	case "exit":
		status := Value{}
		if len(args) > 0 {
			status = args[0]
		}
		in.exitCalled(status)
		return
	case "atexit":
		in.registerAtExit(args)
		t.pop(in)
		if len(t.stack) > 0 {
			caller := t.top()
			if caller.Caller != nil {
				if !ir.IsVoid(caller.Caller.Type()) {
					caller.set(caller.Caller, in.stamp(IntValue(32, 0), ir.I32))
				}
				if caller.Caller.Op == ir.OpInvoke {
					in.switchToBlock(caller.Caller.Blocks[0], caller)
				}
				caller.Caller = nil
			}
		}
		return
	}

	o := in.requireOracle()
	failed := o.CallByName(o.Wrapper, args, fn.FuncName, fn.Sig.Ret)
	t.pop(in)
	if failed {
		in.registerFault(t.topCallerInst())
		return
	}
	if len(t.stack) > 0 {
		t.top().mustResolvePendingReturn = true
	}
}

func (t *Thread) topCallerInst() *ir.Inst {
	if len(t.stack) == 0 {
		return nil
	}
	return t.top().Caller
}

// registerAtExit records a function reference for RunAtExitHandlers. The
// argument is the synthetic function address.
func (in *Interpreter) registerAtExit(args []Value) {
	if len(args) == 0 {
		fatalf("atexit with no handler argument")
	}
	fn, ok := in.funcByAddr[args[0].Pointer().Addr]
	if !ok {
		fatalf("atexit with unknown function address 0x%x", args[0].Pointer().Addr)
	}
	in.atExit = append(in.atExit, fn)
}

// exitCalled implements the exit interception: the current stack is
// abandoned, at-exit handlers run to completion, and the status becomes the
// thread's exit value.
func (in *Interpreter) exitCalled(status Value) {
	t := in.currentThread()
	for len(t.stack) > 0 {
		t.pop(in)
	}
	in.RunAtExitHandlers()
	t.exit = status
}

// RunAtExitHandlers drains the registered at-exit functions in LIFO order,
// running each to completion on the current thread.
func (in *Interpreter) RunAtExitHandlers() {
	for len(in.atExit) > 0 {
		fn := in.atExit[len(in.atExit)-1]
		in.atExit = in.atExit[:len(in.atExit)-1]
		in.callFunction(fn, nil)
		in.Run()
	}
}

// execIntrinsic interprets the intrinsics the engine handles natively and
// delegates everything else to the oracle by name, uniform with external
// calls.
func (in *Interpreter) execIntrinsic(inst *ir.Inst, fn *ir.Func, args []Value, f *Frame) {
	name := fn.FuncName
	base := name
	if i := strings.Index(name[len("llvm."):], "."); i >= 0 {
		base = name[:len("llvm.")+i]
	}
	switch base {
	case "llvm.fabs":
		f.set(inst, in.stamp(execFabs(args[0], inst.Type()), inst.Type()))
	case "llvm.fmuladd", "llvm.fma":
		f.set(inst, in.stamp(execFmuladd(args[0], args[1], args[2], inst.Type()), inst.Type()))
	case "llvm.fshl":
		in.checkFshOperand(inst)
		f.set(inst, in.stamp(execFunnelShift(args[0], args[1], args[2], true), inst.Type()))
	case "llvm.fshr":
		in.checkFshOperand(inst)
		f.set(inst, in.stamp(execFunnelShift(args[0], args[1], args[2], false), inst.Type()))
	case "llvm.is":
		// llvm.is.constant: operands reaching the interpreter are manifest
		// constants exactly when the IR says so.
		_, isConst := inst.Args[1].(ir.Constant)
		f.set(inst, in.stamp(BoolValue(isConst), inst.Type()))
	case "llvm.objectsize":
		// Unknowable at this layer; -1 for max mode is the conservative
		// answer the instruction documents.
		f.set(inst, in.stamp(IntValue(inst.Type().(*ir.IntType).BitSize, ^uint64(0)), inst.Type()))
	case "llvm.memset":
		o := in.requireOracle()
		if o.Memset(o.Wrapper, args[0].Pointer(), int32(args[1].Uint64()), args[2].Uint64()) {
			in.registerFault(inst)
			return
		}
	case "llvm.lifetime", "llvm.dbg", "llvm.assume", "llvm.donothing":
		// Annotation-only; no effect on execution.
	default:
		// No native lowering; hand it to the oracle like any external call.
		in.callFunction(fn, args)
		return
	}
	f.Caller = nil
}

func (in *Interpreter) checkFshOperand(inst *ir.Inst) {
	if _, ok := inst.Type().(*ir.VectorType); ok {
		fatalf("funnel shift intrinsics do not support vectors")
	}
}

// Variadic argument protocol. A va_list is a packed pair of 32-bit indices
// (frame index, argument index) stored through the oracle as one 64-bit
// word; the oracle round-trips the encoding verbatim.

func (in *Interpreter) execVAStart(inst *ir.Inst, f *Frame) {
	t := in.currentThread()
	dst := in.getOperand(inst.Args[0], f)
	pair := PairValue(uint32(len(t.stack)-1), 0)
	in.storeVAList(inst, &pair, dst)
}

func (in *Interpreter) execVACopy(inst *ir.Inst, f *Frame) {
	dst := in.getOperand(inst.Args[0], f)
	src := in.getOperand(inst.Args[1], f)
	pair, ok := in.loadVAList(inst, src)
	if !ok {
		return
	}
	in.storeVAList(inst, &pair, dst)
}

func (in *Interpreter) execVAArg(inst *ir.Inst, f *Frame) {
	t := in.currentThread()
	src := in.getOperand(inst.Args[0], f)
	pair, ok := in.loadVAList(inst, src)
	if !ok {
		return
	}
	frameIdx, argIdx := pair.Pair()
	if uint64(frameIdx) >= uint64(len(t.stack)) {
		fatalf("invalid va_list stack index %d for stack size %d", frameIdx, len(t.stack))
	}
	varargs := t.stack[frameIdx].varargs
	if uint64(argIdx) >= uint64(len(varargs)) {
		fatalf("invalid va_list argument index %d for argument list of size %d", argIdx, len(varargs))
	}
	arg := varargs[argIdx]

	switch in.layout.Lower(inst.Type()).(type) {
	case *ir.IntType, *ir.FloatType, *ir.DoubleType, *ir.PointerType:
		f.set(inst, in.stamp(arg, inst.Type()))
	default:
		fatalf("unhandled type for va_arg instruction: %s", inst.Type())
	}

	next := PairValue(frameIdx, argIdx+1)
	in.storeVAList(inst, &next, src)
}

// storeVAList writes the packed pair through the pointer operand. The store
// is typed at the operand's pointer type, which is always wide enough for
// the 64-bit encoding.
func (in *Interpreter) storeVAList(inst *ir.Inst, pair *Value, dst Value) {
	o := in.requireOracle()
	ty := in.layout.Lower(inst.Args[0].Type())
	if o.Store(o.Wrapper, pair, dst.Pointer(), ty, in.layout.StoreSize(ty), in.layout.ABIAlign(ty)) {
		in.registerFault(inst)
	}
}

func (in *Interpreter) loadVAList(inst *ir.Inst, src Value) (Value, bool) {
	o := in.requireOracle()
	ty := in.layout.Lower(inst.Args[0].Type())
	var pair Value
	if o.Load(o.Wrapper, &pair, src.Pointer(), ty, in.layout.StoreSize(ty), in.layout.ABIAlign(ty)) {
		in.registerFault(inst)
		return Value{}, false
	}
	return pair, true
}
