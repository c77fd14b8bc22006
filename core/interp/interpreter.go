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

// Package interp executes a materialized IR module one instruction at a
// time, delegating all memory effects to an external oracle and carrying
// pointer provenance through every address-bearing value.
package interp

import (
	"sort"

	"github.com/mirivm/mirivm/ir"
	"github.com/mirivm/mirivm/log"
)

// Synthetic address ranges handed out for function and block references.
// The original engine reused host pointers for these; the simulated address
// space instead reserves two high slices that no sane oracle allocation
// reaches.
const (
	funcAddrBase  = uint64(1) << 60
	blockAddrBase = uint64(1) << 61
	addrStride    = 16
)

// Config are the configuration options for the Interpreter.
type Config struct {
	Logger log.Logger // nil selects the package root logger
}

// Interpreter owns the thread table and drives execution. It is not
// goroutine-safe: the driver advances one logical thread at a time.
type Interpreter struct {
	mod    *ir.Module
	layout ir.DataLayout
	cfg    Config
	logger log.Logger

	oracle *Oracle

	threads   map[uint64]*Thread
	curThread uint64

	errFlag   bool
	errThread uint64
	traces    []ErrorTrace
	faultInst string

	atExit []*ir.Func

	globals    map[*ir.Global]Ptr
	funcAddrs  map[*ir.Func]uint64
	funcByAddr map[uint64]*ir.Func
	blockAddrs map[*ir.Block]uint64
	blockByAdr map[uint64]*ir.Block
}

// NewInterpreter builds an interpreter over a materialized module. An oracle
// must be registered before any thread is created.
func NewInterpreter(mod *ir.Module, cfg Config) *Interpreter {
	in := &Interpreter{
		mod:        mod,
		layout:     mod.Layout,
		cfg:        cfg,
		logger:     cfg.Logger,
		threads:    make(map[uint64]*Thread),
		globals:    make(map[*ir.Global]Ptr),
		funcAddrs:  make(map[*ir.Func]uint64),
		funcByAddr: make(map[uint64]*ir.Func),
		blockAddrs: make(map[*ir.Block]uint64),
		blockByAdr: make(map[uint64]*ir.Block),
	}
	if in.logger == nil {
		in.logger = log.Root()
	}
	for i, f := range mod.Funcs {
		addr := funcAddrBase + uint64(i)*addrStride
		in.funcAddrs[f] = addr
		in.funcByAddr[addr] = f
	}
	return in
}

// Module returns the module under execution.
func (in *Interpreter) Module() *ir.Module { return in.mod }

// RegisterOracle installs the memory oracle. The wrapper inside is borrowed;
// the interpreter never frees it.
func (in *Interpreter) RegisterOracle(o *Oracle) {
	in.oracle = o
}

func (in *Interpreter) requireOracle() *Oracle {
	if in.oracle == nil {
		fatalf("no oracle registered")
	}
	return in.oracle
}

func (in *Interpreter) funcAddr(f *ir.Func) uint64 {
	return in.funcAddrs[f]
}

func (in *Interpreter) blockAddr(b *ir.Block) uint64 {
	if a, ok := in.blockAddrs[b]; ok {
		return a
	}
	a := blockAddrBase + uint64(len(in.blockAddrs))*addrStride
	in.blockAddrs[b] = a
	in.blockByAdr[a] = b
	return a
}

// InitGlobals allocates every module global through the oracle, writes its
// initializer and registers the (name, size, pointer) triple with the
// register-global hook. It must run before any global reference is resolved.
func (in *Interpreter) InitGlobals() {
	o := in.requireOracle()
	// Allocate first so that initializers may refer to any global.
	for _, g := range in.mod.Globals {
		ty := in.layout.Lower(g.ValTy)
		size := in.layout.AllocSize(ty)
		align := g.Align
		if align == 0 {
			align = in.layout.ABIAlign(ty)
		}
		p := o.Malloc(o.Wrapper, size, align, false)
		oracleAllocCounter.Inc(1)
		in.globals[g] = p
	}
	for _, g := range in.mod.Globals {
		p := in.globals[g]
		ty := in.layout.Lower(g.ValTy)
		size := in.layout.AllocSize(ty)
		if failed := in.writeInitializer(g, p, ty); failed {
			in.registerFault(nil)
			return
		}
		if o.RegisterGlobal != nil {
			if o.RegisterGlobal(o.Wrapper, g.GlobalName, size, p) {
				in.registerFault(nil)
				return
			}
		}
		in.logger.Debug("global initialized", "name", g.GlobalName, "addr", p.Addr, "size", size)
	}
}

// writeInitializer materializes a global's initial contents: memset for
// zero-initializers, memcpy for byte blobs, the typed store hook otherwise.
func (in *Interpreter) writeInitializer(g *ir.Global, p Ptr, ty ir.Type) bool {
	o := in.requireOracle()
	size := in.layout.AllocSize(ty)
	switch init := g.Init.(type) {
	case nil:
		return false
	case *ir.ZeroConst:
		return o.Memset(o.Wrapper, p, 0, size)
	case *ir.AggregateConst:
		if data, ok := init.ByteData(); ok {
			return o.Memcpy(o.Wrapper, p, data)
		}
	}
	v := in.constantValue(g.Init)
	return o.Store(o.Wrapper, &v, p, ty, in.layout.StoreSize(ty), in.layout.ABIAlign(ty))
}

// ctorEntry is one decoded element of a constructor/destructor array.
type ctorEntry struct {
	priority uint64
	fn       *ir.Func
}

// Ctors returns the module's constructor list in stable priority order.
func (in *Interpreter) Ctors() []*ir.Func { return in.ctorList("llvm.global_ctors") }

// Dtors returns the module's destructor list in stable priority order.
func (in *Interpreter) Dtors() []*ir.Func { return in.ctorList("llvm.global_dtors") }

// ctorList decodes a module-level appending array of {priority, func, data}
// structs. The driver issues the calls itself through CreateThread/StepThread.
func (in *Interpreter) ctorList(name string) []*ir.Func {
	g := in.mod.Global(name)
	if g == nil {
		return nil
	}
	arr, ok := g.Init.(*ir.AggregateConst)
	if !ok {
		return nil
	}
	entries := make([]ctorEntry, 0, len(arr.Elems))
	for _, e := range arr.Elems {
		s, ok := e.(*ir.AggregateConst)
		if !ok || len(s.Elems) < 2 {
			fatalf("malformed entry in @%s", name)
		}
		prio, ok := s.Elems[0].(*ir.IntConst)
		if !ok {
			fatalf("malformed priority in @%s", name)
		}
		fn, ok := s.Elems[1].(*ir.Func)
		if !ok {
			fatalf("malformed function reference in @%s", name)
		}
		entries = append(entries, ctorEntry{priority: prio.V.Uint64(), fn: fn})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].priority < entries[j].priority })
	out := make([]*ir.Func, len(entries))
	for i, e := range entries {
		out[i] = e.fn
	}
	return out
}

// Run drains the current thread: one instruction per iteration until the
// stack empties or a memory error is latched.
func (in *Interpreter) Run() {
	t := in.currentThread()
	for len(t.stack) > 0 {
		in.step()
		if in.errFlag {
			break
		}
	}
}

// step executes the next instruction of the current thread's top frame. The
// cursor advances before dispatch so that terminators and calls can redirect
// it.
func (in *Interpreter) step() {
	f := in.currentThread().top()
	if f.Block == nil || f.pc >= len(f.Block.Insts) {
		fatalf("instruction cursor ran off block %q in @%s", blockName(f.Block), f.Fn.FuncName)
	}
	inst := f.Block.Insts[f.pc]
	f.pc++
	f.prev = inst
	stepCounter.Inc(1)
	in.dispatch(inst, f)
}

func blockName(b *ir.Block) string {
	if b == nil {
		return "<nil>"
	}
	return b.BlockName
}

// dispatch executes one instruction. The op set is closed; anything not
// handled here is a malformed module.
func (in *Interpreter) dispatch(inst *ir.Inst, f *Frame) {
	switch inst.Op {
	case ir.OpRet:
		in.execRet(inst, f)
	case ir.OpBr:
		in.execBr(inst, f)
	case ir.OpSwitch:
		in.execSwitch(inst, f)
	case ir.OpIndirectBr:
		in.execIndirectBr(inst, f)
	case ir.OpUnreachable:
		fatalf("program executed an 'unreachable' instruction")
	case ir.OpPhi:
		fatalf("phi reached the dispatcher; block entry should have consumed it")

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
		ir.OpShl, ir.OpLShr, ir.OpAShr, ir.OpAnd, ir.OpOr, ir.OpXor,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv, ir.OpFRem:
		a := in.getOperand(inst.Args[0], f)
		b := in.getOperand(inst.Args[1], f)
		f.set(inst, in.stamp(execBinOp(inst.Op, a, b, inst.Type()), inst.Type()))

	case ir.OpFNeg:
		a := in.getOperand(inst.Args[0], f)
		f.set(inst, in.stamp(execFNeg(a, inst.Type()), inst.Type()))

	case ir.OpICmp:
		a := in.getOperand(inst.Args[0], f)
		b := in.getOperand(inst.Args[1], f)
		f.set(inst, in.stamp(execICmp(inst.IPred, a, b, inst.Args[0].Type()), inst.Type()))

	case ir.OpFCmp:
		a := in.getOperand(inst.Args[0], f)
		b := in.getOperand(inst.Args[1], f)
		f.set(inst, in.stamp(execFCmp(inst.FPred, a, b, inst.Args[0].Type()), inst.Type()))

	case ir.OpSelect:
		cond := in.getOperand(inst.Args[0], f)
		t := in.getOperand(inst.Args[1], f)
		e := in.getOperand(inst.Args[2], f)
		f.set(inst, in.stamp(execSelect(cond, t, e, inst.Args[0].Type()), inst.Type()))

	case ir.OpExtractElement:
		vec := in.getOperand(inst.Args[0], f)
		idx := in.getOperand(inst.Args[1], f)
		f.set(inst, in.stamp(execExtractElement(vec, idx), inst.Type()))

	case ir.OpInsertElement:
		vec := in.getOperand(inst.Args[0], f)
		elem := in.getOperand(inst.Args[1], f)
		idx := in.getOperand(inst.Args[2], f)
		f.set(inst, in.stamp(execInsertElement(vec, elem, idx), inst.Type()))

	case ir.OpShuffleVector:
		a := in.getOperand(inst.Args[0], f)
		b := in.getOperand(inst.Args[1], f)
		f.set(inst, in.stamp(execShuffleVector(a, b, inst.Mask), inst.Type()))

	case ir.OpExtractValue:
		agg := in.getOperand(inst.Args[0], f)
		f.set(inst, in.stamp(execExtractValue(agg, inst.Indices), inst.Type()))

	case ir.OpInsertValue:
		agg := in.getOperand(inst.Args[0], f)
		elem := in.getOperand(inst.Args[1], f)
		f.set(inst, in.stamp(execInsertValue(agg, elem, inst.Indices), inst.Type()))

	case ir.OpAlloca:
		in.execAlloca(inst, f)
	case ir.OpLoad:
		in.execLoad(inst, f)
	case ir.OpStore:
		in.execStore(inst, f)
	case ir.OpGEP:
		base := in.getOperand(inst.Args[0], f)
		v := in.execGEP(inst.SrcTy, base, in.operandValues(inst.Args[1:], f))
		f.set(inst, in.stamp(v, inst.Type()))

	case ir.OpTrunc, ir.OpZExt, ir.OpSExt, ir.OpFPTrunc, ir.OpFPExt,
		ir.OpFPToUI, ir.OpFPToSI, ir.OpUIToFP, ir.OpSIToFP,
		ir.OpPtrToInt, ir.OpIntToPtr, ir.OpBitCast:
		v := in.getOperand(inst.Args[0], f)
		f.set(inst, in.stamp(in.execCast(inst.Op, v, inst.Args[0].Type(), inst.Type()), inst.Type()))

	case ir.OpCall, ir.OpInvoke:
		in.execCall(inst, f)

	case ir.OpVAStart:
		in.execVAStart(inst, f)
	case ir.OpVAArg:
		in.execVAArg(inst, f)
	case ir.OpVAEnd:
		// No bookkeeping to tear down.
	case ir.OpVACopy:
		in.execVACopy(inst, f)

	default:
		fatalf("instruction not interpretable: %s", inst.Op)
	}
}

// stamp tags a kernel result with its IR type.
func (in *Interpreter) stamp(v Value, ty ir.Type) Value {
	v.Ty = ty
	return v
}

func (in *Interpreter) operandValues(args []ir.Value, f *Frame) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = in.getOperand(a, f)
	}
	return out
}

// execCast runs the cast kernels; pointer/integer conversions detour through
// the oracle.
func (in *Interpreter) execCast(op ir.Op, v Value, from, to ir.Type) Value {
	switch op {
	case ir.OpTrunc:
		return execTrunc(v, from, to)
	case ir.OpZExt:
		return execZExt(v, from, to)
	case ir.OpSExt:
		return execSExt(v, from, to)
	case ir.OpFPTrunc:
		return execFPTrunc(v, from, to)
	case ir.OpFPExt:
		return execFPExt(v, from, to)
	case ir.OpFPToUI:
		return execFPToUI(v, from, to)
	case ir.OpFPToSI:
		return execFPToSI(v, from, to)
	case ir.OpUIToFP:
		return execUIToFP(v, from, to)
	case ir.OpSIToFP:
		return execSIToFP(v, from, to)
	case ir.OpPtrToInt:
		o := in.requireOracle()
		raw := o.PtrToInt(o.Wrapper, v.Pointer())
		return IntValue(to.(*ir.IntType).BitSize, raw)
	case ir.OpIntToPtr:
		o := in.requireOracle()
		w := execZExt(v, from, ir.I64)
		return PointerValue(o.IntToPtr(o.Wrapper, w.Uint64()))
	case ir.OpBitCast:
		return execBitCast(v, from, to, in.layout)
	}
	fatalf("invalid cast op %s", op)
	return Value{}
}

// execGEP walks the indexed types: struct indices add the field offset,
// sequence indices scale the element stride by a signed 32- or 64-bit index.
// The accumulated byte delta is applied by the oracle's gep hook.
func (in *Interpreter) execGEP(srcTy ir.Type, base Value, indices []Value) Value {
	var delta uint64
	if len(indices) > 0 {
		delta += in.layout.AllocSize(srcTy) * signedIndex(indices[0])
	}
	cur := srcTy
	for _, idx := range indices[1:] {
		switch t := in.layout.Lower(cur).(type) {
		case *ir.StructType:
			field := idx.Uint64()
			offs := in.layout.FieldOffsets(t)
			if field >= uint64(len(offs)) {
				fatalf("getelementptr struct index %d out of range", field)
			}
			delta += offs[field]
			cur = t.Fields[field]
		case *ir.ArrayType:
			delta += in.layout.AllocSize(t.Elem) * signedIndex(idx)
			cur = t.Elem
		case *ir.VectorType:
			delta += in.layout.AllocSize(t.Elem) * signedIndex(idx)
			cur = t.Elem
		default:
			fatalf("getelementptr through non-aggregate type %s", cur)
		}
	}
	o := in.requireOracle()
	return PointerValue(o.Gep(o.Wrapper, base.Pointer(), delta))
}

// signedIndex widens a 32- or 64-bit index to a wrapping uint64 with sign.
func signedIndex(v Value) uint64 {
	if v.Bits == 32 {
		return uint64(int64(int32(v.Uint64())))
	}
	return v.Uint64()
}

// Control flow.

func (in *Interpreter) execBr(inst *ir.Inst, f *Frame) {
	dest := inst.Blocks[0]
	if len(inst.Args) > 0 { // conditional on bit zero
		cond := in.getOperand(inst.Args[0], f)
		if cond.IsZeroInt() {
			dest = inst.Blocks[1]
		}
	}
	in.switchToBlock(dest, f)
}

func (in *Interpreter) execSwitch(inst *ir.Inst, f *Frame) {
	cond := in.getOperand(inst.Args[0], f)
	dest := inst.Blocks[0] // default
	for _, c := range inst.Cases {
		cv := in.constantValue(c.Value)
		if icmpScalar(ir.IntEQ, cond, cv) {
			dest = c.Dest
			break
		}
	}
	in.switchToBlock(dest, f)
}

func (in *Interpreter) execIndirectBr(inst *ir.Inst, f *Frame) {
	addr := in.getOperand(inst.Args[0], f)
	dest, ok := in.blockByAdr[addr.Pointer().Addr]
	if !ok {
		fatalf("indirectbr to unknown block address 0x%x", addr.Pointer().Addr)
	}
	in.switchToBlock(dest, f)
}

// switchToBlock jumps to dest and evaluates its leading phi nodes
// atomically: all incoming values are read against the predecessor before
// any result is written. The cursor is left after the phis.
func (in *Interpreter) switchToBlock(dest *ir.Block, f *Frame) {
	prev := f.Block
	f.Block = dest
	f.pc = 0

	n := 0
	for n < len(dest.Insts) && dest.Insts[n].Op == ir.OpPhi {
		n++
	}
	if n == 0 {
		return
	}
	results := make([]Value, n)
	for i := 0; i < n; i++ {
		phi := dest.Insts[i]
		found := false
		for _, inc := range phi.Incoming {
			if inc.Pred == prev {
				results[i] = in.stamp(in.getOperand(inc.Value, f), phi.Type())
				found = true
				break
			}
		}
		if !found {
			fatalf("phi in block %q has no entry for predecessor %q", dest.BlockName, blockName(prev))
		}
	}
	for i := 0; i < n; i++ {
		f.set(dest.Insts[i], results[i])
	}
	f.pc = n
}

// Memory instructions.

func (in *Interpreter) execAlloca(inst *ir.Inst, f *Frame) {
	o := in.requireOracle()
	nVal := in.getOperand(inst.Args[0], f)
	n := nVal.Uint64()
	size := n * in.layout.AllocSize(inst.SrcTy)
	if size == 0 {
		size = 1
	}
	align := inst.Align
	if align == 0 {
		align = in.layout.ABIAlign(inst.SrcTy)
	}
	p := o.Malloc(o.Wrapper, size, align, false)
	oracleAllocCounter.Inc(1)
	if p.IsNull() {
		fatalf("null pointer returned by oracle malloc")
	}
	f.allocas.add(p)
	f.set(inst, in.stamp(PointerValue(p), inst.Type()))
}

func (in *Interpreter) execLoad(inst *ir.Inst, f *Frame) {
	o := in.requireOracle()
	src := in.getOperand(inst.Args[0], f)
	ty := in.layout.Lower(inst.Type())
	var out Value
	if o.Load(o.Wrapper, &out, src.Pointer(), ty, in.layout.StoreSize(ty), in.layout.ABIAlign(ty)) {
		in.registerFault(inst)
		return
	}
	f.set(inst, in.stamp(out, inst.Type()))
}

func (in *Interpreter) execStore(inst *ir.Inst, f *Frame) {
	o := in.requireOracle()
	val := in.getOperand(inst.Args[0], f)
	dst := in.getOperand(inst.Args[1], f)
	ty := in.layout.Lower(inst.Args[0].Type())
	if o.Store(o.Wrapper, &val, dst.Pointer(), ty, in.layout.StoreSize(ty), in.layout.ABIAlign(ty)) {
		in.registerFault(inst)
	}
}
