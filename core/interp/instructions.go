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
	"math"

	"github.com/holiman/uint256"
	"github.com/mirivm/mirivm/ir"
)

// Operator kernels. These are pure value-to-value functions; anything that
// touches the oracle (loads, stores, gep application, pointer casts) lives in
// the dispatcher instead.

// shiftAmount applies the shift-amount rule: amounts below the operand width
// pass through; anything else is masked by next_power_of_two(width-1)-1.
func shiftAmount(amt uint64, width uint32) uint {
	if amt < uint64(width) {
		return uint(amt)
	}
	return uint((nextPow2u64(uint64(width)-1) - 1) & amt)
}

func nextPow2u64(n uint64) uint64 {
	p := uint64(1)
	for p <= n {
		p <<= 1
	}
	return p
}

// execBinOp evaluates an integer, floating or vector two-operand operation.
func execBinOp(op ir.Op, a, b Value, ty ir.Type) Value {
	if vt, ok := ty.(*ir.VectorType); ok {
		elems := make([]Value, len(a.Agg))
		for i := range a.Agg {
			elems[i] = execBinOp(op, a.Agg[i], b.Agg[i], vt.Elem)
		}
		return AggregateValue(elems)
	}
	switch op {
	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv, ir.OpFRem:
		return binFloat(op, a, b, ty)
	}
	return binInt(op, a, b)
}

func binInt(op ir.Op, a, b Value) Value {
	bits := a.Bits
	r := Value{kind: KindInt, Bits: bits}
	switch op {
	case ir.OpAdd:
		r.X.Add(&a.X, &b.X)
	case ir.OpSub:
		r.X.Sub(&a.X, &b.X)
	case ir.OpMul:
		r.X.Mul(&a.X, &b.X)
	case ir.OpUDiv:
		r.X.Div(&a.X, &b.X)
	case ir.OpURem:
		r.X.Mod(&a.X, &b.X)
	case ir.OpSDiv:
		var x, y uint256.Int
		x.Set(&a.X)
		y.Set(&b.X)
		signExtend(&x, bits)
		signExtend(&y, bits)
		r.X.SDiv(&x, &y)
	case ir.OpSRem:
		var x, y uint256.Int
		x.Set(&a.X)
		y.Set(&b.X)
		signExtend(&x, bits)
		signExtend(&y, bits)
		r.X.SMod(&x, &y)
	case ir.OpAnd:
		r.X.And(&a.X, &b.X)
	case ir.OpOr:
		r.X.Or(&a.X, &b.X)
	case ir.OpXor:
		r.X.Xor(&a.X, &b.X)
	case ir.OpShl:
		r.X.Lsh(&a.X, shiftAmount(b.X.Uint64(), bits))
	case ir.OpLShr:
		r.X.Rsh(&a.X, shiftAmount(b.X.Uint64(), bits))
	case ir.OpAShr:
		var x uint256.Int
		x.Set(&a.X)
		signExtend(&x, bits)
		r.X.SRsh(&x, shiftAmount(b.X.Uint64(), bits))
	default:
		fatalf("unsupported integer op %s", op)
	}
	maskTo(&r.X, bits)
	return r
}

func binFloat(op ir.Op, a, b Value, ty ir.Type) Value {
	switch ty.(type) {
	case *ir.FloatType:
		x, y := a.F32, b.F32
		switch op {
		case ir.OpFAdd:
			return FloatValue(x + y)
		case ir.OpFSub:
			return FloatValue(x - y)
		case ir.OpFMul:
			return FloatValue(x * y)
		case ir.OpFDiv:
			return FloatValue(x / y)
		case ir.OpFRem:
			return FloatValue(float32(math.Mod(float64(x), float64(y))))
		}
	case *ir.DoubleType:
		x, y := a.F64, b.F64
		switch op {
		case ir.OpFAdd:
			return DoubleValue(x + y)
		case ir.OpFSub:
			return DoubleValue(x - y)
		case ir.OpFMul:
			return DoubleValue(x * y)
		case ir.OpFDiv:
			return DoubleValue(x / y)
		case ir.OpFRem:
			return DoubleValue(math.Mod(x, y))
		}
	}
	fatalf("unsupported floating op %s on %s", op, ty)
	return Value{}
}

// execFNeg negates a scalar or vector floating value.
func execFNeg(a Value, ty ir.Type) Value {
	switch t := ty.(type) {
	case *ir.VectorType:
		elems := make([]Value, len(a.Agg))
		for i := range a.Agg {
			elems[i] = execFNeg(a.Agg[i], t.Elem)
		}
		return AggregateValue(elems)
	case *ir.FloatType:
		return FloatValue(-a.F32)
	case *ir.DoubleType:
		return DoubleValue(-a.F64)
	}
	fatalf("fneg on non-floating type %s", ty)
	return Value{}
}

// execICmp evaluates an integer or pointer comparison, element-wise over
// vectors. Pointer operands compare by stored address; provenance does not
// participate.
func execICmp(pred ir.IntPred, a, b Value, ty ir.Type) Value {
	if vt, ok := ty.(*ir.VectorType); ok {
		elems := make([]Value, len(a.Agg))
		for i := range a.Agg {
			elems[i] = execICmp(pred, a.Agg[i], b.Agg[i], vt.Elem)
		}
		return AggregateValue(elems)
	}
	return BoolValue(icmpScalar(pred, a, b))
}

func icmpScalar(pred ir.IntPred, a, b Value) bool {
	x, y, bits := cmpWord(a), cmpWord(b), cmpWidth(a)
	switch pred {
	case ir.IntEQ:
		return x.Eq(y)
	case ir.IntNE:
		return !x.Eq(y)
	case ir.IntULT:
		return x.Lt(y)
	case ir.IntULE:
		return !y.Lt(x)
	case ir.IntUGT:
		return y.Lt(x)
	case ir.IntUGE:
		return !x.Lt(y)
	}
	signExtend(x, bits)
	signExtend(y, bits)
	switch pred {
	case ir.IntSLT:
		return x.Slt(y)
	case ir.IntSLE:
		return !y.Slt(x)
	case ir.IntSGT:
		return x.Sgt(y)
	case ir.IntSGE:
		return !x.Slt(y)
	}
	fatalf("unknown icmp predicate %d", pred)
	return false
}

func cmpWord(v Value) *uint256.Int {
	if v.kind == KindPointer {
		return uint256.NewInt(v.Addr)
	}
	w := new(uint256.Int)
	w.Set(&v.X)
	return w
}

func cmpWidth(v Value) uint32 {
	if v.kind == KindPointer {
		return 64
	}
	return v.Bits
}

// execFCmp evaluates a floating comparison, element-wise over vectors. NaN
// lanes are resolved by the predicate's ordering before the scalar compare.
func execFCmp(pred ir.FloatPred, a, b Value, ty ir.Type) Value {
	if vt, ok := ty.(*ir.VectorType); ok {
		elems := make([]Value, len(a.Agg))
		for i := range a.Agg {
			elems[i] = execFCmp(pred, a.Agg[i], b.Agg[i], vt.Elem)
		}
		return AggregateValue(elems)
	}
	return BoolValue(fcmpScalar(pred, floatOf(a, ty), floatOf(b, ty)))
}

func floatOf(v Value, ty ir.Type) float64 {
	if _, ok := ty.(*ir.FloatType); ok {
		return float64(v.F32)
	}
	return v.F64
}

func fcmpScalar(pred ir.FloatPred, x, y float64) bool {
	nan := math.IsNaN(x) || math.IsNaN(y)
	switch pred {
	case ir.FloatFalse:
		return false
	case ir.FloatTrue:
		return true
	case ir.FloatORD:
		return !nan
	case ir.FloatUNO:
		return nan
	}
	ordered := pred >= ir.FloatOEQ && pred <= ir.FloatONE
	if nan {
		// Any NaN operand decides: false for ordered, true for unordered.
		return !ordered
	}
	switch pred {
	case ir.FloatOEQ, ir.FloatUEQ:
		return x == y
	case ir.FloatONE, ir.FloatUNE:
		return x != y
	case ir.FloatOLT, ir.FloatULT:
		return x < y
	case ir.FloatOLE, ir.FloatULE:
		return x <= y
	case ir.FloatOGT, ir.FloatUGT:
		return x > y
	case ir.FloatOGE, ir.FloatUGE:
		return x >= y
	}
	fatalf("unknown fcmp predicate %d", pred)
	return false
}

// execSelect picks t or f by cond's bit zero; vectors select element-wise and
// the chosen element's provenance rides along with the copy.
func execSelect(cond, t, f Value, condTy ir.Type) Value {
	if _, ok := condTy.(*ir.VectorType); ok {
		elems := make([]Value, len(cond.Agg))
		for i := range cond.Agg {
			if cond.Agg[i].IsZeroInt() {
				elems[i] = f.Agg[i]
			} else {
				elems[i] = t.Agg[i]
			}
		}
		return AggregateValue(elems)
	}
	if cond.IsZeroInt() {
		return f
	}
	return t
}

// execExtractElement reads one vector lane.
func execExtractElement(vec, idx Value) Value {
	i := idx.Uint64()
	if i >= uint64(len(vec.Agg)) {
		fatalf("extractelement index %d out of range for %d lanes", i, len(vec.Agg))
	}
	return vec.Agg[i]
}

// execInsertElement writes one vector lane, copying the rest.
func execInsertElement(vec, elem, idx Value) Value {
	i := idx.Uint64()
	if i >= uint64(len(vec.Agg)) {
		fatalf("insertelement index %d out of range for %d lanes", i, len(vec.Agg))
	}
	elems := make([]Value, len(vec.Agg))
	copy(elems, vec.Agg)
	elems[i] = elem
	return AggregateValue(elems)
}

// execShuffleVector gathers lanes from two source vectors by mask. Undef
// entries clamp to lane zero; an entry past both sources is fatal.
func execShuffleVector(a, b Value, mask []int) Value {
	n1, n2 := len(a.Agg), len(b.Agg)
	elems := make([]Value, len(mask))
	for i, m := range mask {
		if m < 0 {
			m = 0
		}
		switch {
		case m < n1:
			elems[i] = a.Agg[m]
		case m < n1+n2:
			elems[i] = b.Agg[m-n1]
		default:
			fatalf("shufflevector mask entry %d out of range for %d+%d lanes", m, n1, n2)
		}
	}
	return AggregateValue(elems)
}

// execExtractValue walks a fixed index path through nested aggregates.
func execExtractValue(agg Value, indices []uint32) Value {
	cur := &agg
	for _, idx := range indices {
		if int(idx) >= len(cur.Agg) {
			fatalf("extractvalue index %d out of range for %d elements", idx, len(cur.Agg))
		}
		cur = &cur.Agg[idx]
	}
	return *cur
}

// execInsertValue returns agg with the element at the index path replaced.
func execInsertValue(agg, elem Value, indices []uint32) Value {
	out := deepCopyValue(agg)
	cur := &out
	for _, idx := range indices {
		if int(idx) >= len(cur.Agg) {
			fatalf("insertvalue index %d out of range for %d elements", idx, len(cur.Agg))
		}
		cur = &cur.Agg[idx]
	}
	*cur = elem
	return out
}

func deepCopyValue(v Value) Value {
	if v.kind != KindAggregate {
		return v
	}
	elems := make([]Value, len(v.Agg))
	for i := range v.Agg {
		elems[i] = deepCopyValue(v.Agg[i])
	}
	v.Agg = elems
	return v
}

// Casts. Each kernel is vector-aware; the scalar paths mirror the width and
// signedness rules of the instruction set.

func execTrunc(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		return IntValue256(dst.(*ir.IntType).BitSize, &lane.X)
	})
}

func execZExt(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		return IntValue256(dst.(*ir.IntType).BitSize, &lane.X)
	})
}

func execSExt(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		var x uint256.Int
		x.Set(&lane.X)
		signExtend(&x, lane.Bits)
		return IntValue256(dst.(*ir.IntType).BitSize, &x)
	})
}

func execFPTrunc(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		return FloatValue(float32(lane.F64))
	})
}

func execFPExt(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		return DoubleValue(float64(lane.F32))
	})
}

func execFPToUI(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		srcTy := scalarOf(from)
		return floatToUnsigned(floatOf(lane, srcTy), dst.(*ir.IntType).BitSize)
	})
}

func execFPToSI(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		srcTy := scalarOf(from)
		return floatToSigned(floatOf(lane, srcTy), dst.(*ir.IntType).BitSize)
	})
}

func execUIToFP(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		f := intToFloat(&lane.X)
		if _, ok := dst.(*ir.FloatType); ok {
			return FloatValue(float32(f))
		}
		return DoubleValue(f)
	})
}

func execSIToFP(v Value, from, to ir.Type) Value {
	return mapLanes(v, from, to, func(lane Value, dst ir.Type) Value {
		f := signedToFloat(&lane.X, lane.Bits)
		if _, ok := dst.(*ir.FloatType); ok {
			return FloatValue(float32(f))
		}
		return DoubleValue(f)
	})
}

// mapLanes applies a scalar cast across a vector, or directly for scalars.
func mapLanes(v Value, from, to ir.Type, fn func(lane Value, dst ir.Type) Value) Value {
	if _, ok := from.(*ir.VectorType); ok {
		dstElem := to.(*ir.VectorType).Elem
		elems := make([]Value, len(v.Agg))
		for i := range v.Agg {
			elems[i] = fn(v.Agg[i], dstElem)
		}
		return AggregateValue(elems)
	}
	return fn(v, to)
}

func scalarOf(t ir.Type) ir.Type {
	if vt, ok := t.(*ir.VectorType); ok {
		return vt.Elem
	}
	return t
}

// execBitCast reshapes a value between equal-total-width types. Lane bits
// are concatenated in layout endianness into a single word, repartitioned to
// the destination lane width and recomposed. Pointer-to-pointer bitcasts
// pass through with provenance intact; any other pointer participation is
// unsupported.
func execBitCast(v Value, from, to ir.Type, dl ir.DataLayout) Value {
	from, to = dl.Lower(from), dl.Lower(to)
	if _, ok := from.(*ir.PointerType); ok {
		if _, ok := to.(*ir.PointerType); ok {
			return v
		}
		fatalf("bitcast between pointer and %s", to)
	}
	if _, ok := to.(*ir.PointerType); ok {
		fatalf("bitcast between %s and pointer", from)
	}

	srcWidths, srcLanes := bitLanes(v, from)
	dstScalar, dstCount := laneShape(to)
	dstWidth := scalarBitWidth(dstScalar)
	if srcWidths*uint64(len(srcLanes)) != dstWidth*uint64(dstCount) {
		fatalf("bitcast between %s and %s of different widths", from, to)
	}
	total := dstWidth * uint64(dstCount)
	if total > 256 {
		fatalf("bitcast wider than 256 bits unsupported (%d)", total)
	}

	// Pack source lanes into one word.
	var buf uint256.Int
	for i, lane := range srcLanes {
		pos := uint64(i)
		if dl.BigEndian {
			pos = uint64(len(srcLanes)-1) - pos
		}
		var sh uint256.Int
		sh.Lsh(&lane, uint(pos*srcWidths))
		buf.Or(&buf, &sh)
	}

	// Repartition into destination lanes.
	out := make([]Value, dstCount)
	var m uint256.Int
	for j := 0; j < dstCount; j++ {
		pos := uint64(j)
		if dl.BigEndian {
			pos = uint64(dstCount-1) - pos
		}
		m.Rsh(&buf, uint(pos*dstWidth))
		maskTo(&m, uint32(dstWidth))
		out[j] = laneToValue(&m, dstScalar)
	}
	if _, ok := to.(*ir.VectorType); ok {
		return AggregateValue(out)
	}
	return out[0]
}

// bitLanes decomposes a value into uniform-width integer lanes.
func bitLanes(v Value, ty ir.Type) (width uint64, lanes []uint256.Int) {
	if vt, ok := ty.(*ir.VectorType); ok {
		width = scalarBitWidth(vt.Elem)
		lanes = make([]uint256.Int, len(v.Agg))
		for i := range v.Agg {
			lanes[i] = laneBits(v.Agg[i], vt.Elem)
		}
		return width, lanes
	}
	return scalarBitWidth(ty), []uint256.Int{laneBits(v, ty)}
}

func laneBits(v Value, ty ir.Type) uint256.Int {
	var w uint256.Int
	switch ty.(type) {
	case *ir.IntType:
		w.Set(&v.X)
	case *ir.FloatType:
		w.SetUint64(uint64(math.Float32bits(v.F32)))
	case *ir.DoubleType:
		w.SetUint64(math.Float64bits(v.F64))
	default:
		fatalf("bitcast lane of unsupported type %s", ty)
	}
	return w
}

func laneToValue(w *uint256.Int, ty ir.Type) Value {
	switch t := ty.(type) {
	case *ir.IntType:
		return IntValue256(t.BitSize, w)
	case *ir.FloatType:
		return FloatValue(math.Float32frombits(uint32(w.Uint64())))
	case *ir.DoubleType:
		return DoubleValue(math.Float64frombits(w.Uint64()))
	}
	fatalf("bitcast lane of unsupported type %s", ty)
	return Value{}
}

func laneShape(t ir.Type) (scalar ir.Type, count int) {
	if vt, ok := t.(*ir.VectorType); ok {
		return vt.Elem, vt.Len
	}
	return t, 1
}

func scalarBitWidth(t ir.Type) uint64 {
	switch t := t.(type) {
	case *ir.IntType:
		return uint64(t.BitSize)
	case *ir.FloatType:
		return 32
	case *ir.DoubleType:
		return 64
	}
	fatalf("no bit width for type %s", t)
	return 0
}

// Intrinsic kernels.

// execFabs takes the magnitude of a float, double or integer value.
func execFabs(v Value, ty ir.Type) Value {
	switch ty.(type) {
	case *ir.FloatType:
		return FloatValue(float32(math.Abs(float64(v.F32))))
	case *ir.DoubleType:
		return DoubleValue(math.Abs(v.F64))
	case *ir.IntType:
		if isNegative(&v.X, v.Bits) {
			var x uint256.Int
			x.Set(&v.X)
			signExtend(&x, v.Bits)
			x.Neg(&x)
			return IntValue256(v.Bits, &x)
		}
		return v
	}
	fatalf("fabs on unsupported type %s", ty)
	return Value{}
}

// execFmuladd fuses a multiply-add with a single rounding.
func execFmuladd(a, b, c Value, ty ir.Type) Value {
	switch ty.(type) {
	case *ir.FloatType:
		return FloatValue(float32(math.FMA(float64(a.F32), float64(b.F32), float64(c.F32))))
	case *ir.DoubleType:
		return DoubleValue(math.FMA(a.F64, b.F64, c.F64))
	}
	fatalf("fmuladd on unsupported type %s", ty)
	return Value{}
}

// execFunnelShift concatenates two w-bit inputs into a 2w-bit word, rotates
// by the shift amount modulo w, and takes the half the direction selects.
// Widths past 128 bits do not fit the working word and are unsupported.
func execFunnelShift(a, b, s Value, left bool) Value {
	w := a.Bits
	if w > 128 {
		fatalf("funnel shift wider than 128 bits unsupported")
	}
	var concat uint256.Int
	concat.Lsh(&a.X, uint(w))
	concat.Or(&concat, &b.X)

	amt := uint(s.X.Uint64() % uint64(w))
	var r uint256.Int
	if left {
		// High w bits of concat rotated left.
		var hi, lo uint256.Int
		hi.Lsh(&concat, amt)
		lo.Rsh(&concat, uint(2*w)-amt)
		r.Or(&hi, &lo)
		maskTo(&r, 2*w)
		r.Rsh(&r, uint(w))
	} else {
		// Low w bits of concat rotated right.
		var hi, lo uint256.Int
		lo.Rsh(&concat, amt)
		hi.Lsh(&concat, uint(2*w)-amt)
		r.Or(&hi, &lo)
	}
	return IntValue256(w, &r)
}
