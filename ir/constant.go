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
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Constant is an IR constant. Constants are Values and may appear wherever an
// operand is expected.
type Constant interface {
	Value
	// Literal renders the constant in assembly-like form.
	Literal() string
	isConstant()
}

// IntConst is an integer literal of a specific width. The payload is kept
// masked to the type's bit width.
type IntConst struct {
	Ty *IntType
	V  uint256.Int
}

// NewIntConst builds an integer constant from a uint64, masked to width.
func NewIntConst(ty *IntType, v uint64) *IntConst {
	c := &IntConst{Ty: ty}
	c.V.SetUint64(v)
	maskInt(&c.V, ty.BitSize)
	return c
}

// NewIntConst256 builds an integer constant from a full word, masked to width.
func NewIntConst256(ty *IntType, v *uint256.Int) *IntConst {
	c := &IntConst{Ty: ty}
	c.V.Set(v)
	maskInt(&c.V, ty.BitSize)
	return c
}

func maskInt(v *uint256.Int, bits uint32) {
	if bits >= 256 {
		return
	}
	var m uint256.Int
	m.Lsh(uint256.NewInt(1), uint(bits))
	m.SubUint64(&m, 1)
	v.And(v, &m)
}

func (c *IntConst) Type() Type { return c.Ty }
func (c *IntConst) Literal() string {
	return fmt.Sprintf("%s %s", c.Ty, c.V.Dec())
}

// FloatConst is a 32-bit float literal.
type FloatConst struct {
	V float32
}

func (c *FloatConst) Type() Type      { return Float }
func (c *FloatConst) Literal() string { return "float " + strconv.FormatFloat(float64(c.V), 'g', -1, 32) }

// DoubleConst is a 64-bit float literal.
type DoubleConst struct {
	V float64
}

func (c *DoubleConst) Type() Type      { return Double }
func (c *DoubleConst) Literal() string { return "double " + strconv.FormatFloat(c.V, 'g', -1, 64) }

// NullConst is the null pointer literal.
type NullConst struct{}

func (c *NullConst) Type() Type      { return Ptr }
func (c *NullConst) Literal() string { return "ptr null" }

// ZeroConst is a zeroinitializer (or undef, which the interpreter treats the
// same way) of any type.
type ZeroConst struct {
	Ty Type
}

func (c *ZeroConst) Type() Type      { return c.Ty }
func (c *ZeroConst) Literal() string { return c.Ty.String() + " zeroinitializer" }

// AggregateConst is a struct, array or vector literal.
type AggregateConst struct {
	Ty    Type
	Elems []Constant
}

func (c *AggregateConst) Type() Type { return c.Ty }
func (c *AggregateConst) Literal() string {
	var sb strings.Builder
	sb.WriteString(c.Ty.String())
	sb.WriteString(" [")
	for i, e := range c.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Literal())
	}
	sb.WriteString("]")
	return sb.String()
}

// ByteData returns the aggregate as raw bytes when every element is an i8
// constant, as produced for string and binary blob initializers.
func (c *AggregateConst) ByteData() ([]byte, bool) {
	out := make([]byte, len(c.Elems))
	for i, e := range c.Elems {
		ic, ok := e.(*IntConst)
		if !ok || ic.Ty.BitSize != 8 {
			return nil, false
		}
		out[i] = byte(ic.V.Uint64())
	}
	return out, true
}

// BlockAddr is the address of a basic block, as produced for indirectbr
// targets.
type BlockAddr struct {
	Fn    *Func
	Block *Block
}

func (c *BlockAddr) Type() Type { return Ptr }
func (c *BlockAddr) Literal() string {
	return fmt.Sprintf("blockaddress(@%s, %%%s)", c.Fn.FuncName, c.Block.BlockName)
}

// ExprConst is a constant expression: an instruction-shaped computation whose
// operands are all constants. The interpreter folds it on demand with the
// same kernels it uses for instructions.
type ExprConst struct {
	Expr *Inst
}

func (c *ExprConst) Type() Type      { return c.Expr.Type() }
func (c *ExprConst) Literal() string { return c.Expr.Op.String() + " (...)" }

func (*IntConst) isConstant()       {}
func (*FloatConst) isConstant()     {}
func (*DoubleConst) isConstant()    {}
func (*NullConst) isConstant()      {}
func (*ZeroConst) isConstant()      {}
func (*AggregateConst) isConstant() {}
func (*BlockAddr) isConstant()      {}
func (*ExprConst) isConstant()      {}
