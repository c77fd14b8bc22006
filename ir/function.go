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

// Param is a formal parameter of a function. A Param used as an operand
// refers to the argument bound in the current frame.
type Param struct {
	ParamName string
	Ty        Type
}

func (p *Param) Type() Type { return p.Ty }

// Block is a basic block: a straight-line instruction sequence ending in a
// terminator. Leading phi nodes are evaluated atomically on block entry.
type Block struct {
	BlockName string
	Insts     []*Inst

	parent *Func
}

// Func returns the function containing the block.
func (b *Block) Func() *Func { return b.parent }

// Type of a block reference is label; block addresses taken with BlockAddr
// are pointers.
func (b *Block) Type() Type { return Label }

// Append adds an instruction at the end of the block.
func (b *Block) Append(i *Inst) *Inst {
	i.block = b
	b.Insts = append(b.Insts, i)
	return i
}

// Func is a function definition or declaration. Declarations have no blocks;
// calling one hands the call to the oracle.
type Func struct {
	FuncName string
	Sig      *FuncType
	Params   []*Param
	Blocks   []*Block

	module *Module
}

// A function reference used as an operand is a pointer-typed constant.
func (f *Func) Type() Type      { return Ptr }
func (f *Func) Literal() string { return "@" + f.FuncName }
func (*Func) isConstant()       {}

// Name returns the function's symbol name.
func (f *Func) Name() string { return f.FuncName }

// IsDecl reports whether the function has no body.
func (f *Func) IsDecl() bool { return len(f.Blocks) == 0 }

// Module returns the module owning the function.
func (f *Func) Module() *Module { return f.module }

// Entry returns the entry block. Declarations have none.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends a new, empty basic block to the function.
func (f *Func) NewBlock(name string) *Block {
	b := &Block{BlockName: name, parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Global is a module-level variable. Its address and backing storage come
// from the oracle during global initialization; the IR only carries the value
// type and initializer.
type Global struct {
	GlobalName string
	ValTy      Type
	Init       Constant // nil for external globals
	Align      uint64   // 0 selects the ABI alignment
	Appending  bool     // appending linkage, as used by ctor/dtor arrays
}

// A global reference used as an operand is a pointer-typed constant.
func (g *Global) Type() Type      { return Ptr }
func (g *Global) Literal() string { return "@" + g.GlobalName }
func (*Global) isConstant()       {}

// Name returns the global's symbol name.
func (g *Global) Name() string { return g.GlobalName }
