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

// Module is a materialized compilation unit: functions, globals and the data
// layout they were compiled against.
type Module struct {
	Layout  DataLayout
	Funcs   []*Func
	Globals []*Global

	funcsByName   map[string]*Func
	globalsByName map[string]*Global
}

// NewModule returns an empty module with a little-endian layout.
func NewModule() *Module {
	return &Module{
		funcsByName:   make(map[string]*Func),
		globalsByName: make(map[string]*Global),
	}
}

// NewFunc adds a function with a body-less shell. Params are created from the
// signature and named from paramNames; callers attach blocks. Redefinition
// panics: modules are materialized once, not linked.
func (m *Module) NewFunc(name string, sig *FuncType, paramNames ...string) *Func {
	if _, ok := m.funcsByName[name]; ok {
		panic("ir: duplicate function @" + name)
	}
	f := &Func{FuncName: name, Sig: sig, module: m}
	for i, pt := range sig.Params {
		pn := ""
		if i < len(paramNames) {
			pn = paramNames[i]
		}
		f.Params = append(f.Params, &Param{ParamName: pn, Ty: pt})
	}
	m.Funcs = append(m.Funcs, f)
	m.funcsByName[name] = f
	return f
}

// NewGlobal adds a module-level variable.
func (m *Module) NewGlobal(name string, valTy Type, init Constant) *Global {
	if _, ok := m.globalsByName[name]; ok {
		panic("ir: duplicate global @" + name)
	}
	g := &Global{GlobalName: name, ValTy: valTy, Init: init}
	m.Globals = append(m.Globals, g)
	m.globalsByName[name] = g
	return g
}

// Func looks a function up by symbol name.
func (m *Module) Func(name string) *Func { return m.funcsByName[name] }

// Global looks a global up by symbol name.
func (m *Module) Global(name string) *Global { return m.globalsByName[name] }
