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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarSizes(t *testing.T) {
	var dl DataLayout
	assert.Equal(t, uint64(1), dl.StoreSize(I1))
	assert.Equal(t, uint64(1), dl.StoreSize(I8))
	assert.Equal(t, uint64(5), dl.StoreSize(IntN(33)))
	assert.Equal(t, uint64(8), dl.AllocSize(IntN(33)))
	assert.Equal(t, uint64(16), dl.StoreSize(IntN(128)))
	assert.Equal(t, uint64(4), dl.StoreSize(Float))
	assert.Equal(t, uint64(8), dl.StoreSize(Double))
	assert.Equal(t, uint64(8), dl.StoreSize(Ptr))
}

func TestStructLayoutPadsFields(t *testing.T) {
	var dl DataLayout
	st := StructOf(I8, I64, I16)
	offs := dl.FieldOffsets(st)
	require.Equal(t, []uint64{0, 8, 16}, offs)
	assert.Equal(t, uint64(24), dl.StoreSize(st), "tail padding to the struct alignment")
	assert.Equal(t, uint64(8), dl.ABIAlign(st))
}

func TestPackedStructHasNoPadding(t *testing.T) {
	var dl DataLayout
	st := &StructType{Fields: []Type{I8, I64, I16}, Packed: true}
	offs := dl.FieldOffsets(st)
	require.Equal(t, []uint64{0, 1, 9}, offs)
	assert.Equal(t, uint64(11), dl.StoreSize(st))
	assert.Equal(t, uint64(1), dl.ABIAlign(st))
}

func TestArrayAndVectorStride(t *testing.T) {
	var dl DataLayout
	assert.Equal(t, uint64(32), dl.StoreSize(ArrayOf(4, Double)))
	assert.Equal(t, uint64(16), dl.StoreSize(VecOf(4, I32)))
	assert.Equal(t, uint64(16), dl.ABIAlign(VecOf(4, I32)))
	assert.Equal(t, uint64(8), dl.ABIAlign(ArrayOf(3, Double)))
}

func TestTargetExtTypeLowersToLayoutType(t *testing.T) {
	var dl DataLayout
	te := &TargetExtType{TypeName: "spirv.Image", Layout: I64}
	assert.Equal(t, uint64(8), dl.StoreSize(te))
	assert.Equal(t, uint64(8), dl.ABIAlign(te))
	assert.Equal(t, I64, dl.Lower(te))
}

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, "i32", I32.String())
	assert.Equal(t, "<4 x i32>", VecOf(4, I32).String())
	assert.Equal(t, "[2 x double]", ArrayOf(2, Double).String())
	assert.Equal(t, "{ i8, ptr }", StructOf(I8, Ptr).String())
	assert.Equal(t, "i32 (ptr, ...)", VariadicSignature(I32, Ptr).String())
}
