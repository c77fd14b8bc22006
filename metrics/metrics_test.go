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

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	c := NewCounter()
	c.Inc(2)
	c.Inc(3)
	c.Dec(1)
	assert.Equal(t, int64(4), c.Count())
	c.Clear()
	assert.Zero(t, c.Count())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	c := NewRegisteredCounter("steps", r)
	require.NotNil(t, c)
	assert.Equal(t, c, r.Get("steps"))
	assert.Error(t, r.Register("steps", NewCounter()))
	assert.Nil(t, r.Get("missing"))
}

func TestGauge(t *testing.T) {
	g := NewGauge()
	g.Update(42)
	assert.Equal(t, int64(42), g.Value())
	g.Update(7)
	assert.Equal(t, int64(7), g.Value())
}

func TestRegistryEach(t *testing.T) {
	r := NewRegistry()
	NewRegisteredCounter("a", r)
	NewRegisteredGauge("b", r)
	seen := map[string]bool{}
	r.Each(func(name string, _ any) { seen[name] = true })
	assert.True(t, seen["a"] && seen["b"])
}
