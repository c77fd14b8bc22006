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

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestLoggerWritesKeyValueRecords(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelDebug}))
	l.Debug("thread created", "thread", 7)
	out := buf.String()
	require.Contains(t, out, "thread created")
	require.Contains(t, out, "thread=7")
}

func TestChildLoggerInheritsContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelInfo}))
	child := l.With("module", "interp")
	child.Info("ready")
	assert.Contains(t, buf.String(), "module=interp")
}

func TestTraceIsBelowDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelDebug}))
	l.Trace("invisible")
	assert.Empty(t, buf.String())
	assert.False(t, l.Enabled(LevelTrace))
	assert.True(t, l.Enabled(LevelDebug))
}

func TestDiscardLoggerDropsEverything(t *testing.T) {
	l := DiscardLogger()
	assert.False(t, l.Enabled(LevelError))
	l.Error("nothing happens")
}

func TestRootSwap(t *testing.T) {
	old := Root()
	defer SetDefault(old)

	var buf bytes.Buffer
	SetDefault(NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelInfo})))
	Info("hello", "n", 1)
	require.True(t, strings.Contains(buf.String(), "hello"))
}
