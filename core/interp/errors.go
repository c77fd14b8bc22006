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
	"fmt"

	"github.com/mirivm/mirivm/ir"
)

// FatalError reports unrecoverable interpreter failures: protocol misuse,
// unsupported instructions, malformed IR, an empty stack where a frame is
// required. It is delivered by panic; drivers that need to survive these
// recover at their own call sites.
type FatalError struct {
	Msg string
}

func (e FatalError) Error() string { return "interp: " + e.Msg }

func fatalf(format string, args ...any) {
	panic(FatalError{Msg: fmt.Sprintf(format, args...)})
}

// registerFault latches the oracle-reported error: it captures the faulting
// instruction's source location, appends every caller location down the
// current stack, hands the trace to the oracle's recorder and sets the error
// flag. The run loop exits at the next step boundary.
func (in *Interpreter) registerFault(inst *ir.Inst) {
	if inst != nil {
		if loc := inst.Loc; loc != nil {
			in.traces = append(in.traces, ErrorTrace{
				Directory: loc.Directory,
				File:      loc.File,
				Line:      loc.Line,
				Column:    loc.Column,
			})
		}
		in.faultInst = inst.String()
	}
	in.registerFaultNoLoc()
}

func (in *Interpreter) registerFaultNoLoc() {
	faultCounter.Inc(1)
	if t, ok := in.threads[in.curThread]; ok {
		for i := len(t.stack) - 1; i >= 0; i-- {
			caller := t.stack[i].Caller
			if caller == nil || caller.Loc == nil {
				continue
			}
			in.traces = append(in.traces, ErrorTrace{
				Directory: caller.Loc.Directory,
				File:      caller.Loc.File,
				Line:      caller.Loc.Line,
				Column:    caller.Loc.Column,
			})
		}
	}
	if o := in.oracle; o != nil && o.StackTraceRecorder != nil {
		o.StackTraceRecorder(o.Wrapper, in.traces, in.faultInst)
	}
	in.errFlag = true
	in.errThread = in.curThread
	in.logger.Error("memory fault latched", "thread", in.curThread, "inst", in.faultInst)
}

// ErrorFlag reports whether a memory error has been latched. The driver must
// observe the flag before stepping the faulty thread again.
func (in *Interpreter) ErrorFlag() bool { return in.errFlag }

// ClearError resets the latch and drops the captured trace.
func (in *Interpreter) ClearError() {
	in.errFlag = false
	in.traces = nil
	in.faultInst = ""
}

// Traces returns the stack trace captured by the last latched fault.
func (in *Interpreter) Traces() []ErrorTrace { return in.traces }
