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

import "github.com/mirivm/mirivm/metrics"

var (
	stepCounter        = metrics.NewRegisteredCounter("interp/steps", nil)
	threadCounter      = metrics.NewRegisteredCounter("interp/threads", nil)
	faultCounter       = metrics.NewRegisteredCounter("interp/faults", nil)
	oracleAllocCounter = metrics.NewRegisteredCounter("interp/oracle/allocs", nil)
	oracleFreeCounter  = metrics.NewRegisteredCounter("interp/oracle/frees", nil)
)
