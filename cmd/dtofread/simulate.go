// go-dtof
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-dtof.
//
// go-dtof is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-dtof is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-dtof; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"math"
	"time"

	"github.com/ZaparooProject/go-dtof"
	testutil "github.com/ZaparooProject/go-dtof/internal/testing"
)

const simulatedFrameInterval = 100 * time.Millisecond

// simulatedTransport is a mock transport answered by a virtual sensor. In
// continuous mode it streams a frame on reads once per frame interval.
type simulatedTransport struct {
	*dtof.MockTransport
	sensor *testutil.VirtualSensor
}

func newSimulatedTransport(grid dtof.Grid) *simulatedTransport {
	sensor := testutil.NewVirtualSensor(grid.Lines, grid.PointsPerLine)
	sensor.SetFrameInterval(simulatedFrameInterval)
	sensor.Sample = simulatedScene(time.Now())

	mock := dtof.NewMockTransport()
	mock.SetResponder(sensor.Respond)

	return &simulatedTransport{MockTransport: mock, sensor: sensor}
}

func (s *simulatedTransport) ReadAvailable() ([]byte, error) {
	if s.IsOpen() {
		if f := s.sensor.Poll(); f != nil {
			s.Inject(f)
		}
	}
	return s.MockTransport.ReadAvailable()
}

// simulatedScene returns a sampler for a wall about a metre away with a slow
// sinusoidal drift so consecutive frames differ
func simulatedScene(start time.Time) func(line, point int) testutil.RawPoint {
	return func(line, point int) testutil.RawPoint {
		p := testutil.SamplePoint(line, point)
		drift := 50 * math.Sin(time.Since(start).Seconds()+float64(point)/8)
		p.Z += int16(drift)
		return p
	}
}
