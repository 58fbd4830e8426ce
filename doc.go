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

/*
Package dtof provides a pure Go driver for serial direct time-of-flight
depth sensors with a 64x8 zone array, and their single-line companions.

The sensor reports a frame of points, each with X, Y and Z coordinates in
millimetres and an intensity value. The driver configures which points are
reported (the whole grid, one point, or a run of points on one line) and
whether frames stream continuously or are triggered one at a time.

Features:
  - Mode configuration with acknowledgement and timeout handling
  - Frame acquisition with resynchronization after garbled bytes
  - Bounded waits: a zero timeout never blocks
  - UART transport and serial port discovery
  - Continuous acquisition sessions with Prometheus metrics
  - Comprehensive error handling

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-dtof"
	    "github.com/ZaparooProject/go-dtof/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := dtof.New(transport)
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if !device.Begin() {
	    log.Fatal("sensor not available")
	}
	if !device.ConfigFrameMode(dtof.FrameModeContinuous) {
	    log.Fatal("frame mode rejected")
	}
	if !device.ConfigMeasureMode(4, 32) {
	    log.Fatal("measure mode rejected")
	}

	xs, ys, zs, is := device.GetData(300 * time.Millisecond)
	for i := range xs {
	    fmt.Println(xs[i], ys[i], zs[i], is[i])
	}

The boolean methods mirror the sensor's reference API. The typed methods
(BeginContext, SetFrameMode, SetMeasureMode, Acquire) report why an
operation failed:

	frame, err := device.Acquire(ctx, 300*time.Millisecond)
	if errors.Is(err, dtof.ErrTimeout) {
	    // no complete frame in time
	}

Modes:

ConfigMeasureMode takes zero, two or three coordinates:

	device.ConfigMeasureMode()          // full frame, every point of the grid
	device.ConfigMeasureMode(4, 32)     // one point
	device.ConfigMeasureMode(4, 0, 63)  // points 0 to 63 of line 4

Changing the frame mode invalidates the measure mode, which must be set
again before acquiring.

Thread Safety:

A Device serializes its own operations. A call made while another
operation is in flight fails with ErrInvalidState instead of waiting.
*/
package dtof
