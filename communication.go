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

package dtof

import (
	"context"
	"time"
)

// Begin opens the transport and prepares the sensor for configuration.
// It reports whether the device is usable.
func (d *Device) Begin() bool {
	if err := d.BeginContext(context.Background()); err != nil {
		debugf("begin failed: %v", err)
		return false
	}
	return true
}

// ConfigFrameMode selects continuous or single frame output and reports
// whether the sensor acknowledged it
func (d *Device) ConfigFrameMode(mode FrameMode) bool {
	if err := d.SetFrameMode(context.Background(), mode); err != nil {
		debugf("config frame mode %s failed: %v", mode, err)
		return false
	}
	return true
}

// ConfigMeasureMode selects the measured points by coordinates:
//
//	ConfigMeasureMode()                 full frame
//	ConfigMeasureMode(line, point)      one point
//	ConfigMeasureMode(line, start, end) a run of points on one line
//
// Any other number of arguments is rejected.
func (d *Device) ConfigMeasureMode(coords ...int) bool {
	var mode MeasureMode
	switch len(coords) {
	case 0:
		mode = FullMode()
	case 2:
		mode = SinglePoint(coords[0], coords[1])
	case 3:
		mode = MultiPoint(coords[0], coords[1], coords[2])
	default:
		debugf("config measure mode: unsupported argument count %d", len(coords))
		return false
	}

	if err := d.SetMeasureMode(context.Background(), mode); err != nil {
		debugf("config measure mode %s failed: %v", mode, err)
		return false
	}
	return true
}

// GetData acquires one frame and returns its columns. All four slices are
// empty when no frame arrived within timeout or the device is not ready.
func (d *Device) GetData(timeout time.Duration) (xs, ys, zs []int16, intensities []uint16) {
	f, err := d.Acquire(context.Background(), timeout)
	if err != nil {
		debugf("get data failed: %v", err)
		return []int16{}, []int16{}, []int16{}, []uint16{}
	}
	return f.Split()
}
