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
	"math"

	"periph.io/x/conn/v3/physic"
)

// XDistance returns the X coordinate as a physical distance
func (p Point) XDistance() physic.Distance {
	return physic.Distance(p.X) * physic.MilliMetre
}

// YDistance returns the Y coordinate as a physical distance
func (p Point) YDistance() physic.Distance {
	return physic.Distance(p.Y) * physic.MilliMetre
}

// Depth returns the Z coordinate, the distance along the sensor axis
func (p Point) Depth() physic.Distance {
	return physic.Distance(p.Z) * physic.MilliMetre
}

// Range returns the straight-line distance from the sensor to the point
func (p Point) Range() physic.Distance {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	mm := math.Sqrt(x*x + y*y + z*z)
	return physic.Distance(math.Round(mm)) * physic.MilliMetre
}

// Nearest returns the index of the point with the smallest positive depth,
// or -1 when no point has one
func (f Frame) Nearest() int {
	nearest := -1
	for i, p := range f.Points {
		if p.Z <= 0 {
			continue
		}
		if nearest < 0 || p.Z < f.Points[nearest].Z {
			nearest = i
		}
	}
	return nearest
}
