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
	"fmt"
	"io"

	"github.com/ZaparooProject/go-dtof"
)

// printFrame writes a frame the way the sensor demos do. Full frames are
// summarised by their middle and nearest points.
func printFrame(w io.Writer, f dtof.Frame, mode dtof.MeasureMode, grid dtof.Grid) {
	_, _ = fmt.Fprintf(w, "Received %d points\n", f.Len())
	if f.Empty() {
		return
	}

	if mode.Kind != dtof.MeasureFull {
		for i, p := range f.Points {
			_, point := mode.Coord(i, grid)
			printPoint(w, fmt.Sprintf("Point[%02d]", point), p)
		}
		return
	}

	mid := f.Len() / 2
	line, point := mode.Coord(mid, grid)
	printPoint(w, fmt.Sprintf("Sample Point[%d,%02d]", line, point), f.Points[mid])

	if idx := f.Nearest(); idx >= 0 {
		line, point = mode.Coord(idx, grid)
		p := f.Points[idx]
		_, _ = fmt.Fprintf(w, "Nearest Point[%d,%02d]: %s away\n", line, point, p.Range())
	}
}

func printPoint(w io.Writer, label string, p dtof.Point) {
	_, _ = fmt.Fprintf(w, "%s: X:%04d mm Y:%04d mm Z:%04d mm I:%d\n", label, p.X, p.Y, p.Z, p.Intensity)
}
