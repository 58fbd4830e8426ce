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

import "fmt"

// Grid describes the addressable field of the sensor: Lines rows of
// PointsPerLine columns
type Grid struct {
	Lines         int
	PointsPerLine int
}

// DefaultGrid is the physical 8x64 field of the dToF sensor
var DefaultGrid = Grid{Lines: 8, PointsPerLine: 64}

// Size returns the number of addressable points
func (g Grid) Size() int {
	return g.Lines * g.PointsPerLine
}

// Contains reports whether (line, point) is an addressable coordinate
func (g Grid) Contains(line, point int) bool {
	return line >= 0 && line < g.Lines && point >= 0 && point < g.PointsPerLine
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Lines, g.PointsPerLine)
}

// FrameMode selects whether the sensor streams frames or waits for a trigger
type FrameMode int

const (
	// FrameModeContinuous streams frames without being asked
	FrameModeContinuous FrameMode = iota
	// FrameModeSingle emits one frame per trigger command
	FrameModeSingle
)

func (m FrameMode) String() string {
	switch m {
	case FrameModeContinuous:
		return "continuous"
	case FrameModeSingle:
		return "single"
	default:
		return fmt.Sprintf("FrameMode(%d)", int(m))
	}
}

// MeasureKind distinguishes the forms of MeasureMode
type MeasureKind int

const (
	// MeasureFull reports every point of the grid
	MeasureFull MeasureKind = iota
	// MeasureSinglePoint reports one coordinate
	MeasureSinglePoint
	// MeasureMultiPoint reports a contiguous range of points on one line
	MeasureMultiPoint
)

func (k MeasureKind) String() string {
	switch k {
	case MeasureFull:
		return "full"
	case MeasureSinglePoint:
		return "single-point"
	case MeasureMultiPoint:
		return "multi-point"
	default:
		return fmt.Sprintf("MeasureKind(%d)", int(k))
	}
}

// MeasureMode selects which subset of the grid the sensor reports per frame.
// Use FullMode, SinglePoint or MultiPoint to build one. For a single point,
// Start and End both hold the point index.
type MeasureMode struct {
	Kind  MeasureKind
	Line  int
	Start int
	End   int
}

// FullMode reports the whole grid
func FullMode() MeasureMode {
	return MeasureMode{Kind: MeasureFull}
}

// SinglePoint reports exactly one coordinate
func SinglePoint(line, point int) MeasureMode {
	return MeasureMode{Kind: MeasureSinglePoint, Line: line, Start: point, End: point}
}

// MultiPoint reports points start..end inclusive on line
func MultiPoint(line, start, end int) MeasureMode {
	return MeasureMode{Kind: MeasureMultiPoint, Line: line, Start: start, End: end}
}

// ExpectedPointCount returns the number of points a frame carries in this mode
func (m MeasureMode) ExpectedPointCount(grid Grid) int {
	switch m.Kind {
	case MeasureFull:
		return grid.Size()
	case MeasureSinglePoint:
		return 1
	case MeasureMultiPoint:
		return m.End - m.Start + 1
	default:
		return 0
	}
}

// Coord maps the index of a point in a frame to its grid coordinate
func (m MeasureMode) Coord(index int, grid Grid) (line, point int) {
	if m.Kind == MeasureFull {
		return index / grid.PointsPerLine, index % grid.PointsPerLine
	}
	return m.Line, m.Start + index
}

func (m MeasureMode) String() string {
	switch m.Kind {
	case MeasureFull:
		return "full"
	case MeasureSinglePoint:
		return fmt.Sprintf("single-point(line=%d, point=%d)", m.Line, m.Start)
	case MeasureMultiPoint:
		return fmt.Sprintf("multi-point(line=%d, points=%d-%d)", m.Line, m.Start, m.End)
	default:
		return m.Kind.String()
	}
}

// Point is one measurement. Distances are in millimeters.
type Point struct {
	X         int16
	Y         int16
	Z         int16
	Intensity uint16
}

// AllLines is the Frame.Line value of a frame covering the whole grid
const AllLines = -1

// Frame is one complete set of points from a single acquisition, in scan
// order. The zero Frame means no data.
type Frame struct {
	Points []Point
	Line   int
	Start  int
}

// Len returns the number of points
func (f Frame) Len() int {
	return len(f.Points)
}

// Empty reports whether the frame carries no points
func (f Frame) Empty() bool {
	return len(f.Points) == 0
}

// Split returns the frame as parallel coordinate and intensity slices
func (f Frame) Split() (xs, ys, zs []int16, intensities []uint16) {
	xs = make([]int16, len(f.Points))
	ys = make([]int16, len(f.Points))
	zs = make([]int16, len(f.Points))
	intensities = make([]uint16, len(f.Points))
	for i, p := range f.Points {
		xs[i], ys[i], zs[i], intensities[i] = p.X, p.Y, p.Z, p.Intensity
	}
	return xs, ys, zs, intensities
}

// Ack is a configuration acknowledgement
type Ack struct {
	OK bool
}

// DriverState is the lifecycle state of a Device
type DriverState int

const (
	StateUninitialized DriverState = iota
	StateConfigured
	StateReady
	StateAcquiring
	StateFaulted
)

func (s DriverState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	case StateAcquiring:
		return "acquiring"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("DriverState(%d)", int(s))
	}
}
