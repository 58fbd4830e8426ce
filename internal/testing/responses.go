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

// Package testing provides raw wire builders and a virtual sensor for tests
// and simulation
package testing

import (
	"encoding/binary"

	"github.com/ZaparooProject/go-dtof/internal/frame"
)

// RawPoint is one measured point as it is laid out on the wire
type RawPoint struct {
	X, Y, Z   int16
	Intensity uint16
}

// BuildOKAck returns a positive acknowledgement
func BuildOKAck() []byte {
	return append([]byte(nil), frame.AckOK...)
}

// BuildErrorAck returns a negative acknowledgement
func BuildErrorAck() []byte {
	return append([]byte(nil), frame.AckError...)
}

// BuildResponseLine returns an arbitrary response token wrapped in line feeds
func BuildResponseLine(token string) []byte {
	return []byte("\n" + token + "\n")
}

// BuildFrame returns a complete measurement frame with a valid checksum.
// Use frame.AllLinesMarker as line for a full frame.
func BuildFrame(line, start byte, points []RawPoint) []byte {
	return buildFrame(line, start, len(points), points)
}

// BuildFrameWithCount is like BuildFrame but declares count points in the
// info block regardless of how many are encoded
func BuildFrameWithCount(line, start byte, count int, points []RawPoint) []byte {
	return buildFrame(line, start, count, points)
}

func buildFrame(line, start byte, count int, points []RawPoint) []byte {
	payloadLen := frame.InfoSize + len(points)*frame.PointSize
	out := make([]byte, 0, frame.HeaderSize+payloadLen+frame.ChecksumSize)

	out = append(out, frame.SyncByte0, frame.SyncByte1)
	out = binary.LittleEndian.AppendUint16(out, uint16(payloadLen)) //nolint:gosec // bounded by MaxPoints in tests
	out = append(out, line, start)
	out = binary.LittleEndian.AppendUint16(out, uint16(count)) //nolint:gosec // test builder

	for _, p := range points {
		out = binary.LittleEndian.AppendUint16(out, uint16(p.X)) //nolint:gosec // two's complement on the wire
		out = binary.LittleEndian.AppendUint16(out, uint16(p.Y)) //nolint:gosec // two's complement on the wire
		out = binary.LittleEndian.AppendUint16(out, uint16(p.Z)) //nolint:gosec // two's complement on the wire
		out = binary.LittleEndian.AppendUint16(out, p.Intensity)
	}

	return append(out, frame.CalculateDataChecksum(out[frame.HeaderSize:]))
}

// CorruptChecksum returns a copy of a built frame with a wrong checksum
func CorruptChecksum(data []byte) []byte {
	out := append([]byte(nil), data...)
	if len(out) > 0 {
		out[len(out)-1] ^= 0x5A
	}
	return out
}

// SamplePoint returns the deterministic point the virtual sensor reports for
// a grid coordinate
func SamplePoint(line, point int) RawPoint {
	return RawPoint{
		X:         int16(point*4 - 128),          //nolint:gosec // small test values
		Y:         int16(line*4 - 16),            //nolint:gosec // small test values
		Z:         int16(1000 + line*10 + point), //nolint:gosec // small test values
		Intensity: uint16(100 + point),           //nolint:gosec // small test values
	}
}

// SamplePoints returns count consecutive sample points of one line
func SamplePoints(line, start, count int) []RawPoint {
	points := make([]RawPoint, count)
	for i := range points {
		points[i] = SamplePoint(line, start+i)
	}
	return points
}
