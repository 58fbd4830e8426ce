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

package frame

import (
	"encoding/binary"
	"testing"
)

// Payload of a one-point frame: line 4, start 32, x=0 y=0 z=1072 intensity=132
var singlePointPayload = []byte{
	0x04, 0x20, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x30, 0x04, 0x84, 0x00,
}

// Payload of a two-point full-grid frame with extreme coordinates and
// saturated intensity
var fullGridPayload = []byte{
	AllLinesMarker, 0x00, 0x02, 0x00,
	0x00, 0xFF, 0xF0, 0xFF, 0x48, 0xF4, 0x00, 0x00, // -256, -16, -3000, 0
	0xFF, 0x00, 0x0C, 0x00, 0xA0, 0x0F, 0xFF, 0xFF, // 255, 12, 4000, 65535
}

func withChecksum(payload []byte, cs byte) []byte {
	return append(append([]byte(nil), payload...), cs)
}

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty", data: []byte{}, want: 0x00},
		{name: "sync bytes", data: []byte{SyncByte0, SyncByte1}, want: 0xFF},
		{name: "wraps at 256", data: []byte{0xFF, 0x01}, want: 0x00},
		{name: "frame info", data: singlePointPayload[:InfoSize], want: 0x25},
		{name: "single point payload", data: singlePointPayload, want: 0xDD},
		{name: "full grid payload", data: fullGridPayload, want: 0xE3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateChecksum(tt.data); got != tt.want {
				t.Errorf("CalculateChecksum() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestCalculateDataChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty payload", data: []byte{}, want: 0x00},
		{name: "info only", data: []byte{0x00, 0x00, 0x00, 0x00}, want: 0x00},
		{name: "single point payload", data: singlePointPayload, want: 0x23},
		{name: "full grid payload", data: fullGridPayload, want: 0x1D},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateDataChecksum(tt.data); got != tt.want {
				t.Errorf("CalculateDataChecksum() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		data     []byte
		wantDrop bool
	}{
		{name: "empty", data: []byte{}},
		{name: "single point frame", data: withChecksum(singlePointPayload, 0x23)},
		{name: "full grid frame", data: withChecksum(fullGridPayload, 0x1D)},
		{name: "checksum off by one", data: withChecksum(singlePointPayload, 0x24), wantDrop: true},
		{name: "payload sum instead of complement", data: withChecksum(fullGridPayload, 0xE3), wantDrop: true},
		{name: "missing checksum", data: singlePointPayload, wantDrop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidateChecksum(tt.data); got != tt.wantDrop {
				t.Errorf("ValidateChecksum() = %v, want %v", got, tt.wantDrop)
			}
		})
	}
}

func TestFrameLength(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		count int
		want  int
	}{
		{name: "empty frame", count: 0, want: 9},
		{name: "single point", count: 1, want: 17},
		{name: "eleven points", count: 11, want: 97},
		{name: "full grid", count: MaxPoints, want: 4105},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FrameLength(tt.count); got != tt.want {
				t.Errorf("FrameLength(%d) = %d, want %d", tt.count, got, tt.want)
			}
		})
	}
}

// TestChecksumProperty checks that every line of the grid encodes to a
// payload whose data checksum validates, and that changing any single
// payload byte is detected
func TestChecksumProperty(t *testing.T) {
	t.Parallel()
	const lines, pointsPerLine = 8, MaxPoints / 8
	for line := 0; line < lines; line++ {
		payload := make([]byte, InfoSize+pointsPerLine*PointSize)
		payload[0] = byte(line)
		binary.LittleEndian.PutUint16(payload[2:4], pointsPerLine)
		for p := 0; p < pointsPerLine; p++ {
			off := InfoSize + p*PointSize
			binary.LittleEndian.PutUint16(payload[off:], uint16(int16(p*4-128)))   //nolint:gosec // test values
			binary.LittleEndian.PutUint16(payload[off+2:], uint16(int16(line-4)))  //nolint:gosec // test values
			binary.LittleEndian.PutUint16(payload[off+4:], uint16(1000+line*64+p)) //nolint:gosec // test values
			binary.LittleEndian.PutUint16(payload[off+6:], uint16(p*1000))         //nolint:gosec // test values
		}

		data := withChecksum(payload, CalculateDataChecksum(payload))
		if ValidateChecksum(data) {
			t.Fatalf("line %d: frame with its own checksum was rejected", line)
		}
		for i := range payload {
			data[i]++
			if !ValidateChecksum(data) {
				t.Errorf("line %d: change at byte %d not detected", line, i)
			}
			data[i]--
		}
	}
}

func TestBufferPool(t *testing.T) {
	t.Parallel()

	small := GetSmallBuffer(4)
	if len(small) != 4 {
		t.Fatalf("GetSmallBuffer(4) length = %d", len(small))
	}
	PutBuffer(small)

	buf := GetBuffer(FrameLength(MaxPoints))
	if len(buf) != FrameLength(MaxPoints) {
		t.Fatalf("GetBuffer length = %d, want %d", len(buf), FrameLength(MaxPoints))
	}
	PutBuffer(buf)

	oversized := GetBuffer(frameBufferSize + 1)
	if len(oversized) != frameBufferSize+1 {
		t.Fatalf("oversized GetBuffer length = %d", len(oversized))
	}
	PutBuffer(oversized)
}
