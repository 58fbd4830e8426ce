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

import "testing"

func TestBufferPools(t *testing.T) {
	t.Parallel()

	tests := []struct {
		get     func(int) []byte
		name    string
		size    int
		wantCap int
	}{
		{name: "Small", get: GetSmallBuffer, size: 16, wantCap: smallBufferSize},
		{name: "Small_Oversized", get: GetSmallBuffer, size: smallBufferSize + 1, wantCap: smallBufferSize + 1},
		{name: "Frame", get: GetBuffer, size: 0, wantCap: frameBufferSize},
		{name: "Frame_Full", get: GetBuffer, size: FrameLength(MaxPoints), wantCap: frameBufferSize},
		{name: "Frame_Oversized", get: GetBuffer, size: frameBufferSize + 1, wantCap: frameBufferSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := tt.get(tt.size)
			if len(buf) != tt.size {
				t.Errorf("len = %d, want %d", len(buf), tt.size)
			}
			if cap(buf) != tt.wantCap {
				t.Errorf("cap = %d, want %d", cap(buf), tt.wantCap)
			}
			PutBuffer(buf)
		})
	}
}

func TestPutBuffer_ResliceKeepsCapacity(t *testing.T) {
	t.Parallel()

	buf := GetBuffer(10)
	PutBuffer(buf[:0])

	again := GetBuffer(frameBufferSize)
	if len(again) != frameBufferSize {
		t.Fatalf("len = %d, want %d", len(again), frameBufferSize)
	}
	PutBuffer(again)
}
