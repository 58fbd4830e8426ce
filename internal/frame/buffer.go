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

import "sync"

const (
	smallBufferSize = 64
	frameBufferSize = HeaderSize + MaxPayloadSize + ChecksumSize
)

var (
	smallPool = sync.Pool{New: func() any { b := make([]byte, smallBufferSize); return &b }}
	framePool = sync.Pool{New: func() any { b := make([]byte, frameBufferSize); return &b }}
)

// GetSmallBuffer returns a pooled buffer of length size for short reads
func GetSmallBuffer(size int) []byte {
	if size > smallBufferSize {
		return make([]byte, size)
	}
	bp, _ := smallPool.Get().(*[]byte)
	return (*bp)[:size]
}

// GetBuffer returns a pooled buffer of length size, large enough for a full
// measurement frame
func GetBuffer(size int) []byte {
	if size > frameBufferSize {
		return make([]byte, size)
	}
	bp, _ := framePool.Get().(*[]byte)
	return (*bp)[:size]
}

// PutBuffer returns a buffer obtained from GetBuffer or GetSmallBuffer
func PutBuffer(buf []byte) {
	switch cap(buf) {
	case smallBufferSize:
		buf = buf[:smallBufferSize]
		smallPool.Put(&buf)
	case frameBufferSize:
		buf = buf[:frameBufferSize]
		framePool.Put(&buf)
	}
}
