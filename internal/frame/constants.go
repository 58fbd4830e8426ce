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

// Package frame provides wire layout constants and checksum helpers for the
// dToF sensor serial protocol
package frame

// Measurement frame markers
const (
	SyncByte0 = 0x5A // First sync byte of a measurement frame
	SyncByte1 = 0xA5 // Second sync byte of a measurement frame
)

// Measurement frame layout
const (
	HeaderSize     = 4    // sync(2) + payload length(2)
	InfoSize       = 4    // line(1) + start point(1) + point count(2)
	PointSize      = 8    // x, y, z, intensity as 16-bit little endian values
	ChecksumSize   = 1    // trailing data checksum
	AllLinesMarker = 0xFF // line byte of a frame carrying the whole grid
	MaxPoints      = 8 * 64
	MaxPayloadSize = InfoSize + MaxPoints*PointSize
)

// Command strings understood by the sensor firmware
const (
	CmdFrameMode      = "AT+SPAD_FRAME_MODE"
	CmdOutputAll      = "AT+SPAD_OUTPUT_ALL"
	CmdOutputLine     = "AT+SPAD_OUTPUT_LINE_DATA"
	CmdTriggerFrame   = "AT+SPAD_TRIG_ONE_FRAME"
	CmdStreamControl  = "AT+SPAD_STREAM_CONTROL"
	CmdSaveConfig     = "AT+SAVE_CONFIG"
	CommandTerminator = "\r\n"
)

// Frame mode arguments for CmdFrameMode
const (
	FrameModeContinuousArg = 0
	FrameModeSingleArg     = 1
)

// Acknowledgement lines. Every response line is wrapped in line feeds.
var (
	AckOK    = []byte{0x0A, 0x4F, 0x4B, 0x0A} // "\nOK\n"
	AckError = []byte("\nERROR\n")
)

// MaxAckLineLength bounds the token between the line feeds of a response
const MaxAckLineLength = 16

// FrameLength returns the number of bytes on the wire for a frame carrying
// count points
func FrameLength(count int) int {
	return HeaderSize + InfoSize + count*PointSize + ChecksumSize
}
