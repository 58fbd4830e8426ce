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
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ZaparooProject/go-dtof/internal/frame"
)

// DecodeAck parses the first acknowledgement in buf. The returned count is
// the number of leading bytes the caller must discard whatever the outcome:
// noise skipped during resynchronization plus the acknowledgement itself.
// ErrIncomplete means more bytes are needed; ErrMalformed means a response
// line that is neither OK nor ERROR.
func (Codec) DecodeAck(buf []byte) (Ack, int, error) {
	for i := 0; i < len(buf); i++ {
		if buf[i] != '\n' {
			continue
		}
		rest := buf[i:]

		switch {
		case bytes.HasPrefix(rest, frame.AckOK):
			return Ack{OK: true}, i + len(frame.AckOK), nil
		case bytes.HasPrefix(rest, frame.AckError):
			return Ack{OK: false}, i + len(frame.AckError), nil
		case bytes.HasPrefix(frame.AckOK, rest), bytes.HasPrefix(frame.AckError, rest):
			return Ack{}, i, &DecodeError{Op: "decode ack", Offset: i, Err: ErrIncomplete}
		}

		n, terminated := scanResponseLine(rest)
		if n == 0 {
			continue
		}
		if terminated {
			return Ack{}, i + n, &DecodeError{
				Op:     "decode ack",
				Offset: i,
				Err:    fmt.Errorf("%w: unexpected response %q", ErrMalformed, rest[1:n-1]),
			}
		}
		return Ack{}, i, &DecodeError{Op: "decode ack", Offset: i, Err: ErrIncomplete}
	}

	return Ack{}, len(buf), &DecodeError{Op: "decode ack", Offset: len(buf), Err: ErrIncomplete}
}

// scanResponseLine inspects a line starting with '\n'. It returns the length
// of the line including both line feeds and whether the closing line feed was
// seen. A zero length means the bytes cannot be a response line.
func scanResponseLine(b []byte) (n int, terminated bool) {
	for j := 1; j < len(b); j++ {
		if b[j] == '\n' {
			if j == 1 {
				return 0, false
			}
			return j + 1, true
		}
		if j > frame.MaxAckLineLength || !isResponseChar(b[j]) {
			return 0, false
		}
	}
	return len(b), false
}

func isResponseChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '+' || c == '_' || c == '=' || c == '\r'
}

// DecodeFrame parses the first measurement frame in buf. Noise before the
// frame sync is skipped. The returned count is the number of leading bytes the
// caller must discard whatever the outcome. A frame that fails its length or
// checksum check only loses its sync bytes, so a good frame hidden inside a
// truncated one is still found.
//
// Errors wrap ErrIncomplete while the frame has not fully arrived,
// ErrMalformed on a bad length or checksum, and ErrCountMismatch when the
// frame holds a different number of points than expected.
func (Codec) DecodeFrame(buf []byte, expected int) (Frame, int, error) {
	start := findSync(buf)
	if start < 0 {
		keep := 0
		if len(buf) > 0 && buf[len(buf)-1] == frame.SyncByte0 {
			keep = 1
		}
		skip := len(buf) - keep
		return Frame{}, skip, &DecodeError{Op: "decode frame", Offset: skip, Err: ErrIncomplete}
	}

	rest := buf[start:]
	if len(rest) < frame.HeaderSize {
		return Frame{}, start, &DecodeError{Op: "decode frame", Offset: start, Err: ErrIncomplete}
	}

	payloadLen := int(binary.LittleEndian.Uint16(rest[2:4]))
	if payloadLen < frame.InfoSize || payloadLen > frame.MaxPayloadSize ||
		(payloadLen-frame.InfoSize)%frame.PointSize != 0 {
		return Frame{}, start + 2, &DecodeError{
			Op:     "decode frame",
			Offset: start,
			Err:    fmt.Errorf("%w: payload length %d", ErrMalformed, payloadLen),
		}
	}

	total := frame.HeaderSize + payloadLen + frame.ChecksumSize
	if len(rest) < total {
		return Frame{}, start, &DecodeError{Op: "decode frame", Offset: start, Err: ErrIncomplete}
	}

	body := rest[frame.HeaderSize:total]
	if frame.ValidateChecksum(body) {
		// The length may be what got corrupted, so only skip the sync bytes
		return Frame{}, start + 2, &DecodeError{
			Op:     "decode frame",
			Offset: start,
			Err:    fmt.Errorf("%w: checksum", ErrMalformed),
		}
	}

	payload := body[:payloadLen]
	count := int(binary.LittleEndian.Uint16(payload[2:4]))
	if count != (payloadLen-frame.InfoSize)/frame.PointSize {
		return Frame{}, start + total, &DecodeError{
			Op:     "decode frame",
			Offset: start,
			Err:    fmt.Errorf("%w: %d points in %d byte payload", ErrMalformed, count, payloadLen),
		}
	}
	if count != expected {
		return Frame{}, start + total, &DecodeError{
			Op:     "decode frame",
			Offset: start,
			Err:    fmt.Errorf("%w: got %d points, expected %d", ErrCountMismatch, count, expected),
		}
	}

	f := Frame{
		Line:   int(payload[0]),
		Start:  int(payload[1]),
		Points: make([]Point, count),
	}
	if payload[0] == frame.AllLinesMarker {
		f.Line = AllLines
	}
	for i := range f.Points {
		p := payload[frame.InfoSize+i*frame.PointSize:]
		f.Points[i] = Point{
			X:         int16(binary.LittleEndian.Uint16(p[0:2])),
			Y:         int16(binary.LittleEndian.Uint16(p[2:4])),
			Z:         int16(binary.LittleEndian.Uint16(p[4:6])),
			Intensity: binary.LittleEndian.Uint16(p[6:8]),
		}
	}

	return f, start + total, nil
}

// findSync returns the offset of the first frame sync sequence, or -1
func findSync(buf []byte) int {
	return bytes.Index(buf, []byte{frame.SyncByte0, frame.SyncByte1})
}
