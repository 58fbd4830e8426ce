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
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/ZaparooProject/go-dtof/internal/frame"
)

// Codec translates between commands, acknowledgements, measurement frames
// and their byte representation. It holds no state besides the grid used to
// validate coordinates, so the zero-cost value can be copied freely.
type Codec struct {
	grid Grid
}

// NewCodec creates a codec validating coordinates against grid
func NewCodec(grid Grid) Codec {
	return Codec{grid: grid}
}

// Grid returns the grid the codec validates against
func (c Codec) Grid() Grid {
	return c.grid
}

func command(name string, args ...int) []byte {
	buf := make([]byte, 0, len(name)+16)
	buf = append(buf, name...)
	for i, arg := range args {
		if i == 0 {
			buf = append(buf, '=')
		} else {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(arg), 10)
	}
	return append(buf, frame.CommandTerminator...)
}

// EncodeFrameModeCommand builds the command selecting continuous or single
// frame output
func (Codec) EncodeFrameModeCommand(mode FrameMode) []byte {
	arg := frame.FrameModeContinuousArg
	if mode == FrameModeSingle {
		arg = frame.FrameModeSingleArg
	}
	return command(frame.CmdFrameMode, arg)
}

// EncodeMeasureModeCommand builds the command selecting which points are
// reported. It fails with an *EncodeError wrapping ErrOutOfRange when the
// mode addresses a coordinate outside the grid.
func (c Codec) EncodeMeasureModeCommand(mode MeasureMode) ([]byte, error) {
	if err := ValidateMeasureMode(mode, c.grid); err != nil {
		return nil, err
	}

	if mode.Kind == MeasureFull {
		return command(frame.CmdOutputAll), nil
	}
	return command(frame.CmdOutputLine, mode.Line, mode.Start, mode.End-mode.Start+1), nil
}

// EncodeTriggerCommand builds the single frame trigger. It only has an
// effect in FrameModeSingle.
func (Codec) EncodeTriggerCommand() []byte {
	return command(frame.CmdTriggerFrame)
}

// EncodeStreamControlCommand builds the command starting or stopping output
func (Codec) EncodeStreamControlCommand(enable bool) []byte {
	arg := 0
	if enable {
		arg = 1
	}
	return command(frame.CmdStreamControl, arg)
}

// EncodeSaveConfigCommand builds the command persisting the current
// configuration in the sensor
func (Codec) EncodeSaveConfigCommand() []byte {
	return command(frame.CmdSaveConfig)
}

// EncodeFrame serializes f into a measurement frame as sent by the sensor
func (c Codec) EncodeFrame(f Frame) ([]byte, error) {
	count := f.Len()
	if count > frame.MaxPoints {
		return nil, fmt.Errorf("%w: %d points exceed frame capacity", ErrInvalidParameters, count)
	}

	line := byte(frame.AllLinesMarker)
	if f.Line != AllLines {
		if f.Line < 0 || f.Line >= frame.AllLinesMarker {
			return nil, fmt.Errorf("%w: line %d", ErrOutOfRange, f.Line)
		}
		line = byte(f.Line)
	}
	if f.Start < 0 || f.Start > 0xFF {
		return nil, fmt.Errorf("%w: start point %d", ErrOutOfRange, f.Start)
	}

	payloadLen := frame.InfoSize + count*frame.PointSize
	buf := make([]byte, frame.FrameLength(count))
	buf[0] = frame.SyncByte0
	buf[1] = frame.SyncByte1
	binary.LittleEndian.PutUint16(buf[2:4], uint16(payloadLen))

	payload := buf[frame.HeaderSize : frame.HeaderSize+payloadLen]
	payload[0] = line
	payload[1] = byte(f.Start)
	binary.LittleEndian.PutUint16(payload[2:4], uint16(count))
	for i, p := range f.Points {
		off := frame.InfoSize + i*frame.PointSize
		binary.LittleEndian.PutUint16(payload[off:], uint16(p.X))
		binary.LittleEndian.PutUint16(payload[off+2:], uint16(p.Y))
		binary.LittleEndian.PutUint16(payload[off+4:], uint16(p.Z))
		binary.LittleEndian.PutUint16(payload[off+6:], p.Intensity)
	}
	buf[len(buf)-1] = frame.CalculateDataChecksum(payload)

	return buf, nil
}
