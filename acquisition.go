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
	"context"
	"errors"
	"time"

	"github.com/ZaparooProject/go-dtof/internal/frame"
	"github.com/ZaparooProject/go-dtof/internal/transport"
)

// acquirer collects one frame's worth of bytes under a deadline. Bytes that
// follow a decoded frame are kept for the next call; anything left over when
// the deadline passes is dropped.
type acquirer struct {
	transport    Transport
	codec        Codec
	rx           []byte
	pollInterval time.Duration
}

func newAcquirer(t Transport, codec Codec, pollInterval time.Duration) *acquirer {
	return &acquirer{
		transport:    t,
		codec:        codec,
		pollInterval: pollInterval,
		rx:           frame.GetBuffer(0),
	}
}

// reset drops buffered bytes
func (a *acquirer) reset() {
	a.rx = a.rx[:0]
}

// consume drops the first n buffered bytes
func (a *acquirer) consume(n int) {
	a.rx = append(a.rx[:0], a.rx[n:]...)
}

// acquire waits up to timeout for a frame matching mode. A zero timeout makes
// a single non-blocking pass over the bytes already available.
func (a *acquirer) acquire(
	ctx context.Context,
	frameMode FrameMode,
	mode MeasureMode,
	expected int,
	timeout time.Duration,
) (Frame, error) {
	deadline := time.Now().Add(timeout)

	if frameMode == FrameModeSingle {
		// Anything buffered or still queued predates the trigger and cannot
		// be our frame
		a.reset()
		if err := drainInput(a.transport); err != nil {
			return Frame{}, &AcquisitionError{Err: ErrTransport, Cause: err, State: StateAcquiring}
		}
		if err := a.transport.Write(a.codec.EncodeTriggerCommand()); err != nil {
			return Frame{}, &AcquisitionError{
				Err:   ErrTransport,
				Cause: asTransportError("trigger", err),
				State: StateAcquiring,
			}
		}
	}

	f, err := transport.PollUntil(ctx, deadline, a.pollInterval, func() (Frame, bool, error) {
		data, readErr := a.transport.ReadAvailable()
		if readErr != nil {
			return Frame{}, false, asTransportError("read", readErr)
		}
		a.rx = append(a.rx, data...)
		return a.decodeBuffered(expected, mode)
	})
	if err == nil {
		return f, nil
	}

	a.reset()

	var te *TransportError
	switch {
	case errors.As(err, &te):
		return Frame{}, &AcquisitionError{Err: ErrTransport, Cause: err, State: StateAcquiring}
	case errors.Is(err, transport.ErrDeadlineReached):
		return Frame{}, &AcquisitionError{Err: ErrTimeout, State: StateAcquiring}
	default:
		return Frame{}, &AcquisitionError{Err: ErrTimeout, Cause: err, State: StateAcquiring}
	}
}

// decodeBuffered decodes frames from the buffer until one is valid for mode
// or more bytes are needed. Corrupted and foreign frames are discarded.
func (a *acquirer) decodeBuffered(expected int, mode MeasureMode) (Frame, bool, error) {
	for len(a.rx) > 0 {
		f, n, err := a.codec.DecodeFrame(a.rx, expected)
		a.consume(n)

		if err == nil {
			if err := validateFrameCoordinates(f, mode); err != nil {
				debugf("discarding frame: %v", err)
				continue
			}
			return f, false, nil
		}
		if errors.Is(err, ErrIncomplete) {
			return Frame{}, true, nil
		}
		debugf("discarding frame: %v", err)
	}
	return Frame{}, true, nil
}
