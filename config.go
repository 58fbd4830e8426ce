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
	"sync"
	"time"

	"github.com/ZaparooProject/go-dtof/internal/frame"
	"github.com/ZaparooProject/go-dtof/internal/transport"
)

// maxDrainReads bounds how long stale input is discarded, since a sensor in
// continuous mode never stops sending
const maxDrainReads = 8

// configManager runs configuration round trips and remembers which modes the
// sensor has confirmed. It does not own the driver state; Device applies the
// transitions based on its results. mu guards the confirmed modes only, so
// they can be read while a round trip is in flight.
type configManager struct {
	transport        Transport
	codec            Codec
	measureMode      MeasureMode
	ackTimeout       time.Duration
	pollInterval     time.Duration
	expectedCount    int
	frameMode        FrameMode
	mu               sync.Mutex
	frameConfirmed   bool
	measureConfirmed bool
}

// modeSnapshot is a consistent copy of the confirmed modes
type modeSnapshot struct {
	measureMode      MeasureMode
	expectedCount    int
	frameMode        FrameMode
	measureConfirmed bool
}

func newConfigManager(t Transport, codec Codec, ackTimeout, pollInterval time.Duration) *configManager {
	return &configManager{
		transport:    t,
		codec:        codec,
		ackTimeout:   ackTimeout,
		pollInterval: pollInterval,
	}
}

// reset forgets every confirmed mode and assumes frameMode until the sensor
// confirms otherwise
func (cm *configManager) reset(frameMode FrameMode) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.frameMode = frameMode
	cm.frameConfirmed = false
	cm.measureMode = MeasureMode{}
	cm.measureConfirmed = false
	cm.expectedCount = 0
}

func (cm *configManager) snapshot() modeSnapshot {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return modeSnapshot{
		measureMode:      cm.measureMode,
		expectedCount:    cm.expectedCount,
		frameMode:        cm.frameMode,
		measureConfirmed: cm.measureConfirmed,
	}
}

// setFrameMode selects continuous or single frame output. It reports whether
// a command was actually sent; an already confirmed mode is not re-sent.
func (cm *configManager) setFrameMode(ctx context.Context, mode FrameMode) (bool, error) {
	if mode != FrameModeContinuous && mode != FrameModeSingle {
		return false, &ConfigError{Op: "set frame mode", Err: ErrInvalidParameters}
	}
	cm.mu.Lock()
	confirmed := cm.frameConfirmed && cm.frameMode == mode
	cm.mu.Unlock()
	if confirmed {
		debugf("frame mode %s already confirmed", mode)
		return false, nil
	}

	if err := cm.roundTrip(ctx, "set frame mode", cm.codec.EncodeFrameModeCommand(mode)); err != nil {
		return false, err
	}

	cm.mu.Lock()
	cm.frameMode = mode
	cm.frameConfirmed = true
	cm.measureConfirmed = false
	cm.mu.Unlock()
	debugf("frame mode set to %s", mode)
	return true, nil
}

// setMeasureMode selects the reported points and records the point count
// frames must carry from now on
func (cm *configManager) setMeasureMode(ctx context.Context, mode MeasureMode) (bool, error) {
	cmd, err := cm.codec.EncodeMeasureModeCommand(mode)
	if err != nil {
		return false, &ConfigError{Op: "set measure mode", Err: ErrInvalidParameters, Cause: err}
	}
	cm.mu.Lock()
	confirmed := cm.measureConfirmed && cm.measureMode == mode
	cm.mu.Unlock()
	if confirmed {
		debugf("measure mode %s already confirmed", mode)
		return false, nil
	}

	if err := cm.roundTrip(ctx, "set measure mode", cmd); err != nil {
		return false, err
	}

	count := mode.ExpectedPointCount(cm.codec.Grid())
	cm.mu.Lock()
	cm.measureMode = mode
	cm.measureConfirmed = true
	cm.expectedCount = count
	cm.mu.Unlock()
	debugf("measure mode set to %s (%d points per frame)", mode, count)
	return true, nil
}

func (cm *configManager) setStreaming(ctx context.Context, enable bool) error {
	return cm.roundTrip(ctx, "set stream control", cm.codec.EncodeStreamControlCommand(enable))
}

func (cm *configManager) saveConfig(ctx context.Context) error {
	return cm.roundTrip(ctx, "save config", cm.codec.EncodeSaveConfigCommand())
}

// roundTrip sends cmd and waits up to the ack timeout for the sensor's answer
func (cm *configManager) roundTrip(ctx context.Context, op string, cmd []byte) error {
	if err := drainInput(cm.transport); err != nil {
		return &ConfigError{Op: op, Err: ErrTransport, Cause: err}
	}

	debugf("%s: sending %q", op, cmd)
	if err := cm.transport.Write(cmd); err != nil {
		return &ConfigError{Op: op, Err: ErrTransport, Cause: asTransportError("write", err)}
	}

	pooled := frame.GetSmallBuffer(0)
	defer frame.PutBuffer(pooled)
	buf := pooled

	deadline := time.Now().Add(cm.ackTimeout)
	ack, err := transport.PollUntil(ctx, deadline, cm.pollInterval, func() (Ack, bool, error) {
		data, readErr := cm.transport.ReadAvailable()
		if readErr != nil {
			return Ack{}, false, asTransportError("read", readErr)
		}
		buf = append(buf, data...)

		for len(buf) > 0 {
			ack, n, decodeErr := cm.codec.DecodeAck(buf)
			buf = buf[n:]
			if decodeErr == nil {
				return ack, false, nil
			}
			if !errors.Is(decodeErr, ErrMalformed) {
				break
			}
			debugf("%s: ignoring response: %v", op, decodeErr)
		}
		return Ack{}, true, nil
	})

	var te *TransportError
	switch {
	case err == nil:
	case errors.As(err, &te):
		return &ConfigError{Op: op, Err: ErrTransport, Cause: err}
	case errors.Is(err, transport.ErrDeadlineReached):
		return &ConfigError{Op: op, Err: ErrTimeout}
	default:
		return &ConfigError{Op: op, Err: ErrTimeout, Cause: err}
	}

	if !ack.OK {
		return &ConfigError{Op: op, Err: ErrRejected}
	}
	return nil
}

// drainInput discards bytes already waiting on the transport
func drainInput(t Transport) error {
	for range maxDrainReads {
		data, err := t.ReadAvailable()
		if err != nil {
			return asTransportError("drain", err)
		}
		if len(data) == 0 {
			return nil
		}
		debugf("discarded %d stale bytes", len(data))
	}
	return nil
}

// asTransportError wraps err in a *TransportError unless it already is one
func asTransportError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return NewTransportError(op, "", err, ErrorTypePermanent)
}
