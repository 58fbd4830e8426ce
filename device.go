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
	"fmt"
	"sync"
	"time"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Grid is the addressable field used to validate measure modes
	Grid Grid
	// AckTimeout bounds the wait for a configuration acknowledgement
	AckTimeout time.Duration
	// PollInterval is the wait between empty reads. Zero picks a default
	// for the transport type.
	PollInterval time.Duration
	// DefaultFrameMode is assumed after Begin until a frame mode is confirmed
	DefaultFrameMode FrameMode
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Grid:             DefaultGrid,
		AckTimeout:       500 * time.Millisecond,
		DefaultFrameMode: FrameModeContinuous,
	}
}

// Device drives one dToF sensor over a Transport it owns exclusively.
//
// Thread Safety: at most one configuration round trip or acquisition runs at
// a time. A call made while another is in flight fails with ErrInvalidState
// instead of waiting, so the transport never sees interleaved commands.
// State queries and Close may be called from any goroutine.
type Device struct {
	transport  Transport
	config     *DeviceConfig
	cm         *configManager
	acq        *acquirer
	codec      Codec
	mu         sync.Mutex
	state      DriverState
	generation uint64
	busy       bool
}

// New creates a new device with the given transport. The device starts
// Uninitialized; call Begin before configuring it.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameters)
	}

	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	interval := pollIntervalFor(transport, device.config.PollInterval)
	device.codec = NewCodec(device.config.Grid)
	device.cm = newConfigManager(transport, device.codec, device.config.AckTimeout, interval)
	device.acq = newAcquirer(transport, device.codec, interval)
	device.cm.reset(device.config.DefaultFrameMode)

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Grid returns the addressable field of the sensor
func (d *Device) Grid() Grid {
	return d.config.Grid
}

// State returns the current driver state
func (d *Device) State() DriverState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// FrameMode returns the current frame mode. Before a frame mode is confirmed
// this is the configured default.
func (d *Device) FrameMode() FrameMode {
	return d.cm.snapshot().frameMode
}

// MeasureMode returns the confirmed measure mode and whether there is one
func (d *Device) MeasureMode() (MeasureMode, bool) {
	snap := d.cm.snapshot()
	return snap.measureMode, snap.measureConfirmed
}

// ExpectedPointCount returns the number of points every frame must carry in
// the confirmed measure mode, or 0 when no measure mode is confirmed
func (d *Device) ExpectedPointCount() int {
	snap := d.cm.snapshot()
	if !snap.measureConfirmed {
		return 0
	}
	return snap.expectedCount
}

// enter claims the device for one operation if the current state allows it
func (d *Device) enter(allowed ...DriverState) (DriverState, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.busy {
		return d.state, d.generation, fmt.Errorf("%w: operation in progress (%s)", ErrInvalidState, d.state)
	}
	for _, s := range allowed {
		if d.state == s {
			d.busy = true
			return d.state, d.generation, nil
		}
	}
	return d.state, d.generation, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
}

// leave releases the device and moves it to next, unless Close ran meanwhile
func (d *Device) leave(generation uint64, next DriverState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.busy = false
	if d.generation == generation {
		d.state = next
	}
}

// BeginContext opens and validates the transport, discards stale input and
// moves the device to Configured with the default frame mode. A faulted or
// closed device recovers through BeginContext when the transport implements
// Opener.
func (d *Device) BeginContext(ctx context.Context) error {
	prev, gen, err := d.enter(StateUninitialized, StateConfigured, StateReady, StateFaulted)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		d.leave(gen, prev)
		return fmt.Errorf("begin: %w", err)
	}

	if !d.transport.IsOpen() {
		opener, ok := d.transport.(Opener)
		if !ok {
			d.leave(gen, prev)
			return NewTransportError("begin", "", ErrTransportClosed, ErrorTypePermanent)
		}
		if err := opener.Open(); err != nil {
			d.leave(gen, prev)
			return asTransportError("open", err)
		}
	}

	if err := drainInput(d.transport); err != nil {
		d.leave(gen, StateFaulted)
		return err
	}

	d.cm.reset(d.config.DefaultFrameMode)
	d.acq.reset()
	d.leave(gen, StateConfigured)
	debugf("device ready for configuration (default frame mode %s)", d.config.DefaultFrameMode)
	return nil
}

// SetFrameMode selects continuous or single frame output. It is a no-op when
// the sensor already confirmed mode; otherwise the device moves to Configured
// and the measure mode must be set again.
func (d *Device) SetFrameMode(ctx context.Context, mode FrameMode) error {
	prev, gen, err := d.enter(StateConfigured, StateReady)
	if err != nil {
		return &ConfigError{Op: "set frame mode", Err: ErrInvalidState, Cause: err}
	}

	sent, err := d.cm.setFrameMode(ctx, mode)
	switch {
	case err != nil:
		d.leave(gen, failureState(prev, err))
		return err
	case sent:
		d.acq.reset()
		d.leave(gen, StateConfigured)
	default:
		d.leave(gen, prev)
	}
	return nil
}

// SetMeasureMode selects which points frames carry. It requires a frame
// mode; on success the device is Ready.
func (d *Device) SetMeasureMode(ctx context.Context, mode MeasureMode) error {
	prev, gen, err := d.enter(StateConfigured, StateReady)
	if err != nil {
		return &ConfigError{Op: "set measure mode", Err: ErrInvalidState, Cause: err}
	}

	sent, err := d.cm.setMeasureMode(ctx, mode)
	if err != nil {
		d.leave(gen, failureState(prev, err))
		return err
	}
	if sent {
		d.acq.reset()
	}
	d.leave(gen, StateReady)
	return nil
}

// SetStreaming starts or stops sensor output without changing modes
func (d *Device) SetStreaming(ctx context.Context, enable bool) error {
	prev, gen, err := d.enter(StateConfigured, StateReady)
	if err != nil {
		return &ConfigError{Op: "set stream control", Err: ErrInvalidState, Cause: err}
	}

	err = d.cm.setStreaming(ctx, enable)
	d.leave(gen, failureState(prev, err))
	return err
}

// SaveConfig asks the sensor to persist its current configuration
func (d *Device) SaveConfig(ctx context.Context) error {
	prev, gen, err := d.enter(StateConfigured, StateReady)
	if err != nil {
		return &ConfigError{Op: "save config", Err: ErrInvalidState, Cause: err}
	}

	err = d.cm.saveConfig(ctx)
	d.leave(gen, failureState(prev, err))
	return err
}

// Acquire returns one frame matching the confirmed measure mode. In single
// frame mode it triggers the capture first. It waits at most timeout; a zero
// timeout only decodes what is already available.
//
// On timeout the frame is empty and the error wraps ErrTimeout. A transport
// failure wraps ErrTransport and leaves the device Faulted until Close and
// Begin. Calling Acquire outside the Ready state fails with ErrInvalidState.
func (d *Device) Acquire(ctx context.Context, timeout time.Duration) (Frame, error) {
	d.mu.Lock()
	if d.busy || d.state != StateReady {
		state := d.state
		d.mu.Unlock()
		return Frame{}, &AcquisitionError{Err: ErrInvalidState, State: state}
	}
	d.busy = true
	d.state = StateAcquiring
	gen := d.generation
	d.mu.Unlock()
	snap := d.cm.snapshot()

	if timeout < 0 {
		timeout = 0
	}

	start := time.Now()
	f, err := d.acq.acquire(ctx, snap.frameMode, snap.measureMode, snap.expectedCount, timeout)
	if err != nil {
		debugf("acquire failed after %s: %v", time.Since(start), err)
		d.leave(gen, failureState(StateReady, err))
		return Frame{}, err
	}

	debugf("acquired %d points in %s", f.Len(), time.Since(start))
	d.leave(gen, StateReady)
	return f, nil
}

// Close releases the transport and resets the device to Uninitialized. It
// is safe to call more than once. An operation in flight fails with a
// transport error and Begin is refused until it has returned.
func (d *Device) Close() error {
	d.mu.Lock()
	d.generation++
	d.state = StateUninitialized
	d.cm.reset(d.config.DefaultFrameMode)
	d.mu.Unlock()

	if d.transport != nil && d.transport.IsOpen() {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

// failureState returns the state after an operation started in prev ended
// with err. Transport failures fault the device; anything else leaves it as
// it was.
func failureState(prev DriverState, err error) DriverState {
	if err != nil && errors.Is(err, ErrTransport) {
		return StateFaulted
	}
	return prev
}
