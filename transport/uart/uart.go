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

// Package uart implements the serial transport for dToF sensors
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ZaparooProject/go-dtof"
)

// readBufferSize holds a full frame plus slack for a partial one
const readBufferSize = 8192

// port is the subset of serial.Port the transport uses
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

type opener func(name string, mode *serial.Mode) (port, error)

func openSerial(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

// Transport implements dtof.Transport over a serial port
type Transport struct {
	port     port
	open     opener
	portName string
	buf      []byte
	opts     PortOptions
	mu       sync.Mutex
}

// New opens portName with the sensor's default serial settings
func New(portName string) (*Transport, error) {
	return NewWithOptions(portName, PortOptions{})
}

// NewWithOptions opens portName with opts
func NewWithOptions(portName string, opts PortOptions) (*Transport, error) {
	t, err := newTransport(portName, opts, openSerial)
	if err != nil {
		return nil, err
	}
	if err := t.Open(); err != nil {
		return nil, err
	}
	return t, nil
}

func newTransport(portName string, opts PortOptions, open opener) (*Transport, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dtof.ErrInvalidParameters, err)
	}
	return &Transport{
		portName: portName,
		opts:     normalized,
		open:     open,
		buf:      make([]byte, readBufferSize),
	}, nil
}

// Open opens the serial port if it is not already open and discards any
// input the sensor sent before
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return nil
	}

	mode, err := t.opts.SerialMode()
	if err != nil {
		return dtof.NewTransportError("open", t.portName, err, dtof.ErrorTypePermanent)
	}

	p, err := t.open(t.portName, mode)
	if err != nil {
		return dtof.NewTransportError("open", t.portName, err, dtof.ErrorTypeTransient)
	}
	if err := p.SetReadTimeout(t.opts.ReadTimeout); err != nil {
		_ = p.Close()
		return dtof.NewTransportError("open", t.portName, err, dtof.ErrorTypePermanent)
	}
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return dtof.NewTransportError("open", t.portName, err, dtof.ErrorTypeTransient)
	}

	t.port = p
	return nil
}

// Write sends data to the sensor
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return dtof.NewTransportError("write", t.portName, dtof.ErrTransportClosed, dtof.ErrorTypePermanent)
	}

	for len(data) > 0 {
		n, err := t.port.Write(data)
		if err != nil {
			return dtof.NewTransportError("write", t.portName,
				fmt.Errorf("%w: %w", dtof.ErrTransportWrite, err), dtof.ErrorTypeTransient)
		}
		if n == 0 {
			return dtof.NewTransportError("write", t.portName, dtof.ErrTransportWrite, dtof.ErrorTypeTransient)
		}
		data = data[n:]
	}
	return nil
}

// ReadAvailable returns the bytes received within the read timeout. An empty
// result means nothing arrived.
func (t *Transport) ReadAvailable() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, dtof.NewTransportError("read", t.portName, dtof.ErrTransportClosed, dtof.ErrorTypePermanent)
	}

	n, err := t.port.Read(t.buf)
	if err != nil && !(errors.Is(err, io.EOF) && n == 0) {
		return nil, dtof.NewTransportError("read", t.portName,
			fmt.Errorf("%w: %w", dtof.ErrTransportRead, err), dtof.ErrorTypePermanent)
	}

	return append([]byte(nil), t.buf[:n]...), nil
}

// IsOpen returns true if the port is open
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Close closes the serial port. Closing a closed transport is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", t.portName, err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() dtof.TransportType {
	return dtof.TransportUART
}

// PollInterval lets the driver yield briefly between reads; the read timeout
// already paces the loop
func (*Transport) PollInterval() time.Duration {
	return time.Millisecond
}

// PortName returns the serial port path
func (t *Transport) PortName() string {
	return t.portName
}

// Options returns the normalized serial options
func (t *Transport) Options() PortOptions {
	return t.opts
}
