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

// Transport defines the byte channel to a sensor. It is implemented by the
// UART backend in transport/uart and by MockTransport for tests.
//
// The driver never assumes a read returns a whole response or frame; it
// resynchronizes with its own codec.
type Transport interface {
	// Write sends bytes to the sensor
	Write(data []byte) error

	// ReadAvailable returns whatever bytes are available without waiting
	// longer than a short transport-specific read window. It may return an
	// empty slice. An error means the channel itself failed.
	ReadAvailable() ([]byte, error)

	// IsOpen returns true if the transport can be used
	IsOpen() bool

	// Close closes the transport connection
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// Opener is implemented by transports that can be reopened after Close.
// Device.Begin uses it to recover from a faulted or closed transport.
type Opener interface {
	Open() error
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)
