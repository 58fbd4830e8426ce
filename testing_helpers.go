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
	"sync"
	"time"
)

// MockTransport is an in-memory Transport for tests. Bytes queued with
// Inject, or produced by the responder on Write, are returned by
// ReadAvailable in chunks of at most ChunkSize bytes.
type MockTransport struct {
	responder    func(cmd []byte) []byte
	readErr      error
	writeErr     error
	openErr      error
	writes       [][]byte
	pending      []byte
	timers       []*time.Timer
	pollInterval time.Duration
	chunkSize    int
	opens        int
	mu           sync.Mutex
	closed       bool
}

// NewMockTransport creates an open mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Write records data and queues the responder's reply, if any
func (m *MockTransport) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewTransportError("write", "mock", ErrTransportClosed, ErrorTypePermanent)
	}
	if m.writeErr != nil {
		return m.writeErr
	}

	m.writes = append(m.writes, append([]byte(nil), data...))
	if m.responder != nil {
		m.pending = append(m.pending, m.responder(data)...)
	}
	return nil
}

// ReadAvailable returns queued bytes without blocking
func (m *MockTransport) ReadAvailable() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, NewTransportError("read", "mock", ErrTransportClosed, ErrorTypePermanent)
	}
	if m.readErr != nil {
		return nil, m.readErr
	}

	n := len(m.pending)
	if m.chunkSize > 0 && n > m.chunkSize {
		n = m.chunkSize
	}
	out := append([]byte(nil), m.pending[:n]...)
	m.pending = m.pending[n:]
	return out, nil
}

// IsOpen returns false after Close until Open is called
func (m *MockTransport) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Open reopens a closed mock transport, discarding queued bytes
func (m *MockTransport) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opens++
	if m.openErr != nil {
		return m.openErr
	}
	m.closed = false
	m.pending = nil
	return nil
}

// Close marks the transport closed and cancels pending delayed injections
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
	return nil
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// PollInterval returns the interval set with SetPollInterval
func (m *MockTransport) PollInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollInterval
}

// Inject queues bytes for ReadAvailable
func (m *MockTransport) Inject(data ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range data {
		m.pending = append(m.pending, d...)
	}
}

// InjectAfter queues bytes once delay has elapsed
func (m *MockTransport) InjectAfter(delay time.Duration, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := append([]byte(nil), data...)
	m.timers = append(m.timers, time.AfterFunc(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.closed {
			m.pending = append(m.pending, buf...)
		}
	}))
}

// SetResponder installs a function producing the sensor's reply to each
// written command. A nil reply queues nothing.
func (m *MockTransport) SetResponder(fn func(cmd []byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// SetReadError makes every ReadAvailable call fail with err. Pass nil to clear.
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes every Write call fail with err. Pass nil to clear.
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetOpenError makes Open fail with err. Pass nil to clear.
func (m *MockTransport) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetChunkSize limits how many bytes one ReadAvailable call returns.
// Zero returns everything queued.
func (m *MockTransport) SetChunkSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkSize = n
}

// SetPollInterval sets the interval reported to the driver
func (m *MockTransport) SetPollInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollInterval = d
}

// Writes returns a copy of every successful write
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// WriteCount returns the number of successful writes
func (m *MockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// OpenCount returns the number of Open calls
func (m *MockTransport) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Pending returns the number of queued bytes not yet read
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// BlockingMockTransport is a MockTransport whose writes block until Unblock
// or Close. It is used to hold an operation in flight in concurrency tests.
type BlockingMockTransport struct {
	*MockTransport
	blockChan chan struct{}
	started   chan struct{}
	blockMu   sync.Mutex
	released  bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		MockTransport: NewMockTransport(),
		blockChan:     make(chan struct{}),
		started:       make(chan struct{}, 1),
	}
}

// Write blocks until Unblock or Close, then behaves like MockTransport.Write
func (m *BlockingMockTransport) Write(data []byte) error {
	m.blockMu.Lock()
	blockChan := m.blockChan
	m.blockMu.Unlock()

	select {
	case m.started <- struct{}{}:
	default:
	}
	<-blockChan
	return m.MockTransport.Write(data)
}

// Started is signalled when a Write begins blocking
func (m *BlockingMockTransport) Started() <-chan struct{} {
	return m.started
}

// Unblock releases every blocked and future Write
func (m *BlockingMockTransport) Unblock() {
	m.blockMu.Lock()
	defer m.blockMu.Unlock()
	if !m.released {
		m.released = true
		close(m.blockChan)
	}
}

// Close unblocks all operations and marks transport as closed
func (m *BlockingMockTransport) Close() error {
	m.Unblock()
	return m.MockTransport.Close()
}
