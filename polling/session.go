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

package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZaparooProject/go-dtof"
)

// Callbacks defines callback functions for session events
type Callbacks struct {
	// OnFrame receives every decoded frame. An error is counted but does not stop the session.
	OnFrame func(frame dtof.Frame) error
	// OnError receives acquisition and callback errors. Timeouts are not reported.
	OnError func(err error)
}

// Metrics tracks operational metrics for a Session
type Metrics struct {
	Cycles         int64         // Total number of acquisition attempts
	Frames         int64         // Frames delivered to OnFrame
	Timeouts       int64         // Attempts that ended without a frame
	Errors         int64         // Attempts that failed for any other reason
	CallbackErrors int64         // Errors returned by OnFrame
	LastLatency    time.Duration // Duration of the last acquisition attempt
	LastPoints     int           // Point count of the last delivered frame
}

// Session runs continuous acquisition on a configured device and hands every
// frame to a callback until stopped or until the device faults.
type Session struct {
	device    *dtof.Device
	config    *Config
	limiter   *rate.Limiter
	callbacks Callbacks

	cancel context.CancelFunc
	done   chan struct{}
	err    error
	mu     sync.Mutex

	running        atomic.Bool
	cycles         atomic.Int64
	frames         atomic.Int64
	timeouts       atomic.Int64
	errors         atomic.Int64
	callbackErrors atomic.Int64
	lastLatency    atomic.Int64 // in nanoseconds
	lastPoints     atomic.Int64
}

// NewSession creates a session for device. A nil config uses DefaultConfig.
func NewSession(device *dtof.Device, config *Config, callbacks Callbacks) (*Session, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if config.MaxFrameRate > 0 {
		limit = rate.Limit(config.MaxFrameRate)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	return &Session{
		device:    device,
		config:    config,
		limiter:   rate.NewLimiter(limit, burst),
		callbacks: callbacks,
	}, nil
}

// Device returns the underlying sensor device
func (s *Session) Device() *dtof.Device {
	return s.device
}

// Start begins continuous acquisition (non-blocking). The device must have
// a measure mode configured.
func (s *Session) Start(ctx context.Context) error {
	if state := s.device.State(); state != dtof.StateReady {
		return fmt.Errorf("%w: device is %s", ErrDeviceNotReady, state)
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.err = nil
	s.mu.Unlock()

	go func() {
		defer close(done)
		err := s.run(runCtx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}

		s.mu.Lock()
		s.err = err
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		s.running.Store(false)
	}()

	return nil
}

// Stop cancels the session and blocks until the acquisition loop has exited
// or ctx is done. It returns the error that ended the loop, if any.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if done == nil {
		return ErrSessionNotRunning
	}
	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Err()
}

// Done is closed when the acquisition loop exits. It is nil before Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error that stopped the last run, or nil
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// IsRunning returns whether the acquisition loop is active
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// GetMetrics returns current operational metrics
func (s *Session) GetMetrics() Metrics {
	return Metrics{
		Cycles:         s.cycles.Load(),
		Frames:         s.frames.Load(),
		Timeouts:       s.timeouts.Load(),
		Errors:         s.errors.Load(),
		CallbackErrors: s.callbackErrors.Load(),
		LastLatency:    time.Duration(s.lastLatency.Load()),
		LastPoints:     int(s.lastPoints.Load()),
	}
}

// run acquires frames until ctx is cancelled or the device can no longer acquire
func (s *Session) run(ctx context.Context) error {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("rate limiter: %w", err)
		}

		start := time.Now()
		f, err := s.device.Acquire(ctx, s.config.AcquireTimeout)
		s.cycles.Add(1)
		s.lastLatency.Store(time.Since(start).Nanoseconds())

		if err == nil {
			s.deliver(f)
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, dtof.ErrTimeout) {
			s.timeouts.Add(1)
			continue
		}

		s.errors.Add(1)
		s.report(err)

		if errors.Is(err, dtof.ErrTransport) {
			return err
		}
		if state := s.device.State(); state != dtof.StateReady && state != dtof.StateAcquiring {
			return fmt.Errorf("%w: device is %s", ErrDeviceNotReady, state)
		}
		if err := pause(ctx, s.config.ErrorBackoff); err != nil {
			return err
		}
	}
}

func (s *Session) deliver(f dtof.Frame) {
	s.frames.Add(1)
	s.lastPoints.Store(int64(f.Len()))

	if s.callbacks.OnFrame == nil {
		return
	}
	if err := s.callbacks.OnFrame(f); err != nil {
		s.callbackErrors.Add(1)
		s.report(fmt.Errorf("frame callback: %w", err))
	}
}

func (s *Session) report(err error) {
	if s.callbacks.OnError != nil {
		s.callbacks.OnError(err)
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
