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
	"errors"
	"fmt"
	"time"
)

// Config holds configuration options for a Session
type Config struct {
	// AcquireTimeout bounds each acquisition attempt
	AcquireTimeout time.Duration
	// ErrorBackoff is the pause after a failed attempt that did not stop the session
	ErrorBackoff time.Duration
	// MaxFrameRate caps acquisitions per second. Zero means unlimited.
	MaxFrameRate float64
	// Burst is the number of acquisitions allowed back to back under MaxFrameRate
	Burst int
}

// Session errors
var (
	ErrSessionRunning    = errors.New("session is already running")
	ErrSessionNotRunning = errors.New("session is not running")
	ErrDeviceNotReady    = errors.New("device is not ready for acquisition")
	ErrInvalidConfig     = errors.New("invalid session configuration")
)

// DefaultConfig returns sensible default configuration values
func DefaultConfig() *Config {
	return &Config{
		AcquireTimeout: time.Second,
		ErrorBackoff:   10 * time.Millisecond,
		MaxFrameRate:   0,
		Burst:          1,
	}
}

// Validate checks the configuration for values the session cannot run with
func (c *Config) Validate() error {
	switch {
	case c.AcquireTimeout < 0:
		return fmt.Errorf("%w: acquire timeout must not be negative", ErrInvalidConfig)
	case c.ErrorBackoff < 0:
		return fmt.Errorf("%w: error backoff must not be negative", ErrInvalidConfig)
	case c.MaxFrameRate < 0:
		return fmt.Errorf("%w: max frame rate must not be negative", ErrInvalidConfig)
	case c.Burst < 0:
		return fmt.Errorf("%w: burst must not be negative", ErrInvalidConfig)
	}
	return nil
}
