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
	"fmt"
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithGrid sets the addressable field used to validate measure modes.
// Use Grid{Lines: 1, PointsPerLine: n} for single-line sensors.
func WithGrid(grid Grid) Option {
	return func(d *Device) error {
		if err := ValidateGrid(grid); err != nil {
			return err
		}
		d.config.Grid = grid
		return nil
	}
}

// WithAckTimeout sets how long configuration commands wait for the sensor's
// acknowledgement
func WithAckTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: ack timeout must be positive, got %v", ErrInvalidParameters, timeout)
		}
		d.config.AckTimeout = timeout
		return nil
	}
}

// WithPollInterval sets the wait between empty transport reads
func WithPollInterval(interval time.Duration) Option {
	return func(d *Device) error {
		if interval < 0 {
			return fmt.Errorf("%w: poll interval must not be negative, got %v", ErrInvalidParameters, interval)
		}
		d.config.PollInterval = interval
		return nil
	}
}

// WithDefaultFrameMode sets the frame mode assumed after Begin
func WithDefaultFrameMode(mode FrameMode) Option {
	return func(d *Device) error {
		if mode != FrameModeContinuous && mode != FrameModeSingle {
			return fmt.Errorf("%w: unknown frame mode %d", ErrInvalidParameters, mode)
		}
		d.config.DefaultFrameMode = mode
		return nil
	}
}
