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

// Package transport provides internal polling and retry utilities shared by
// the configuration and acquisition paths
package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRetriesExhausted is returned by WithRetry when every attempt asked to retry
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrDeadlineReached is returned by PollUntil when the deadline passes first
	ErrDeadlineReached = errors.New("deadline reached")
)

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry func(attempt int) error
	// Backoff returns the delay before the given retry attempt (1-based).
	// A nil Backoff retries immediately.
	Backoff     func(attempt int) time.Duration
	Description string
	MaxRetries  int
}

// WithRetry executes an operation with retry logic
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}

		if config.Backoff != nil {
			if err := Sleep(ctx, config.Backoff(attempt+1)); err != nil {
				return zero, err
			}
		}
	}

	return zero, ErrRetriesExhausted
}

// PollUntil runs operation until it stops asking for a retry or the deadline
// passes. The operation always runs at least once, so a deadline in the past
// gives a single non-blocking attempt. Between attempts it waits interval,
// clipped to the time left before the deadline.
func PollUntil[T any](
	ctx context.Context,
	deadline time.Time,
	interval time.Duration,
	operation RetryOperation[T],
) (T, error) {
	var zero T

	for {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, ErrDeadlineReached
		}

		wait := interval
		if wait <= 0 {
			wait = time.Millisecond
		}
		if wait > remaining {
			wait = remaining
		}
		if err := Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
