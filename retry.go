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
	"math/rand/v2"
	"time"

	"github.com/ZaparooProject/go-dtof/internal/transport"
)

// RetryConfig configures caller-side retry behavior. The driver itself
// never retries; wrap Begin, configuration or acquisition calls in
// RetryWithConfig when repeated attempts are wanted.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            float64
	RetryTimeout      time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      10 * time.Second,
	}
}

// RetryWithConfig runs fn until it succeeds, returns a non-retryable error,
// or the attempts or RetryTimeout run out. A nil config uses the defaults.
// Timeouts, rejections and transient transport errors are retried.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	maxRetries := config.MaxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	_, err := transport.WithRetry(ctx, transport.RetryConfig{
		Description: "caller retry",
		MaxRetries:  maxRetries,
		Backoff: func(attempt int) time.Duration {
			return calculateBackoff(config, attempt)
		},
		OnRetry: func(attempt int) error {
			debugf("retry attempt %d after: %v", attempt, lastErr)
			return nil
		},
	}, func() (struct{}, bool, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, false, err
		}
		lastErr = fn()
		if lastErr == nil {
			return struct{}{}, false, nil
		}
		if !IsRetryable(lastErr) {
			return struct{}{}, false, lastErr
		}
		return struct{}{}, true, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrRetriesExhausted):
		return fmt.Errorf("after %d attempts: %w", config.MaxAttempts, lastErr)
	case lastErr != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)):
		return fmt.Errorf("%w (last error: %w)", err, lastErr)
	default:
		return err
	}
}

// calculateBackoff returns the delay before the given retry attempt (1-based)
func calculateBackoff(config *RetryConfig, attempt int) time.Duration {
	backoff := float64(config.InitialBackoff)
	multiplier := config.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	for i := 1; i < attempt; i++ {
		backoff *= multiplier
		if config.MaxBackoff > 0 && backoff > float64(config.MaxBackoff) {
			backoff = float64(config.MaxBackoff)
			break
		}
	}

	if config.Jitter > 0 {
		jitter := backoff * config.Jitter
		backoff += jitter * (rand.Float64()*2 - 1) //nolint:gosec // timing jitter only
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}
