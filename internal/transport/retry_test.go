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

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after retries", func(t *testing.T) {
		t.Parallel()
		calls := 0
		var retried []int
		cfg := RetryConfig{
			MaxRetries: 3,
			OnRetry: func(attempt int) error {
				retried = append(retried, attempt)
				return nil
			},
		}

		got, err := WithRetry(context.Background(), cfg, func() (int, bool, error) {
			calls++
			return calls, calls < 3, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, got)
		assert.Equal(t, []int{1, 2}, retried)
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := WithRetry(context.Background(), RetryConfig{MaxRetries: 2}, func() (int, bool, error) {
			calls++
			return 0, true, nil
		})

		require.ErrorIs(t, err, ErrRetriesExhausted)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		t.Parallel()
		permanent := errors.New("permanent")
		calls := 0
		_, err := WithRetry(context.Background(), RetryConfig{MaxRetries: 5}, func() (int, bool, error) {
			calls++
			return 0, false, permanent
		})

		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("backoff honours context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := RetryConfig{
			MaxRetries: 5,
			Backoff:    func(int) time.Duration { return time.Second },
		}

		start := time.Now()
		_, err := WithRetry(ctx, cfg, func() (int, bool, error) { return 0, true, nil })

		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})
}

func TestPollUntil(t *testing.T) {
	t.Parallel()

	t.Run("past deadline runs once", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := PollUntil(context.Background(), time.Now(), 10*time.Millisecond, func() (int, bool, error) {
			calls++
			return 0, true, nil
		})

		require.ErrorIs(t, err, ErrDeadlineReached)
		assert.Equal(t, 1, calls)
	})

	t.Run("returns first result", func(t *testing.T) {
		t.Parallel()
		calls := 0
		deadline := time.Now().Add(time.Second)
		got, err := PollUntil(context.Background(), deadline, time.Millisecond, func() (string, bool, error) {
			calls++
			if calls < 4 {
				return "", true, nil
			}
			return "done", false, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "done", got)
	})

	t.Run("bounded by deadline", func(t *testing.T) {
		t.Parallel()
		start := time.Now()
		_, err := PollUntil(context.Background(), start.Add(50*time.Millisecond), 20*time.Millisecond,
			func() (int, bool, error) { return 0, true, nil })

		require.ErrorIs(t, err, ErrDeadlineReached)
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
		assert.Less(t, elapsed, 200*time.Millisecond)
	})
}
