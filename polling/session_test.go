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
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-dtof"
	"github.com/ZaparooProject/go-dtof/internal/frame"
	testutil "github.com/ZaparooProject/go-dtof/internal/testing"
)

// newReadyDevice returns a device in single frame mode backed by a virtual sensor
func newReadyDevice(t *testing.T, mode dtof.MeasureMode) (*dtof.Device, *dtof.MockTransport, *testutil.VirtualSensor) {
	t.Helper()

	mock := dtof.NewMockTransport()
	sensor := testutil.NewVirtualSensor(dtof.DefaultGrid.Lines, dtof.DefaultGrid.PointsPerLine)
	mock.SetResponder(sensor.Respond)

	device, err := dtof.New(mock, dtof.WithAckTimeout(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = device.Close() })

	ctx := context.Background()
	require.NoError(t, device.BeginContext(ctx))
	require.NoError(t, device.SetFrameMode(ctx, dtof.FrameModeSingle))
	require.NoError(t, device.SetMeasureMode(ctx, mode))
	return device, mock, sensor
}

func fastConfig() *Config {
	config := DefaultConfig()
	config.AcquireTimeout = 50 * time.Millisecond
	config.ErrorBackoff = time.Millisecond
	return config
}

func stopSession(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.Stop(ctx)
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.FullMode())

	tests := []struct {
		config  *Config
		name    string
		device  *dtof.Device
		wantErr bool
	}{
		{name: "Defaults", device: device},
		{name: "Nil_Device", wantErr: true},
		{name: "Negative_Timeout", device: device, config: &Config{AcquireTimeout: -1}, wantErr: true},
		{name: "Negative_Backoff", device: device, config: &Config{ErrorBackoff: -1}, wantErr: true},
		{name: "Negative_Rate", device: device, config: &Config{MaxFrameRate: -1}, wantErr: true},
		{name: "Negative_Burst", device: device, config: &Config{Burst: -1}, wantErr: true},
		{name: "Zero_Burst_Is_Clamped", device: device, config: &Config{MaxFrameRate: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			session, err := NewSession(tt.device, tt.config, Callbacks{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.Same(t, device, session.Device())
			assert.False(t, session.IsRunning())
			assert.Nil(t, session.Done())
		})
	}
}

func TestConfig_Validate_WrapsSentinel(t *testing.T) {
	t.Parallel()

	err := (&Config{MaxFrameRate: -5}).Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.NoError(t, DefaultConfig().Validate())
}

func TestSession_Start_RequiresReadyDevice(t *testing.T) {
	t.Parallel()

	mock := dtof.NewMockTransport()
	device, err := dtof.New(mock)
	require.NoError(t, err)
	require.NoError(t, device.BeginContext(context.Background()))

	session, err := NewSession(device, fastConfig(), Callbacks{})
	require.NoError(t, err)

	err = session.Start(context.Background())
	require.ErrorIs(t, err, ErrDeviceNotReady)
	assert.False(t, session.IsRunning())
}

func TestSession_DeliversFrames(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.MultiPoint(2, 8, 23))

	frames := make(chan dtof.Frame, 16)
	session, err := NewSession(device, fastConfig(), Callbacks{
		OnFrame: func(f dtof.Frame) error {
			select {
			case frames <- f:
			default:
			}
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, session.Start(context.Background()))
	defer stopSession(t, session)

	for range 3 {
		select {
		case f := <-frames:
			assert.Equal(t, 2, f.Line)
			assert.Equal(t, 8, f.Start)
			require.Len(t, f.Points, 16)
			assert.Equal(t, testutil.SamplePoint(2, 8).Z, f.Points[0].Z)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}

	require.NoError(t, session.Stop(context.Background()))
	assert.False(t, session.IsRunning())

	metrics := session.GetMetrics()
	assert.GreaterOrEqual(t, metrics.Frames, int64(3))
	assert.GreaterOrEqual(t, metrics.Cycles, metrics.Frames)
	assert.Equal(t, 16, metrics.LastPoints)
	assert.Zero(t, metrics.Errors)
	assert.Equal(t, dtof.StateReady, device.State())
}

func TestSession_StartTwice(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.SinglePoint(0, 0))
	session, err := NewSession(device, fastConfig(), Callbacks{})
	require.NoError(t, err)

	require.NoError(t, session.Start(context.Background()))
	defer stopSession(t, session)

	err = session.Start(context.Background())
	assert.ErrorIs(t, err, ErrSessionRunning)
}

func TestSession_StopBeforeStart(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.SinglePoint(0, 0))
	session, err := NewSession(device, nil, Callbacks{})
	require.NoError(t, err)

	assert.ErrorIs(t, session.Stop(context.Background()), ErrSessionNotRunning)
}

func TestSession_Restart(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.SinglePoint(1, 1))
	session, err := NewSession(device, fastConfig(), Callbacks{})
	require.NoError(t, err)

	for range 2 {
		require.NoError(t, session.Start(context.Background()))
		require.Eventually(t, func() bool { return session.GetMetrics().Frames > 0 },
			2*time.Second, 5*time.Millisecond)
		require.NoError(t, session.Stop(context.Background()))
		assert.False(t, session.IsRunning())
	}
}

func TestSession_CallbackErrorsAreCounted(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.SinglePoint(3, 3))

	var (
		mu       sync.Mutex
		reported []error
	)
	errCallback := errors.New("consumer full")
	session, err := NewSession(device, fastConfig(), Callbacks{
		OnFrame: func(dtof.Frame) error { return errCallback },
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		},
	})
	require.NoError(t, err)

	require.NoError(t, session.Start(context.Background()))
	require.Eventually(t, func() bool { return session.GetMetrics().CallbackErrors >= 2 },
		2*time.Second, 5*time.Millisecond)
	require.NoError(t, session.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reported)
	require.ErrorIs(t, reported[0], errCallback)
	assert.Zero(t, session.GetMetrics().Errors)
}

func TestSession_CountsTimeouts(t *testing.T) {
	t.Parallel()

	device, _, sensor := newReadyDevice(t, dtof.SinglePoint(0, 5))
	sensor.Silence(frame.CmdTriggerFrame)

	config := fastConfig()
	config.AcquireTimeout = 10 * time.Millisecond

	var errCount int
	var mu sync.Mutex
	session, err := NewSession(device, config, Callbacks{
		OnError: func(error) {
			mu.Lock()
			errCount++
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	require.NoError(t, session.Start(context.Background()))
	require.Eventually(t, func() bool { return session.GetMetrics().Timeouts >= 2 },
		2*time.Second, 5*time.Millisecond)

	sensor.Restore(frame.CmdTriggerFrame)
	require.Eventually(t, func() bool { return session.GetMetrics().Frames >= 1 },
		2*time.Second, 5*time.Millisecond)
	require.NoError(t, session.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, errCount, "timeouts are not reported as errors")
}

func TestSession_StopsOnTransportFailure(t *testing.T) {
	t.Parallel()

	device, mock, _ := newReadyDevice(t, dtof.SinglePoint(4, 32))

	errUnplugged := errors.New("device unplugged")
	var (
		mu       sync.Mutex
		reported []error
	)
	session, err := NewSession(device, fastConfig(), Callbacks{
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		},
	})
	require.NoError(t, err)

	require.NoError(t, session.Start(context.Background()))
	require.Eventually(t, func() bool { return session.GetMetrics().Frames > 0 },
		2*time.Second, 5*time.Millisecond)

	mock.SetWriteError(errUnplugged)

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after transport failure")
	}

	require.ErrorIs(t, session.Err(), dtof.ErrTransport)
	assert.False(t, session.IsRunning())
	assert.Equal(t, dtof.StateFaulted, device.State())
	assert.Equal(t, int64(1), session.GetMetrics().Errors)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], dtof.ErrTransport)

	// Stop after the loop exited reports the same error
	require.ErrorIs(t, session.Stop(context.Background()), dtof.ErrTransport)
}

func TestSession_StopsWhenDeviceClosed(t *testing.T) {
	t.Parallel()

	device, _, sensor := newReadyDevice(t, dtof.SinglePoint(0, 0))
	sensor.Silence(frame.CmdTriggerFrame)

	session, err := NewSession(device, fastConfig(), Callbacks{})
	require.NoError(t, err)
	require.NoError(t, session.Start(context.Background()))

	require.NoError(t, device.Close())

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after device close")
	}
	assert.Error(t, session.Err())
}

func TestSession_RateLimit(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.SinglePoint(0, 0))

	config := fastConfig()
	config.MaxFrameRate = 20
	config.Burst = 1
	session, err := NewSession(device, config, Callbacks{})
	require.NoError(t, err)

	require.NoError(t, session.Start(context.Background()))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, session.Stop(context.Background()))

	// 200ms at 20/s allows about 5 cycles
	cycles := session.GetMetrics().Cycles
	assert.GreaterOrEqual(t, cycles, int64(1))
	assert.LessOrEqual(t, cycles, int64(8))
}

func TestSession_ParentContextCancel(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.SinglePoint(0, 0))
	session, err := NewSession(device, fastConfig(), Callbacks{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, session.Start(ctx))
	cancel()

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after context cancel")
	}
	require.NoError(t, session.Err())
	assert.Equal(t, dtof.StateReady, device.State())
}

func TestCollector(t *testing.T) {
	t.Parallel()

	device, _, _ := newReadyDevice(t, dtof.SinglePoint(0, 0))
	session, err := NewSession(device, fastConfig(), Callbacks{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(session, prometheus.Labels{"port": "/dev/ttyUSB0"})))

	require.NoError(t, session.Start(context.Background()))
	require.Eventually(t, func() bool { return session.GetMetrics().Frames >= 2 },
		2*time.Second, 5*time.Millisecond)
	require.NoError(t, session.Stop(context.Background()))
	want := session.GetMetrics()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "port" {
					assert.Equal(t, "/dev/ttyUSB0", label.GetValue())
				}
				if label.GetName() == "state" {
					assert.Equal(t, "ready", label.GetValue())
				}
			}
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Len(t, values, 9)
	assert.InDelta(t, float64(want.Frames), values["dtof_session_frames_total"], 0)
	assert.InDelta(t, float64(want.Cycles), values["dtof_session_acquire_cycles_total"], 0)
	assert.InDelta(t, 1, values["dtof_session_last_frame_points"], 0)
	assert.InDelta(t, 0, values["dtof_session_running"], 0)
	assert.InDelta(t, 1, values["dtof_session_device_state"], 0)
}
