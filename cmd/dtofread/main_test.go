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

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ZaparooProject/go-dtof"
	"github.com/ZaparooProject/go-dtof/polling"
)

func simulatedConfig(t *testing.T, args ...string) *Config {
	t.Helper()
	args = append([]string{
		"-config", writeConfig(t, "config.yaml", ""),
		"-simulate", "-interval", "0s", "-count", "2",
	}, args...)
	cfg, err := loadConfig(args)
	require.NoError(t, err)
	return cfg
}

func TestRun_Simulated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "Full_Single_Frame",
			args: []string{"-mode", "full"},
			want: []string{"Received 512 points", "Sample Point[4,00]", "Nearest Point["},
		},
		{
			name: "Single_Point",
			args: []string{"-mode", "single", "-line", "4", "-point", "32"},
			want: []string{"Received 1 points", "Point[32]: X:", "Config single-point(line=4, point=32): Success"},
		},
		{
			name: "Multi_Point",
			args: []string{"-mode", "multi", "-line", "4", "-start", "10", "-end", "20"},
			want: []string{"Received 11 points", "Point[10]:", "Point[20]:"},
		},
		{
			name: "Full_Continuous",
			args: []string{"-mode", "full", "-frame-mode", "continuous", "-timeout", "1s"},
			want: []string{"Config continuous frame mode: Success", "Received 512 points"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := simulatedConfig(t, tt.args...)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var out bytes.Buffer
			require.NoError(t, run(ctx, cfg, zap.NewNop(), &out))

			output := out.String()
			assert.Equal(t, 2, strings.Count(output, "Received "), output)
			for _, want := range tt.want {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	cfg := simulatedConfig(t, "-count", "0", "-interval", "50ms")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() { done <- run(ctx, cfg, zap.NewNop(), &out) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestSessionConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{Timeout: 300 * time.Millisecond, Interval: 250 * time.Millisecond}
	sc := sessionConfig(cfg)
	assert.Equal(t, 300*time.Millisecond, sc.AcquireTimeout)
	assert.InDelta(t, 4.0, sc.MaxFrameRate, 1e-9)

	cfg.Interval = 0
	assert.Zero(t, sessionConfig(cfg).MaxFrameRate)
}

func TestPrintFrame(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	f := dtof.Frame{Line: 4, Start: 32, Points: []dtof.Point{{X: -12, Y: 5, Z: 1234, Intensity: 77}}}
	printFrame(&out, f, dtof.SinglePoint(4, 32), dtof.DefaultGrid)
	assert.Equal(t, "Received 1 points\nPoint[32]: X:-012 mm Y:0005 mm Z:1234 mm I:77\n", out.String())

	out.Reset()
	printFrame(&out, dtof.Frame{}, dtof.FullMode(), dtof.DefaultGrid)
	assert.Equal(t, "Received 0 points\n", out.String())
}

func TestServeMetrics(t *testing.T) {
	t.Parallel()

	transport := newSimulatedTransport(dtof.DefaultGrid)
	device, err := dtof.New(transport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = device.Close() })

	session, err := polling.NewSession(device, nil, polling.Callbacks{})
	require.NoError(t, err)

	addr, shutdown, err := serveMetrics("127.0.0.1:0", session, "simulated", zap.NewNop())
	require.NoError(t, err)
	defer shutdown()

	resp, err := http.Get("http://" + addr + "/metrics") //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `dtof_session_frames_total{port="simulated"} 0`)
	assert.Contains(t, string(body), `dtof_session_device_state{port="simulated",state="uninitialized"} 1`)
}
