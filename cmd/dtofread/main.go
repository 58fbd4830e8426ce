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
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ZaparooProject/go-dtof"
	"github.com/ZaparooProject/go-dtof/detection"
	// Import the UART detector to register it
	_ "github.com/ZaparooProject/go-dtof/detection/uart"
	"github.com/ZaparooProject/go-dtof/polling"
	"github.com/ZaparooProject/go-dtof/transport/uart"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Logging, os.Stderr)
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("dtofread failed", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	_, _ = fmt.Println("Program stopped")
}

// run connects to the sensor, applies the configured modes and prints frames
// until ctx is cancelled, the frame count is reached or the sensor fails
func run(ctx context.Context, cfg *Config, logger *zap.Logger, out io.Writer) error {
	dtof.SetLogger(logger)
	dtof.SetDebugEnabled(cfg.Debug)

	transport, name, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}

	device, err := dtof.New(transport)
	if err != nil {
		_ = transport.Close()
		return fmt.Errorf("create device: %w", err)
	}
	defer func() { _ = device.Close() }()

	mode, err := setupDevice(ctx, cfg, device, out)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var frames int
	session, err := polling.NewSession(device, sessionConfig(cfg), polling.Callbacks{
		OnFrame: func(f dtof.Frame) error {
			printFrame(out, f, mode, device.Grid())
			frames++
			if cfg.Count > 0 && frames >= cfg.Count {
				cancel()
			}
			return nil
		},
		OnError: func(err error) {
			logger.Warn("acquisition failed", zap.Error(err))
		},
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if cfg.MetricsAddr != "" {
		_, shutdown, err := serveMetrics(cfg.MetricsAddr, session, name, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	if err := session.Start(runCtx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	select {
	case <-runCtx.Done():
	case <-session.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Timeout+time.Second)
	defer stopCancel()
	err = session.Stop(stopCtx)

	m := session.GetMetrics()
	logger.Info("session finished",
		zap.String("port", name),
		zap.Int64("cycles", m.Cycles),
		zap.Int64("frames", m.Frames),
		zap.Int64("timeouts", m.Timeouts),
		zap.Int64("errors", m.Errors),
		zap.Duration("last_latency", m.LastLatency))

	if err != nil {
		return fmt.Errorf("session stopped: %w", err)
	}
	return nil
}

// setupDevice begins the driver and applies frame and measure modes,
// retrying each step the way the sensor demos do
func setupDevice(ctx context.Context, cfg *Config, device *dtof.Device, out io.Writer) (dtof.MeasureMode, error) {
	frameMode, err := cfg.frameMode()
	if err != nil {
		return dtof.MeasureMode{}, err
	}
	mode, err := cfg.measureMode()
	if err != nil {
		return dtof.MeasureMode{}, err
	}

	_, _ = fmt.Fprintln(out, "dToF sensor init...")
	if err := dtof.RetryWithConfig(ctx, nil, func() error { return device.BeginContext(ctx) }); err != nil {
		return mode, fmt.Errorf("begin sensor: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Configuring frame mode: %s...\n", frameMode)
	if err := dtof.RetryWithConfig(ctx, nil, func() error { return device.SetFrameMode(ctx, frameMode) }); err != nil {
		return mode, fmt.Errorf("configure frame mode: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Config %s frame mode: Success\n", frameMode)

	_, _ = fmt.Fprintf(out, "Configuring measure mode: %s...\n", mode)
	if err := dtof.RetryWithConfig(ctx, nil, func() error { return device.SetMeasureMode(ctx, mode) }); err != nil {
		return mode, fmt.Errorf("configure measure mode: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Config %s: Success\n", mode)

	if frameMode == dtof.FrameModeContinuous {
		if err := device.SetStreaming(ctx, true); err != nil {
			return mode, fmt.Errorf("enable streaming: %w", err)
		}
	}
	return mode, nil
}

func sessionConfig(cfg *Config) *polling.Config {
	sc := polling.DefaultConfig()
	sc.AcquireTimeout = cfg.Timeout
	if cfg.Interval > 0 {
		sc.MaxFrameRate = float64(time.Second) / float64(cfg.Interval)
	}
	return sc
}

// openTransport returns the simulated sensor, the configured port or the
// best auto-detected port, in that order
func openTransport(ctx context.Context, cfg *Config, logger *zap.Logger) (dtof.Transport, string, error) {
	if cfg.Simulate {
		logger.Info("using simulated sensor")
		return newSimulatedTransport(dtof.DefaultGrid), "simulated", nil
	}

	port := cfg.Port
	if port == "" {
		mode, err := cfg.detectMode()
		if err != nil {
			return nil, "", err
		}
		opts := detection.DefaultOptions()
		opts.Mode = mode
		if cfg.Detect.Timeout > 0 {
			opts.Timeout = cfg.Detect.Timeout
		}

		logger.Info("auto-detecting sensor", zap.Stringer("mode", mode))
		devices, err := detection.DetectAllContext(ctx, &opts)
		if err != nil {
			return nil, "", fmt.Errorf("auto-detect: %w", err)
		}
		if len(devices) == 0 {
			return nil, "", detection.ErrNoDevicesFound
		}
		best := devices[0]
		logger.Info("selected port",
			zap.String("path", best.Path),
			zap.String("name", best.Name),
			zap.Stringer("confidence", best.Confidence))
		port = best.Path
	}

	t, err := uart.NewWithOptions(port, cfg.Serial)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", port, err)
	}
	return t, port, nil
}

// serveMetrics exposes the session collector over HTTP. It returns the bound
// address and a function that shuts the server down.
func serveMetrics(
	addr string,
	session *polling.Session,
	port string,
	logger *zap.Logger,
) (string, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		polling.NewCollector(session, prometheus.Labels{"port": port}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
