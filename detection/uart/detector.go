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

// Package uart detects dToF sensors on serial ports. Importing it registers
// the detector with the detection package.
package uart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-dtof"
	"github.com/ZaparooProject/go-dtof/detection"
	"github.com/ZaparooProject/go-dtof/internal/frame"
	uarttransport "github.com/ZaparooProject/go-dtof/transport/uart"
)

// TransportName is the transport reported in DeviceInfo
const TransportName = "uart"

type (
	listFunc  func() ([]*enumerator.PortDetails, error)
	probeFunc func(ctx context.Context, path string, mode detection.Mode) (bool, map[string]string)
)

type detector struct {
	list   listFunc
	probe  probeFunc
	access func(path string) error
}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{
		list:   enumerator.GetDetailedPortsList,
		probe:  probePort,
		access: checkAccess,
	}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return TransportName
}

// Detect lists serial ports and rates each one. In Safe and Full mode
// accessible candidates are opened and probed.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	devices := make([]detection.DeviceInfo, 0, len(ports))
	for _, p := range ports {
		if err := ctx.Err(); err != nil {
			return devices, err
		}
		device, ok := d.inspect(ctx, p, opts)
		if ok {
			devices = append(devices, device)
		}
	}
	return devices, nil
}

func (d *detector) inspect(
	ctx context.Context,
	p *enumerator.PortDetails,
	opts *detection.Options,
) (detection.DeviceInfo, bool) {
	if detection.IsPathIgnored(p.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  TransportName,
		Path:       p.Name,
		Name:       p.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}

	if p.IsUSB {
		id, hasID := detection.NewUSBID(p.VID, p.PID)
		if hasID {
			if detection.IsBlocked(id, opts.Blocklist) {
				return detection.DeviceInfo{}, false
			}
			device.Metadata["vidpid"] = id.String()
		}
		if p.SerialNumber != "" {
			device.Metadata["serial"] = p.SerialNumber
		}
		if p.Product != "" {
			device.Name = p.Product
			device.Metadata["product"] = p.Product
		}
		if bridge, ok := detection.KnownBridges()[id]; hasID && ok {
			device.Metadata["bridge"] = bridge
			device.Confidence = detection.Medium
		}
	} else if opts.Mode == detection.Passive {
		// Built-in UARTs are only worth reporting when they can be probed
		return detection.DeviceInfo{}, false
	}

	if err := d.access(p.Name); err != nil {
		device.Metadata["access"] = err.Error()
		return device, device.Confidence > detection.Low
	}

	if opts.Mode == detection.Passive {
		return device, true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = detection.DefaultOptions().Timeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	confirmed, metadata := d.probe(probeCtx, p.Name, opts.Mode)
	cancel()

	if !confirmed {
		return device, device.Confidence > detection.Low
	}
	device.Confidence = detection.High
	for k, v := range metadata {
		device.Metadata[k] = v
	}
	return device, true
}

// probePort opens path and looks for sensor output. Safe mode only listens
// for a valid frame; Full mode also asks the sensor to acknowledge a command.
func probePort(ctx context.Context, path string, mode detection.Mode) (bool, map[string]string) {
	transport, err := uarttransport.New(path)
	if err != nil {
		return false, nil
	}
	defer func() { _ = transport.Close() }()

	if listenForFrame(ctx, transport) {
		return true, map[string]string{"probe": "frame"}
	}
	if mode != detection.Full {
		return false, nil
	}

	device, err := dtof.New(transport)
	if err != nil {
		return false, nil
	}
	if err := device.BeginContext(ctx); err != nil {
		return false, nil
	}
	if err := device.SetStreaming(ctx, true); err != nil {
		return false, nil
	}
	return true, map[string]string{"probe": "ack"}
}

// listenForFrame reports whether a checksum-valid frame arrives before ctx
// is done, whatever its point count
func listenForFrame(ctx context.Context, t dtof.Transport) bool {
	codec := dtof.NewCodec(dtof.DefaultGrid)
	pooled := frame.GetBuffer(0)
	defer frame.PutBuffer(pooled)
	buf := pooled

	for ctx.Err() == nil {
		data, err := t.ReadAvailable()
		if err != nil {
			return false
		}
		buf = append(buf, data...)

		for len(buf) > 0 {
			_, n, err := codec.DecodeFrame(buf, -1)
			buf = buf[n:]
			if errors.Is(err, dtof.ErrCountMismatch) {
				return true
			}
			if errors.Is(err, dtof.ErrIncomplete) {
				break
			}
		}
		if len(data) == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	return false
}
