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

// Package detection discovers serial ports that may have a dToF sensor
// attached. Transport specific detectors register themselves on import.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no detector found a candidate
	ErrNoDevicesFound = errors.New("no devices found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run here
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// Mode controls how intrusive detection is
type Mode int

const (
	// Passive only enumerates ports; nothing is opened
	Passive Mode = iota
	// Safe opens candidate ports and listens for sensor frames without
	// sending anything
	Safe
	// Full also sends configuration commands to confirm the sensor
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Confidence expresses how likely a candidate is a sensor
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// DeviceInfo describes a detected candidate
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// Options configures detection
type Options struct {
	// IgnorePaths lists device paths that are never reported or opened
	IgnorePaths []string
	// Blocklist lists VID:PID pairs that are never reported or opened
	Blocklist []string
	// Timeout bounds probing of a single port
	Timeout time.Duration
	Mode    Mode
}

// DefaultOptions returns safe detection defaults
func DefaultOptions() Options {
	return Options{
		Mode:      Safe,
		Timeout:   500 * time.Millisecond,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds candidates for one transport
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Detector)
)

// RegisterDetector makes a detector available to DetectAll. Registering the
// same transport twice replaces the earlier detector.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Detectors returns the registered detectors sorted by transport name
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector with a background context
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector and returns the candidates
// ordered by confidence. Detectors that are unsupported here are skipped.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}

	var devices []DeviceInfo
	var errs []error
	for _, d := range Detectors() {
		found, err := d.Detect(ctx, opts)
		if err != nil {
			if errors.Is(err, ErrUnsupportedPlatform) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
			continue
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}
