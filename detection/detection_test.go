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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUSBID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		descriptor string
		want       USBID
		wantOK     bool
	}{
		{name: "plain", descriptor: "1a86:7523", want: USBID{VID: 0x1A86, PID: 0x7523}, wantOK: true},
		{name: "padded", descriptor: "  1366:1015 ", want: USBID{VID: 0x1366, PID: 0x1015}, wantOK: true},
		{name: "labelled", descriptor: "VID:10C4 PID:EA60", want: USBID{VID: 0x10C4, PID: 0xEA60}, wantOK: true},
		{name: "vendor product", descriptor: "vendor=0403 product=6001", want: USBID{VID: 0x0403, PID: 0x6001}, wantOK: true},
		{name: "equals form", descriptor: "vid=1a86 pid=55d4", want: USBID{VID: 0x1A86, PID: 0x55D4}, wantOK: true},
		{name: "short ids", descriptor: "vendor=483 product=374b", want: USBID{VID: 0x0483, PID: 0x374B}, wantOK: true},
		{name: "hex prefix", descriptor: "idVendor=0x2e8a idProduct=0x000c", want: USBID{VID: 0x2E8A, PID: 0x000C}, wantOK: true},
		{
			name:       "hardware id",
			descriptor: "USB VID:PID=1A86:7523 SER=5&2B4F LOCATION=1-1.2",
			want:       USBID{VID: 0x1A86, PID: 0x7523},
			wantOK:     true,
		},
		{name: "vendor only", descriptor: "VID:1A86"},
		{name: "too wide", descriptor: "1A860:7523"},
		{name: "not hex", descriptor: "COM3"},
		{name: "path", descriptor: "/dev/ttyUSB0"},
		{name: "empty", descriptor: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseUSBID(tt.descriptor)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{"1366:1015", "vendor=483 product=374b", "not an id"}

	assert.True(t, IsBlocked(USBID{VID: 0x1366, PID: 0x1015}, blocklist))
	assert.True(t, IsBlocked(USBID{VID: 0x0483, PID: 0x374B}, blocklist))
	assert.False(t, IsBlocked(USBID{VID: 0x1A86, PID: 0x7523}, blocklist))
	assert.False(t, IsBlocked(USBID{}, blocklist))
	assert.False(t, IsBlocked(USBID{VID: 0x1366, PID: 0x1015}, nil))

	for _, entry := range DefaultBlocklist() {
		id, ok := ParseUSBID(entry)
		require.True(t, ok, entry)
		assert.True(t, IsBlocked(id, DefaultBlocklist()), entry)
		assert.Equal(t, entry, id.String())
	}
}

func TestNewUSBID(t *testing.T) {
	t.Parallel()

	id, ok := NewUSBID("1a86", "7523")
	require.True(t, ok)
	assert.Equal(t, "1A86:7523", id.String())

	id, ok = NewUSBID("403", "6001")
	require.True(t, ok)
	assert.Equal(t, "0403:6001", id.String())

	_, ok = NewUSBID("", "")
	assert.False(t, ok)
	_, ok = NewUSBID("10c4", "xyz")
	assert.False(t, ok)

	id, ok = NewUSBID("10c4", "ea60")
	require.True(t, ok)
	assert.Equal(t, "CP210x", KnownBridges()[id])
}

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (f *fakeDetector) Transport() string { return f.transport }

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

// Registry tests share package state and do not run in parallel
func TestDetectAllContext(t *testing.T) {
	registryMu.Lock()
	saved := registry
	registry = make(map[string]Detector)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})

	_, err := DetectAll(nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)

	RegisterDetector(&fakeDetector{transport: "spi", err: ErrUnsupportedPlatform})
	RegisterDetector(&fakeDetector{transport: "uart", devices: []DeviceInfo{
		{Path: "/dev/ttyS0", Confidence: Low},
		{Path: "/dev/ttyUSB0", Confidence: High},
		{Path: "/dev/ttyACM0", Confidence: Medium},
	}})

	devices, err := DetectAllContext(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "/dev/ttyUSB0", devices[0].Path)
	assert.Equal(t, "/dev/ttyACM0", devices[1].Path)
	assert.Equal(t, "/dev/ttyS0", devices[2].Path)

	boom := errors.New("enumeration failed")
	RegisterDetector(&fakeDetector{transport: "uart", err: boom})
	_, err = DetectAll(nil)
	require.ErrorIs(t, err, boom)
}

func TestStringers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "safe", Safe.String())
	assert.Equal(t, "high", High.String())
	assert.Equal(t, Safe, DefaultOptions().Mode)
}
