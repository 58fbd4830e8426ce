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

package testing

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/go-dtof/internal/frame"
)

// VirtualSensor emulates the sensor firmware at the command level. Respond
// is meant to be installed as a mock transport responder; Poll produces
// frames in continuous mode.
type VirtualSensor struct {
	// Sample returns the point reported for a grid coordinate.
	// Defaults to SamplePoint.
	Sample func(line, point int) RawPoint

	reject        map[string]bool
	silent        map[string]bool
	lastFrame     time.Time
	commands      []string
	lines         int
	pointsPerLine int
	line          int
	start         int
	count         int
	interval      time.Duration
	corruptNext   int
	mu            sync.Mutex
	singleMode    bool
	outputAll     bool
	configured    bool
	streaming     bool
}

// NewVirtualSensor creates a sensor with the given grid. It starts in
// continuous mode with streaming enabled and no output configured.
func NewVirtualSensor(lines, pointsPerLine int) *VirtualSensor {
	return &VirtualSensor{
		Sample:        SamplePoint,
		reject:        make(map[string]bool),
		silent:        make(map[string]bool),
		lines:         lines,
		pointsPerLine: pointsPerLine,
		streaming:     true,
	}
}

// Reject makes the sensor answer ERROR to the named command
func (v *VirtualSensor) Reject(cmd string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reject[cmd] = true
}

// Silence makes the sensor ignore the named command
func (v *VirtualSensor) Silence(cmd string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent[cmd] = true
}

// Restore undoes Reject and Silence for the named command
func (v *VirtualSensor) Restore(cmd string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.reject, cmd)
	delete(v.silent, cmd)
}

// CorruptNext makes the next n frames carry a bad checksum
func (v *VirtualSensor) CorruptNext(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.corruptNext = n
}

// SetFrameInterval sets the minimum time between frames produced by Poll
func (v *VirtualSensor) SetFrameInterval(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.interval = d
}

// Commands returns the names of every command received
func (v *VirtualSensor) Commands() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.commands...)
}

// Respond handles one written command and returns the sensor's reply
func (v *VirtualSensor) Respond(data []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []byte
	for _, line := range strings.Split(string(data), frame.CommandTerminator) {
		if line == "" {
			continue
		}
		out = append(out, v.handle(line)...)
	}
	return out
}

func (v *VirtualSensor) handle(line string) []byte {
	name, rawArgs, _ := strings.Cut(line, "=")
	v.commands = append(v.commands, name)

	if v.silent[name] {
		return nil
	}
	if v.reject[name] {
		return BuildErrorAck()
	}

	args, ok := parseArgs(rawArgs)
	if !ok {
		return BuildErrorAck()
	}

	switch name {
	case frame.CmdFrameMode:
		if len(args) != 1 || (args[0] != frame.FrameModeContinuousArg && args[0] != frame.FrameModeSingleArg) {
			return BuildErrorAck()
		}
		v.singleMode = args[0] == frame.FrameModeSingleArg
		return BuildOKAck()
	case frame.CmdOutputAll:
		v.outputAll = true
		v.configured = true
		return BuildOKAck()
	case frame.CmdOutputLine:
		if len(args) != 3 || !v.validLine(args[0], args[1], args[2]) {
			return BuildErrorAck()
		}
		v.outputAll = false
		v.line, v.start, v.count = args[0], args[1], args[2]
		v.configured = true
		return BuildOKAck()
	case frame.CmdTriggerFrame:
		if !v.singleMode || !v.configured {
			return BuildErrorAck()
		}
		return v.frameLocked()
	case frame.CmdStreamControl:
		if len(args) != 1 || args[0] > 1 || args[0] < 0 {
			return BuildErrorAck()
		}
		v.streaming = args[0] == 1
		return BuildOKAck()
	case frame.CmdSaveConfig:
		return BuildOKAck()
	default:
		return BuildErrorAck()
	}
}

func (v *VirtualSensor) validLine(line, start, count int) bool {
	return line >= 0 && line < v.lines &&
		start >= 0 && count >= 1 &&
		start+count <= v.pointsPerLine
}

// Poll returns the next frame when the sensor streams in continuous mode and
// the frame interval has elapsed, or nil
func (v *VirtualSensor) Poll() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.singleMode || !v.configured || !v.streaming {
		return nil
	}
	now := time.Now()
	if v.interval > 0 && now.Sub(v.lastFrame) < v.interval {
		return nil
	}
	v.lastFrame = now
	return v.frameLocked()
}

// Frame returns a frame for the current output configuration regardless of
// frame mode, or nil when no output is configured
func (v *VirtualSensor) Frame() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.configured {
		return nil
	}
	return v.frameLocked()
}

func (v *VirtualSensor) frameLocked() []byte {
	var out []byte
	if v.outputAll {
		points := make([]RawPoint, 0, v.lines*v.pointsPerLine)
		for l := 0; l < v.lines; l++ {
			for p := 0; p < v.pointsPerLine; p++ {
				points = append(points, v.Sample(l, p))
			}
		}
		out = BuildFrame(frame.AllLinesMarker, 0, points)
	} else {
		points := make([]RawPoint, v.count)
		for i := range points {
			points[i] = v.Sample(v.line, v.start+i)
		}
		out = BuildFrame(byte(v.line), byte(v.start), points) //nolint:gosec // validated against the grid
	}

	if v.corruptNext > 0 {
		v.corruptNext--
		out = CorruptChecksum(out)
	}
	return out
}

func parseArgs(raw string) ([]int, bool) {
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	args := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		args[i] = n
	}
	return args, true
}
