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
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// USBID identifies a USB device by vendor and product ID
type USBID struct {
	VID uint16
	PID uint16
}

// String formats the ID as upper-case VID:PID, the form used in blocklists
func (id USBID) String() string {
	return fmt.Sprintf("%04X:%04X", id.VID, id.PID)
}

// DefaultBlocklist returns USB serial devices that are never a sensor and
// must not be opened during detection.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"1366:0105", // SEGGER J-Link CDC
		"1366:1015", // SEGGER J-Link CDC
		"0483:374B", // ST-LINK/V2-1 virtual COM port
		"0483:374E", // STLINK-V3 virtual COM port
		"2E8A:000C", // Raspberry Pi CMSIS-DAP debugger
	}
}

// KnownBridges returns the USB-UART bridges the sensor is shipped with or
// commonly wired to, mapped to a display name
func KnownBridges() map[USBID]string {
	return map[USBID]string{
		{VID: 0x1A86, PID: 0x7523}: "CH340",
		{VID: 0x1A86, PID: 0x55D4}: "CH9102",
		{VID: 0x10C4, PID: 0xEA60}: "CP210x",
		{VID: 0x0403, PID: 0x6001}: "FT232R",
		{VID: 0x0403, PID: 0x6015}: "FT231X",
	}
}

// NewUSBID builds an ID from the separate hex strings serial enumerators
// report, with or without leading zeros
func NewUSBID(vid, pid string) (USBID, bool) {
	v, okV := parseHex16(vid)
	p, okP := parseHex16(pid)
	if !okV || !okP {
		return USBID{}, false
	}
	return USBID{VID: v, PID: p}, true
}

// ParseUSBID reads a VID:PID pair from a blocklist entry or USB descriptor.
// Accepted forms include "1a86:7523", "VID:1A86 PID:7523",
// "vendor=1a86 product=7523" and "USB VID:PID=1A86:7523 SER=0001".
func ParseUSBID(descriptor string) (USBID, bool) {
	fields := strings.FieldsFunc(descriptor, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';'
	})

	var vid, pid string
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			key, value, ok = strings.Cut(field, ":")
		}
		if !ok {
			continue
		}

		switch strings.ToUpper(key) {
		case "VID", "VENDOR", "IDVENDOR":
			vid = value
		case "PID", "PRODUCT", "IDPRODUCT":
			pid = value
		case "VID:PID":
			vid, pid, _ = strings.Cut(value, ":")
		default:
			if len(fields) == 1 {
				vid, pid = key, value
			}
		}
	}
	return NewUSBID(vid, pid)
}

func parseHex16(s string) (uint16, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true //nolint:gosec // bounded to 16 bits by ParseUint
}

// IsBlocked reports whether id matches a blocklist entry. Entries may use any
// form ParseUSBID accepts; ones that do not parse never match.
func IsBlocked(id USBID, blocklist []string) bool {
	return slices.ContainsFunc(blocklist, func(entry string) bool {
		blocked, ok := ParseUSBID(entry)
		return ok && blocked == id
	})
}

// IsPathIgnored reports whether devicePath names one of ignorePaths. Paths
// are compared after cleaning and case folding, since Windows port names and
// macOS device nodes are case-insensitive.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := filepath.Clean(devicePath)
	return slices.ContainsFunc(ignorePaths, func(ignored string) bool {
		return ignored != "" && strings.EqualFold(device, filepath.Clean(ignored))
	})
}
