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
	"time"
)

// PollIntervalProvider is implemented by transports that know how long the
// driver should wait between empty reads
type PollIntervalProvider interface {
	PollInterval() time.Duration
}

// pollIntervalFor returns the wait between empty reads for transport. An
// explicit interval from WithPollInterval takes precedence.
func pollIntervalFor(transport Transport, configured time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}

	// Check if transport provides its own tuning
	if provider, ok := transport.(PollIntervalProvider); ok {
		if interval := provider.PollInterval(); interval > 0 {
			return interval
		}
	}

	switch transport.Type() {
	case TransportUART:
		// At 921600 baud a full 4 KiB frame takes ~45ms; the UART read
		// window already paces the loop, so only yield briefly.
		return time.Millisecond
	case TransportMock:
		return time.Millisecond
	default:
		return 5 * time.Millisecond
	}
}
