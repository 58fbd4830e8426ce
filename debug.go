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
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	debugEnabled atomic.Bool
	logger       atomic.Pointer[zap.Logger]
)

func init() {
	logger.Store(zap.NewNop())
}

// SetDebugEnabled turns protocol debug output on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger installs the logger used for debug output. Passing nil restores
// the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("dtof"))
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	logger.Load().Debug(fmt.Sprintf(format, args...))
}
