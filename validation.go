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

	"github.com/ZaparooProject/go-dtof/internal/frame"
)

// ValidateGrid checks that a grid can be addressed by the wire protocol
func ValidateGrid(grid Grid) error {
	if grid.Lines <= 0 || grid.PointsPerLine <= 0 {
		return fmt.Errorf("%w: grid %s must have at least one line and one point", ErrInvalidParameters, grid)
	}
	if grid.Lines >= frame.AllLinesMarker || grid.PointsPerLine > 0xFF {
		return fmt.Errorf("%w: grid %s exceeds byte addressing", ErrInvalidParameters, grid)
	}
	if grid.Size() > frame.MaxPoints {
		return fmt.Errorf("%w: grid %s exceeds %d points", ErrInvalidParameters, grid, frame.MaxPoints)
	}
	return nil
}

// ValidateMeasureMode checks mode against the coordinate invariants of grid
func ValidateMeasureMode(mode MeasureMode, grid Grid) error {
	switch mode.Kind {
	case MeasureFull:
		return nil
	case MeasureSinglePoint:
		if !grid.Contains(mode.Line, mode.Start) || mode.End != mode.Start {
			return &EncodeError{Op: "validate", Mode: mode, Err: ErrOutOfRange}
		}
		return nil
	case MeasureMultiPoint:
		if !grid.Contains(mode.Line, mode.Start) || !grid.Contains(mode.Line, mode.End) || mode.Start > mode.End {
			return &EncodeError{Op: "validate", Mode: mode, Err: ErrOutOfRange}
		}
		return nil
	default:
		return &EncodeError{Op: "validate", Mode: mode, Err: fmt.Errorf("%w: unknown kind %d", ErrOutOfRange, mode.Kind)}
	}
}

// validateFrameCoordinates checks that a decoded frame covers exactly the
// coordinates selected by mode
func validateFrameCoordinates(f Frame, mode MeasureMode) error {
	switch mode.Kind {
	case MeasureFull:
		if f.Line != AllLines || f.Start != 0 {
			return fmt.Errorf("%w: frame for line %d from %d in full mode", ErrCountMismatch, f.Line, f.Start)
		}
	case MeasureSinglePoint, MeasureMultiPoint:
		if f.Line != mode.Line || f.Start != mode.Start || f.Start+f.Len()-1 != mode.End {
			return fmt.Errorf("%w: frame covers line %d points %d-%d, configured %s",
				ErrCountMismatch, f.Line, f.Start, f.Start+f.Len()-1, mode)
		}
	}
	return nil
}
