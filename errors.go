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
	"errors"
	"fmt"
)

// Codec errors
var (
	// ErrOutOfRange indicates a requested grid coordinate the sensor cannot address
	ErrOutOfRange = errors.New("coordinate out of range")
	// ErrIncomplete indicates more bytes are needed before decoding can finish
	ErrIncomplete = errors.New("incomplete data")
	// ErrMalformed indicates a bad length, checksum or response line
	ErrMalformed = errors.New("malformed data")
	// ErrCountMismatch indicates a frame whose points disagree with the measure mode
	ErrCountMismatch = errors.New("point count mismatch")
)

// Configuration and acquisition errors
var (
	ErrRejected          = errors.New("command rejected by sensor")
	ErrTimeout           = errors.New("operation timeout")
	ErrInvalidState      = errors.New("invalid driver state")
	ErrInvalidParameters = errors.New("invalid parameters")
)

// Transport errors
var (
	ErrTransport       = errors.New("transport failure")
	ErrTransportClosed = errors.New("transport closed")
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportWrite  = errors.New("transport write failed")
)

// ErrorType categorizes errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors should not be retried
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts that may succeed on retry
	ErrorTypeTimeout
)

// String returns the error type name
func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError wraps a failure of the underlying byte channel
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the specific cause and ErrTransport
func (e *TransportError) Unwrap() []error {
	return []error{e.Err, ErrTransport}
}

// NewTransportError creates a TransportError, retryable unless errType is permanent
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Err:       err,
		Op:        op,
		Port:      port,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// EncodeError is returned when a command cannot be built
type EncodeError struct {
	Err  error
	Op   string
	Mode MeasureMode
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Mode, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a response or frame cannot be decoded
type DecodeError struct {
	Err    error
	Op     string
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigError is returned by configuration round trips. Err is one of
// ErrRejected, ErrTimeout, ErrTransport, ErrInvalidState or
// ErrInvalidParameters; Cause carries the lower-level error, if any.
type ConfigError struct {
	Err   error
	Cause error
	Op    string
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// AcquisitionError is returned when a frame cannot be acquired
type AcquisitionError struct {
	Err   error
	Cause error
	State DriverState
}

func (e *AcquisitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("acquire in state %s: %v: %v", e.State, e.Err, e.Cause)
	}
	return fmt.Sprintf("acquire in state %s: %v", e.State, e.Err)
}

func (e *AcquisitionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// IsRetryable returns true if the error is worth another attempt by the caller
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrInvalidParameters),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrOutOfRange):
		return false
	case errors.Is(err, ErrRejected),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrMalformed),
		errors.Is(err, ErrIncomplete),
		errors.Is(err, ErrCountMismatch):
		return true
	default:
		return false
	}
}

// GetErrorType returns the error type for retry decisions
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case IsRetryable(err):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
