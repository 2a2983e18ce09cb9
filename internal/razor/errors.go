// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package razor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChannel is returned when an update is attempted before a channel
	// has been attached.
	ErrNoChannel = errors.New("razor: no channel attached")
	// ErrTimeout is returned when the IMU does not answer within the
	// configured timeout.
	ErrTimeout = errors.New("razor: timed out waiting for response")
	// ErrChannelClosed is returned when the channel reached end of stream.
	ErrChannelClosed = errors.New("razor: channel closed")

	ErrBadFrame     = errors.New("malformed frame")
	ErrUnknownAxis  = errors.New("unknown axis letter")
	ErrMissingField = errors.New("missing field")
	ErrBadNumber    = errors.New("invalid number")
)

// ParseError describes a response line that could not be decoded.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("razor: parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
