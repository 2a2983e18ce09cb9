// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package razor is a client for the SparkFun Razor 9DOF IMU running the AHRS
// firmware in text output mode. The client polls the device with "#f", reads
// one "#YPR=yaw,pitch,roll" line and keeps the raw angles, their 0-360
// full-scale form and an optional reference snapshot.
//
// An IMU is not safe for concurrent use. Every method runs on the caller's
// goroutine and the client starts none of its own.
package razor

import (
	"fmt"
	"strings"
	"time"
)

// PollCommand asks the firmware for a single output frame.
const PollCommand = "#f"

// DefaultTimeout matches the firmware library's stream timeout.
const DefaultTimeout = time.Second

// Logger receives diagnostic messages. *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}

// State reports whether the client is waiting on the device.
type State int

const (
	StateIdle State = iota
	StateAwaiting
)

func (s State) String() string {
	if s == StateAwaiting {
		return "awaiting-response"
	}
	return "idle"
}

// Option configures an IMU.
type Option func(*IMU)

// WithTimeout bounds how long FetchRaw waits for the first response byte.
// A value <= 0 waits forever.
func WithTimeout(d time.Duration) Option {
	return func(i *IMU) { i.timeout = d }
}

// WithLogger sets the diagnostics sink.
func WithLogger(l Logger) Option {
	return func(i *IMU) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithLenientParsing makes FetchRaw accept malformed responses the way the
// vendor Arduino library does: unknown header letters are skipped without
// consuming a field, bad numbers read as 0 and nothing is reported.
func WithLenientParsing() Option {
	return func(i *IMU) { i.lenient = true }
}

// IMU holds the channel reference and the raw, full-scale and reference
// angle vectors.
type IMU struct {
	ch      Channel
	timeout time.Duration
	lenient bool
	logger  Logger
	state   State

	raw  Vector
	full Vector
	ref  Vector
}

// New returns a client. ch may be nil and attached later with Attach.
func New(ch Channel, opts ...Option) *IMU {
	i := &IMU{
		ch:      ch,
		timeout: DefaultTimeout,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Attach binds ch, replacing any previous channel. The caller keeps
// ownership of ch and must not close it while the IMU is in use.
func (i *IMU) Attach(ch Channel) {
	i.ch = ch
}

// State returns the current I/O state.
func (i *IMU) State() State { return i.state }

// FetchRaw polls the device and stores the angles it reports into the raw
// vector. Input left over from earlier polls is dropped before the poll is
// sent. The full-scale vector is not touched. Without an attached channel
// it returns ErrNoChannel.
func (i *IMU) FetchRaw() error {
	if i.ch == nil {
		return ErrNoChannel
	}

	// No sequence numbers on this link: whatever is still buffered belongs
	// to an earlier poll.
	if n := i.ch.Discard(); n > 0 {
		i.logger.Debugf("Discarded %d stale bytes from IMU serial", n)
	}

	if err := i.ch.WriteLine(PollCommand); err != nil {
		return fmt.Errorf("razor: send poll: %w", err)
	}
	i.logger.Debugf("Sending a '%s' to IMU serial", PollCommand)

	if err := i.await(); err != nil {
		return err
	}

	lead, err := i.ch.ReadByte()
	if err != nil {
		return fmt.Errorf("razor: read frame start: %w", err)
	}
	header, err := i.ch.ReadUntil('=')
	if err != nil {
		return fmt.Errorf("razor: read header: %w", err)
	}
	body, err := i.ch.ReadUntil('\n')
	if err != nil && !i.lenient {
		return fmt.Errorf("razor: read fields: %w", err)
	}
	body = strings.TrimRight(body, "\r\n ")

	var fields []field
	if i.lenient {
		fields = decodeLenient(header, body)
	} else {
		if lead != '#' {
			return &ParseError{
				Line: string(lead) + header + "=" + body,
				Err:  fmt.Errorf("%w: expected '#', got %q", ErrBadFrame, lead),
			}
		}
		fields, err = decodeStrict(header, body)
		if err != nil {
			return &ParseError{Line: "#" + header + "=" + body, Err: err}
		}
	}

	var msg strings.Builder
	msg.WriteString("Values")
	for _, f := range fields {
		i.raw[f.axis] = f.value
		fmt.Fprintf(&msg, " %c: %.2f", f.axis.Letter(), f.value)
	}
	i.logger.Debugf("%s", msg.String())
	return nil
}

func (i *IMU) await() error {
	i.state = StateAwaiting
	defer func() { i.state = StateIdle }()

	switch r := i.ch.Wait(i.timeout); r {
	case WaitReady:
		return nil
	case WaitTimeout:
		return ErrTimeout
	case WaitClosed:
		return ErrChannelClosed
	default:
		return fmt.Errorf("razor: unexpected wait result %d", int(r))
	}
}

// DeriveFullScale recomputes the full-scale vector from the raw vector.
func (i *IMU) DeriveFullScale() {
	for _, a := range Axes {
		i.full[a] = FullScale(i.raw[a])
	}
	i.logger.Debugf("Full scale PRY values: %.2f %.2f %.2f", i.full[Pitch], i.full[Roll], i.full[Yaw])
}

// Update fetches a new sample and derives its full-scale values.
func (i *IMU) Update() error {
	if err := i.FetchRaw(); err != nil {
		return err
	}
	i.DeriveFullScale()
	return nil
}

// CaptureReference updates the IMU and stores the resulting full-scale
// vector as the reference. On error the previous reference is kept.
func (i *IMU) CaptureReference() error {
	if err := i.Update(); err != nil {
		return err
	}
	i.ref = i.full
	i.logger.Infof("PRY reference set to: %.2f %.2f %.2f", i.ref[Pitch], i.ref[Roll], i.ref[Yaw])
	return nil
}

// ResetReference is CaptureReference under the firmware library's other name.
func (i *IMU) ResetReference() error {
	return i.CaptureReference()
}

func (i *IMU) RawPitch() float64 { return i.raw[Pitch] }
func (i *IMU) RawRoll() float64  { return i.raw[Roll] }
func (i *IMU) RawYaw() float64   { return i.raw[Yaw] }

// Pitch, Roll and Yaw return full-scale angles in degrees.
func (i *IMU) Pitch() float64 { return i.full[Pitch] }
func (i *IMU) Roll() float64  { return i.full[Roll] }
func (i *IMU) Yaw() float64   { return i.full[Yaw] }

// Raw returns a copy of the raw vector.
func (i *IMU) Raw() Vector { return i.raw }

// FullScale returns a copy of the full-scale vector.
func (i *IMU) FullScale() Vector { return i.full }

// Reference returns a copy of the last captured reference.
func (i *IMU) Reference() Vector { return i.ref }
