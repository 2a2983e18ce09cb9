// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package razor

import (
	"io"
	"sync"
	"time"
)

// LineTerminator ends every line written to the IMU.
const LineTerminator = "\r\n"

// WaitResult is the outcome of waiting for response data on a Channel.
type WaitResult int

const (
	// WaitReady means at least one byte can be read without blocking.
	WaitReady WaitResult = iota
	// WaitTimeout means nothing arrived before the deadline.
	WaitTimeout
	// WaitClosed means the channel has no more data and never will.
	WaitClosed
)

func (r WaitResult) String() string {
	switch r {
	case WaitReady:
		return "ready"
	case WaitTimeout:
		return "timeout"
	case WaitClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel is the bidirectional text stream the IMU is attached to.
// The IMU client never opens or closes it.
type Channel interface {
	// WriteLine writes s followed by the line terminator.
	WriteLine(s string) error
	// Wait blocks until a byte is available, the timeout elapses or the
	// channel is closed. A timeout <= 0 waits without bound.
	Wait(timeout time.Duration) WaitResult
	// ReadByte consumes a single byte.
	ReadByte() (byte, error)
	// ReadUntil consumes bytes up to and including delim and returns them
	// without the delimiter.
	ReadUntil(delim byte) (string, error)
	// Discard drops any input already received without blocking and
	// returns how many bytes were dropped.
	Discard() int
}

// StreamChannel adapts an io.ReadWriter (typically a serial port) to Channel.
// A single goroutine reads from the stream so that Wait can be bounded; it
// exits when the stream returns an error or Close is called.
type StreamChannel struct {
	w           io.Writer
	readTimeout time.Duration

	chunks  chan []byte
	done    chan struct{}
	pending []byte
	closed  bool

	closeOnce sync.Once
}

// NewStreamChannel starts reading from rw. readTimeout bounds ReadByte and
// ReadUntil when no buffered data is left; zero means no bound.
func NewStreamChannel(rw io.ReadWriter, readTimeout time.Duration) *StreamChannel {
	c := &StreamChannel{
		w:           rw,
		readTimeout: readTimeout,
		chunks:      make(chan []byte, 16),
		done:        make(chan struct{}),
	}
	go c.pump(rw)
	return c
}

func (c *StreamChannel) pump(r io.Reader) {
	defer close(c.chunks)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.chunks <- chunk:
			case <-c.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// WriteLine implements Channel.
func (c *StreamChannel) WriteLine(s string) error {
	_, err := io.WriteString(c.w, s+LineTerminator)
	return err
}

// Wait implements Channel.
func (c *StreamChannel) Wait(timeout time.Duration) WaitResult {
	if len(c.pending) > 0 {
		return WaitReady
	}
	if c.closed {
		return WaitClosed
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case chunk, ok := <-c.chunks:
		if !ok {
			c.closed = true
			return WaitClosed
		}
		c.pending = append(c.pending, chunk...)
		return WaitReady
	case <-expired:
		return WaitTimeout
	}
}

func (c *StreamChannel) fill() error {
	switch c.Wait(c.readTimeout) {
	case WaitReady:
		return nil
	case WaitTimeout:
		return ErrTimeout
	default:
		return ErrChannelClosed
	}
}

// ReadByte implements Channel.
func (c *StreamChannel) ReadByte() (byte, error) {
	if err := c.fill(); err != nil {
		return 0, err
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, nil
}

// ReadUntil implements Channel. On timeout or end of stream the bytes read so
// far are returned together with the error.
func (c *StreamChannel) ReadUntil(delim byte) (string, error) {
	var out []byte
	for {
		if err := c.fill(); err != nil {
			return string(out), err
		}
		for i, b := range c.pending {
			if b == delim {
				out = append(out, c.pending[:i]...)
				c.pending = c.pending[i+1:]
				return string(out), nil
			}
		}
		out = append(out, c.pending...)
		c.pending = c.pending[:0]
	}
}

// Discard implements Channel. Late replies to a timed out poll and the tail
// of a half read frame end up here instead of in the next response.
func (c *StreamChannel) Discard() int {
	n := len(c.pending)
	c.pending = c.pending[:0]
	for {
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				c.closed = true
				return n
			}
			n += len(chunk)
		default:
			return n
		}
	}
}

// Close stops the reader goroutine. It does not close the underlying stream.
func (c *StreamChannel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
