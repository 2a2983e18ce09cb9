// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/relabs-tech/razor_imu/internal/razor"
)

// Simulator stands in for a Razor IMU on the other end of a serial line.
// Writing the poll command makes one "#<header>=..." line readable.
// It is used by mock mode and by tests.
type Simulator struct {
	src    Source
	header string

	mu      sync.Mutex
	in      bytes.Buffer
	out     chan []byte
	pending []byte
	closed  bool
	polls   int
}

// NewSimulator answers polls with poses from src, in the field order given
// by header (for example "YPR").
func NewSimulator(src Source, header string) *Simulator {
	return &Simulator{
		src:    src,
		header: header,
		out:    make(chan []byte, 64),
	}
}

// Write consumes command lines sent to the device.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}

	s.in.Write(p)
	for {
		line, err := s.in.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			s.in.Reset()
			s.in.WriteString(line)
			break
		}
		if strings.TrimSpace(line) != razor.PollCommand {
			continue
		}
		s.polls++
		frame, err := s.frame()
		if err != nil {
			return len(p), err
		}
		select {
		case s.out <- frame:
		default:
			// host is not reading; drop like a UART overrun
		}
	}
	return len(p), nil
}

func (s *Simulator) frame() ([]byte, error) {
	pose, err := s.src.Next()
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	values := make([]string, 0, len(s.header))
	for i := 0; i < len(s.header); i++ {
		var v float64
		switch s.header[i] {
		case 'Y':
			v = pose.Yaw
		case 'P':
			v = pose.Pitch
		case 'R':
			v = pose.Roll
		}
		values = append(values, fmt.Sprintf("%.2f", Signed(v)))
	}
	return []byte("#" + s.header + "=" + strings.Join(values, ",") + razor.LineTerminator), nil
}

// Read returns response bytes, blocking until a poll has been answered.
func (s *Simulator) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		frame, ok := <-s.out
		if !ok {
			return 0, io.EOF
		}
		s.pending = frame
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Polls returns how many poll commands have been received.
func (s *Simulator) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Close makes pending and future reads return io.EOF once drained.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return nil
}
