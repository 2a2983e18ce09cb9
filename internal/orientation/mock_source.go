// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

// Default mock motion: a gentle rocking on roll and pitch while the heading
// turns steadily, crossing the firmware's +/-180 wrap every 12 seconds.
const (
	mockRollAmplitude  = 20.0
	mockPitchAmplitude = 15.0
	mockYawRate        = 30.0 // degrees per second
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource returns a Source whose angles follow a fixed motion profile
// in the Razor's signed output range.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Pose, error) {
	t := m.now().Sub(m.start).Seconds()

	heading := math.Mod(t*mockYawRate, 360)
	return Pose{
		Roll:  mockRollAmplitude * math.Sin(t),
		Pitch: mockPitchAmplitude * math.Cos(0.7*t),
		Yaw:   Signed(heading),
	}, nil
}
