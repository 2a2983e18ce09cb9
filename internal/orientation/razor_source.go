// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"

	"github.com/relabs-tech/razor_imu/internal/razor"
)

type razorSource struct {
	imu *razor.IMU
}

// NewRazorSource returns a Source that polls imu on every Next and reports
// its full-scale angles.
func NewRazorSource(imu *razor.IMU) Source {
	return &razorSource{imu: imu}
}

func (s *razorSource) Next() (Pose, error) {
	if err := s.imu.Update(); err != nil {
		return Pose{}, fmt.Errorf("razor source: %w", err)
	}
	return PoseFromVector(s.imu.FullScale()), nil
}
