// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "github.com/relabs-tech/razor_imu/internal/razor"

// Pose is the canonical representation of orientation for the app, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// PoseFromVector converts a razor.Vector into a Pose.
func PoseFromVector(v razor.Vector) Pose {
	return Pose{
		Roll:  v.Get(razor.Roll),
		Pitch: v.Get(razor.Pitch),
		Yaw:   v.Get(razor.Yaw),
	}
}

// Signed maps an angle in [0, 360) back to the (-180, 180] range the Razor
// firmware reports.
func Signed(deg float64) float64 {
	if deg > 180 {
		return deg - 360
	}
	return deg
}
