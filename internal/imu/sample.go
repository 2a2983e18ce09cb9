// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"time"

	"github.com/relabs-tech/razor_imu/internal/razor"
)

// Angles is one PRY triple in degrees.
type Angles struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// FromVector converts a razor.Vector into Angles.
func FromVector(v razor.Vector) Angles {
	return Angles{
		Pitch: v.Get(razor.Pitch),
		Roll:  v.Get(razor.Roll),
		Yaw:   v.Get(razor.Yaw),
	}
}

// Sample is one Razor reading as published over MQTT.
type Sample struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`

	Raw       Angles `json:"raw"`        // as reported, roughly (-180, 180]
	FullScale Angles `json:"full_scale"` // mapped into [0, 360)
	Reference Angles `json:"reference"`  // last captured full-scale baseline
	Relative  Angles `json:"relative"`   // full-scale measured from reference
}

// Reader is the part of *razor.IMU a Sample is built from.
type Reader interface {
	Raw() razor.Vector
	FullScale() razor.Vector
	Reference() razor.Vector
}

// NewSample snapshots r.
func NewSample(source string, t time.Time, r Reader) Sample {
	full := r.FullScale()
	ref := r.Reference()
	var rel razor.Vector
	for _, a := range razor.Axes {
		rel[a] = razor.Relative(full.Get(a), ref.Get(a))
	}
	return Sample{
		Source:    source,
		Time:      t,
		Raw:       FromVector(r.Raw()),
		FullScale: FromVector(full),
		Reference: FromVector(ref),
		Relative:  FromVector(rel),
	}
}
