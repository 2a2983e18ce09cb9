// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package razor

import (
	"fmt"
	"math"
)

// Axis names one of the three rotational axes reported by the Razor IMU.
// Its value is the slot used in every Vector.
type Axis int

const (
	Pitch Axis = iota
	Roll
	Yaw

	numAxes = 3
)

// Axes lists every axis in slot order.
var Axes = [numAxes]Axis{Pitch, Roll, Yaw}

func (a Axis) String() string {
	switch a {
	case Pitch:
		return "pitch"
	case Roll:
		return "roll"
	case Yaw:
		return "yaw"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Letter returns the header character the firmware uses for a.
func (a Axis) Letter() byte {
	switch a {
	case Pitch:
		return 'P'
	case Roll:
		return 'R'
	case Yaw:
		return 'Y'
	default:
		return '?'
	}
}

// AxisFromHeader maps a response header character ('Y', 'P', 'R') to its axis.
func AxisFromHeader(c byte) (Axis, bool) {
	switch c {
	case 'Y':
		return Yaw, true
	case 'P':
		return Pitch, true
	case 'R':
		return Roll, true
	default:
		return 0, false
	}
}

// Vector holds one value per axis, indexed by Axis.
type Vector [numAxes]float64

// Get returns the value stored for a.
func (v Vector) Get(a Axis) float64 { return v[a] }

// FullScale maps a raw sensor angle into the 0-360 range: non-negative values
// are kept, negative values get 360 added. Inputs outside (-180, 180] are not
// clamped.
func FullScale(raw float64) float64 {
	if raw >= 0 {
		return raw
	}
	return 360 + raw
}

// Relative returns the angle of full measured from ref, wrapped into [0, 360).
func Relative(full, ref float64) float64 {
	d := math.Mod(full-ref, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
