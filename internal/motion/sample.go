// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"
	"time"
)

// Sample is one 3-axis accelerometer reading, in g.
type Sample struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// Magnitude is the Euclidean norm of the reading.
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// Valid reports whether the sample carries finite values and a timestamp.
func (s Sample) Valid() bool {
	if s.Timestamp.IsZero() {
		return false
	}
	for _, v := range [3]float64{s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Source is anything that can provide accelerometer samples on demand:
// the mock gait generator, the IMU, a replay file.
type Source interface {
	Next() (Sample, error)
}
