// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"math"
	"time"
)

// Fix is a single position report suitable for JSON and MQTT.
type Fix struct {
	Latitude  float64   `json:"lat"`                 // decimal degrees
	Longitude float64   `json:"lon"`                 // decimal degrees
	Speed     *float64  `json:"speed_mps,omitempty"` // speed over ground, if reported
	Altitude  *float64  `json:"alt_m,omitempty"`     // meters above MSL, if reported
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the coordinates are finite and in range.
func (f Fix) Valid() bool {
	if math.IsNaN(f.Latitude) || math.IsNaN(f.Longitude) {
		return false
	}
	return f.Latitude >= -90 && f.Latitude <= 90 && f.Longitude >= -180 && f.Longitude <= 180
}

// Float returns a pointer to v, for the optional Fix fields.
func Float(v float64) *float64 {
	return &v
}
