package motion

import "math"

// Tilt is the device attitude implied by gravity, in degrees.
type Tilt struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// Tilt computes roll and pitch from the accelerometer alone:
//
//	roll  = atan2(y, z)
//	pitch = atan2(-x, sqrt(y² + z²))
//
// Only meaningful when the wearer is roughly still.
func (s Sample) Tilt() Tilt {
	return Tilt{
		Roll:  math.Atan2(s.Y, s.Z) * 180 / math.Pi,
		Pitch: math.Atan2(-s.X, math.Sqrt(s.Y*s.Y+s.Z*s.Z)) * 180 / math.Pi,
	}
}
