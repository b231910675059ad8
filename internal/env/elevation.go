package env

// noiseFloorM is the smallest climb counted; barometers and GPS both
// wander by a few decimeters at rest.
const noiseFloorM = 0.5

// ElevationGain sums climbs between altitude readings. Descents only move
// the reference down.
type ElevationGain struct {
	gainM float64
	ref   float64
	has   bool
}

// Add records an altitude and returns the climb counted, in meters.
func (e *ElevationGain) Add(altitudeM float64) float64 {
	if !e.has {
		e.ref, e.has = altitudeM, true
		return 0
	}
	delta := altitudeM - e.ref
	switch {
	case delta >= noiseFloorM:
		e.gainM += delta
		e.ref = altitudeM
		return delta
	case delta < 0:
		e.ref = altitudeM
	}
	return 0
}

// GainM returns the accumulated climb.
func (e *ElevationGain) GainM() float64 { return e.gainM }

// Reset clears the accumulator.
func (e *ElevationGain) Reset() { *e = ElevationGain{} }
