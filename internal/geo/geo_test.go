package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 111.19, HaversineKm(0, 0, 0, 1), 0.1)
	assert.InDelta(t, 111.19, HaversineKm(0, 0, 1, 0), 0.1)
	assert.Equal(t, 0.0, HaversineKm(46.5, 7.1, 46.5, 7.1))

	// Jakarta to Bandung, roughly 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineAntimeridian(t *testing.T) {
	assert.InDelta(t, 2*111.19/10, HaversineKm(0, 179.9, 0, -179.9), 0.05)
}

func TestAccumulatorAdditive(t *testing.T) {
	var acc Accumulator

	assert.Equal(t, 0.0, acc.Add(0, 0), "first fix only seeds")
	acc.Add(0, 1)
	acc.Add(0, 2)

	want := HaversineKm(0, 0, 0, 1) + HaversineKm(0, 1, 0, 2)
	assert.InDelta(t, 222.38, acc.TotalKm(), 0.2)
	assert.InDelta(t, want, acc.TotalKm(), 1e-9)
}

func TestAccumulatorMonotonic(t *testing.T) {
	var acc Accumulator
	points := [][2]float64{{46.0, 7.0}, {46.001, 7.0}, {46.0, 7.0}, {46.0, 7.0}, {45.999, 7.002}}

	prev := 0.0
	for _, p := range points {
		inc := acc.Add(p[0], p[1])
		assert.GreaterOrEqual(t, inc, 0.0)
		assert.GreaterOrEqual(t, acc.TotalKm(), prev)
		prev = acc.TotalKm()
	}
}

func TestAccumulatorReseed(t *testing.T) {
	var acc Accumulator
	acc.Add(0, 0)
	acc.Add(0, 1)
	acc.Reseed()

	assert.Equal(t, 0.0, acc.Add(10, 10))
	assert.InDelta(t, 111.19, acc.TotalKm(), 0.1)

	acc.Reset()
	assert.Equal(t, 0.0, acc.TotalKm())
}

func TestSpeedKmh(t *testing.T) {
	assert.InDelta(t, 36.0, SpeedKmh(10), 1e-9)
	assert.Equal(t, 0.0, SpeedKmh(-1))
	assert.InDelta(t, 5.14444, KnotsToMps(10), 1e-9)
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 90.0, Bearing(0, 0, 0, 1), 1e-6)
	assert.InDelta(t, 0.0, Bearing(0, 0, 1, 0), 1e-6)
	assert.InDelta(t, 270.0, Bearing(0, 1, 0, 0), 1e-6)
}
