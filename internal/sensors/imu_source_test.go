package sensors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccelLSBPerG(t *testing.T) {
	assert.Equal(t, 16384.0, accelLSBPerG(0))
	assert.Equal(t, 8192.0, accelLSBPerG(1))
	assert.Equal(t, 2048.0, accelLSBPerG(3))
}

func TestRawToSample(t *testing.T) {
	at := time.Now()
	s := RawToSample(0, 8192, -8192, accelLSBPerG(1), at)

	assert.Equal(t, 0.0, s.X)
	assert.Equal(t, 1.0, s.Y)
	assert.Equal(t, -1.0, s.Z)
	assert.Equal(t, at, s.Timestamp)
	assert.InDelta(t, 1.4142, s.Magnitude(), 1e-4)
}
