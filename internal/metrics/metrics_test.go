package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalories(t *testing.T) {
	assert.InDelta(t, 125.0, CaloriesFromDistance(2.5), 1e-9)
	assert.Equal(t, 0.0, CaloriesFromDistance(0))
	assert.InDelta(t, 337.28, CaloriesFromSteps(8432), 1e-9)
	assert.Equal(t, 0.0, CaloriesFromSteps(0))
}

func TestPace(t *testing.T) {
	assert.InDelta(t, 6.0, Pace(1800, 5), 1e-9)

	for _, tc := range []struct {
		sec int64
		km  float64
	}{{0, 5}, {1800, 0}, {0, 0}} {
		p := Pace(tc.sec, tc.km)
		assert.Equal(t, 0.0, p)
		assert.False(t, math.IsNaN(p) || math.IsInf(p, 0))
	}
}

func TestProgress(t *testing.T) {
	assert.InDelta(t, 84.32, Progress(8432, DefaultDailyStepGoal), 1e-9)
	assert.Equal(t, 100.0, Progress(25000, DefaultDailyStepGoal))
	assert.Equal(t, 0.0, Progress(0, DefaultDailyStepGoal))
	assert.Equal(t, 0.0, Progress(100, 0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", FormatDuration(0))
	assert.Equal(t, "05:07", FormatDuration(307))
	assert.Equal(t, "1:01:01", FormatDuration(3661))
}

func TestFormatLastSync(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "Just now", FormatLastSync(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", FormatLastSync(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", FormatLastSync(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", FormatLastSync(now.Add(-50*time.Hour), now))
}
