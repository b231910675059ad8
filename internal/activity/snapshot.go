package activity

import (
	"time"

	"github.com/relabs-tech/activity_computer/internal/location"
)

// Snapshot is the live view of a session, published to MQTT and served by
// the web API.
type Snapshot struct {
	SessionID       string        `json:"session_id,omitempty"`
	State           State         `json:"state"`
	Steps           int           `json:"steps"`
	HeartRate       int           `json:"heart_rate_bpm"`
	DistanceKm      float64       `json:"distance_km"`
	DurationSec     int64         `json:"duration_sec"`
	SpeedKmh        float64       `json:"speed_kmh"`
	HeadingDeg      float64       `json:"heading_deg"`
	PaceMinPerKm    float64       `json:"pace_min_per_km"`
	CaloriesKcal    float64       `json:"calories_kcal"`      // distance based
	StepCalories    float64       `json:"step_calories_kcal"` // step based
	ProgressPct     float64       `json:"progress_pct"`       // of the daily step goal
	ElevationGainM  float64       `json:"elevation_gain_m"`
	RoutePoints     int           `json:"route_points"`
	Position        *location.Fix `json:"position,omitempty"`
	LocationEnabled bool          `json:"location_enabled"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
}

// Summary is what Finish reports.
type Summary struct {
	Snapshot
	FinishedAt time.Time      `json:"finished_at"`
	Route      []location.Fix `json:"route"`
}

// Alert is a one-time, user-facing notice about a degraded feed.
type Alert struct {
	Source  string    `json:"source"` // "motion", "location" or "barometer"
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
