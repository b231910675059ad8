package app

import (
	"fmt"

	"github.com/relabs-tech/activity_computer/internal/activity"
	"github.com/relabs-tech/activity_computer/internal/metrics"
)

// formatSnapshot renders a snapshot as one console line.
func formatSnapshot(s activity.Snapshot) string {
	line := fmt.Sprintf("[%-8s] steps=%5d (%3.0f%%) hr=%3d dist=%6.3fkm time=%s pace=%5.1fmin/km kcal=%5.1f",
		s.State, s.Steps, s.ProgressPct, s.HeartRate, s.DistanceKm,
		metrics.FormatDuration(s.DurationSec), s.PaceMinPerKm, s.CaloriesKcal)
	if s.ElevationGainM > 0 {
		line += fmt.Sprintf(" climb=%.0fm", s.ElevationGainM)
	}
	if !s.LocationEnabled {
		line += " (no location)"
	}
	return line
}

func formatSummary(s activity.Summary) string {
	return fmt.Sprintf("[SUMMARY] %d steps, %.2f km in %s, avg pace %.1f min/km, %.0f kcal, %d route points",
		s.Steps, s.DistanceKm, metrics.FormatDuration(s.DurationSec), s.PaceMinPerKm, s.CaloriesKcal, len(s.Route))
}
