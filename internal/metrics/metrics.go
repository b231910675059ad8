// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics holds the pure functions derived from step count,
// distance and duration.
package metrics

import (
	"fmt"
	"math"
	"time"
)

const (
	// DefaultDailyStepGoal is the dashboard goal.
	DefaultDailyStepGoal = 10000

	kcalPerKm   = 50.0
	kcalPerStep = 0.04
)

// CaloriesFromDistance is the activity tracker estimate.
func CaloriesFromDistance(km float64) float64 {
	if km <= 0 {
		return 0
	}
	return km * kcalPerKm
}

// CaloriesFromSteps is the dashboard estimate.
func CaloriesFromSteps(steps int) float64 {
	if steps <= 0 {
		return 0
	}
	return float64(steps) * kcalPerStep
}

// Pace returns minutes per km. Zero duration or distance gives 0.
func Pace(durationSec int64, km float64) float64 {
	if durationSec <= 0 || km <= 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		return 0
	}
	return (float64(durationSec) / 60) / km
}

// Progress returns steps as a percentage of goal, clamped to [0, 100].
func Progress(steps, goal int) float64 {
	if goal <= 0 || steps <= 0 {
		return 0
	}
	p := float64(steps) / float64(goal) * 100
	if p > 100 {
		return 100
	}
	return p
}

// FormatDuration renders seconds as MM:SS, or H:MM:SS past one hour.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60
	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}

// FormatLastSync renders how long ago a wearable was synced.
func FormatLastSync(last, now time.Time) string {
	diffMins := int(now.Sub(last) / time.Minute)
	switch {
	case diffMins < 1:
		return "Just now"
	case diffMins < 60:
		return fmt.Sprintf("%dm ago", diffMins)
	}
	diffHours := diffMins / 60
	if diffHours < 24 {
		return fmt.Sprintf("%dh ago", diffHours)
	}
	return fmt.Sprintf("%dd ago", diffHours/24)
}
