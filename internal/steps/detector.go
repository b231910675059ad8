// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package steps turns a stream of accelerometer samples into a step count.
//
// Each sample's magnitude is pushed into a short window. Once the window
// holds enough samples, the newest value is compared with its two
// predecessors to find local peaks and valleys. A peak arms the detector;
// the following valley is a step candidate that must pass three checks:
// a large enough swing, a refractory period since the previous step and a
// stride peak inside the walking band.
package steps

import (
	"math"
	"math/rand"
	"time"

	"github.com/relabs-tech/activity_computer/internal/motion"
)

// State of the peak/valley state machine.
type State int

const (
	AwaitingPeak State = iota
	AwaitingValley
)

func (s State) String() string {
	switch s {
	case AwaitingPeak:
		return "awaiting_peak"
	case AwaitingValley:
		return "awaiting_valley"
	default:
		return "unknown"
	}
}

const (
	restingHeartRate = 72
	minHeartRate     = 70
	maxHeartRate     = 120
	heartRateJitter  = 2
)

// Config holds the detector tuning.
type Config struct {
	Window     int           // magnitudes kept for comparison
	Warmup     int           // samples required before detection starts
	Threshold  float64       // minimum |current - last| at the valley
	Refractory time.Duration // minimum time between two counted steps
	BandMin    float64       // walking band, lower bound
	BandMax    float64       // walking band, upper bound
}

// DefaultConfig returns the tuning used by the tracker.
func DefaultConfig() Config {
	return Config{
		Window:     10,
		Warmup:     5,
		Threshold:  0.2,
		Refractory: 250 * time.Millisecond,
		BandMin:    0.5,
		BandMax:    2.0,
	}
}

// Detector counts steps. It is not safe for concurrent use; the owning
// session serializes calls.
type Detector struct {
	cfg Config
	rng *rand.Rand

	window    *window
	state     State
	peak      float64
	steps     int
	lastStep  time.Time
	heartRate int
}

// NewDetector creates a detector. rng drives the simulated heart-rate
// drift; nil seeds one from the clock.
func NewDetector(cfg Config, rng *rand.Rand) *Detector {
	if cfg.Window < 3 {
		cfg.Window = 3
	}
	if cfg.Warmup < 3 {
		cfg.Warmup = 3
	}
	if cfg.Warmup > cfg.Window {
		cfg.Warmup = cfg.Window
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Detector{
		cfg:       cfg,
		rng:       rng,
		window:    newWindow(cfg.Window),
		heartRate: restingHeartRate,
	}
}

// Add feeds one sample and reports whether it completed a step.
// Invalid samples are dropped without touching any state.
func (d *Detector) Add(s motion.Sample) bool {
	if !s.Valid() {
		return false
	}

	d.window.push(s.Magnitude())
	if d.window.len() < d.cfg.Warmup {
		return false
	}

	current := d.window.at(0)
	prev := d.window.at(1)
	prev2 := d.window.at(2)

	switch d.state {
	case AwaitingPeak:
		if current > prev && current > prev2 {
			d.peak = current
			d.state = AwaitingValley
		}
		return false

	case AwaitingValley:
		if current > d.peak {
			d.peak = current
		}
		if !(current < prev && current < prev2) {
			return false
		}
		d.state = AwaitingPeak
		if !d.isStep(current, prev, s.Timestamp) {
			return false
		}
		d.steps++
		d.lastStep = s.Timestamp
		d.driftHeartRate()
		return true
	}
	return false
}

// isStep applies the candidacy checks to a detected valley. The walking
// band is checked against the stride peak; a footfall valley sits below
// 1 g by nature.
func (d *Detector) isStep(current, last float64, at time.Time) bool {
	if math.Abs(current-last) <= d.cfg.Threshold {
		return false
	}
	if !d.lastStep.IsZero() && at.Sub(d.lastStep) <= d.cfg.Refractory {
		return false
	}
	return d.peak >= d.cfg.BandMin && d.peak <= d.cfg.BandMax
}

func (d *Detector) driftHeartRate() {
	d.heartRate += d.rng.Intn(2*heartRateJitter+1) - heartRateJitter
	if d.heartRate < minHeartRate {
		d.heartRate = minHeartRate
	}
	if d.heartRate > maxHeartRate {
		d.heartRate = maxHeartRate
	}
}

// Steps returns the number of counted steps.
func (d *Detector) Steps() int { return d.steps }

// HeartRate returns the simulated heart rate in bpm.
func (d *Detector) HeartRate() int { return d.heartRate }

// State returns the current state machine state.
func (d *Detector) State() State { return d.state }

func (d *Detector) buffered() int { return d.window.len() }

// Reset clears all detector state.
func (d *Detector) Reset() {
	d.window.clear()
	d.state = AwaitingPeak
	d.peak = 0
	d.steps = 0
	d.lastStep = time.Time{}
	d.heartRate = restingHeartRate
}

// history returns the buffered magnitudes, oldest first.
func (d *Detector) history() []float64 { return d.window.values() }
