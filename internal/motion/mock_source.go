// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"
	"time"
)

// Walking cadence of the mock gait, in strides per second.
const mockCadenceHz = 1.8

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a source that simulates a steady walk: a 1 g
// baseline on Z with a sinusoidal footfall swing.
func NewMockSource() Source {
	return NewMockSourceWithClock(time.Now)
}

// NewMockSourceWithClock is NewMockSource reading time from now, so replays
// can run faster than real time.
func NewMockSourceWithClock(now func() time.Time) Source {
	return &mockSource{start: now(), now: now}
}

func (m *mockSource) Next() (Sample, error) {
	now := m.now()
	elapsed := now.Sub(m.start).Seconds()
	phase := 2 * math.Pi * mockCadenceHz * elapsed

	return Sample{
		X:         0.05 * math.Sin(phase/2),
		Y:         0.03 * math.Cos(phase),
		Z:         1.0 + 0.6*math.Sin(phase),
		Timestamp: now,
	}, nil
}
