// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"context"
	"time"
)

// MockProvider replays a fixed route, one point per interval, stamping each
// fix with the current time. The route loops.
type MockProvider struct {
	Route    []Fix
	Interval time.Duration
	// Denied makes RequestPermission fail, to exercise the disabled path.
	Denied bool
	Now    func() time.Time
}

// NewMockProvider creates a mock walking a short loop around a park at
// roughly 1.4 m/s.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Route:    DemoRoute(),
		Interval: time.Second,
		Now:      time.Now,
	}
}

// DemoRoute is a small closed loop, points about 5.5 m apart.
func DemoRoute() []Fix {
	const (
		lat0 = 47.3769
		lon0 = 8.5417
		step = 0.00005 // ~5.5 m of latitude
	)
	var route []Fix
	for i := 0; i < 20; i++ {
		route = append(route, Fix{Latitude: lat0 + float64(i)*step, Longitude: lon0, Speed: Float(1.4)})
	}
	for i := 20; i > 0; i-- {
		route = append(route, Fix{Latitude: lat0 + float64(i)*step, Longitude: lon0 + 0.0001, Speed: Float(1.4)})
	}
	return route
}

func (m *MockProvider) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// RequestPermission succeeds unless Denied is set.
func (m *MockProvider) RequestPermission(ctx context.Context) error {
	if m.Denied {
		return ErrPermissionDenied
	}
	return nil
}

// Current returns the first route point.
func (m *MockProvider) Current(ctx context.Context) (Fix, error) {
	if m.Denied {
		return Fix{}, ErrPermissionDenied
	}
	if len(m.Route) == 0 {
		return Fix{}, ErrNoFix
	}
	f := m.Route[0]
	f.Timestamp = m.now()
	return f, nil
}

// Watch replays the route in a goroutine.
func (m *MockProvider) Watch(ctx context.Context, opts WatchOptions, deliver func(Fix), onErr func(error)) (Subscription, error) {
	if m.Denied {
		return nil, ErrPermissionDenied
	}
	if len(m.Route) == 0 {
		return nil, ErrNoFix
	}
	interval := m.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	th := &throttle{opts: opts}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			f := m.Route[i%len(m.Route)]
			f.Timestamp = m.now()
			if th.allow(f) && ctx.Err() == nil {
				deliver(f)
			}
		}
	}()

	return &cancelSubscription{cancel: cancel}, nil
}
