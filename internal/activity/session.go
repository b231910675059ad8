// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package activity owns one tracked workout: the step detector, the
// distance accumulator, the duration timer and the feeds that drive them.
//
// Lifecycle:
//
//	Idle --Start--> Tracking <--Pause/Resume--> Paused
//	Tracking|Paused --Finish--> Finished
//	any --Reset--> Idle
//
// Every feed callback carries the generation it was subscribed under.
// Finish and Reset bump the generation, so a sample or fix that was already
// queued when a feed was stopped is dropped instead of mutating a session
// that has moved on.
//
// While Paused, samples and fixes are received but not counted, and the
// first fix after Resume only re-seeds the distance reference.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/activity_computer/internal/env"
	"github.com/relabs-tech/activity_computer/internal/geo"
	"github.com/relabs-tech/activity_computer/internal/location"
	"github.com/relabs-tech/activity_computer/internal/metrics"
	"github.com/relabs-tech/activity_computer/internal/motion"
	"github.com/relabs-tech/activity_computer/internal/steps"
)

const tickInterval = time.Second

// AltitudeReader is an optional barometer polled on every timer tick.
type AltitudeReader interface {
	Read() (env.Sample, error)
}

// Options wires a session to its feeds. Nil providers disable the feature.
type Options struct {
	Motion    motion.Provider
	Location  location.Provider
	Barometer AltitudeReader

	Watch         location.WatchOptions
	Steps         steps.Config
	DailyStepGoal int

	Clock Clock
	Rand  *rand.Rand

	// OnSnapshot is called after every change, outside the session lock and
	// in order. It must not call back into the session.
	OnSnapshot func(Snapshot)
	// OnAlert is called once per failing feed per Start.
	OnAlert func(Alert)
}

// Session is one activity. All methods are safe for concurrent use; events
// are applied one at a time.
type Session struct {
	opts  Options
	clock Clock

	mu    sync.Mutex
	id    string
	state State
	gen   uint64

	detector  *steps.Detector
	distance  geo.Accumulator
	elevation env.ElevationGain
	route     []location.Fix
	position  *location.Fix
	speedKmh  float64
	heading   float64

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	durationSec int64

	locationEnabled bool
	alerted         map[string]bool

	cancelFeeds context.CancelFunc
	motionSub   motion.Subscription
	locationSub location.Subscription
	ticker      Ticker

	// seq orders snapshots as they are taken under mu. Delivery holds
	// emitMu, and a snapshot older than the last one delivered is dropped.
	seq       uint64
	emitMu    sync.Mutex
	delivered uint64
}

// New creates an Idle session.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Steps == (steps.Config{}) {
		opts.Steps = steps.DefaultConfig()
	}
	if opts.DailyStepGoal <= 0 {
		opts.DailyStepGoal = metrics.DefaultDailyStepGoal
	}
	return &Session{
		opts:     opts,
		clock:    opts.Clock,
		detector: steps.NewDetector(opts.Steps, opts.Rand),
		alerted:  map[string]bool{},
	}
}

// ID returns the current session id, empty while Idle.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins tracking. A denied location permission is reported through
// OnAlert and the session runs without distance.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, st)
	}

	s.gen++
	gen := s.gen
	s.id = uuid.NewString()
	s.state = Tracking
	s.startedAt = s.clock.Now()
	s.pausedTotal = 0
	s.alerted = map[string]bool{}

	// Feeds outlive the caller's context (often an HTTP request) and end
	// with Finish or Reset.
	feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelFeeds = cancel

	var alerts []Alert

	if s.opts.Motion != nil {
		sub, err := s.opts.Motion.Start(feedCtx,
			func(sample motion.Sample) { s.onSample(gen, sample) },
			func(err error) { s.onFeedError(gen, "motion", err) })
		if err != nil {
			log.Printf("activity: motion feed start error: %v", err)
			alerts = append(alerts, s.alertLocked("motion", "Step counting unavailable: "+err.Error()))
		} else {
			s.motionSub = sub
		}
	}

	if s.opts.Location != nil {
		s.locationEnabled = true
		if err := s.opts.Location.RequestPermission(ctx); err != nil {
			s.locationEnabled = false
			log.Printf("activity: location permission error: %v", err)
			msg := "Location is required for distance tracking"
			if !errors.Is(err, location.ErrPermissionDenied) {
				msg = "Failed to get location permission: " + err.Error()
			}
			alerts = append(alerts, s.alertLocked("location", msg))
		} else {
			sub, err := s.opts.Location.Watch(feedCtx, s.opts.Watch,
				func(f location.Fix) { s.onFix(gen, f) },
				func(err error) { s.onFeedError(gen, "location", err) })
			if err != nil {
				s.locationEnabled = false
				log.Printf("activity: location feed start error: %v", err)
				alerts = append(alerts, s.alertLocked("location", "Failed to start tracking: "+err.Error()))
			} else {
				s.locationSub = sub
			}
		}
	}

	s.ticker = s.clock.NewTicker(tickInterval)
	go s.runTicker(feedCtx, gen, s.ticker)

	log.Printf("activity: session %s started", s.id)
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap, alerts...)
	return nil
}

func (s *Session) runTicker(ctx context.Context, gen uint64, t Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C():
			s.onTick(gen, now)
		}
	}
}

// Pause freezes the duration.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != Tracking {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, st)
	}
	now := s.clock.Now()
	s.durationSec = s.elapsedSec(now)
	s.pausedAt = now
	s.state = Paused
	s.distance.Reseed()
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap)
	return nil
}

// Resume continues a paused session; the paused interval is excluded from
// the duration.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.state != Paused {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, st)
	}
	s.pausedTotal += s.clock.Now().Sub(s.pausedAt)
	s.pausedAt = time.Time{}
	s.state = Tracking
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap)
	return nil
}

// Finish stops all feeds and returns the final totals. Nothing is kept
// after the session is reset.
func (s *Session) Finish() (Summary, error) {
	s.mu.Lock()
	if !s.state.active() {
		st := s.state
		s.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: finish from %s", ErrInvalidTransition, st)
	}
	now := s.clock.Now()
	if s.state == Paused {
		s.pausedTotal += now.Sub(s.pausedAt)
		s.pausedAt = time.Time{}
	}
	s.durationSec = s.elapsedSec(now)
	s.stopFeedsLocked()
	s.state = Finished

	summary := Summary{
		Snapshot:   s.snapshotLocked(),
		FinishedAt: now,
		Route:      append([]location.Fix(nil), s.route...),
	}
	seq := s.nextSeqLocked()
	log.Printf("activity: session %s finished: %.2f km, %d steps, %s",
		s.id, summary.DistanceKm, summary.Steps, metrics.FormatDuration(summary.DurationSec))
	s.mu.Unlock()

	s.emit(seq, summary.Snapshot)
	return summary, nil
}

// Reset returns the session to Idle from any state, detaching feeds and
// clearing every accumulator.
func (s *Session) Reset() {
	s.mu.Lock()
	s.stopFeedsLocked()
	s.id = ""
	s.state = Idle
	s.detector.Reset()
	s.distance.Reset()
	s.elevation.Reset()
	s.route = nil
	s.position = nil
	s.speedKmh = 0
	s.heading = 0
	s.startedAt = time.Time{}
	s.pausedAt = time.Time{}
	s.pausedTotal = 0
	s.durationSec = 0
	s.locationEnabled = false
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap)
}

// Snapshot returns the current live view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Route returns a copy of the recorded route.
func (s *Session) Route() []location.Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]location.Fix(nil), s.route...)
}

// stopFeedsLocked detaches every feed and invalidates callbacks already in
// flight.
func (s *Session) stopFeedsLocked() {
	s.gen++
	if s.motionSub != nil {
		s.motionSub.Stop()
		s.motionSub = nil
	}
	if s.locationSub != nil {
		s.locationSub.Stop()
		s.locationSub = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.cancelFeeds != nil {
		s.cancelFeeds()
		s.cancelFeeds = nil
	}
}

// current reports whether a callback from gen may still mutate state.
func (s *Session) current(gen uint64) bool {
	return gen == s.gen && s.state.active()
}

func (s *Session) onSample(gen uint64, sample motion.Sample) {
	s.mu.Lock()
	if !s.current(gen) || s.state == Paused {
		s.mu.Unlock()
		return
	}
	if !s.detector.Add(sample) {
		s.mu.Unlock()
		return
	}
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap)
}

func (s *Session) onFix(gen uint64, f location.Fix) {
	s.mu.Lock()
	if !s.current(gen) || !f.Valid() {
		s.mu.Unlock()
		return
	}
	pos := f
	s.position = &pos
	if s.state == Paused {
		s.mu.Unlock()
		return
	}

	prevLat, prevLon, seeded := s.distance.Last()
	if s.distance.Add(f.Latitude, f.Longitude) > 0 && seeded {
		s.heading = geo.Bearing(prevLat, prevLon, f.Latitude, f.Longitude)
	}
	s.route = append(s.route, f)
	if f.Speed != nil {
		s.speedKmh = geo.SpeedKmh(*f.Speed)
	}
	if f.Altitude != nil && s.opts.Barometer == nil {
		s.elevation.Add(*f.Altitude)
	}
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap)
}

func (s *Session) onTick(gen uint64, now time.Time) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	var alerts []Alert
	if s.state == Tracking {
		s.durationSec = s.elapsedSec(now)
		if s.opts.Barometer != nil && !s.alerted["barometer"] {
			if sample, err := s.opts.Barometer.Read(); err != nil {
				log.Printf("activity: barometer read error: %v", err)
				alerts = append(alerts, s.alertLocked("barometer", "Elevation unavailable: "+err.Error()))
			} else {
				s.elevation.Add(sample.Altitude)
			}
		}
	}
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap, alerts...)
}

// onFeedError handles a feed that ended with an error. The feed stays
// down until the user restarts the session.
func (s *Session) onFeedError(gen uint64, source string, err error) {
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	log.Printf("activity: %s feed error: %v", source, err)
	var alerts []Alert
	if !s.alerted[source] {
		alerts = append(alerts, s.alertLocked(source, "Tracking error: "+err.Error()))
	}
	if source == "location" {
		s.locationEnabled = false
	}
	snap, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()

	s.emit(seq, snap, alerts...)
}

func (s *Session) alertLocked(source, msg string) Alert {
	s.alerted[source] = true
	return Alert{Source: source, Message: msg, At: s.clock.Now()}
}

// elapsedSec is wall time since start minus paused time, floored to whole
// seconds.
func (s *Session) elapsedSec(now time.Time) int64 {
	if s.startedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(s.startedAt) - s.pausedTotal
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / time.Second)
}

func (s *Session) snapshotLocked() Snapshot {
	km := s.distance.TotalKm()
	n := s.detector.Steps()
	snap := Snapshot{
		SessionID:       s.id,
		State:           s.state,
		Steps:           n,
		HeartRate:       s.detector.HeartRate(),
		DistanceKm:      km,
		DurationSec:     s.durationSec,
		SpeedKmh:        s.speedKmh,
		HeadingDeg:      s.heading,
		PaceMinPerKm:    metrics.Pace(s.durationSec, km),
		CaloriesKcal:    metrics.CaloriesFromDistance(km),
		StepCalories:    metrics.CaloriesFromSteps(n),
		ProgressPct:     metrics.Progress(n, s.opts.DailyStepGoal),
		ElevationGainM:  s.elevation.GainM(),
		RoutePoints:     len(s.route),
		LocationEnabled: s.locationEnabled,
	}
	if s.position != nil {
		pos := *s.position
		snap.Position = &pos
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		snap.StartedAt = &started
	}
	return snap
}

func (s *Session) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

// emit delivers in the order the snapshots were taken. Observers never see
// a tick or fix snapshot land after the Reset or Finish that followed it.
func (s *Session) emit(seq uint64, snap Snapshot, alerts ...Alert) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.opts.OnAlert != nil {
		for _, a := range alerts {
			s.opts.OnAlert(a)
		}
	}
	if seq <= s.delivered {
		return
	}
	s.delivered = seq
	if s.opts.OnSnapshot != nil {
		s.opts.OnSnapshot(snap)
	}
}
