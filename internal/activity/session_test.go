package activity

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/activity_computer/internal/env"
	"github.com/relabs-tech/activity_computer/internal/location"
	"github.com/relabs-tech/activity_computer/internal/motion"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) last() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

type fakeSub struct {
	mu      sync.Mutex
	stopped bool
}

func (s *fakeSub) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *fakeSub) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// fakeMotion hands the session's callbacks to the test.
type fakeMotion struct {
	deliver func(motion.Sample)
	onErr   func(error)
	sub     *fakeSub
}

func (m *fakeMotion) Start(_ context.Context, deliver func(motion.Sample), onErr func(error)) (motion.Subscription, error) {
	m.deliver, m.onErr = deliver, onErr
	m.sub = &fakeSub{}
	return m.sub, nil
}

type fakeLocation struct {
	denied  bool
	deliver func(location.Fix)
	onErr   func(error)
	sub     *fakeSub
}

func (l *fakeLocation) RequestPermission(context.Context) error {
	if l.denied {
		return location.ErrPermissionDenied
	}
	return nil
}

func (l *fakeLocation) Current(context.Context) (location.Fix, error) {
	return location.Fix{}, location.ErrNoFix
}

func (l *fakeLocation) Watch(_ context.Context, _ location.WatchOptions, deliver func(location.Fix), onErr func(error)) (location.Subscription, error) {
	l.deliver, l.onErr = deliver, onErr
	l.sub = &fakeSub{}
	return l.sub, nil
}

type fakeBarometer struct {
	altitudes []float64
	err       error
}

func (b *fakeBarometer) Read() (env.Sample, error) {
	if b.err != nil {
		return env.Sample{}, b.err
	}
	alt := b.altitudes[0]
	if len(b.altitudes) > 1 {
		b.altitudes = b.altitudes[1:]
	}
	return env.Sample{Altitude: alt}, nil
}

type harness struct {
	clock    *fakeClock
	motion   *fakeMotion
	location *fakeLocation
	session  *Session

	mu     sync.Mutex
	alerts []Alert
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clock:    &fakeClock{now: t0},
		motion:   &fakeMotion{},
		location: &fakeLocation{},
	}
	opts := Options{
		Motion:   h.motion,
		Location: h.location,
		Clock:    h.clock,
		Rand:     rand.New(rand.NewSource(1)),
		OnAlert: func(a Alert) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.alerts = append(h.alerts, a)
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.session = New(opts)
	t.Cleanup(h.session.Reset)
	return h
}

func (h *harness) Alerts() []Alert {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Alert(nil), h.alerts...)
}

func fix(lat, lon float64) location.Fix {
	return location.Fix{Latitude: lat, Longitude: lon, Timestamp: t0}
}

// walk delivers a warm-up and n clean strides 300 ms apart.
func walk(deliver func(motion.Sample), start time.Time, n int) {
	mags := []float64{1.0, 1.0, 1.0, 1.0, 1.0}
	for i := 0; i < n; i++ {
		mags = append(mags, 1.0, 1.6, 0.4)
	}
	for i, m := range mags {
		deliver(motion.Sample{Z: m, Timestamp: start.Add(time.Duration(i) * 100 * time.Millisecond)})
	}
}

func TestStartTracking(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.session.Start(context.Background()))

	snap := h.session.Snapshot()
	assert.Equal(t, Tracking, snap.State)
	assert.NotEmpty(t, snap.SessionID)
	assert.True(t, snap.LocationEnabled)
	require.NotNil(t, snap.StartedAt)
	assert.Equal(t, t0, *snap.StartedAt)
	assert.Equal(t, 72, snap.HeartRate)
	assert.Empty(t, h.Alerts())
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(t, nil)
	s := h.session

	assert.ErrorIs(t, s.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Resume(), ErrInvalidTransition)
	_, err := s.Finish()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, s.Resume(), ErrInvalidTransition)

	_, err = s.Finish()
	require.NoError(t, err)
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidTransition, "finished needs a reset first")

	s.Reset()
	assert.NoError(t, s.Start(context.Background()))
}

func TestStepsAndDerivedMetrics(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.DailyStepGoal = 10 })
	require.NoError(t, h.session.Start(context.Background()))

	walk(h.motion.deliver, t0, 5)

	snap := h.session.Snapshot()
	assert.Equal(t, 5, snap.Steps)
	assert.InDelta(t, 0.2, snap.StepCalories, 1e-9)
	assert.InDelta(t, 50.0, snap.ProgressPct, 1e-9)
	assert.GreaterOrEqual(t, snap.HeartRate, 70)
	assert.LessOrEqual(t, snap.HeartRate, 120)
}

func TestDistanceFromFixes(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.session.Start(context.Background()))

	speed := 2.0
	f := fix(0, 1)
	f.Speed = &speed
	h.location.deliver(fix(0, 0))
	h.location.deliver(f)

	snap := h.session.Snapshot()
	assert.InDelta(t, 111.19, snap.DistanceKm, 0.01)
	assert.InDelta(t, 7.2, snap.SpeedKmh, 1e-9)
	assert.InDelta(t, 90, snap.HeadingDeg, 1e-6, "due east")
	assert.InDelta(t, 111.19*50, snap.CaloriesKcal, 1)
	assert.Equal(t, 2, snap.RoutePoints)
	require.NotNil(t, snap.Position)
	assert.Equal(t, 1.0, snap.Position.Longitude)

	h.location.deliver(location.Fix{Latitude: 95, Longitude: 0, Timestamp: t0})
	assert.Equal(t, 2, h.session.Snapshot().RoutePoints, "invalid fix ignored")
}

func TestPausedFixesAreNotCounted(t *testing.T) {
	h := newHarness(t, nil)
	s := h.session
	require.NoError(t, s.Start(context.Background()))

	h.location.deliver(fix(0, 0))
	h.location.deliver(fix(0, 1))
	require.NoError(t, s.Pause())

	h.location.deliver(fix(0, 2))
	walk(h.motion.deliver, t0, 3)
	snap := s.Snapshot()
	assert.InDelta(t, 111.19, snap.DistanceKm, 0.01)
	assert.Equal(t, 0, snap.Steps)
	assert.Equal(t, 2.0, snap.Position.Longitude, "position still follows the user")

	require.NoError(t, s.Resume())
	h.location.deliver(fix(0, 3)) // re-seeds only
	h.location.deliver(fix(0, 4))

	assert.InDelta(t, 222.39, s.Snapshot().DistanceKm, 0.01)
}

func TestPauseExcludedFromDuration(t *testing.T) {
	h := newHarness(t, nil)
	s := h.session
	require.NoError(t, s.Start(context.Background()))

	h.clock.Advance(10*time.Second + 400*time.Millisecond)
	require.NoError(t, s.Pause())
	assert.Equal(t, int64(10), s.Snapshot().DurationSec)

	h.clock.Advance(30 * time.Second)
	assert.Equal(t, int64(10), s.Snapshot().DurationSec)
	require.NoError(t, s.Resume())

	h.clock.Advance(5 * time.Second)
	summary, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, int64(15), summary.DurationSec)
	assert.Equal(t, Finished, summary.State)
	assert.Equal(t, t0.Add(45*time.Second+400*time.Millisecond), summary.FinishedAt)
}

func TestFinishWhilePaused(t *testing.T) {
	h := newHarness(t, nil)
	s := h.session
	require.NoError(t, s.Start(context.Background()))

	h.clock.Advance(20 * time.Second)
	require.NoError(t, s.Pause())
	h.clock.Advance(time.Minute)

	summary, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, int64(20), summary.DurationSec)
}

func TestTickerUpdatesDuration(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.session.Start(context.Background()))

	h.clock.Advance(3 * time.Second)
	h.clock.last().ch <- h.clock.Now()

	assert.Eventually(t, func() bool {
		return h.session.Snapshot().DurationSec == 3
	}, time.Second, 5*time.Millisecond)
}

func TestFinishDetachesFeeds(t *testing.T) {
	h := newHarness(t, nil)
	s := h.session
	require.NoError(t, s.Start(context.Background()))

	h.location.deliver(fix(0, 0))
	h.location.deliver(fix(0, 1))
	summary, err := s.Finish()
	require.NoError(t, err)

	assert.True(t, h.motion.sub.isStopped())
	assert.True(t, h.location.sub.isStopped())
	assert.True(t, h.clock.last().stopped)
	assert.Len(t, summary.Route, 2)

	// late deliveries from the detached feeds change nothing
	h.location.deliver(fix(0, 2))
	walk(h.motion.deliver, t0, 3)
	assert.Equal(t, summary.Snapshot, s.Snapshot())
}

func TestResetIgnoresStaleEvents(t *testing.T) {
	h := newHarness(t, nil)
	s := h.session
	require.NoError(t, s.Start(context.Background()))

	staleFix := h.location.deliver
	staleSample := h.motion.deliver
	staleErr := h.location.onErr

	s.Reset()
	assert.True(t, h.motion.sub.isStopped())

	staleFix(fix(0, 0))
	staleFix(fix(0, 1))
	walk(staleSample, t0, 2)
	staleErr(errors.New("gone"))

	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.SessionID)
	assert.Zero(t, snap.DistanceKm)
	assert.Zero(t, snap.Steps)
	assert.Nil(t, snap.Position)
	assert.Empty(t, h.Alerts())

	// a new session is not touched by the old callbacks either
	require.NoError(t, s.Start(context.Background()))
	staleFix(fix(0, 0))
	staleFix(fix(0, 1))
	assert.Zero(t, s.Snapshot().DistanceKm)
}

func TestPermissionDenied(t *testing.T) {
	h := newHarness(t, nil)
	h.location.denied = true

	require.NoError(t, h.session.Start(context.Background()))

	snap := h.session.Snapshot()
	assert.Equal(t, Tracking, snap.State, "session runs without distance")
	assert.False(t, snap.LocationEnabled)
	assert.Nil(t, h.location.deliver)

	alerts := h.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "location", alerts[0].Source)
	assert.Contains(t, alerts[0].Message, "Location is required")
}

func TestFeedErrorAlertsOnce(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.session.Start(context.Background()))

	h.location.onErr(errors.New("serial closed"))
	h.location.onErr(errors.New("serial closed"))

	alerts := h.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "serial closed")
	assert.False(t, h.session.Snapshot().LocationEnabled)
	assert.Equal(t, Tracking, h.session.State())
}

func TestBarometerElevation(t *testing.T) {
	baro := &fakeBarometer{altitudes: []float64{400, 403, 402, 406}}
	h := newHarness(t, func(o *Options) { o.Barometer = baro })
	require.NoError(t, h.session.Start(context.Background()))

	for i := 0; i < 4; i++ {
		h.clock.last().ch <- h.clock.Now()
	}

	assert.Eventually(t, func() bool {
		return h.session.Snapshot().ElevationGainM > 6.9
	}, time.Second, 5*time.Millisecond)
}

func TestSnapshotCallback(t *testing.T) {
	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	h := newHarness(t, func(o *Options) {
		o.OnSnapshot = func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			snaps = append(snaps, s)
		}
	})
	require.NoError(t, h.session.Start(context.Background()))
	h.location.deliver(fix(0, 0))
	require.NoError(t, h.session.Pause())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 3)
	assert.Equal(t, Tracking, snaps[0].State)
	assert.Equal(t, Paused, snaps[2].State)
}

func TestSnapshotsDeliveredInOrder(t *testing.T) {
	var (
		mu      sync.Mutex
		last    Snapshot
		blocked = make(chan struct{})
		release = make(chan struct{})
		once    sync.Once
	)
	h := newHarness(t, func(o *Options) {
		o.OnSnapshot = func(s Snapshot) {
			if s.State == Tracking && s.DurationSec == 3 {
				once.Do(func() {
					close(blocked)
					<-release
				})
			}
			mu.Lock()
			defer mu.Unlock()
			last = s
		}
	})
	s := h.session
	require.NoError(t, s.Start(context.Background()))

	h.clock.Advance(3 * time.Second)
	h.clock.last().ch <- h.clock.Now()
	<-blocked

	reset := make(chan struct{})
	go func() {
		s.Reset()
		close(reset)
	}()
	assert.Eventually(t, func() bool { return s.State() == Idle }, time.Second, 5*time.Millisecond)
	close(release)
	<-reset

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, Idle, last.State, "tick snapshot taken before reset must not be the last one observed")
	assert.Empty(t, last.SessionID)
}

func TestStaleSnapshotDropped(t *testing.T) {
	var snaps []Snapshot
	h := newHarness(t, func(o *Options) {
		o.OnSnapshot = func(s Snapshot) { snaps = append(snaps, s) }
	})
	s := h.session
	require.NoError(t, s.Start(context.Background()))

	s.mu.Lock()
	stale, seq := s.snapshotLocked(), s.nextSeqLocked()
	s.mu.Unlock()
	s.Reset()
	s.emit(seq, stale)

	require.Len(t, snaps, 2)
	assert.Equal(t, Idle, snaps[1].State)
}
