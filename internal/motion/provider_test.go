package motion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	mu      sync.Mutex
	samples []Sample
	err     error
}

func (s *scriptedSource) Next() (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return Sample{}, s.err
	}
	next := s.samples[0]
	s.samples = s.samples[1:]
	return next, nil
}

func TestTickerProviderDeliversThenReportsError(t *testing.T) {
	now := time.Now()
	src := &scriptedSource{
		samples: []Sample{{Z: 1, Timestamp: now}, {Z: 1.2, Timestamp: now.Add(time.Millisecond)}},
		err:     errors.New("spi timeout"),
	}

	var (
		mu       sync.Mutex
		received []Sample
	)
	errCh := make(chan error, 2)

	p := NewTickerProvider(src, time.Millisecond)
	sub, err := p.Start(context.Background(), func(s Sample) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}, func(err error) { errCh <- err })
	require.NoError(t, err)
	defer sub.Stop()

	select {
	case err := <-errCh:
		assert.EqualError(t, err, "spi timeout")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for feed error")
	}

	mu.Lock()
	assert.Len(t, received, 2)
	mu.Unlock()

	select {
	case <-errCh:
		t.Fatal("error reported twice")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTickerProviderStop(t *testing.T) {
	src := NewMockSource()
	delivered := make(chan struct{}, 1000)

	p := NewTickerProvider(src, time.Millisecond)
	sub, err := p.Start(context.Background(), func(Sample) { delivered <- struct{}{} }, nil)
	require.NoError(t, err)

	<-delivered
	sub.Stop()
	sub.Stop()

	time.Sleep(10 * time.Millisecond)
	drained := len(delivered)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, drained, len(delivered), "no deliveries after Stop settles")
}

func TestMockSourceGait(t *testing.T) {
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	src := NewMockSourceWithClock(func() time.Time { return clock })

	minMag, maxMag := 10.0, 0.0
	for i := 0; i < 50; i++ {
		clock = clock.Add(100 * time.Millisecond)
		s, err := src.Next()
		require.NoError(t, err)
		require.True(t, s.Valid())
		assert.Equal(t, clock, s.Timestamp)
		minMag = min(minMag, s.Magnitude())
		maxMag = max(maxMag, s.Magnitude())
	}

	assert.Less(t, minMag, 0.6)
	assert.Greater(t, maxMag, 1.4)
}

func TestSampleMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, Sample{X: 3, Y: 4}.Magnitude(), 1e-12)
	assert.False(t, Sample{Z: 1}.Valid())
}

func TestSampleTilt(t *testing.T) {
	flat := Sample{Z: 1}.Tilt()
	assert.InDelta(t, 0, flat.Roll, 1e-9)
	assert.InDelta(t, 0, flat.Pitch, 1e-9)

	side := Sample{Y: 1}.Tilt()
	assert.InDelta(t, 90, side.Roll, 1e-9)

	nose := Sample{X: -1}.Tilt()
	assert.InDelta(t, 90, nose.Pitch, 1e-9)
}
