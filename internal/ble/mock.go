package ble

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// mockPool is what the mock radio "sees".
var mockPool = []Device{
	{ID: "mock-1", Name: "Apple Watch Series 9", RSSI: -65},
	{ID: "mock-2", Name: "Galaxy Watch 6", RSSI: -72},
	{ID: "mock-3", Name: "Fitbit Charge 6", RSSI: -58},
	{ID: "mock-4", Name: "Garmin Forerunner 265", RSSI: -80},
	{ID: "mock-5", Name: "Mi Band 8", RSSI: -70},
}

// MockAdapter simulates a radio with a fixed pool of wearables.
type MockAdapter struct {
	DiscoveryInterval time.Duration
	ConnectDelay      time.Duration
	Off               bool

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockAdapter returns a mock with realistic timings.
func NewMockAdapter(rng *rand.Rand) *MockAdapter {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockAdapter{
		DiscoveryInterval: 800 * time.Millisecond,
		ConnectDelay:      1500 * time.Millisecond,
		rng:               rng,
	}
}

func (m *MockAdapter) PowerState(ctx context.Context) (PowerState, error) {
	if m.Off {
		return PoweredOff, nil
	}
	return PoweredOn, nil
}

// Scan reports one pool device per discovery interval.
func (m *MockAdapter) Scan(ctx context.Context, opts ScanOptions, found func(Device)) error {
	if m.Off {
		return ErrPoweredOff
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	filter := strings.ToLower(opts.NameFilter)
	for _, dev := range mockPool {
		if err := sleepCtx(ctx, m.DiscoveryInterval); err != nil {
			return nil
		}
		if filter != "" && !strings.Contains(strings.ToLower(dev.Name), filter) {
			continue
		}
		found(dev)
	}
	return nil
}

func (m *MockAdapter) Connect(ctx context.Context, dev Device) (Connection, error) {
	if m.Off {
		return nil, ErrPoweredOff
	}
	known := false
	for _, d := range mockPool {
		known = known || d.ID == dev.ID
	}
	if !known {
		return nil, fmt.Errorf("ble: unknown device %q", dev.ID)
	}
	if err := sleepCtx(ctx, m.ConnectDelay); err != nil {
		return nil, err
	}
	return &mockConnection{adapter: m}, nil
}

// intn draws from [lo, hi].
func (m *MockAdapter) intn(lo, hi int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo + m.rng.Intn(hi-lo+1)
}

type mockConnection struct {
	adapter *MockAdapter
	closed  atomic.Bool
}

func (c *mockConnection) ReadBattery(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrUnavailable
	}
	return c.adapter.intn(70, 100), nil
}

func (c *mockConnection) ReadHeartRate(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrUnavailable
	}
	return c.adapter.intn(60, 100), nil
}

func (c *mockConnection) Disconnect() error {
	c.closed.Store(true)
	return nil
}
