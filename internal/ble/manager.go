package ble

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// ConnectedDevice is a paired wearable as shown to the user.
type ConnectedDevice struct {
	Device
	Battery   int       `json:"battery"`
	HeartRate int       `json:"heart_rate,omitempty"`
	LastSync  time.Time `json:"last_sync"`
}

// Manager keeps the set of connected devices on top of an Adapter.
type Manager struct {
	adapter   Adapter
	syncDelay time.Duration
	now       func() time.Time

	mu    sync.Mutex
	rng   *rand.Rand
	conns map[string]Connection
	devs  map[string]*ConnectedDevice
}

// NewManager creates a manager. syncDelay is waited before each sync read
// and is only set for the mock radio.
func NewManager(adapter Adapter, syncDelay time.Duration, rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		adapter:   adapter,
		syncDelay: syncDelay,
		now:       time.Now,
		rng:       rng,
		conns:     map[string]Connection{},
		devs:      map[string]*ConnectedDevice{},
	}
}

// Scan forwards to the adapter after checking the radio is on.
func (m *Manager) Scan(ctx context.Context, opts ScanOptions, found func(Device)) error {
	st, err := m.adapter.PowerState(ctx)
	if err != nil {
		return fmt.Errorf("ble: power state: %w", err)
	}
	if st != PoweredOn {
		return ErrPoweredOff
	}
	return m.adapter.Scan(ctx, opts, found)
}

// Connect links dev and reads its battery. An unreadable battery is
// replaced by an estimate so the device still shows up as connected.
func (m *Manager) Connect(ctx context.Context, dev Device) (ConnectedDevice, error) {
	conn, err := m.adapter.Connect(ctx, dev)
	if err != nil {
		return ConnectedDevice{}, fmt.Errorf("ble: connect %s: %w", dev.Name, err)
	}

	battery, err := conn.ReadBattery(ctx)
	if err != nil {
		log.Printf("ble: battery read on %s failed, estimating: %v", dev.Name, err)
		battery = m.estimateBattery()
	}

	cd := &ConnectedDevice{Device: dev, Battery: battery, LastSync: m.now()}
	m.mu.Lock()
	if old, ok := m.conns[dev.ID]; ok {
		if err := old.Disconnect(); err != nil {
			log.Printf("ble: dropping stale link to %s: %v", dev.Name, err)
		}
	}
	m.conns[dev.ID] = conn
	m.devs[dev.ID] = cd
	out := *cd
	m.mu.Unlock()

	log.Printf("ble: connected %s (battery %d%%)", dev.Name, battery)
	return out, nil
}

// Sync reads the current heart rate and refreshes the last sync time.
func (m *Manager) Sync(ctx context.Context, id string) (ConnectedDevice, error) {
	m.mu.Lock()
	conn, ok := m.conns[id]
	m.mu.Unlock()
	if !ok {
		return ConnectedDevice{}, fmt.Errorf("ble: device %q not connected", id)
	}

	if err := sleepCtx(ctx, m.syncDelay); err != nil {
		return ConnectedDevice{}, err
	}

	hr, err := conn.ReadHeartRate(ctx)
	if err != nil && !errors.Is(err, ErrUnavailable) {
		return ConnectedDevice{}, fmt.Errorf("ble: sync %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cd, ok := m.devs[id]
	if !ok {
		return ConnectedDevice{}, fmt.Errorf("ble: device %q disconnected during sync", id)
	}
	if err == nil {
		cd.HeartRate = hr
	}
	cd.LastSync = m.now()
	return *cd, nil
}

// Disconnect drops the link to id.
func (m *Manager) Disconnect(id string) error {
	m.mu.Lock()
	conn, ok := m.conns[id]
	delete(m.conns, id)
	delete(m.devs, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: device %q not connected", id)
	}
	return conn.Disconnect()
}

// Devices lists connected devices ordered by name.
func (m *Manager) Devices() []ConnectedDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConnectedDevice, 0, len(m.devs))
	for _, d := range m.devs {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) estimateBattery() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return 70 + m.rng.Intn(31)
}
