// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ble

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"
)

// RealAdapter drives the host radio through tinygo bluetooth. Battery and
// heart rate come from the standard GATT services.
type RealAdapter struct {
	adapter *bluetooth.Adapter

	mu      sync.Mutex
	enabled bool
	seen    map[string]bluetooth.Address
}

// NewRealAdapter wraps the default host adapter.
func NewRealAdapter() *RealAdapter {
	return &RealAdapter{
		adapter: bluetooth.DefaultAdapter,
		seen:    map[string]bluetooth.Address{},
	}
}

func (r *RealAdapter) enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		return nil
	}
	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", ErrPoweredOff, err)
	}
	r.enabled = true
	return nil
}

func (r *RealAdapter) PowerState(ctx context.Context) (PowerState, error) {
	if err := r.enable(); err != nil {
		log.Printf("ble: enable error: %v", err)
		return PoweredOff, nil
	}
	return PoweredOn, nil
}

// Scan runs until opts.Duration elapses or ctx is done. Devices are
// reported once per scan.
func (r *RealAdapter) Scan(ctx context.Context, opts ScanOptions, found func(Device)) error {
	if ctx.Err() != nil {
		return nil
	}
	if err := r.enable(); err != nil {
		return err
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := r.adapter.StopScan(); err != nil {
				log.Printf("ble: stop scan error: %v", err)
			}
		case <-stopped:
		}
	}()
	defer close(stopped)

	filter := strings.ToLower(opts.NameFilter)
	reported := map[string]bool{}
	err := r.adapter.Scan(func(a *bluetooth.Adapter, res bluetooth.ScanResult) {
		// A StopScan issued before scanning began is lost; repeat it here.
		if ctx.Err() != nil {
			if err := a.StopScan(); err != nil {
				log.Printf("ble: stop scan error: %v", err)
			}
			return
		}
		name := res.LocalName()
		if name == "" {
			return
		}
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			return
		}
		id := res.Address.String()
		if reported[id] {
			return
		}
		reported[id] = true

		r.mu.Lock()
		r.seen[id] = res.Address
		r.mu.Unlock()

		found(Device{ID: id, Name: name, RSSI: int(res.RSSI)})
	})
	if err != nil {
		return fmt.Errorf("ble: scan: %w", err)
	}
	return nil
}

// Connect opens a link and resolves the battery and heart rate
// characteristics. A device without them still connects; the reads then
// return ErrUnavailable.
func (r *RealAdapter) Connect(ctx context.Context, dev Device) (Connection, error) {
	if err := r.enable(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	addr, ok := r.seen[dev.ID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ble: device %q not seen in a scan", dev.ID)
	}

	device, err := r.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("ble: connect %s: %w", dev.Name, err)
	}

	conn := &realConnection{disconnect: device.Disconnect}
	services, err := device.DiscoverServices([]bluetooth.UUID{
		bluetooth.ServiceUUIDBattery,
		bluetooth.ServiceUUIDHeartRate,
	})
	if err != nil {
		log.Printf("ble: service discovery on %s: %v", dev.Name, err)
		return conn, nil
	}

	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{
			bluetooth.CharacteristicUUIDBatteryLevel,
			bluetooth.CharacteristicUUIDHeartRateMeasurement,
		})
		if err != nil {
			log.Printf("ble: characteristic discovery on %s: %v", dev.Name, err)
			continue
		}
		for i := range chars {
			switch chars[i].UUID() {
			case bluetooth.CharacteristicUUIDBatteryLevel:
				conn.battery = &chars[i]
			case bluetooth.CharacteristicUUIDHeartRateMeasurement:
				conn.heartRate = &chars[i]
			}
		}
	}
	return conn, nil
}

type realConnection struct {
	disconnect func() error
	battery    *bluetooth.DeviceCharacteristic
	heartRate  *bluetooth.DeviceCharacteristic
}

func (c *realConnection) ReadBattery(ctx context.Context) (int, error) {
	if c.battery == nil {
		return 0, ErrUnavailable
	}
	buf := make([]byte, 1)
	n, err := c.battery.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("ble: read battery: %w", err)
	}
	if n < 1 {
		return 0, ErrUnavailable
	}
	return int(buf[0]), nil
}

// ReadHeartRate reads the measurement characteristic directly. Most
// straps only notify; those report ErrUnavailable here.
func (c *realConnection) ReadHeartRate(ctx context.Context) (int, error) {
	if c.heartRate == nil {
		return 0, ErrUnavailable
	}
	buf := make([]byte, 8)
	n, err := c.heartRate.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseHeartRate(buf[:n])
}

func (c *realConnection) Disconnect() error {
	return c.disconnect()
}
