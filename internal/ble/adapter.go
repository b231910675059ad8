// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ble talks to wearables over Bluetooth Low Energy. The Adapter
// interface has a mock implementation for development and a real one
// backed by the host radio; the caller picks one at startup.
package ble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable is returned when a device does not expose a service.
	ErrUnavailable = errors.New("ble: characteristic unavailable")
	// ErrPoweredOff is returned when the radio is off or missing.
	ErrPoweredOff = errors.New("ble: adapter powered off")
)

// PowerState of the local radio.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PoweredOn
	PoweredOff
)

func (p PowerState) String() string {
	switch p {
	case PoweredOn:
		return "powered_on"
	case PoweredOff:
		return "powered_off"
	default:
		return "unknown"
	}
}

// Device is a discovered peripheral.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	RSSI int    `json:"rssi"`
}

// ScanOptions bound a scan. A zero Duration scans until ctx is done.
type ScanOptions struct {
	NameFilter string
	Duration   time.Duration
}

// Adapter is the local BLE radio.
type Adapter interface {
	PowerState(ctx context.Context) (PowerState, error)
	// Scan blocks until the scan ends, calling found for each device.
	Scan(ctx context.Context, opts ScanOptions, found func(Device)) error
	Connect(ctx context.Context, dev Device) (Connection, error)
}

// Connection is an open link to one device.
type Connection interface {
	ReadBattery(ctx context.Context) (int, error)
	ReadHeartRate(ctx context.Context) (int, error)
	Disconnect() error
}

// parseHeartRate decodes a Heart Rate Measurement value. Bit 0 of the
// flags selects an 8 or 16 bit little-endian rate.
func parseHeartRate(b []byte) (int, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("ble: heart rate measurement too short: %d bytes", len(b))
	}
	if b[0]&0x01 == 0 {
		return int(b[1]), nil
	}
	if len(b) < 3 {
		return 0, fmt.Errorf("ble: heart rate measurement too short: %d bytes", len(b))
	}
	return int(binary.LittleEndian.Uint16(b[1:3])), nil
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
