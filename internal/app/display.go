// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/activity_computer/internal/activity"
	"github.com/relabs-tech/activity_computer/internal/config"
	"github.com/relabs-tech/activity_computer/internal/metrics"
)

// displayData holds the latest snapshot seen on the session topic.
type displayData struct {
	mu   sync.RWMutex
	snap activity.Snapshot
	have bool
}

func (d *displayData) set(s activity.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = s
	d.have = true
}

func (d *displayData) get() (activity.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap, d.have
}

// RunDisplay mirrors the live session on a 128x64 SSD1306 over I2C.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderLines("Activity", "Computer", "", "Waiting..."), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicSession, "display", data.set); err != nil {
		return err
	}

	ticker := time.NewTicker(millis(cfg.DisplayUpdateInterval))
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		snap, have := data.get()
		if err := dev.Draw(dev.Bounds(), renderSnapshot(snap, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}

// snapshotLines lays a snapshot out on the four text rows.
func snapshotLines(s activity.Snapshot, have bool) [4]string {
	if !have {
		return [4]string{"", "No session", "Waiting...", ""}
	}
	status := s.State.String()
	if !s.LocationEnabled && s.State == activity.Tracking {
		status += " noGPS"
	}
	return [4]string{
		status,
		fmt.Sprintf("Steps %d %3.0f%%", s.Steps, s.ProgressPct),
		fmt.Sprintf("Dist  %.2f km", s.DistanceKm),
		fmt.Sprintf("Time  %s", metrics.FormatDuration(s.DurationSec)),
	}
}

func renderSnapshot(s activity.Snapshot, have bool) *image1bit.VerticalLSB {
	l := snapshotLines(s, have)
	return renderLines(l[0], l[1], l[2], l[3])
}

func renderLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}
