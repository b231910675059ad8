// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/activity_computer/internal/activity"
	"github.com/relabs-tech/activity_computer/internal/ble"
	"github.com/relabs-tech/activity_computer/internal/config"
	"github.com/relabs-tech/activity_computer/internal/metrics"
)

// RunTracker owns the activity session: it reads the configured feeds,
// serves the HTTP/websocket API and mirrors every snapshot and alert to
// MQTT when a broker is reachable.
func RunTracker() error {
	log.Println("starting activity-computer tracker")
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDTracker)
	if err != nil {
		if needsMQTT(cfg) {
			return err
		}
		log.Printf("tracker: running without MQTT: %v", err)
		client = nil
	}
	if client != nil {
		defer client.Disconnect(250)
	}

	opts, cleanup, err := sessionOptions(cfg, client)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := NewHub()
	opts.OnSnapshot = func(s activity.Snapshot) {
		hub.Broadcast(WSMessage{Type: "snapshot", Snapshot: &s})
		mirror(client, cfg.TopicSession, true, s)
	}
	opts.OnAlert = func(a activity.Alert) {
		log.Printf("tracker: alert from %s: %s", a.Source, a.Message)
		hub.Broadcast(WSMessage{Type: "alert", Alert: &a})
		mirror(client, cfg.TopicAlerts, false, a)
	}
	session := activity.New(opts)

	srv := NewServer(session, hub, newWearableManager(cfg), ble.ScanOptions{
		NameFilter: cfg.BLENameFilter,
		Duration:   time.Duration(cfg.BLEScanSeconds) * time.Second,
	})
	srv.OnFinish(func(s activity.Summary) {
		log.Printf("tracker: finished %s: %d steps, %.2f km in %s, pace %.1f min/km",
			s.SessionID, s.Steps, s.DistanceKm, metrics.FormatDuration(s.DurationSec), s.PaceMinPerKm)
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Println("tracker: shutting down")
	}

	session.Reset()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// mirror publishes v when an MQTT client is present.
func mirror(client mqtt.Client, topic string, retained bool, v any) {
	if client == nil {
		return
	}
	if err := publishJSON(client, topic, retained, v); err != nil {
		log.Printf("tracker: %v", err)
	}
}
