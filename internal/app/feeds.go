// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/activity_computer/internal/activity"
	"github.com/relabs-tech/activity_computer/internal/config"
	"github.com/relabs-tech/activity_computer/internal/location"
	"github.com/relabs-tech/activity_computer/internal/motion"
	"github.com/relabs-tech/activity_computer/internal/sensors"
	"github.com/relabs-tech/activity_computer/internal/steps"
)

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// needsMQTT reports whether any feed is read from the broker.
func needsMQTT(cfg *config.Config) bool {
	return cfg.MotionSource == "mqtt" || cfg.GPSSource == "mqtt"
}

// motionSource opens the local sample source for MOTION_SOURCE=mock|imu.
func motionSource(cfg *config.Config) (motion.Source, error) {
	switch cfg.MotionSource {
	case "mock":
		log.Println("using mock motion source")
		return motion.NewMockSource(), nil
	case "imu":
		log.Printf("using IMU on %s", cfg.IMUSPIDevice)
		return sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
	default:
		return nil, fmt.Errorf("motion source %q has no local reader", cfg.MotionSource)
	}
}

func motionProvider(cfg *config.Config, client mqtt.Client) (motion.Provider, error) {
	if cfg.MotionSource == "mqtt" {
		return motion.NewMQTTProvider(client, cfg.TopicMotion), nil
	}
	src, err := motionSource(cfg)
	if err != nil {
		return nil, err
	}
	return motion.NewTickerProvider(src, millis(cfg.MotionSampleInterval)), nil
}

func locationProvider(cfg *config.Config, client mqtt.Client) location.Provider {
	switch cfg.GPSSource {
	case "serial":
		log.Printf("using GPS on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)
		return location.NewSerialProvider(cfg.GPSSerialPort, cfg.GPSBaudRate)
	case "mqtt":
		return location.NewMQTTProvider(client, cfg.TopicGPS)
	default:
		log.Println("using mock location provider")
		return location.NewMockProvider()
	}
}

// barometer opens the optional BMP280. The closer is nil when disabled.
func barometer(cfg *config.Config) (activity.AltitudeReader, io.Closer) {
	if cfg.BMPSPIDevice == "" {
		return nil, nil
	}
	b, err := sensors.NewBarometer(cfg.BMPSPIDevice, cfg.SeaLevelPressureHPa)
	if err != nil {
		log.Printf("barometer unavailable, elevation from GPS only: %v", err)
		return nil, nil
	}
	return b, b
}

func stepConfig(cfg *config.Config) steps.Config {
	return steps.Config{
		Window:     cfg.StepWindow,
		Warmup:     cfg.StepWarmup,
		Threshold:  cfg.StepThreshold,
		Refractory: millis(cfg.StepRefractoryMS),
		BandMin:    cfg.StepBandMin,
		BandMax:    cfg.StepBandMax,
	}
}

func watchOptions(cfg *config.Config) location.WatchOptions {
	return location.WatchOptions{
		TimeInterval:     millis(cfg.GPSTimeInterval),
		DistanceInterval: cfg.GPSDistanceInterval,
	}
}

// sessionOptions builds the feeds for a session. The returned cleanup
// releases hardware; it is never nil.
func sessionOptions(cfg *config.Config, client mqtt.Client) (activity.Options, func(), error) {
	mp, err := motionProvider(cfg, client)
	if err != nil {
		return activity.Options{}, nil, fmt.Errorf("motion provider: %w", err)
	}
	baro, closer := barometer(cfg)
	cleanup := func() {
		if closer != nil {
			if err := closer.Close(); err != nil {
				log.Printf("barometer close error: %v", err)
			}
		}
	}
	return activity.Options{
		Motion:        mp,
		Location:      locationProvider(cfg, client),
		Barometer:     baro,
		Watch:         watchOptions(cfg),
		Steps:         stepConfig(cfg),
		DailyStepGoal: cfg.DailyStepGoal,
	}, cleanup, nil
}
