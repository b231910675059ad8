// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string `mapstructure:"MQTT_BROKER"`
	MQTTClientIDMotion  string `mapstructure:"MQTT_CLIENT_ID_MOTION"`
	MQTTClientIDGPS     string `mapstructure:"MQTT_CLIENT_ID_GPS"`
	MQTTClientIDTracker string `mapstructure:"MQTT_CLIENT_ID_TRACKER"`
	MQTTClientIDConsole string `mapstructure:"MQTT_CLIENT_ID_CONSOLE"`
	MQTTClientIDDisplay string `mapstructure:"MQTT_CLIENT_ID_DISPLAY"`

	// Topics
	TopicMotion  string `mapstructure:"TOPIC_MOTION"`
	TopicGPS     string `mapstructure:"TOPIC_GPS"`
	TopicSession string `mapstructure:"TOPIC_SESSION"`
	TopicAlerts  string `mapstructure:"TOPIC_ALERTS"`

	// Motion feed
	// MotionSource selects where samples come from: "mock", "imu" or "mqtt".
	MotionSource         string `mapstructure:"MOTION_SOURCE"`
	MotionSampleInterval int    `mapstructure:"MOTION_SAMPLE_INTERVAL"` // milliseconds

	// IMU Hardware
	IMUSPIDevice string `mapstructure:"IMU_SPI_DEVICE"`
	IMUCSPin     string `mapstructure:"IMU_CS_PIN"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte `mapstructure:"IMU_ACCEL_RANGE"`

	// Barometer (optional, empty device disables elevation tracking)
	BMPSPIDevice        string  `mapstructure:"BMP_SPI_DEVICE"`
	SeaLevelPressureHPa float64 `mapstructure:"SEA_LEVEL_PRESSURE_HPA"`

	// GPS
	// GPSSource selects where fixes come from: "mock", "serial" or "mqtt".
	GPSSource           string  `mapstructure:"GPS_SOURCE"`
	GPSSerialPort       string  `mapstructure:"GPS_SERIAL_PORT"`
	GPSBaudRate         int     `mapstructure:"GPS_BAUD_RATE"`
	GPSTimeInterval     int     `mapstructure:"GPS_TIME_INTERVAL"`     // milliseconds
	GPSDistanceInterval float64 `mapstructure:"GPS_DISTANCE_INTERVAL"` // meters

	// Step detector
	StepWindow       int     `mapstructure:"STEP_WINDOW"`
	StepWarmup       int     `mapstructure:"STEP_WARMUP"`
	StepThreshold    float64 `mapstructure:"STEP_THRESHOLD"`
	StepRefractoryMS int     `mapstructure:"STEP_REFRACTORY_MS"`
	StepBandMin      float64 `mapstructure:"STEP_BAND_MIN"`
	StepBandMax      float64 `mapstructure:"STEP_BAND_MAX"`

	// Goals
	DailyStepGoal int `mapstructure:"DAILY_STEP_GOAL"`

	// Timing
	ConsoleLogInterval int `mapstructure:"CONSOLE_LOG_INTERVAL"` // milliseconds

	// Web Server
	WebServerPort int `mapstructure:"WEB_SERVER_PORT"`

	// Display
	DisplayUpdateInterval int `mapstructure:"DISPLAY_UPDATE_INTERVAL"` // milliseconds

	// Wearables
	// BLEMode selects the adapter: "mock" or "real".
	BLEMode        string `mapstructure:"BLE_MODE"`
	BLEScanSeconds int    `mapstructure:"BLE_SCAN_SECONDS"`
	BLENameFilter  string `mapstructure:"BLE_NAME_FILTER"`
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu guards globalConfig for concurrent readers.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults lists every known key. A key missing here is rejected when it
// shows up in a config file.
var defaults = map[string]any{
	"MQTT_BROKER":            "tcp://localhost:1883",
	"MQTT_CLIENT_ID_MOTION":  "activity-motion-producer",
	"MQTT_CLIENT_ID_GPS":     "activity-gps-producer",
	"MQTT_CLIENT_ID_TRACKER": "activity-tracker",
	"MQTT_CLIENT_ID_CONSOLE": "activity-console",
	"MQTT_CLIENT_ID_DISPLAY": "activity-display",

	"TOPIC_MOTION":  "activity/motion",
	"TOPIC_GPS":     "activity/gps",
	"TOPIC_SESSION": "activity/session",
	"TOPIC_ALERTS":  "activity/alerts",

	"MOTION_SOURCE":          "mock",
	"MOTION_SAMPLE_INTERVAL": 100,

	"IMU_SPI_DEVICE":  "/dev/spidev0.0",
	"IMU_CS_PIN":      "8",
	"IMU_ACCEL_RANGE": 1,

	"BMP_SPI_DEVICE":         "",
	"SEA_LEVEL_PRESSURE_HPA": 1013.25,

	"GPS_SOURCE":            "mock",
	"GPS_SERIAL_PORT":       "/dev/serial0",
	"GPS_BAUD_RATE":         9600,
	"GPS_TIME_INTERVAL":     1000,
	"GPS_DISTANCE_INTERVAL": 5.0,

	"STEP_WINDOW":        10,
	"STEP_WARMUP":        5,
	"STEP_THRESHOLD":     0.2,
	"STEP_REFRACTORY_MS": 250,
	"STEP_BAND_MIN":      0.5,
	"STEP_BAND_MAX":      2.0,

	"DAILY_STEP_GOAL": 10000,

	"CONSOLE_LOG_INTERVAL": 1000,

	"WEB_SERVER_PORT": 8080,

	"DISPLAY_UPDATE_INTERVAL": 500,

	"BLE_MODE":         "mock",
	"BLE_SCAN_SECONDS": 10,
	"BLE_NAME_FILTER":  "",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration with environment overrides
// applied.
func Default() (*Config, error) {
	return decode(newViper())
}

// Load reads a KEY=VALUE configuration file and returns a Config struct.
// Keys not present in the file fall back to defaults; environment
// variables of the same name take precedence over both.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var unknown []string
	for _, key := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(key)]; !ok {
			unknown = append(unknown, strings.ToUpper(key))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown config key: %q", unknown[0])
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks required fields and value ranges.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.MotionSource {
	case "mock", "imu", "mqtt":
	default:
		return fmt.Errorf("MOTION_SOURCE must be mock, imu or mqtt, got %q", c.MotionSource)
	}
	if c.MotionSampleInterval <= 0 {
		return fmt.Errorf("MOTION_SAMPLE_INTERVAL must be positive, got %d", c.MotionSampleInterval)
	}
	if c.IMUAccelRange > 3 {
		return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", c.IMUAccelRange)
	}
	if c.MotionSource == "imu" && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required when MOTION_SOURCE=imu")
	}
	switch c.GPSSource {
	case "mock", "serial", "mqtt":
	default:
		return fmt.Errorf("GPS_SOURCE must be mock, serial or mqtt, got %q", c.GPSSource)
	}
	if c.GPSSource == "serial" {
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required when GPS_SOURCE=serial")
		}
		if c.GPSBaudRate == 0 {
			return fmt.Errorf("GPS_BAUD_RATE is required when GPS_SOURCE=serial")
		}
	}
	if c.GPSTimeInterval < 0 || c.GPSDistanceInterval < 0 {
		return fmt.Errorf("GPS_TIME_INTERVAL and GPS_DISTANCE_INTERVAL must not be negative")
	}
	if c.StepWarmup < 3 || c.StepWindow < c.StepWarmup {
		return fmt.Errorf("STEP_WARMUP must be at least 3 and not exceed STEP_WINDOW, got warmup=%d window=%d", c.StepWarmup, c.StepWindow)
	}
	if c.StepBandMin >= c.StepBandMax {
		return fmt.Errorf("STEP_BAND_MIN must be below STEP_BAND_MAX, got %.2f..%.2f", c.StepBandMin, c.StepBandMax)
	}
	if c.StepRefractoryMS < 0 || c.StepThreshold < 0 {
		return fmt.Errorf("STEP_REFRACTORY_MS and STEP_THRESHOLD must not be negative")
	}
	if c.DailyStepGoal <= 0 {
		return fmt.Errorf("DAILY_STEP_GOAL must be positive, got %d", c.DailyStepGoal)
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive, got %d", c.ConsoleLogInterval)
	}
	switch c.BLEMode {
	case "mock", "real":
	default:
		return fmt.Errorf("BLE_MODE must be mock or real, got %q", c.BLEMode)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has an effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
