package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, 100, cfg.MotionSampleInterval)
	assert.Equal(t, 10, cfg.StepWindow)
	assert.Equal(t, 5, cfg.StepWarmup)
	assert.InDelta(t, 0.2, cfg.StepThreshold, 1e-9)
	assert.Equal(t, 250, cfg.StepRefractoryMS)
	assert.Equal(t, 10000, cfg.DailyStepGoal)
	assert.Equal(t, "mock", cfg.BLEMode)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
# broker
MQTT_BROKER=tcp://pi.local:1883
MOTION_SOURCE=mqtt
MOTION_SAMPLE_INTERVAL=50
IMU_ACCEL_RANGE=2
GPS_DISTANCE_INTERVAL=10
DAILY_STEP_GOAL=8000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://pi.local:1883", cfg.MQTTBroker)
	assert.Equal(t, "mqtt", cfg.MotionSource)
	assert.Equal(t, 50, cfg.MotionSampleInterval)
	assert.Equal(t, byte(2), cfg.IMUAccelRange)
	assert.InDelta(t, 10.0, cfg.GPSDistanceInterval, 1e-9)
	assert.Equal(t, 8000, cfg.DailyStepGoal)
	// untouched keys keep their defaults
	assert.Equal(t, "activity/session", cfg.TopicSession)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "MQTT_BROKER=tcp://file:1883\n")
	t.Setenv("MQTT_BROKER", "tcp://env:1883")
	t.Setenv("WEB_SERVER_PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://env:1883", cfg.MQTTBroker)
	assert.Equal(t, 9000, cfg.WebServerPort)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "NOT_A_KEY=1\n"},
		{"accel range", "IMU_ACCEL_RANGE=7\n"},
		{"motion source", "MOTION_SOURCE=laser\n"},
		{"band", "STEP_BAND_MIN=2.5\n"},
		{"warmup above window", "STEP_WARMUP=12\n"},
		{"ble mode", "BLE_MODE=usb\n"},
		{"serial without baud", "GPS_SOURCE=serial\nGPS_BAUD_RATE=0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
