// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/activity_computer/internal/motion"
)

// LSB per g at ±2g; each range step halves it.
const accelLSBPerG2 = 16384.0

type imuSource struct {
	imu     *mpu9250.MPU9250
	lsbPerG float64
}

// NewIMUSource initializes an MPU9250 over SPI and returns it as a
// motion.Source reporting acceleration in g.
func NewIMUSource(spiDev, csPin string, accelRange byte) (motion.Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", accelRange, []int{2, 4, 8, 16}[accelRange])

	// Calibration only trims offsets; a failure still leaves usable data.
	if err := imu.Calibrate(); err != nil {
		log.Printf("IMU: warning: calibration failed: %v", err)
	} else {
		log.Println("IMU: calibration complete")
	}

	return &imuSource{imu: imu, lsbPerG: accelLSBPerG(accelRange)}, nil
}

func accelLSBPerG(accelRange byte) float64 {
	return accelLSBPerG2 / float64(int(1)<<accelRange)
}

// Next reads the three accelerometer axes.
func (s *imuSource) Next() (motion.Sample, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return motion.Sample{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	return RawToSample(ax, ay, az, s.lsbPerG, time.Now()), nil
}

// RawToSample scales raw accelerometer counts to g.
func RawToSample(ax, ay, az int16, lsbPerG float64, at time.Time) motion.Sample {
	return motion.Sample{
		X:         float64(ax) / lsbPerG,
		Y:         float64(ay) / lsbPerG,
		Z:         float64(az) / lsbPerG,
		Timestamp: at,
	}
}
