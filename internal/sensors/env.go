package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/activity_computer/internal/env"
)

// Barometer is a BMP280 on SPI.
type Barometer struct {
	port        spi.PortCloser
	dev         *bmxx80.Dev
	seaLevelHPa float64
}

// NewBarometer opens the BMP280 on spiDev.
func NewBarometer(spiDev string, seaLevelHPa float64) (*Barometer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("BMP: periph host init: %w", err)
	}

	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("BMP: SPI open %s: %w", spiDev, err)
	}

	dev, err := bmxx80.NewSPI(port, &bmxx80.DefaultOpts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("BMP: init: %w", err)
	}

	log.Printf("BMP: barometer initialized on %s", spiDev)
	return &Barometer{port: port, dev: dev, seaLevelHPa: seaLevelHPa}, nil
}

// Read samples temperature and pressure and derives altitude.
func (b *Barometer) Read() (env.Sample, error) {
	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("BMP sense: %w", err)
	}

	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return env.Sample{
		Temperature: e.Temperature.Celsius(),
		Pressure:    pressurePa,
		Altitude:    env.AltitudeFromPressure(pressurePa, b.seaLevelHPa),
	}, nil
}

// Close halts the sensor and releases the SPI port.
func (b *Barometer) Close() error {
	if err := b.dev.Halt(); err != nil {
		log.Printf("BMP: halt: %v", err)
	}
	return b.port.Close()
}
