package env

import "math"

// Sample represents a single barometer measurement (BMP280).
type Sample struct {
	Temperature float64 `json:"temp_c"`      // °C
	Pressure    float64 `json:"pressure_pa"` // Pa
	Altitude    float64 `json:"alt_m"`       // m, from the barometric formula
}

// StandardSeaLevelHPa is the ISA sea-level pressure.
const StandardSeaLevelHPa = 1013.25

// AltitudeFromPressure applies the international barometric formula.
func AltitudeFromPressure(pressurePa, seaLevelHPa float64) float64 {
	if pressurePa <= 0 {
		return 0
	}
	if seaLevelHPa <= 0 {
		seaLevelHPa = StandardSeaLevelHPa
	}
	return 44330.0 * (1.0 - math.Pow(pressurePa/100.0/seaLevelHPa, 1.0/5.255))
}
