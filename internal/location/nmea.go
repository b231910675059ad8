// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"bufio"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/activity_computer/internal/geo"
)

// ReadNMEA reads NMEA 0183 sentences line by line and calls deliver for
// every valid RMC fix. Altitude is taken from a GGA sentence of the same
// epoch when one precedes the RMC. Unparseable lines are skipped. It
// returns the reader's error, or nil at EOF.
func ReadNMEA(r io.Reader, deliver func(Fix)) error {
	reader := bufio.NewReader(r)

	var (
		ggaTime  nmea.Time
		altitude float64
		haveGGA  bool
	)

	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "$") {
			if sentence, perr := nmea.Parse(line); perr == nil {
				switch sentence.DataType() {
				case nmea.TypeGGA:
					m := sentence.(nmea.GGA)
					if m.FixQuality != nmea.Invalid {
						ggaTime, altitude, haveGGA = m.Time, m.Altitude, true
					}

				case nmea.TypeRMC:
					m := sentence.(nmea.RMC)
					if m.Validity != nmea.ValidRMC {
						break
					}
					fix := Fix{
						Latitude:  m.Latitude,
						Longitude: m.Longitude,
						Speed:     Float(geo.KnotsToMps(m.Speed)),
						Timestamp: rmcTimestamp(m),
					}
					if haveGGA && ggaTime == m.Time {
						fix.Altitude = Float(altitude)
					}
					if fix.Valid() {
						deliver(fix)
					}
				}
			}
			// noisy receivers emit partial sentences; skip them
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func rmcTimestamp(m nmea.RMC) time.Time {
	if !m.Date.Valid || !m.Time.Valid {
		return time.Now().UTC()
	}
	year := 2000 + m.Date.YY
	if m.Date.YY >= 80 {
		year = 1900 + m.Date.YY
	}
	return time.Date(year, time.Month(m.Date.MM), m.Date.DD,
		m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
}
