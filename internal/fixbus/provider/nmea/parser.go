// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package nmea provides location providers that read NMEA 0183 sentences from a serial GPS
// receiver or from a log file that another process appends to.
package nmea

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/wneessen/waybar-speed/internal/fixbus"
	"github.com/wneessen/waybar-speed/internal/speed"
)

const (
	// userEquivalentRangeError converts HDOP into an accuracy estimate in meters.
	userEquivalentRangeError = 5.0
	fallbackAccuracy         = 25.0
)

// Parser turns NMEA sentences into fixes. RMC sentences carry position, date and speed; GGA
// sentences only update the altitude and accuracy used for the following RMC fix.
type Parser struct {
	source  string
	alt     float64
	acc     float64
	haveGGA bool
	nowFn   func() time.Time
}

// NewParser returns a Parser that marks every fix with the given source name.
func NewParser(source string) *Parser {
	return &Parser{source: source, nowFn: time.Now}
}

// Parse parses a single line. It returns the fix and true if the line completed a fix.
// Lines that are not NMEA sentences are ignored without error.
func (p *Parser) Parse(line string) (fixbus.Fix, bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return fixbus.Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return fixbus.Fix{}, false, fmt.Errorf("failed to parse NMEA sentence: %w", err)
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		gga, ok := sentence.(nmea.GGA)
		if !ok || gga.FixQuality == nmea.Invalid {
			return fixbus.Fix{}, false, nil
		}
		p.alt = gga.Altitude
		p.acc = gga.HDOP * userEquivalentRangeError
		p.haveGGA = true
		return fixbus.Fix{}, false, nil
	case nmea.TypeRMC:
		rmc, ok := sentence.(nmea.RMC)
		if !ok || rmc.Validity != nmea.ValidRMC {
			return fixbus.Fix{}, false, nil
		}
		return p.fixFromRMC(rmc), true, nil
	default:
		return fixbus.Fix{}, false, nil
	}
}

func (p *Parser) fixFromRMC(rmc nmea.RMC) fixbus.Fix {
	fix := fixbus.Fix{
		Lat:            rmc.Latitude,
		Lon:            rmc.Longitude,
		AccuracyMeters: fallbackAccuracy,
		Time:           p.nowFn(),
		Source:         p.source,
	}
	if p.haveGGA {
		fix.Alt = p.alt
		if p.acc > 0 {
			fix.AccuracyMeters = p.acc
		}
	}
	if rmc.Date.Valid && rmc.Time.Valid {
		fix.Time = time.Date(2000+rmc.Date.YY, time.Month(rmc.Date.MM), rmc.Date.DD, rmc.Time.Hour,
			rmc.Time.Minute, rmc.Time.Second, rmc.Time.Millisecond*int(time.Millisecond), time.UTC)
	}
	fix.ReportedSpeed.Set(rmc.Speed / speed.MPSToKnots)
	if rmc.Speed > 0 {
		fix.Course.Set(rmc.Course)
	}
	return fix
}
