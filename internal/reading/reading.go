// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package reading holds the processed result of a location fix that is shown in the bar and
// forwarded to the optional sinks.
package reading

import (
	"time"

	"github.com/wneessen/waybar-speed/internal/fixbus"
)

// Reading is a fix together with the speed derived for it. SpeedMPS is estimated from the
// previous fix unless Estimated is false, in which case the source reported it. Heading is nil
// when neither the source reported a course nor the position changed.
type Reading struct {
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	Altitude   float64   `json:"alt"`
	Accuracy   float64   `json:"accuracy"`
	SpeedMPS   float64   `json:"speed_mps"`
	Estimated  bool      `json:"estimated"`
	Heading    *float64  `json:"heading,omitempty"`
	Source     string    `json:"source"`
	FixTime    time.Time `json:"fix_time"`
	ReceivedAt time.Time `json:"received_at"`
}

// New creates a Reading from a fix and the speed derived for it.
func New(fix fixbus.Fix, speedMPS float64, estimated bool, receivedAt time.Time) Reading {
	return Reading{
		Latitude:   fix.Lat,
		Longitude:  fix.Lon,
		Altitude:   fix.Alt,
		Accuracy:   fix.AccuracyMeters,
		SpeedMPS:   speedMPS,
		Estimated:  estimated,
		Source:     fix.Source,
		FixTime:    fix.Time,
		ReceivedAt: receivedAt,
	}
}

// SetHeading sets the heading in degrees.
func (r *Reading) SetHeading(deg float64) {
	r.Heading = &deg
}

// Age returns how long ago the reading was received.
func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.ReceivedAt)
}
