// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package speed derives ground speed from consecutive location fixes when the location source
// does not report one (or it is not trusted).
package speed

import (
	"math"
)

const (
	// EarthRadius is the mean earth radius in meters used for the great-circle distance.
	EarthRadius = 6371000.0

	// MPSToMPH converts meters per second to miles per hour. It must stay at 2.23694, not the
	// exact factor.
	MPSToMPH = 2.23694

	// MPSToKMH converts meters per second to kilometers per hour.
	MPSToKMH = 3.6

	// MPSToKnots converts meters per second to knots.
	MPSToKnots = 1.943844
)

// Fix is a single location sample. Latitude and longitude are in degrees, TimestampMillis is
// the Unix time of the sample in milliseconds.
type Fix struct {
	Latitude        float64
	Longitude       float64
	TimestampMillis int64
}

// Estimate computes the speed in m/s between previous and current and returns current as the
// new previous fix. A missing previous fix or a non-positive time delta yields a speed of 0.
func Estimate(previous *Fix, current Fix) (float64, Fix) {
	if previous == nil {
		return 0, current
	}

	timeDelta := float64(current.TimestampMillis-previous.TimestampMillis) / 1000.0
	if timeDelta <= 0 {
		return 0, current
	}

	return Distance(*previous, current) / timeDelta, current
}

// Distance returns the great-circle distance between a and b in meters, using the Haversine
// formula on a sphere with EarthRadius.
func Distance(a, b Fix) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadius * c
}

// Bearing returns the initial great-circle bearing from a to b in degrees, normalized to
// [0, 360).
func Bearing(a, b Fix) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi

	return math.Mod(deg+360, 360)
}

// ToMPH converts a speed in m/s to miles per hour.
func ToMPH(mps float64) float64 {
	return mps * MPSToMPH
}

// ToKMH converts a speed in m/s to kilometers per hour.
func ToKMH(mps float64) float64 {
	return mps * MPSToKMH
}

// ToKnots converts a speed in m/s to knots.
func ToKnots(mps float64) float64 {
	return mps * MPSToKnots
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
