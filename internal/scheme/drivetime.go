package scheme

import "math"

const (
	// fallbackDriveMin is used for short, missing or unusable legs.
	fallbackDriveMin = 30
	// shortLegKm is the distance below which the fallback applies.
	shortLegKm    = 15.0
	regionalSpeed = 70.0
	highwaySpeed  = 80.0
	regionalMinKm = 10.0
	regionalMaxKm = 100.0
)

// EstimateDriveMinutes converts a leg distance into drive minutes. A positive
// customSpeedKmh overrides the banded default speeds.
func EstimateDriveMinutes(distanceKm, customSpeedKmh float64) int {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm <= 0 || distanceKm < shortLegKm {
		return fallbackDriveMin
	}

	speed := highwaySpeed
	switch {
	case customSpeedKmh > 0 && !math.IsInf(customSpeedKmh, 0):
		speed = customSpeedKmh
	case distanceKm >= regionalMinKm && distanceKm <= regionalMaxKm:
		speed = regionalSpeed
	}

	minutes := math.Round(distanceKm / speed * 60)
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return fallbackDriveMin
	}
	return int(minutes)
}
