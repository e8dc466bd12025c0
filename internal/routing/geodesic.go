package routing

import "math"

// EarthRadiusKm is the mean Earth radius used by the great-circle fallback.
const EarthRadiusKm = 6371.0

// GreatCircleKm returns the haversine distance between two endpoints in
// kilometers, rounded to one decimal. Non-finite input yields 0.
func GreatCircleKm(from, to Endpoint) float64 {
	lat1 := toRadians(from.Lat)
	lat2 := toRadians(to.Lat)
	dLat := toRadians(to.Lat - from.Lat)
	dLon := toRadians(to.Lon - from.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	km := RoundKm(EarthRadiusKm * c)
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return 0
	}
	return km
}

// RoundKm rounds a distance to one decimal place.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
