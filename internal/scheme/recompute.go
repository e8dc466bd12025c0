package scheme

import (
	"math"

	"github.com/luc118i/operacional-app/internal/routing"
)

// Recompute restores every sequence invariant: normalized functions,
// positions 1..N, exactly one anchor, leg and cumulative distances, drive
// times and propagated clock times. It is pure and idempotent.
//
// Legs that are missing, non-positive or were measured from a different
// predecessor are replaced by the great-circle distance; drive times are only
// estimated when missing or when their leg was replaced.
func Recompute(points []RoutePoint, anchorClock string) []RoutePoint {
	out := make([]RoutePoint, len(points))
	for i, p := range points {
		out[i] = Normalize(p)
		out[i].Position = i + 1
		if out[i].DwellMin < 0 {
			out[i].DwellMin = 0
		}
	}
	if len(out) == 0 {
		return out
	}

	anchorIndex := -1
	for i := range out {
		if out[i].IsAnchor && anchorIndex < 0 {
			anchorIndex = i
			continue
		}
		out[i].IsAnchor = false
	}
	if anchorIndex < 0 {
		anchorIndex = 0
		out[0].IsAnchor = true
	}

	first := &out[0]
	first.LegKm = 0
	first.DriveMin = 0
	first.LegFrom = ""
	first.CumulativeKm = 0

	for i := 1; i < len(out); i++ {
		prev, p := &out[i-1], &out[i]

		stale := p.LegFrom != "" && p.LegFrom != prev.Waypoint.ID
		if stale || !usableKm(p.LegKm) {
			p.LegKm = routing.GreatCircleKm(prev.Waypoint.Endpoint(), p.Waypoint.Endpoint())
			if stale {
				p.DriveMin = 0
			}
		}
		p.LegFrom = prev.Waypoint.ID

		if p.DriveMin <= 0 {
			p.DriveMin = EstimateDriveMinutes(p.LegKm, p.CustomSpeedKmh)
		}

		p.CumulativeKm = prev.CumulativeKm + p.LegKm
	}

	if anchorClock == "" {
		return out
	}
	return Propagate(out, anchorIndex, anchorClock)
}

func usableKm(km float64) bool {
	return km > 0 && !math.IsNaN(km) && !math.IsInf(km, 0)
}
