package scheme

// Propagate computes arrival and departure times for every point from the
// anchor at anchorIndex, whose departure is anchorClock. The input is not
// modified. An unparseable anchor clock leaves all times as they were.
//
// Forward of the anchor:  arrival[i] = departure[i-1] + drive[i]; departure[i] = arrival[i] + dwell[i].
// Backward of the anchor: departure[i] = departure[i+1] - dwell[i+1] - drive[i+1]; arrival[i] = departure[i] - dwell[i].
func Propagate(points []RoutePoint, anchorIndex int, anchorClock string) []RoutePoint {
	out := clonePoints(points)
	if anchorIndex < 0 || anchorIndex >= len(out) {
		return out
	}

	start, err := ParseClock(anchorClock)
	if err != nil {
		return out
	}

	anchor := &out[anchorIndex]
	setDeparture(anchor, start)
	setArrival(anchor, start-anchor.DwellMin)

	for i := anchorIndex + 1; i < len(out); i++ {
		prev := out[i-1]
		if _, err := ParseClock(prev.Departure); err != nil {
			break
		}
		arrival := prev.DepartureAt + out[i].DriveMin
		setArrival(&out[i], arrival)
		setDeparture(&out[i], arrival+out[i].DwellMin)
	}

	for i := anchorIndex - 1; i >= 0; i-- {
		next := out[i+1]
		if _, err := ParseClock(next.Departure); err != nil {
			break
		}
		departure := next.DepartureAt - next.DwellMin - next.DriveMin
		setDeparture(&out[i], departure)
		setArrival(&out[i], departure-out[i].DwellMin)
	}

	return out
}

func setArrival(p *RoutePoint, elapsed int) {
	p.ArrivalAt = elapsed
	p.Arrival = FormatClock(elapsed)
}

func setDeparture(p *RoutePoint, elapsed int) {
	p.DepartureAt = elapsed
	p.Departure = FormatClock(elapsed)
}
