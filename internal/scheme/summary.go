package scheme

import "math"

// LongLegKm is the leg length above which a leg counts as long.
const LongLegKm = 200.0

// Summary aggregates a sequence for display and reporting.
type Summary struct {
	PointCount      int
	TotalKm         float64
	TotalDriveMin   int
	TotalDwellMin   int
	TotalMin        int
	AverageSpeedKmh float64
	CountsByKind    map[Kind]int
	LongLegCount    int
	RestStops       int
	SupportPoints   int
	DriverChanges   int
	Departure       string
	Arrival         string
	ArrivalDays     int
}

// Summarize computes the summary of a finalized sequence.
func Summarize(seq Sequence) Summary {
	s := Summary{
		PointCount:   len(seq.Points),
		TotalKm:      math.Round(seq.TotalKm()*10) / 10,
		CountsByKind: make(map[Kind]int),
	}

	for _, p := range seq.Points {
		s.TotalDriveMin += p.DriveMin
		s.TotalDwellMin += p.DwellMin
		s.CountsByKind[p.Kind]++
		if p.LegKm > LongLegKm {
			s.LongLegCount++
		}
		if p.HasFunction(FunctionRest) {
			s.RestStops++
		}
		if p.HasFunction(FunctionSupport) {
			s.SupportPoints++
		}
		if p.HasFunction(FunctionDriverChange) {
			s.DriverChanges++
		}
	}
	s.TotalMin = s.TotalDriveMin + s.TotalDwellMin

	if s.TotalDriveMin > 0 {
		s.AverageSpeedKmh = math.Round(seq.TotalKm()/(float64(s.TotalDriveMin)/60)*10) / 10
	}

	if n := len(seq.Points); n > 0 {
		first, last := seq.Points[0], seq.Points[n-1]
		s.Departure = first.Departure
		s.Arrival = last.Arrival
		s.ArrivalDays = last.ArrivalDayOffset()
	}

	return s
}

// TotalDuration renders TotalMin as "H:MM".
func (s Summary) TotalDuration() string {
	return FormatDuration(s.TotalMin)
}
