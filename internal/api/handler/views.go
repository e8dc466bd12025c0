package handler

import (
	"github.com/luc118i/operacional-app/internal/api/models"
	"github.com/luc118i/operacional-app/internal/planning"
	"github.com/luc118i/operacional-app/internal/scheme"
)

func draftView(d *planning.Draft, seq scheme.Sequence) models.Draft {
	h := d.Header()
	view := models.Draft{
		ID:          d.ID,
		SchemeID:    d.SchemeID(),
		LineCode:    h.LineCode,
		LineName:    h.LineName,
		Direction:   string(h.Direction),
		Version:     seq.Version,
		AnchorClock: seq.AnchorClock,
		TotalKm:     seq.TotalKm(),
		Points:      make([]models.RoutePoint, 0, len(seq.Points)),
		CreatedAt:   models.Timestamp(d.CreatedAt),
	}
	for _, p := range seq.Points {
		view.Points = append(view.Points, pointView(p))
	}
	return view
}

func pointView(p scheme.RoutePoint) models.RoutePoint {
	view := models.RoutePoint{
		ID:                 p.ID,
		Position:           p.Position,
		Waypoint:           p.Waypoint,
		Label:              p.Waypoint.Label(),
		Kind:               p.Kind,
		Functions:          p.Functions,
		Flags:              p.Flags(),
		Badges:             scheme.Badges(p),
		LegKm:              p.LegKm,
		CumulativeKm:       p.CumulativeKm,
		DriveMin:           p.DriveMin,
		DwellMin:           p.DwellMin,
		AverageSpeedKmh:    p.AverageSpeedKmh(),
		Arrival:            p.Arrival,
		Departure:          p.Departure,
		ArrivalDayOffset:   scheme.FormatDayOffset(p.ArrivalDayOffset()),
		DepartureDayOffset: scheme.FormatDayOffset(p.DepartureDayOffset()),
		IsAnchor:           p.IsAnchor,
		Justification:      p.Justification,
	}
	if view.Functions == nil {
		view.Functions = []scheme.Function{}
	}
	if view.Badges == nil {
		view.Badges = []scheme.Badge{}
	}
	if p.CustomSpeedKmh > 0 {
		speed := p.CustomSpeedKmh
		view.CustomSpeedKmh = &speed
	}
	return view
}

func summaryView(s scheme.Summary) models.Summary {
	counts := make(map[string]int, len(s.CountsByKind))
	for kind, n := range s.CountsByKind {
		counts[string(kind)] = n
	}
	return models.Summary{
		PointCount:      s.PointCount,
		TotalKm:         s.TotalKm,
		TotalDriveMin:   s.TotalDriveMin,
		TotalDwellMin:   s.TotalDwellMin,
		TotalMin:        s.TotalMin,
		TotalDuration:   s.TotalDuration(),
		AverageSpeedKmh: s.AverageSpeedKmh,
		CountsByKind:    counts,
		LongLegCount:    s.LongLegCount,
		RestStops:       s.RestStops,
		SupportPoints:   s.SupportPoints,
		DriverChanges:   s.DriverChanges,
		Departure:       s.Departure,
		Arrival:         s.Arrival,
		ArrivalDays:     s.ArrivalDays,
	}
}

func savedView(s *scheme.Scheme) models.SavedScheme {
	seq := s.Sequence()
	return models.SavedScheme{
		ID:        s.ID,
		LineCode:  s.LineCode,
		LineName:  s.LineName,
		Direction: string(s.Direction),
		TripTime:  s.TripTime,
		Points:    seq.Len(),
		TotalKm:   seq.TotalKm(),
		CreatedAt: models.Timestamp(s.CreatedAt),
		UpdatedAt: models.Timestamp(s.UpdatedAt),
	}
}

func fieldErrors(verr *scheme.ValidationError) []models.FieldError {
	out := make([]models.FieldError, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		out = append(out, models.FieldError{Field: fe.Field, Message: fe.Message})
	}
	return out
}
