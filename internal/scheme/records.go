package scheme

import (
	"sort"

	"github.com/luc118i/operacional-app/internal/waypoint"
)

// PointRecord is the flat persisted form of a route point. Flags are written
// for legacy readers and ignored when decoding.
type PointRecord struct {
	ID            string   `json:"id"`
	SchemeID      string   `json:"scheme_id"`
	Position      int      `json:"ordem"`
	WaypointID    string   `json:"location_id"`
	Kind          string   `json:"tipo"`
	Functions     []string `json:"funcoes"`
	LegKm         float64  `json:"distancia_km"`
	CumulativeKm  float64  `json:"distancia_acumulada_km"`
	DriveMin      int      `json:"tempo_deslocamento_min"`
	DwellMin      int      `json:"tempo_no_local_min"`
	AvgSpeedKmh   float64  `json:"velocidade_media_kmh"`
	CustomSpeed   float64  `json:"velocidade_personalizada_kmh,omitempty"`
	Arrival       string   `json:"chegada"`
	Departure     string   `json:"saida"`
	IsInitial     bool     `json:"is_initial"`
	IsFinal       bool     `json:"is_final"`
	Operational   bool     `json:"ponto_operacional"`
	Justification string   `json:"justificativa,omitempty"`
	Flags
}

// EncodeRecords flattens a sequence for storage.
func EncodeRecords(schemeID string, points []RoutePoint) []PointRecord {
	records := make([]PointRecord, 0, len(points))
	for i, p := range points {
		functions := make([]string, len(p.Functions))
		for j, fn := range p.Functions {
			functions[j] = string(fn)
		}
		records = append(records, PointRecord{
			ID:            p.ID,
			SchemeID:      schemeID,
			Position:      p.Position,
			WaypointID:    p.Waypoint.ID,
			Kind:          string(p.Kind),
			Functions:     functions,
			LegKm:         p.LegKm,
			CumulativeKm:  p.CumulativeKm,
			DriveMin:      p.DriveMin,
			DwellMin:      p.DwellMin,
			AvgSpeedKmh:   p.AverageSpeedKmh(),
			CustomSpeed:   p.CustomSpeedKmh,
			Arrival:       p.Arrival,
			Departure:     p.Departure,
			IsInitial:     p.IsAnchor,
			IsFinal:       i == len(points)-1,
			Operational:   len(p.Functions) > 0,
			Justification: p.Justification,
			Flags:         p.Flags(),
		})
	}
	return records
}

// DecodeRecords rebuilds route points ordered by position. Waypoints are
// looked up by id; a missing waypoint keeps only its id. Stored legs are
// trusted as measured from the stored predecessor.
func DecodeRecords(records []PointRecord, waypoints map[string]waypoint.Waypoint) []RoutePoint {
	sorted := append([]PointRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	points := make([]RoutePoint, 0, len(sorted))
	for i, rec := range sorted {
		wp, ok := waypoints[rec.WaypointID]
		if !ok {
			wp = waypoint.Waypoint{ID: rec.WaypointID}
		}

		var functions []Function
		for _, raw := range rec.Functions {
			if fn, ok := ParseFunction(raw); ok {
				functions = append(functions, fn)
			}
		}

		p := RoutePoint{
			ID:             rec.ID,
			Position:       rec.Position,
			Waypoint:       wp,
			Kind:           Kind(rec.Kind),
			Functions:      functions,
			LegKm:          rec.LegKm,
			CumulativeKm:   rec.CumulativeKm,
			DriveMin:       rec.DriveMin,
			DwellMin:       rec.DwellMin,
			CustomSpeedKmh: rec.CustomSpeed,
			Arrival:        rec.Arrival,
			Departure:      rec.Departure,
			IsAnchor:       rec.IsInitial,
			Justification:  rec.Justification,
		}
		if i > 0 {
			p.LegFrom = sorted[i-1].WaypointID
		}
		points = append(points, Normalize(p))
	}
	return points
}
