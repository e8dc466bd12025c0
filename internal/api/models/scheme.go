package models

import (
	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/scheme"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

// DraftCreateRequest is the request body for opening a new draft.
type DraftCreateRequest struct {
	LineCode  string `json:"line_code"`
	LineName  string `json:"line_name"`
	Direction string `json:"direction"`
}

// AnchorRequest is the request body for setting the anchor point.
type AnchorRequest struct {
	PointID string `json:"point_id" validate:"required"`
	Clock   string `json:"clock"`
}

// RoutePoint is one point of a draft as rendered to clients.
type RoutePoint struct {
	ID                 string            `json:"id"`
	Position           int               `json:"position"`
	Waypoint           waypoint.Waypoint `json:"waypoint"`
	Label              string            `json:"label"`
	Kind               scheme.Kind       `json:"kind"`
	Functions          []scheme.Function `json:"functions"`
	Flags              scheme.Flags      `json:"flags"`
	Badges             []scheme.Badge    `json:"badges"`
	LegKm              float64           `json:"leg_km"`
	CumulativeKm       float64           `json:"cumulative_km"`
	DriveMin           int               `json:"drive_min"`
	DwellMin           int               `json:"dwell_min"`
	CustomSpeedKmh     *float64          `json:"custom_speed_kmh,omitempty"`
	AverageSpeedKmh    float64           `json:"average_speed_kmh"`
	Arrival            string            `json:"arrival"`
	Departure          string            `json:"departure"`
	ArrivalDayOffset   string            `json:"arrival_day_offset,omitempty"`
	DepartureDayOffset string            `json:"departure_day_offset,omitempty"`
	IsAnchor           bool              `json:"is_anchor"`
	Justification      string            `json:"justification,omitempty"`
}

// Draft is an editing session as rendered to clients.
type Draft struct {
	ID          string       `json:"id"`
	SchemeID    string       `json:"scheme_id,omitempty"`
	LineCode    string       `json:"line_code"`
	LineName    string       `json:"line_name"`
	Direction   string       `json:"direction"`
	Version     uint64       `json:"version"`
	AnchorClock string       `json:"anchor_clock,omitempty"`
	TotalKm     float64      `json:"total_km"`
	Points      []RoutePoint `json:"points"`
	CreatedAt   Timestamp    `json:"created_at"`
}

// EditResult is the response to a sequence edit. Edits that cannot apply
// leave the draft unchanged and report why.
type EditResult struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	Draft   Draft  `json:"draft"`
}

// Summary is the aggregate view of a draft.
type Summary struct {
	PointCount      int            `json:"point_count"`
	TotalKm         float64        `json:"total_km"`
	TotalDriveMin   int            `json:"total_drive_min"`
	TotalDwellMin   int            `json:"total_dwell_min"`
	TotalMin        int            `json:"total_min"`
	TotalDuration   string         `json:"total_duration"`
	AverageSpeedKmh float64        `json:"average_speed_kmh"`
	CountsByKind    map[string]int `json:"counts_by_kind"`
	LongLegCount    int            `json:"long_leg_count"`
	RestStops       int            `json:"rest_stops"`
	SupportPoints   int            `json:"support_points"`
	DriverChanges   int            `json:"driver_changes"`
	Departure       string         `json:"departure,omitempty"`
	Arrival         string         `json:"arrival,omitempty"`
	ArrivalDays     int            `json:"arrival_days"`
}

// Evaluation is the compliance report of a draft.
type Evaluation struct {
	DraftID  string         `json:"draft_id"`
	SchemeID string         `json:"scheme_id,omitempty"`
	Strategy rules.Strategy `json:"strategy"`
	rules.Report
}

// SavedScheme is the response to a save.
type SavedScheme struct {
	ID        string    `json:"id"`
	LineCode  string    `json:"line_code"`
	LineName  string    `json:"line_name"`
	Direction string    `json:"direction"`
	TripTime  string    `json:"trip_time"`
	Points    int       `json:"points"`
	TotalKm   float64   `json:"total_km"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Waypoints is a list of directory search results.
type Waypoints struct {
	Items []waypoint.Waypoint `json:"items"`
	Meta  ListMeta            `json:"meta"`
}
