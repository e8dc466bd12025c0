// Package scheme implements route schemes: ordered stop sequences whose leg
// distances, cumulative distances, drive times and clock times are kept
// consistent from a single anchor point under every structural edit.
package scheme

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/luc118i/operacional-app/internal/waypoint"
)

// Sentinel errors.
var (
	// ErrSchemeNotFound is returned by repositories for unknown scheme ids.
	ErrSchemeNotFound = errors.New("scheme not found")

	// ErrInvalidMutation is the parent of every refused edit. A refused edit
	// leaves the sequence untouched.
	ErrInvalidMutation = errors.New("invalid mutation")

	ErrPointNotFound = fmt.Errorf("%w: point not found", ErrInvalidMutation)
	ErrAnchorLocked  = fmt.Errorf("%w: the anchor point cannot be moved", ErrInvalidMutation)
	ErrOutOfBounds   = fmt.Errorf("%w: move past the sequence bounds", ErrInvalidMutation)
	ErrMissingClock  = fmt.Errorf("%w: anchor requires a clock time", ErrInvalidMutation)
	ErrInvalidClock  = fmt.Errorf("%w: clock time must be HH:MM", ErrInvalidMutation)

	// ErrSuperseded is returned when a distance refresh finished after another
	// edit replaced the sequence; the refreshed distances are discarded.
	ErrSuperseded = errors.New("sequence changed while distances were resolving")
)

// Kind is the point-kind tag, stored with its operational wire code.
type Kind string

const (
	KindBoarding     Kind = "PE"
	KindDropoff      Kind = "PD"
	KindRestStop     Kind = "PP"
	KindSupportPoint Kind = "PA"
	KindDriverChange Kind = "TMJ"
	KindFreeStop     Kind = "PL"
)

// Kinds lists the known kinds.
var Kinds = []Kind{KindBoarding, KindDropoff, KindRestStop, KindSupportPoint, KindDriverChange, KindFreeStop}

// Known reports whether k is one of the closed set of kinds.
func (k Kind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Function is an operational role a point fulfils. A point may hold several.
type Function string

const (
	FunctionRest         Function = "REST"
	FunctionSupport      Function = "SUPPORT"
	FunctionDriverChange Function = "DRIVER_CHANGE"
	FunctionBoarding     Function = "BOARDING"
	FunctionDropoff      Function = "DROPOFF"
	FunctionFreeStop     Function = "FREE_STOP"
)

// canonicalFunctions fixes the order function sets are kept in.
var canonicalFunctions = []Function{
	FunctionRest,
	FunctionSupport,
	FunctionDriverChange,
	FunctionBoarding,
	FunctionDropoff,
	FunctionFreeStop,
}

var functionAliases = map[string]Function{
	"REST":            FunctionRest,
	"DESCANSO":        FunctionRest,
	"SUPPORT":         FunctionSupport,
	"APOIO":           FunctionSupport,
	"DRIVER_CHANGE":   FunctionDriverChange,
	"TROCA_MOTORISTA": FunctionDriverChange,
	"BOARDING":        FunctionBoarding,
	"EMBARQUE":        FunctionBoarding,
	"DROPOFF":         FunctionDropoff,
	"DESEMBARQUE":     FunctionDropoff,
	"FREE_STOP":       FunctionFreeStop,
	"PARADA_LIVRE":    FunctionFreeStop,
}

// ParseFunction accepts a function name or one of its legacy aliases.
func ParseFunction(s string) (Function, bool) {
	f, ok := functionAliases[strings.ToUpper(strings.TrimSpace(s))]
	return f, ok
}

// Flags is the boolean projection of a function set kept for legacy consumers.
// It is always computed from the functions and never stored as input.
type Flags struct {
	RestStop     bool `json:"is_rest_stop"`
	SupportPoint bool `json:"is_support_point"`
	DriverChange bool `json:"troca_motorista"`
	Boarding     bool `json:"is_boarding_point"`
	Dropoff      bool `json:"is_dropoff_point"`
	FreeStop     bool `json:"is_free_stop"`
}

// FlagsOf projects a function set onto flags.
func FlagsOf(functions []Function) Flags {
	var f Flags
	for _, fn := range functions {
		switch fn {
		case FunctionRest:
			f.RestStop = true
		case FunctionSupport:
			f.SupportPoint = true
		case FunctionDriverChange:
			f.DriverChange = true
		case FunctionBoarding:
			f.Boarding = true
		case FunctionDropoff:
			f.Dropoff = true
		case FunctionFreeStop:
			f.FreeStop = true
		}
	}
	return f
}

// RoutePoint is one ordered element of a route scheme.
type RoutePoint struct {
	ID       string
	Position int
	Waypoint waypoint.Waypoint
	Kind     Kind

	// Functions is the single source of truth for the point's roles.
	Functions []Function

	LegKm          float64
	CumulativeKm   float64
	DriveMin       int
	DwellMin       int
	CustomSpeedKmh float64

	// Arrival and Departure are wrapped HH:MM clock times. ArrivalAt and
	// DepartureAt hold the same instants as minutes elapsed since midnight of
	// the anchor's day, unwrapped.
	Arrival     string
	Departure   string
	ArrivalAt   int
	DepartureAt int

	IsAnchor      bool
	Justification string

	// LegFrom is the waypoint id LegKm was measured from. A mismatch with the
	// actual predecessor marks the leg stale.
	LegFrom string
}

// Flags returns the projection of the point's functions.
func (p RoutePoint) Flags() Flags {
	return FlagsOf(p.Functions)
}

// HasFunction reports whether the point holds f.
func (p RoutePoint) HasFunction(f Function) bool {
	for _, fn := range p.Functions {
		if fn == f {
			return true
		}
	}
	return false
}

// AverageSpeedKmh is the leg speed implied by distance and drive time, to one decimal.
func (p RoutePoint) AverageSpeedKmh() float64 {
	if p.DriveMin <= 0 || p.LegKm <= 0 {
		return 0
	}
	return math.Round(p.LegKm/(float64(p.DriveMin)/60)*10) / 10
}

// ArrivalDayOffset is the number of days the arrival lies after (or before) the anchor's day.
func (p RoutePoint) ArrivalDayOffset() int {
	if p.Arrival == "" {
		return 0
	}
	return DayOffset(p.ArrivalAt)
}

// DepartureDayOffset is the departure counterpart of ArrivalDayOffset.
func (p RoutePoint) DepartureDayOffset() int {
	if p.Departure == "" {
		return 0
	}
	return DayOffset(p.DepartureAt)
}

func (p RoutePoint) clone() RoutePoint {
	cp := p
	if p.Functions != nil {
		cp.Functions = append([]Function(nil), p.Functions...)
	}
	return cp
}

// Sequence is an immutable snapshot of a scheme's points. Every applied edit
// produces a new Sequence with a higher Version.
type Sequence struct {
	Points      []RoutePoint
	AnchorClock string
	Version     uint64
}

// Len returns the number of points.
func (s Sequence) Len() int {
	return len(s.Points)
}

// Index returns the index of the point with the given id, or -1.
func (s Sequence) Index(id string) int {
	return indexOf(s.Points, id)
}

// Anchor returns the anchor point and its index.
func (s Sequence) Anchor() (RoutePoint, int, bool) {
	for i, p := range s.Points {
		if p.IsAnchor {
			return p, i, true
		}
	}
	return RoutePoint{}, -1, false
}

// TotalKm is the cumulative distance at the last point.
func (s Sequence) TotalKm() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].CumulativeKm
}

func (s Sequence) clone() Sequence {
	return Sequence{
		Points:      clonePoints(s.Points),
		AnchorClock: s.AnchorClock,
		Version:     s.Version,
	}
}

func clonePoints(points []RoutePoint) []RoutePoint {
	if points == nil {
		return nil
	}
	out := make([]RoutePoint, len(points))
	for i, p := range points {
		out[i] = p.clone()
	}
	return out
}

func indexOf(points []RoutePoint, id string) int {
	for i, p := range points {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Direction is the travel direction of a scheme.
type Direction string

const (
	DirectionOutbound Direction = "ida"
	DirectionInbound  Direction = "volta"
)

// Scheme is a persisted route scheme.
type Scheme struct {
	ID        string
	LineCode  string
	LineName  string
	Direction Direction

	// TripTime is the anchor's departure clock time.
	TripTime string
	Points   []RoutePoint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sequence returns the scheme's points as a sequence snapshot.
func (s *Scheme) Sequence() Sequence {
	return Sequence{Points: clonePoints(s.Points), AnchorClock: s.TripTime}
}
