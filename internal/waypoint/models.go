// Package waypoint holds the waypoint model shared by route schemes and the
// directory used to look waypoints up.
package waypoint

import (
	"context"
	"errors"
	"strings"

	"github.com/luc118i/operacional-app/internal/routing"
)

// MinQueryLength is the shortest free-text query the directory answers.
const MinQueryLength = 2

// DefaultSearchLimit caps search results when the caller gives no limit.
const DefaultSearchLimit = 20

// ErrNotFound is returned when a waypoint id is unknown.
var ErrNotFound = errors.New("waypoint not found")

// Waypoint is a registered place a route point can refer to.
type Waypoint struct {
	ID    string  `json:"id" validate:"required"`
	Code  string  `json:"code,omitempty"`
	Name  string  `json:"name"`
	City  string  `json:"city"`
	State string  `json:"state"`
	Kind  string  `json:"kind,omitempty"`
	Lat   float64 `json:"lat" validate:"latitude"`
	Lng   float64 `json:"lng" validate:"longitude"`
}

// Label renders "City / ST", falling back to whichever part is known.
func (w Waypoint) Label() string {
	city := strings.TrimSpace(w.City)
	state := strings.TrimSpace(w.State)
	switch {
	case city != "" && state != "":
		return city + " / " + state
	case city != "":
		return city
	case state != "":
		return state
	default:
		return strings.TrimSpace(w.Name)
	}
}

// Endpoint converts the waypoint into a distance lookup endpoint.
func (w Waypoint) Endpoint() routing.Endpoint {
	return routing.Endpoint{WaypointID: w.ID, Lat: w.Lat, Lon: w.Lng}
}

// Directory finds registered waypoints.
type Directory interface {
	// Search returns waypoints matching a free-text query. Queries shorter than
	// MinQueryLength return no results and no error.
	Search(ctx context.Context, query string, limit int) ([]Waypoint, error)

	// Get returns a waypoint by id or ErrNotFound.
	Get(ctx context.Context, id string) (*Waypoint, error)
}

// normalizeQuery trims the query and reports whether it is long enough to run.
func normalizeQuery(query string) (string, bool) {
	q := strings.TrimSpace(query)
	return q, len([]rune(q)) >= MinQueryLength
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return DefaultSearchLimit
	}
	return limit
}
