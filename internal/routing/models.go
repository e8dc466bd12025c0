// Package routing resolves road distances between scheme waypoints, falling back
// to great-circle distance whenever the road network lookup is unavailable.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for distance lookups.
var (
	// ErrProviderUnavailable indicates the road-distance provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("road distance provider unavailable")
	// ErrNoRouteFound indicates the provider has no road connection between the two waypoints.
	ErrNoRouteFound = errors.New("no road route between the given waypoints")
	// ErrRateLimitExceeded indicates the provider quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidResponse indicates the provider answered with an unusable distance.
	ErrInvalidResponse = errors.New("invalid distance in provider response")
)

// Provider looks up the road distance between two waypoints.
type Provider interface {
	// RoadDistance returns the road distance in kilometers.
	RoadDistance(ctx context.Context, from, to Endpoint) (float64, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Endpoint identifies one end of a leg: the waypoint id known to the
// road-distance service plus its coordinates for coordinate-based providers
// and the geodesic fallback.
type Endpoint struct {
	WaypointID string
	Lat        float64
	Lon        float64
}

// Valid reports whether the coordinates are within range.
func (e Endpoint) Valid() bool {
	return validateCoordinates(e) == nil
}

func (e Endpoint) key() string {
	if e.WaypointID != "" {
		return e.WaypointID
	}
	return fmt.Sprintf("%.5f,%.5f", e.Lat, e.Lon)
}

func (e Endpoint) same(o Endpoint) bool {
	if e.WaypointID != "" && o.WaypointID != "" {
		return e.WaypointID == o.WaypointID
	}
	return e.Lat == o.Lat && e.Lon == o.Lon
}

// Source tells where a resolved distance came from.
type Source string

const (
	SourceRoad       Source = "road"
	SourceCache      Source = "cache"
	SourceStale      Source = "stale"
	SourceGeodesic   Source = "geodesic"
	SourceIdentical  Source = "identical"
	SourcePersistent Source = "persistent_cache"
)

// Distance is a resolved leg distance.
type Distance struct {
	Km       float64
	Source   Source
	Provider string
}

// Degraded reports whether the distance is a straight-line estimate.
func (d Distance) Degraded() bool {
	return d.Source == SourceGeodesic
}

// CacheEntry is a stored road distance.
type CacheEntry struct {
	Km        float64
	Provider  string
	FetchedAt time.Time
}

// PersistentCache keeps road distances across restarts.
type PersistentCache interface {
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry CacheEntry) error
}

// Error provides detailed error information from a road-distance provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// validateCoordinates checks if coordinates are within valid ranges.
func validateCoordinates(e Endpoint) error {
	if e.Lat < -90 || e.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", e.Lat)
	}
	if e.Lon < -180 || e.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", e.Lon)
	}
	return nil
}
