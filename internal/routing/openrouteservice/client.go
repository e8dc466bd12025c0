// Package openrouteservice resolves road distances with the OpenRouteService
// directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/provider/resilience"
	"github.com/luc118i/operacional-app/internal/routing"
)

const (
	// ProviderName identifies this provider in errors and the registry.
	ProviderName = "openrouteservice"

	DefaultBaseURL = "https://api.openrouteservice.org"
	// DefaultProfile routes as a heavy vehicle, the closest profile to a coach.
	DefaultProfile = "driving-hgv"
	DefaultTimeout = 10 * time.Second

	// snapRadiusMeters lets terminals and garages that sit off the road
	// network snap to the nearest road.
	snapRadiusMeters = 1000
)

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures the client. Only APIKey is required.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Profile string
	Timeout time.Duration
	// HTTPClient replaces the resilient client built from Timeout and Registry.
	HTTPClient HTTPDoer
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client is a routing.Provider backed by OpenRouteService.
type Client struct {
	apiKey   string
	endpoint string
	profile  string
	http     HTTPDoer
	logger   zerolog.Logger
}

var _ routing.Provider = (*Client)(nil)

// NewClient creates a client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = cfg.Timeout
		rc.Registry = cfg.Registry
		rc.Logger = &cfg.Logger
		cfg.HTTPClient = resilience.NewClient(rc)
	}

	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: cfg.BaseURL + "/v2/directions/" + cfg.Profile,
		profile:  cfg.Profile,
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
	}
}

// Name returns ProviderName.
func (c *Client) Name() string {
	return ProviderName
}

// RoadDistance returns the length of the first route between from and to,
// in kilometers rounded to one decimal.
func (c *Client) RoadDistance(ctx context.Context, from, to routing.Endpoint) (float64, error) {
	if !from.Valid() {
		return 0, providerError("INVALID_ORIGIN", "invalid origin coordinates", routing.ErrInvalidCoordinates)
	}
	if !to.Valid() {
		return 0, providerError("INVALID_DESTINATION", "invalid destination coordinates", routing.ErrInvalidCoordinates)
	}

	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][2]float64{{from.Lon, from.Lat}, {to.Lon, to.Lat}},
		Units:       "m",
		Radiuses:    []float64{snapRadiusMeters, snapRadiusMeters},
	})
	if err != nil {
		return 0, fmt.Errorf("encode directions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build directions request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, providerError("REQUEST_FAILED", "failed to reach routing provider", fmt.Errorf("%w: %v", routing.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read directions response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp.StatusCode, body)
	}

	var out directionsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, providerError("DECODE", "malformed directions response", fmt.Errorf("%w: %v", routing.ErrInvalidResponse, err))
	}
	if len(out.Routes) == 0 || out.Routes[0].Summary.Distance <= 0 {
		return 0, providerError("EMPTY_ROUTE", "response contained no usable route", routing.ErrInvalidResponse)
	}

	km := routing.RoundKm(out.Routes[0].Summary.Distance / 1000)
	c.logger.Debug().
		Str("profile", c.profile).
		Str("from", from.WaypointID).
		Str("to", to.WaypointID).
		Float64("distance_km", km).
		Dur("took", time.Since(start)).
		Msg("road distance from openrouteservice")
	return km, nil
}

func providerError(code, message string, err error) *routing.Error {
	return &routing.Error{Provider: ProviderName, Code: code, Message: message, Err: err}
}

// statusError maps a non-200 answer. A 400 carrying the route-not-found code
// means the two points cannot be joined by road.
func statusError(status int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case status == http.StatusNotFound || apiErr.Error.Code == codeRouteNotFound:
		return providerError("NO_ROUTE", "no route found between the given points", routing.ErrNoRouteFound)
	case status == http.StatusTooManyRequests:
		return providerError("RATE_LIMIT", "API rate limit exceeded", routing.ErrRateLimitExceeded)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return providerError("FORBIDDEN", "API access denied, check the API key", routing.ErrProviderUnavailable)
	case status == http.StatusBadRequest:
		return providerError("BAD_REQUEST", apiErr.Error.Message, routing.ErrInvalidCoordinates)
	case status >= http.StatusInternalServerError:
		return providerError(fmt.Sprintf("SERVER_%d", status), "routing provider is temporarily unavailable", routing.ErrProviderUnavailable)
	default:
		return providerError(fmt.Sprintf("HTTP_%d", status), fmt.Sprintf("routing provider returned status %d", status), routing.ErrProviderUnavailable)
	}
}
