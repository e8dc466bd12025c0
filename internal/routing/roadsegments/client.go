// Package roadsegments provides a road-distance provider backed by the
// operations road-segment service, which knows distances between registered
// waypoints by id.
package roadsegments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/provider/resilience"
	"github.com/luc118i/operacional-app/internal/routing"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "road-segments"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 5 * time.Second

	roadDistancePath = "/road-segments/road-distance"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the road-segment client.
type ClientConfig struct {
	// BaseURL is the service base URL (required).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 5s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client queries road distances between waypoint ids.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ routing.Provider = (*Client)(nil)

// NewClient creates a new road-segment client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		// Lookups sit on the edit path; a single retry keeps edits responsive.
		clientCfg.MaxRetries = 1
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = &cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type distanceResponse struct {
	DistanceKm *float64 `json:"distanceKm"`
}

// RoadDistance returns the registered road distance between two waypoints.
func (c *Client) RoadDistance(ctx context.Context, from, to routing.Endpoint) (float64, error) {
	if from.WaypointID == "" || to.WaypointID == "" {
		return 0, &routing.Error{
			Provider: ProviderName,
			Code:     "MISSING_WAYPOINT",
			Message:  "road segments are keyed by waypoint id",
			Err:      routing.ErrNoRouteFound,
		}
	}

	q := url.Values{}
	q.Set("fromLocationId", from.WaypointID)
	q.Set("toLocationId", to.WaypointID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+roadDistancePath+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach road-segment service",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return 0, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_SEGMENT",
			Message:  "no road segment registered between the waypoints",
			Err:      routing.ErrNoRouteFound,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "road-segment service rate limit exceeded",
			Err:      routing.ErrRateLimitExceeded,
		}
	default:
		return 0, &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("road-segment service returned status %d", resp.StatusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}

	var out distanceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if out.DistanceKm == nil || math.IsNaN(*out.DistanceKm) || *out.DistanceKm <= 0 {
		return 0, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_DISTANCE",
			Message:  "response carried no positive distanceKm",
			Err:      routing.ErrInvalidResponse,
		}
	}

	c.logger.Debug().
		Str("from", from.WaypointID).
		Str("to", to.WaypointID).
		Float64("distance_km", *out.DistanceKm).
		Msg("resolved road distance")

	return *out.DistanceKm, nil
}
