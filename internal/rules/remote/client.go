// Package remote provides a client for the compliance evaluation service.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/provider/resilience"
)

const (
	// ClientName identifies this client in the provider registry.
	ClientName = "remote-evaluator"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 8 * time.Second
)

var (
	// ErrNotFound indicates the service has no evaluation for the scheme.
	ErrNotFound = errors.New("scheme evaluation not found")
	// ErrUnavailable indicates the service is down or the circuit breaker is open.
	ErrUnavailable = errors.New("evaluation service unavailable")
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the evaluation client.
type ClientConfig struct {
	// BaseURL is the service base URL (required).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 8s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client fetches scheme evaluations.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new evaluation client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ClientName)
		clientCfg.Timeout = timeout
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

// Fetch returns the evaluation of a saved scheme.
func (c *Client) Fetch(ctx context.Context, schemeID string) (*Evaluation, error) {
	endpoint := fmt.Sprintf("%s/scheme-points/schemes/%s/points/evaluation", c.baseURL, url.PathEscape(schemeID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out Evaluation
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding evaluation: %w", err)
	}

	c.logger.Debug().
		Str("scheme_id", schemeID).
		Int("points", len(out.Points)).
		Msg("fetched remote evaluation")

	return &out, nil
}
