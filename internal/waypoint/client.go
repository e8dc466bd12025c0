package waypoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/provider/resilience"
)

// ClientName identifies the directory service in the provider registry.
const ClientName = "waypoint-directory"

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the remote directory client.
type ClientConfig struct {
	// BaseURL is the locations service base URL (required).
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

// Client is a Directory backed by the locations HTTP service.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ Directory = (*Client)(nil)

// NewClient creates a new directory client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ClientName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = &cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{baseURL: cfg.BaseURL, httpClient: httpClient, logger: cfg.Logger}
}

// location is the wire shape of the locations service.
type location struct {
	ID        string  `json:"id"`
	Sigla     string  `json:"sigla"`
	Descricao string  `json:"descricao"`
	Cidade    string  `json:"cidade"`
	UF        string  `json:"uf"`
	Tipo      string  `json:"tipo"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

func (l location) toWaypoint() Waypoint {
	return Waypoint{
		ID:    l.ID,
		Code:  l.Sigla,
		Name:  l.Descricao,
		City:  l.Cidade,
		State: l.UF,
		Kind:  l.Tipo,
		Lat:   l.Lat,
		Lng:   l.Lng,
	}
}

// Search queries GET /locations?q=.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Waypoint, error) {
	q, ok := normalizeQuery(query)
	if !ok {
		return []Waypoint{}, nil
	}
	limit = normalizeLimit(limit)

	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", strconv.Itoa(limit))

	var locs []location
	if err := c.get(ctx, "/locations?"+params.Encode(), &locs); err != nil {
		return nil, fmt.Errorf("search locations: %w", err)
	}

	out := make([]Waypoint, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.toWaypoint())
	}
	if len(out) > limit {
		out = out[:limit]
	}

	c.logger.Debug().Str("query", q).Int("results", len(out)).Msg("searched waypoint directory")
	return out, nil
}

// Get queries GET /locations/{id}.
func (c *Client) Get(ctx context.Context, id string) (*Waypoint, error) {
	var l location
	if err := c.get(ctx, "/locations/"+url.PathEscape(id), &l); err != nil {
		return nil, err
	}
	w := l.toWaypoint()
	return &w, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling locations service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("locations service returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
