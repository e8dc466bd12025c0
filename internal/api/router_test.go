package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/api"
	"github.com/luc118i/operacional-app/internal/api/models"
	"github.com/luc118i/operacional-app/internal/planning"
	"github.com/luc118i/operacional-app/internal/provider/resilience"
	"github.com/luc118i/operacional-app/internal/routing"
	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/scheme"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

var (
	brasilia = waypoint.Waypoint{ID: "loc-bsb", Code: "BSB", Name: "Rodoviaria de Brasilia", City: "Brasilia", State: "DF", Lat: -15.79, Lng: -47.88}
	anapolis = waypoint.Waypoint{ID: "loc-anp", Code: "ANP", Name: "Rodoviaria de Anapolis", City: "Anapolis", State: "GO", Lat: -16.33, Lng: -48.95}
	goiania  = waypoint.Waypoint{ID: "loc-gyn", Code: "GYN", Name: "Rodoviaria de Goiania", City: "Goiania", State: "GO", Lat: -16.68, Lng: -49.26}
)

type fixedResolver struct{}

func (fixedResolver) ResolveKm(_ context.Context, _, _ routing.Endpoint) float64 {
	return 60
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return assert.AnError
}

func newTestRouter(opts ...func(*api.RouterConfig)) http.Handler {
	logger := zerolog.New(io.Discard)
	svc := planning.NewService(planning.Config{
		Repository: scheme.NewInMemoryRepository(),
		Resolver:   fixedResolver{},
		Engine: rules.NewEngine(rules.EngineConfig{
			Thresholds: rules.DefaultThresholds(),
			Logger:     logger,
		}),
		Logger: logger,
	})

	cfg := api.RouterConfig{
		Version:   "test",
		BuildTime: "2024-01-01T00:00:00Z",
		Logger:    logger,
		Registry:  resilience.NewRegistry(),
		Planning:  svc,
		Directory: waypoint.NewMemoryDirectory(brasilia, anapolis, goiania),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return api.NewRouter(cfg)
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func createDraft(t *testing.T, router http.Handler) models.Draft {
	t.Helper()
	w := do(t, router, http.MethodPost, "/v1/drafts", models.DraftCreateRequest{
		LineCode:  "4120",
		LineName:  "Brasilia - Goiania",
		Direction: "ida",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[models.Draft](t, w)
}

func appendPoint(t *testing.T, router http.Handler, draftID string, wp waypoint.Waypoint, kind string) models.EditResult {
	t.Helper()
	w := do(t, router, http.MethodPost, "/v1/drafts/"+draftID+"/points", map[string]interface{}{
		"waypoint": wp,
		"kind":     kind,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.EditResult](t, w)
}

// buildRoute creates a three-point draft anchored at 07:30.
func buildRoute(t *testing.T, router http.Handler) models.Draft {
	t.Helper()
	d := createDraft(t, router)
	appendPoint(t, router, d.ID, brasilia, "PE")
	appendPoint(t, router, d.ID, anapolis, "PP")
	res := appendPoint(t, router, d.ID, goiania, "PD")

	w := do(t, router, http.MethodPut, "/v1/drafts/"+d.ID+"/anchor", models.AnchorRequest{
		PointID: res.Draft.Points[0].ID,
		Clock:   "07:30",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[models.EditResult](t, w)
	require.True(t, res.Applied)
	return res.Draft
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter()

	w := do(t, router, http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		w := do(t, newTestRouter(), http.MethodGet, "/v1/ops/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("database unreachable", func(t *testing.T) {
		router := newTestRouter(func(cfg *api.RouterConfig) { cfg.DB = failingPinger{} })

		w := do(t, router, http.MethodGet, "/v1/ops/ready", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		health := decode[models.Health](t, w)
		assert.Equal(t, models.HealthStatusFail, health.Status)
	})
}

func TestRouter_ProviderStatus(t *testing.T) {
	router := newTestRouter()

	w := do(t, router, http.MethodGet, "/v1/ops/providers", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	status := decode[models.SystemStatus](t, w)
	assert.Empty(t, status.Providers)
}

func TestRouter_SearchWaypoints(t *testing.T) {
	router := newTestRouter()

	w := do(t, router, http.MethodGet, "/v1/waypoints?q=goi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.Waypoints](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "loc-gyn", list.Items[0].ID)

	w = do(t, router, http.MethodGet, "/v1/waypoints?q=g", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.Waypoints](t, w).Items)

	w = do(t, router, http.MethodGet, "/v1/waypoints?q=goi&limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GetWaypoint(t *testing.T) {
	router := newTestRouter()

	w := do(t, router, http.MethodGet, "/v1/waypoints/loc-anp", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, anapolis, decode[waypoint.Waypoint](t, w))

	w = do(t, router, http.MethodGet, "/v1/waypoints/loc-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_DraftLifecycle(t *testing.T) {
	router := newTestRouter()
	d := buildRoute(t, router)

	require.Len(t, d.Points, 3)
	assert.Equal(t, "07:30", d.AnchorClock)
	assert.InDelta(t, 120, d.TotalKm, 0.001)
	assert.True(t, d.Points[0].IsAnchor)
	assert.Equal(t, "Brasilia / DF", d.Points[0].Label)

	w := do(t, router, http.MethodGet, "/v1/drafts/"+d.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, d.Points, decode[models.Draft](t, w).Points)

	w = do(t, router, http.MethodGet, "/v1/drafts/"+d.ID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[models.Summary](t, w)
	assert.Equal(t, 3, summary.PointCount)
	assert.InDelta(t, 120, summary.TotalKm, 0.001)
	assert.Equal(t, "07:30", summary.Departure)

	w = do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/save", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[models.SavedScheme](t, w)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 3, saved.Points)
	assert.Equal(t, "07:30", saved.TripTime)

	w = do(t, router, http.MethodPost, "/v1/schemes/"+saved.ID+"/drafts", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	reopened := decode[models.Draft](t, w)
	assert.Equal(t, saved.ID, reopened.SchemeID)
	assert.Len(t, reopened.Points, 3)

	w = do(t, router, http.MethodDelete, "/v1/drafts/"+d.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/v1/drafts/"+d.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_EditPoints(t *testing.T) {
	router := newTestRouter()
	d := buildRoute(t, router)
	middle := d.Points[1].ID

	w := do(t, router, http.MethodPatch, "/v1/drafts/"+d.ID+"/points/"+middle, map[string]interface{}{
		"dwell_min": 20,
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.EditResult](t, w)
	require.True(t, res.Applied)
	assert.Equal(t, 20, res.Draft.Points[1].DwellMin)

	w = do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/points/"+middle+"/move-down", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[models.EditResult](t, w)
	require.True(t, res.Applied)
	assert.Equal(t, middle, res.Draft.Points[2].ID)

	w = do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/points/"+middle+"/move-up", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[models.EditResult](t, w)
	require.True(t, res.Applied)
	assert.Equal(t, middle, res.Draft.Points[1].ID)

	w = do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/points/"+middle+"/insert-after", map[string]interface{}{
		"waypoint": anapolis,
		"kind":     "PA",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[models.EditResult](t, w)
	require.True(t, res.Applied)
	require.Len(t, res.Draft.Points, 4)
	assert.Equal(t, scheme.KindSupportPoint, res.Draft.Points[2].Kind)

	w = do(t, router, http.MethodDelete, "/v1/drafts/"+d.ID+"/points/"+middle, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[models.EditResult](t, w)
	require.True(t, res.Applied)
	assert.Len(t, res.Draft.Points, 3)

	w = do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/refresh-distances", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.EditResult](t, w).Applied)
}

func TestRouter_RefusedEditsKeepTheDraft(t *testing.T) {
	router := newTestRouter()
	d := buildRoute(t, router)

	w := do(t, router, http.MethodDelete, "/v1/drafts/"+d.ID+"/points/pt_missing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.EditResult](t, w)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Reason)
	assert.Equal(t, d.Points, res.Draft.Points)

	last := d.Points[len(d.Points)-1].ID
	w = do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/points/"+last+"/move-down", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[models.EditResult](t, w)
	assert.False(t, res.Applied)
	assert.Len(t, res.Draft.Points, 3)
}

func TestRouter_InvalidPointPayload(t *testing.T) {
	router := newTestRouter()
	d := createDraft(t, router)

	w := do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/points", map[string]interface{}{
		"waypoint": brasilia,
		"kind":     "XX",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	assert.NotEmpty(t, problem.Errors)
}

func TestRouter_SaveIncompleteDraft(t *testing.T) {
	router := newTestRouter()

	t.Run("missing header", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/v1/drafts", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		d := decode[models.Draft](t, w)

		w = do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/save", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no anchor", func(t *testing.T) {
		d := createDraft(t, router)
		appendPoint(t, router, d.ID, brasilia, "PE")

		w := do(t, router, http.MethodPost, "/v1/drafts/"+d.ID+"/save", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestRouter_Evaluation(t *testing.T) {
	router := newTestRouter()
	d := buildRoute(t, router)

	w := do(t, router, http.MethodGet, "/v1/drafts/"+d.ID+"/evaluation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	eval := decode[models.Evaluation](t, w)
	assert.Equal(t, d.ID, eval.DraftID)
	assert.Equal(t, rules.StrategyPreferRemote, eval.Strategy)
	assert.Equal(t, rules.SourceLocal, eval.Overview.Source)

	w = do(t, router, http.MethodGet, "/v1/drafts/"+d.ID+"/evaluation?strategy=merge-both", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rules.StrategyMergeBoth, decode[models.Evaluation](t, w).Strategy)

	w = do(t, router, http.MethodGet, "/v1/drafts/"+d.ID+"/evaluation?strategy=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UnknownDraft(t *testing.T) {
	router := newTestRouter()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/drafts/drf_missing"},
		{http.MethodGet, "/v1/drafts/drf_missing/summary"},
		{http.MethodGet, "/v1/drafts/drf_missing/evaluation"},
		{http.MethodPost, "/v1/drafts/drf_missing/save"},
		{http.MethodPost, "/v1/drafts/drf_missing/refresh-distances"},
		{http.MethodPost, "/v1/schemes/sch_missing/drafts"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := do(t, router, tc.method, tc.path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestRouter_RequestIDPropagation(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-ID", "custom-request-id-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "custom-request-id-123", w.Header().Get("X-Request-ID"))
}
