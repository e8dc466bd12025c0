package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/rules/remote"
)

func newClient(server *httptest.Server) *remote.Client {
	return remote.NewClient(remote.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scheme-points/schemes/sch-42/points/evaluation", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"scheme_id": "sch-42",
			"quantidade": 1,
			"avaliacao": [{
				"ordem": 3,
				"location_id": "loc-3",
				"results": [{
					"rule": "PARADA_DESCANSO",
					"status": "ALERTA",
					"message": "Primeira parada fora da faixa",
					"violation": {
						"severity": "BLOCKING",
						"current_km": 351.2,
						"expected": {"function": "DESCANSO", "point_type": "PA"},
						"remediation": {"target_ordem": 2, "target_location_id": "loc-2", "suggestion": "Inserir descanso"}
					}
				}]
			}]
		}`))
	}))
	defer server.Close()

	ev, err := newClient(server).Fetch(context.Background(), "sch-42")
	require.NoError(t, err)

	assert.Equal(t, "sch-42", ev.SchemeID)
	assert.Equal(t, 1, ev.Count)
	require.Len(t, ev.Points, 1)

	point := ev.Points[0]
	assert.Equal(t, 3, point.Position)
	assert.Equal(t, "loc-3", point.WaypointID)
	require.Len(t, point.Results, 1)

	v := point.Results[0].Violation
	require.NotNil(t, v)
	assert.Equal(t, "DESCANSO", v.Expected.Function)
	assert.Equal(t, 2, v.Remediation.TargetPosition)
	require.NotNil(t, v.CurrentKm)
	assert.Equal(t, 351.2, *v.CurrentKm)
}

func TestClient_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, remote.ErrNotFound},
		{"server error", http.StatusInternalServerError, remote.ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, remote.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newClient(server).Fetch(context.Background(), "sch-1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_Fetch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"avaliacao": "nope"}`))
	}))
	defer server.Close()

	_, err := newClient(server).Fetch(context.Background(), "sch-1")
	assert.Error(t, err)
}
