package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luc118i/operacional-app/internal/api/middleware"
)

func serveWithRequestID(t *testing.T, inbound string) (ctxID, headerID string) {
	t.Helper()
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/drafts/drf_1/summary", http.NoBody)
	if inbound != "" {
		req.Header.Set(middleware.RequestIDHeader, inbound)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return ctxID, w.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID_Generated(t *testing.T) {
	ctxID, headerID := serveWithRequestID(t, "")

	assert.True(t, strings.HasPrefix(ctxID, "req_"))
	assert.Len(t, ctxID, len("req_")+22)
	assert.NotContains(t, ctxID, "-")
	assert.Equal(t, ctxID, headerID)
}

func TestRequestID_Inbound(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		kept    bool
	}{
		{"plain", "existing_request_id", true},
		{"uuid", "3f2b8c1e-7d4a-4f7e-9a55-0c1d2e3f4a5b", true},
		{"dotted", "gateway.42", true},
		{"spaces", "id with spaces", false},
		{"newline", "id\ninjected", false},
		{"json", `{"x":1}`, false},
		{"too long", strings.Repeat("a", 65), false},
		{"max length", strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctxID, headerID := serveWithRequestID(t, tt.inbound)

			assert.Equal(t, ctxID, headerID)
			if tt.kept {
				assert.Equal(t, tt.inbound, ctxID)
			} else {
				assert.NotEqual(t, tt.inbound, ctxID)
				assert.True(t, strings.HasPrefix(ctxID, "req_"))
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}

func TestRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _ := serveWithRequestID(t, "")
		assert.False(t, seen[id], "duplicate request id %s", id)
		seen[id] = true
	}
}
