package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/api/models"
	"github.com/luc118i/operacional-app/internal/api/response"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

const (
	defaultWaypointLimit = 20
	maxWaypointLimit     = 50
)

// WaypointHandler handles waypoint directory endpoints.
type WaypointHandler struct {
	directory waypoint.Directory
	logger    zerolog.Logger
}

// NewWaypointHandler creates a new WaypointHandler.
func NewWaypointHandler(directory waypoint.Directory, logger zerolog.Logger) *WaypointHandler {
	return &WaypointHandler{directory: directory, logger: logger}
}

// SearchWaypoints handles GET /v1/waypoints?q=&limit= - free-text search.
func (h *WaypointHandler) SearchWaypoints(w http.ResponseWriter, r *http.Request) {
	limit := defaultWaypointLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxWaypointLimit {
			response.BadRequest(w, r, "limit must be between 1 and 50", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and 50", Code: "OUT_OF_RANGE"},
			})
			return
		}
		limit = n
	}

	items, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("waypoint search failed")
		response.ServiceUnavailable(w, r, "waypoint directory unavailable")
		return
	}

	response.JSON(w, r, http.StatusOK, models.Waypoints{
		Items: items,
		Meta:  models.ListMeta{Limit: limit, Count: len(items)},
	})
}

// GetWaypoint handles GET /v1/waypoints/{waypointId}.
func (h *WaypointHandler) GetWaypoint(w http.ResponseWriter, r *http.Request) {
	wp, err := h.directory.Get(r.Context(), chi.URLParam(r, "waypointId"))
	if errors.Is(err, waypoint.ErrNotFound) {
		response.NotFound(w, r, "waypoint not found")
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Msg("waypoint lookup failed")
		response.ServiceUnavailable(w, r, "waypoint directory unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, wp)
}
