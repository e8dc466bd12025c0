package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/api/models"
	"github.com/luc118i/operacional-app/internal/api/response"
	"github.com/luc118i/operacional-app/internal/planning"
	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/scheme"
)

// DraftHandler handles draft editing endpoints.
type DraftHandler struct {
	service  *planning.Service
	strategy rules.Strategy
	logger   zerolog.Logger
}

// NewDraftHandler creates a new DraftHandler. strategy is used when an
// evaluation request names none.
func NewDraftHandler(service *planning.Service, strategy rules.Strategy, logger zerolog.Logger) *DraftHandler {
	if strategy == "" {
		strategy = rules.StrategyPreferRemote
	}
	return &DraftHandler{service: service, strategy: strategy, logger: logger}
}

// CreateDraft handles POST /v1/drafts - open an empty draft.
func (h *DraftHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var input models.DraftCreateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.BadRequest(w, r, "invalid JSON body", nil)
			return
		}
	}

	d := h.service.NewDraft(planning.Header{
		LineCode:  input.LineCode,
		LineName:  input.LineName,
		Direction: scheme.Direction(input.Direction),
	})
	response.Created(w, r, fmt.Sprintf("/v1/drafts/%s", d.ID), draftView(d, d.Editor.Snapshot()))
}

// OpenScheme handles POST /v1/schemes/{schemeId}/drafts - open a saved scheme for editing.
func (h *DraftHandler) OpenScheme(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Open(r.Context(), chi.URLParam(r, "schemeId"))
	if errors.Is(err, scheme.ErrSchemeNotFound) {
		response.NotFound(w, r, "scheme not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to open scheme")
		response.InternalError(w, r, "failed to open scheme")
		return
	}
	response.Created(w, r, fmt.Sprintf("/v1/drafts/%s", d.ID), draftView(d, d.Editor.Snapshot()))
}

// GetDraft handles GET /v1/drafts/{draftId}.
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, draftView(d, d.Editor.Snapshot()))
}

// CloseDraft handles DELETE /v1/drafts/{draftId} - discard a draft.
func (h *DraftHandler) CloseDraft(w http.ResponseWriter, r *http.Request) {
	h.service.Close(chi.URLParam(r, "draftId"))
	response.NoContent(w, r)
}

// UpdateHeader handles PUT /v1/drafts/{draftId}/header.
func (h *DraftHandler) UpdateHeader(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}

	var input models.DraftCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	header := planning.Header{
		LineCode:  input.LineCode,
		LineName:  input.LineName,
		Direction: scheme.Direction(input.Direction),
	}
	if err := header.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	d.SetHeader(header)
	response.JSON(w, r, http.StatusOK, draftView(d, d.Editor.Snapshot()))
}

// GetSummary handles GET /v1/drafts/{draftId}/summary.
func (h *DraftHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(chi.URLParam(r, "draftId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, summaryView(summary))
}

// AppendPoint handles POST /v1/drafts/{draftId}/points.
func (h *DraftHandler) AppendPoint(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	in, ok := h.pointInput(w, r)
	if !ok {
		return
	}

	seq, err := d.Editor.Append(r.Context(), in)
	h.writeEdit(w, r, d, seq, err)
}

// InsertPointAfter handles POST /v1/drafts/{draftId}/points/{pointId}/insert-after.
func (h *DraftHandler) InsertPointAfter(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	in, ok := h.pointInput(w, r)
	if !ok {
		return
	}

	seq, err := d.Editor.InsertAfter(r.Context(), chi.URLParam(r, "pointId"), in)
	h.writeEdit(w, r, d, seq, err)
}

// UpdatePoint handles PATCH /v1/drafts/{draftId}/points/{pointId}.
func (h *DraftHandler) UpdatePoint(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}

	var payload scheme.PatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	patch, err := payload.Patch()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	seq, err := d.Editor.Update(r.Context(), chi.URLParam(r, "pointId"), patch)
	h.writeEdit(w, r, d, seq, err)
}

// DeletePoint handles DELETE /v1/drafts/{draftId}/points/{pointId}.
func (h *DraftHandler) DeletePoint(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	seq, err := d.Editor.Delete(r.Context(), chi.URLParam(r, "pointId"))
	h.writeEdit(w, r, d, seq, err)
}

// MovePointUp handles POST /v1/drafts/{draftId}/points/{pointId}/move-up.
func (h *DraftHandler) MovePointUp(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	seq, err := d.Editor.MoveUp(r.Context(), chi.URLParam(r, "pointId"))
	h.writeEdit(w, r, d, seq, err)
}

// MovePointDown handles POST /v1/drafts/{draftId}/points/{pointId}/move-down.
func (h *DraftHandler) MovePointDown(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	seq, err := d.Editor.MoveDown(r.Context(), chi.URLParam(r, "pointId"))
	h.writeEdit(w, r, d, seq, err)
}

// SetAnchor handles PUT /v1/drafts/{draftId}/anchor.
func (h *DraftHandler) SetAnchor(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}

	var input models.AnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.PointID == "" {
		response.BadRequest(w, r, "point_id is required", []models.FieldError{
			{Field: "point_id", Message: "is required", Code: "REQUIRED"},
		})
		return
	}

	seq, err := d.Editor.SetAnchor(r.Context(), input.PointID, input.Clock)
	h.writeEdit(w, r, d, seq, err)
}

// RefreshDistances handles POST /v1/drafts/{draftId}/refresh-distances.
func (h *DraftHandler) RefreshDistances(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	seq, err := d.Editor.RefreshDistances(r.Context())
	h.writeEdit(w, r, d, seq, err)
}

// Evaluate handles GET /v1/drafts/{draftId}/evaluation?strategy=.
func (h *DraftHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	strategy := h.strategy
	if raw := r.URL.Query().Get("strategy"); raw != "" {
		parsed, err := rules.ParseStrategy(raw)
		if err != nil {
			response.BadRequest(w, r, err.Error(), []models.FieldError{
				{Field: "strategy", Message: "must be one of prefer-remote prefer-local merge-both", Code: "INVALID"},
			})
			return
		}
		strategy = parsed
	}

	draftID := chi.URLParam(r, "draftId")
	d, err := h.service.Draft(draftID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.service.Evaluate(r.Context(), draftID, strategy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.Evaluation{
		DraftID:  d.ID,
		SchemeID: d.SchemeID(),
		Strategy: strategy,
		Report:   report,
	})
}

// SaveDraft handles POST /v1/drafts/{draftId}/save.
func (h *DraftHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	saved, err := h.service.Save(r.Context(), chi.URLParam(r, "draftId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, savedView(saved))
}

func (h *DraftHandler) draft(w http.ResponseWriter, r *http.Request) (*planning.Draft, bool) {
	d, err := h.service.Draft(chi.URLParam(r, "draftId"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return d, true
}

func (h *DraftHandler) pointInput(w http.ResponseWriter, r *http.Request) (scheme.PointInput, bool) {
	var payload scheme.PointPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return scheme.PointInput{}, false
	}
	in, err := payload.Input()
	if err != nil {
		h.writeError(w, r, err)
		return scheme.PointInput{}, false
	}
	return in, true
}

// writeEdit answers an edit with the resulting sequence. Refused edits are
// not errors: the unchanged draft is returned with the reason.
func (h *DraftHandler) writeEdit(w http.ResponseWriter, r *http.Request, d *planning.Draft, seq scheme.Sequence, err error) {
	result := models.EditResult{Applied: err == nil}
	if err != nil {
		if !errors.Is(err, scheme.ErrInvalidMutation) && !errors.Is(err, scheme.ErrSuperseded) {
			h.writeError(w, r, err)
			return
		}
		result.Reason = err.Error()
	}
	result.Draft = draftView(d, seq)
	response.JSON(w, r, http.StatusOK, result)
}

func (h *DraftHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *scheme.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, r, "invalid payload", fieldErrors(verr))
	case errors.Is(err, planning.ErrDraftNotFound):
		response.NotFound(w, r, "draft not found")
	case errors.Is(err, scheme.ErrSchemeNotFound):
		response.NotFound(w, r, "scheme not found")
	case errors.Is(err, planning.ErrIncompleteDraft):
		response.Unprocessable(w, r, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("draft request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
