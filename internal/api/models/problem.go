package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// TraceID is the request id, echoed in X-Request-Id.
	TraceID string       `json:"trace_id"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError is one rejected field of a request body. Field uses the JSON
// path of the body, e.g. "waypoint.lat".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem types.
const (
	ProblemTypeValidation      = "https://operacional.app/problems/validation-error"
	ProblemTypeNotFound        = "https://operacional.app/problems/not-found"
	ProblemTypeUnprocessable   = "https://operacional.app/problems/unprocessable"
	ProblemTypeMediaType       = "https://operacional.app/problems/unsupported-media-type"
	ProblemTypeTooManyRequests = "https://operacional.app/problems/too-many-requests"
	ProblemTypeInternal        = "https://operacional.app/problems/internal-error"
	ProblemTypeUnavailable     = "https://operacional.app/problems/service-unavailable"
)

var problemTypes = map[int]string{
	http.StatusBadRequest:           ProblemTypeValidation,
	http.StatusNotFound:             ProblemTypeNotFound,
	http.StatusUnprocessableEntity:  ProblemTypeUnprocessable,
	http.StatusUnsupportedMediaType: ProblemTypeMediaType,
	http.StatusTooManyRequests:      ProblemTypeTooManyRequests,
	http.StatusInternalServerError:  ProblemTypeInternal,
	http.StatusServiceUnavailable:   ProblemTypeUnavailable,
}

func newProblem(status int, title, traceID, detail string) *Problem {
	return &Problem{
		Type:    problemTypes[status],
		Title:   title,
		Status:  status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// Write sends p with its status.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest is a 400 for a malformed or invalid body.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := newProblem(http.StatusBadRequest, "Validation error", traceID, detail)
	p.Errors = errors
	return p
}

// NewNotFound is a 404 for an unknown draft, scheme or waypoint.
func NewNotFound(traceID, detail string) *Problem {
	return newProblem(http.StatusNotFound, "Not found", traceID, detail)
}

// NewUnprocessable is a 422 for a draft that cannot be saved as it stands.
func NewUnprocessable(traceID, detail string) *Problem {
	return newProblem(http.StatusUnprocessableEntity, "Unprocessable entity", traceID, detail)
}

// NewUnsupportedMediaType is a 415 for a body that is not JSON.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return newProblem(http.StatusUnsupportedMediaType, "Unsupported media type", traceID, detail)
}

// NewTooManyRequests is a 429 from the rate limiter.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newProblem(http.StatusTooManyRequests, "Too many requests", traceID, detail)
}

// NewInternalError is a 500.
func NewInternalError(traceID, detail string) *Problem {
	return newProblem(http.StatusInternalServerError, "Internal server error", traceID, detail)
}

// NewServiceUnavailable is a 503 for a failed dependency.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newProblem(http.StatusServiceUnavailable, "Service unavailable", traceID, detail)
}
