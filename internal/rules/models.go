// Package rules evaluates route schemes against the mandatory-stop
// regulations and merges local and remote findings into one ranked report.
package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luc118i/operacional-app/internal/scheme"
)

// ErrNoSchemeID is returned by evaluators that can only judge saved schemes.
var ErrNoSchemeID = errors.New("evaluation requires a saved scheme")

// Severity ranks an issue.
type Severity string

const (
	SeverityAlert      Severity = "ALERT"
	SeveritySuggestion Severity = "SUGGESTION"
)

// Origin tells which evaluator produced an issue.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Category groups rule codes for display.
type Category string

const (
	CategoryRegulatory  Category = "regulatory"
	CategoryDataQuality Category = "data-quality"
	CategoryOperational Category = "operational"
	CategoryUnknown     Category = "unknown"
)

// Status is the overall verdict of an evaluation.
type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// Source tells which evaluators contributed to a report.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceMerged Source = "merged"
	SourceNone   Source = "none"
)

// Anchor locates an issue on the route.
type Anchor struct {
	Position   int    `json:"position"`
	WaypointID string `json:"waypoint_id"`
	Label      string `json:"label,omitempty"`
}

// Issue is one normalized rule finding.
type Issue struct {
	Key      string   `json:"key"`
	Origin   Origin   `json:"origin"`
	Severity Severity `json:"severity"`
	RuleCode string   `json:"rule_code"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Anchor   Anchor   `json:"anchor"`
	PointID  string   `json:"point_id,omitempty"`
}

// IssueKey builds the deduplication key of an issue.
func IssueKey(waypointID string, position int, ruleCode string, severity Severity) string {
	return fmt.Sprintf("%s#%d#%s#%s", waypointID, position, ruleCode, severity)
}

// CategoryOf groups a rule code by its prefix.
func CategoryOf(ruleCode string) Category {
	code := strings.ToUpper(strings.TrimSpace(ruleCode))

	switch {
	case hasAnyPrefix(code, "PARADA_", "APOIO_", "TROCA_", "REST_", "SUPPORT_", "DRIVER_"):
		return CategoryRegulatory
	case hasAnyPrefix(code, "DADO_", "TRECHO_", "LEG_") || strings.Contains(code, "DISTANCIA"):
		return CategoryDataQuality
	case hasAnyPrefix(code, "TEMPO_", "DWELL_", "SPEED_", "AVERAGE_SPEED") || strings.Contains(code, "OPERAC"):
		return CategoryOperational
	default:
		return CategoryUnknown
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Overview rolls a list of issues up into counts and a verdict.
type Overview struct {
	AlertCount      int    `json:"alert_count"`
	SuggestionCount int    `json:"suggestion_count"`
	Status          Status `json:"status"`
	Summary         string `json:"summary"`
	Source          Source `json:"source"`
}

// BuildOverview computes the overview of issues produced by source.
func BuildOverview(issues []Issue, source Source) Overview {
	o := Overview{Source: source}
	for _, i := range issues {
		switch i.Severity {
		case SeverityAlert:
			o.AlertCount++
		case SeveritySuggestion:
			o.SuggestionCount++
		}
	}

	switch {
	case o.AlertCount > 0:
		o.Status = StatusCritical
		o.Summary = fmt.Sprintf("%d rule alert(s) need review.", o.AlertCount)
	case o.SuggestionCount > 0:
		o.Status = StatusWarning
		o.Summary = fmt.Sprintf("%d rule suggestion(s) for improvement.", o.SuggestionCount)
	default:
		o.Status = StatusOK
		o.Summary = "Rules OK (no alerts or suggestions)."
	}
	return o
}

// Input is what an evaluator judges: a finalized sequence and, once saved,
// the scheme id the remote service knows it by.
type Input struct {
	SchemeID string
	Sequence scheme.Sequence
}

// Evaluator produces issues for a sequence.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) ([]Issue, error)
}

// Report is the complete outcome of an evaluation.
type Report struct {
	Issues       []Issue            `json:"issues"`
	Overview     Overview           `json:"overview"`
	Remediations []Remediation      `json:"remediations"`
	PointAlerts  map[string][]Alert `json:"point_alerts"`
}
