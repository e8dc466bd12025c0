package rules

import (
	"context"
	"sort"
	"strings"

	"github.com/luc118i/operacional-app/internal/rules/remote"
	"github.com/luc118i/operacional-app/internal/scheme"
)

// Fetcher retrieves the remote evaluation of a saved scheme.
type Fetcher interface {
	Fetch(ctx context.Context, schemeID string) (*remote.Evaluation, error)
}

// RemoteEvaluator normalizes evaluations from the compliance service.
type RemoteEvaluator struct {
	fetcher Fetcher
}

var _ Evaluator = (*RemoteEvaluator)(nil)

// NewRemoteEvaluator creates a remote evaluator.
func NewRemoteEvaluator(f Fetcher) *RemoteEvaluator {
	return &RemoteEvaluator{fetcher: f}
}

// Evaluate fetches and normalizes the evaluation of in.SchemeID.
func (e *RemoteEvaluator) Evaluate(ctx context.Context, in Input) ([]Issue, error) {
	ev, err := e.fetch(ctx, in)
	if err != nil {
		return nil, err
	}
	return NormalizeRemote(ev, in.Sequence.Points), nil
}

func (e *RemoteEvaluator) fetch(ctx context.Context, in Input) (*remote.Evaluation, error) {
	if strings.TrimSpace(in.SchemeID) == "" {
		return nil, ErrNoSchemeID
	}
	return e.fetcher.Fetch(ctx, in.SchemeID)
}

func remoteSeverity(status string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "ALERT", "ALERTA":
		return SeverityAlert, true
	case "SUGGESTION", "SUGESTAO":
		return SeveritySuggestion, true
	default:
		return "", false
	}
}

// NormalizeRemote converts a remote evaluation into deduplicated issues,
// alerts first and then by position. OK results and entries without a
// position, waypoint or rule code are dropped. Issues are attached to the
// point at the same position, or failing that the same waypoint.
func NormalizeRemote(ev *remote.Evaluation, points []scheme.RoutePoint) []Issue {
	if ev == nil {
		return []Issue{}
	}

	var issues []Issue
	for _, pe := range ev.Points {
		waypointID := strings.TrimSpace(pe.WaypointID)
		if pe.Position <= 0 || waypointID == "" {
			continue
		}

		anchor := Anchor{Position: pe.Position, WaypointID: waypointID}
		var pointID string
		if p, ok := matchPoint(points, pe.Position, waypointID); ok {
			anchor.Label = p.Waypoint.Label()
			pointID = p.ID
		}

		for _, r := range pe.Results {
			severity, ok := remoteSeverity(r.Status)
			if !ok {
				continue
			}
			code := strings.ToUpper(strings.TrimSpace(r.Rule))
			if code == "" {
				continue
			}
			msg := strings.TrimSpace(r.Message)
			if msg == "" {
				msg = "rule " + code
			}

			issues = append(issues, Issue{
				Key:      IssueKey(waypointID, pe.Position, code, severity),
				Origin:   OriginRemote,
				Severity: severity,
				RuleCode: code,
				Category: CategoryOf(code),
				Message:  msg,
				Anchor:   anchor,
				PointID:  pointID,
			})
		}
	}

	return dedupe(issues)
}

func matchPoint(points []scheme.RoutePoint, position int, waypointID string) (scheme.RoutePoint, bool) {
	for _, p := range points {
		if p.Position == position {
			return p, true
		}
	}
	for _, p := range points {
		if p.Waypoint.ID == waypointID {
			return p, true
		}
	}
	return scheme.RoutePoint{}, false
}

// dedupe keeps the first issue per key and sorts alerts before suggestions,
// then by position.
func dedupe(issues []Issue) []Issue {
	seen := make(map[string]bool, len(issues))
	out := make([]Issue, 0, len(issues))
	for _, i := range issues {
		if seen[i.Key] {
			continue
		}
		seen[i.Key] = true
		out = append(out, i)
	}

	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := severityRank(out[a].Severity), severityRank(out[b].Severity)
		if ra != rb {
			return ra < rb
		}
		return out[a].Anchor.Position < out[b].Anchor.Position
	})
	return out
}

func severityRank(s Severity) int {
	if s == SeverityAlert {
		return 0
	}
	return 1
}
