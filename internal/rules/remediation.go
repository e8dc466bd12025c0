package rules

import (
	"sort"
	"strings"

	"github.com/luc118i/operacional-app/internal/rules/remote"
	"github.com/luc118i/operacional-app/internal/scheme"
)

// Preset is the point an operator is offered to fix a violation.
type Preset struct {
	Kind      scheme.Kind       `json:"kind"`
	Functions []scheme.Function `json:"functions"`
}

// PresetFor maps the function a violation expects onto a point preset.
// Unknown functions yield a support point with no explicit functions.
func PresetFor(expectedFunction string) Preset {
	fn, _ := scheme.ParseFunction(expectedFunction)
	switch fn {
	case scheme.FunctionRest:
		return Preset{Kind: scheme.KindSupportPoint, Functions: []scheme.Function{scheme.FunctionRest}}
	case scheme.FunctionSupport:
		return Preset{Kind: scheme.KindSupportPoint, Functions: []scheme.Function{scheme.FunctionRest, scheme.FunctionSupport}}
	case scheme.FunctionDriverChange:
		return Preset{Kind: scheme.KindDriverChange, Functions: []scheme.Function{scheme.FunctionDriverChange}}
	default:
		return Preset{Kind: scheme.KindSupportPoint, Functions: []scheme.Function{}}
	}
}

// Remediation proposes inserting a point to resolve a remote violation.
type Remediation struct {
	// Position is the evaluated position the proposal is shown at.
	Position int `json:"position"`
	// InsertAfterPointID is the point the new one goes after.
	InsertAfterPointID string `json:"insert_after_point_id,omitempty"`
	RuleCode           string `json:"rule_code"`
	Message            string `json:"message"`
	Suggestion         string `json:"suggestion"`
	ExpectedFunction   string `json:"expected_function,omitempty"`
	Preset             Preset `json:"preset"`
}

const defaultSuggestion = "Add a point with the function the evaluation expects."

// Remediations picks, per evaluated position, the most severe actionable
// result (one with an expected function or a remediation target) and turns
// it into an insertion proposal. Proposals aimed at another position or at
// the first point are skipped.
func Remediations(ev *remote.Evaluation, points []scheme.RoutePoint) []Remediation {
	if ev == nil {
		return []Remediation{}
	}

	out := make([]Remediation, 0)
	for _, pe := range ev.Points {
		best, ok := bestActionable(pe.Results)
		if !ok {
			continue
		}

		v := best.Violation
		if v.Remediation != nil && v.Remediation.TargetPosition > 0 && v.Remediation.TargetPosition != pe.Position {
			continue
		}

		idx := -1
		for i, p := range points {
			if p.Position == pe.Position {
				idx = i
				break
			}
		}
		if idx <= 0 {
			continue
		}

		var expected string
		if v.Expected != nil {
			expected = strings.ToUpper(strings.TrimSpace(v.Expected.Function))
		}
		suggestion := defaultSuggestion
		if v.Remediation != nil && strings.TrimSpace(v.Remediation.Suggestion) != "" {
			suggestion = strings.TrimSpace(v.Remediation.Suggestion)
		}

		out = append(out, Remediation{
			Position:           pe.Position,
			InsertAfterPointID: points[idx-1].ID,
			RuleCode:           strings.ToUpper(strings.TrimSpace(best.Rule)),
			Message:            strings.TrimSpace(best.Message),
			Suggestion:         suggestion,
			ExpectedFunction:   expected,
			Preset:             PresetFor(expected),
		})
	}
	return out
}

func bestActionable(results []remote.Result) (remote.Result, bool) {
	var actionable []remote.Result
	for _, r := range results {
		if r.Violation == nil {
			continue
		}
		if r.Violation.Remediation != nil || (r.Violation.Expected != nil && r.Violation.Expected.Function != "") {
			actionable = append(actionable, r)
		}
	}
	if len(actionable) == 0 {
		return remote.Result{}, false
	}

	sort.SliceStable(actionable, func(i, j int) bool {
		return violationRank(actionable[i].Violation.Severity) > violationRank(actionable[j].Violation.Severity)
	})
	return actionable[0], true
}

func violationRank(s string) int {
	switch strings.ToUpper(s) {
	case "BLOCKING":
		return 3
	case "WARNING":
		return 2
	case "INFO":
		return 1
	default:
		return 0
	}
}
