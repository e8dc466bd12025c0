package rules

import (
	"context"
	"fmt"

	"github.com/luc118i/operacional-app/internal/scheme"
)

// Local rule codes.
const (
	RuleRestStopWindow      = "REST_STOP_WINDOW"
	RuleRestStopMissing     = "REST_STOP_MISSING"
	RuleSupportPointWindow  = "SUPPORT_POINT_WINDOW"
	RuleSupportPointMissing = "SUPPORT_POINT_MISSING"
	RuleDriverChangeWindow  = "DRIVER_CHANGE_WINDOW"
	RuleDriverChangeMissing = "DRIVER_CHANGE_MISSING"
	RuleDwellTooShort       = "DWELL_TOO_SHORT"
	RuleLegTooLong          = "LEG_TOO_LONG"
	RuleAverageSpeedTooHigh = "AVERAGE_SPEED_HIGH"
)

// Window is an accumulated-distance range in kilometers.
type Window struct {
	Min float64 `yaml:"min" validate:"gte=0"`
	Max float64 `yaml:"max" validate:"gtfield=Min"`
}

// Thresholds configures the local evaluator.
type Thresholds struct {
	RestStop     Window `yaml:"rest_stop"`
	SupportPoint Window `yaml:"support_point"`
	DriverChange Window `yaml:"driver_change"`

	// Margin scales the window maximum; points accumulated below both the
	// window minimum and Max*Margin are reported as anticipated.
	Margin float64 `yaml:"margin" validate:"gt=0,lte=1"`

	MinDwellMin        int     `yaml:"min_dwell_min" validate:"gte=0"`
	LongLegKm          float64 `yaml:"long_leg_km" validate:"gt=0"`
	MaxAverageSpeedKmh float64 `yaml:"max_average_speed_kmh" validate:"gt=0"`
}

// DefaultThresholds returns the regulatory defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RestStop:           Window{Min: 262, Max: 330},
		SupportPoint:       Window{Min: 402, Max: 495},
		DriverChange:       Window{Min: 660, Max: 900},
		Margin:             0.92,
		MinDwellMin:        20,
		LongLegKm:          scheme.LongLegKm,
		MaxAverageSpeedKmh: 90,
	}
}

// Level is the outcome of a single local check.
type Level string

const (
	LevelOK         Level = "ok"
	LevelSuggestion Level = "warning"
	LevelAlert      Level = "error"
)

// Finding is one local check outcome for a point, including compliant ones.
type Finding struct {
	PointID    string
	Position   int
	WaypointID string
	Label      string
	RuleCode   string
	Level      Level
	Message    string
}

type windowRule struct {
	function    scheme.Function
	name        string
	windowCode  string
	missingCode string
	window      func(Thresholds) Window
}

var windowRules = []windowRule{
	{
		function:    scheme.FunctionRest,
		name:        "first rest stop",
		windowCode:  RuleRestStopWindow,
		missingCode: RuleRestStopMissing,
		window:      func(t Thresholds) Window { return t.RestStop },
	},
	{
		function:    scheme.FunctionSupport,
		name:        "support point",
		windowCode:  RuleSupportPointWindow,
		missingCode: RuleSupportPointMissing,
		window:      func(t Thresholds) Window { return t.SupportPoint },
	},
	{
		function:    scheme.FunctionDriverChange,
		name:        "driver change",
		windowCode:  RuleDriverChangeWindow,
		missingCode: RuleDriverChangeMissing,
		window:      func(t Thresholds) Window { return t.DriverChange },
	},
}

// LocalEvaluator checks a sequence against the accumulated-distance windows
// and point-local limits without any I/O.
type LocalEvaluator struct {
	thresholds Thresholds
}

var _ Evaluator = (*LocalEvaluator)(nil)

// NewLocalEvaluator creates a local evaluator.
func NewLocalEvaluator(t Thresholds) *LocalEvaluator {
	return &LocalEvaluator{thresholds: t}
}

// Check walks the sequence once and returns every finding in route order.
// The first point holding each windowed function is classified against its
// window; a route that passes a window minimum without that function gets a
// single missing-point suggestion.
func (e *LocalEvaluator) Check(seq scheme.Sequence) []Finding {
	t := e.thresholds
	seen := make(map[scheme.Function]bool, len(windowRules))
	warned := make(map[scheme.Function]bool, len(windowRules))

	var findings []Finding
	for _, p := range seq.Points {
		add := func(code string, level Level, msg string) {
			findings = append(findings, Finding{
				PointID:    p.ID,
				Position:   p.Position,
				WaypointID: p.Waypoint.ID,
				Label:      p.Waypoint.Label(),
				RuleCode:   code,
				Level:      level,
				Message:    msg,
			})
		}
		acc := p.CumulativeKm

		if isStop(p) && p.DwellMin < t.MinDwellMin {
			add(RuleDwellTooShort, LevelSuggestion,
				fmt.Sprintf("dwell may be too short (%s < %d min)", scheme.FormatDuration(p.DwellMin), t.MinDwellMin))
		}
		if p.LegKm > t.LongLegKm {
			add(RuleLegTooLong, LevelSuggestion,
				fmt.Sprintf("leg too long (%.1f km > %.0f km without a stop)", p.LegKm, t.LongLegKm))
		}
		if speed := p.AverageSpeedKmh(); speed > t.MaxAverageSpeedKmh {
			add(RuleAverageSpeedTooHigh, LevelSuggestion,
				fmt.Sprintf("average speed too high (%.1f km/h > %.0f km/h)", speed, t.MaxAverageSpeedKmh))
		}

		for _, r := range windowRules {
			w := r.window(t)
			switch {
			case p.HasFunction(r.function) && !seen[r.function]:
				seen[r.function] = true
				level, msg := classify(r.name, acc, w, t.Margin)
				add(r.windowCode, level, msg)
			case !seen[r.function] && !warned[r.function] && acc > w.Min:
				warned[r.function] = true
				add(r.missingCode, LevelSuggestion,
					fmt.Sprintf("no %s yet at %.1f km (required from %.0f km)", r.name, acc, w.Min))
			}
		}
	}
	return findings
}

func classify(name string, acc float64, w Window, margin float64) (Level, string) {
	early := w.Max * margin
	if w.Min < early {
		early = w.Min
	}

	switch {
	case acc > w.Max:
		return LevelAlert, fmt.Sprintf("%s beyond limit (%.1f/%.0f km)", name, acc, w.Max)
	case acc < early:
		return LevelSuggestion, fmt.Sprintf("%s anticipated (%.1f km, window %.0f-%.0f km)", name, acc, w.Min, w.Max)
	default:
		return LevelOK, fmt.Sprintf("%s within window (%.1f/%.0f km)", name, acc, w.Max)
	}
}

func isStop(p scheme.RoutePoint) bool {
	return p.HasFunction(scheme.FunctionRest) ||
		p.HasFunction(scheme.FunctionSupport) ||
		p.HasFunction(scheme.FunctionDriverChange)
}

// Evaluate returns the non-compliant findings as issues in route order.
func (e *LocalEvaluator) Evaluate(_ context.Context, in Input) ([]Issue, error) {
	return FindingsToIssues(e.Check(in.Sequence)), nil
}

// FindingsToIssues drops compliant findings and converts the rest.
func FindingsToIssues(findings []Finding) []Issue {
	issues := make([]Issue, 0, len(findings))
	for _, f := range findings {
		var severity Severity
		switch f.Level {
		case LevelAlert:
			severity = SeverityAlert
		case LevelSuggestion:
			severity = SeveritySuggestion
		default:
			continue
		}
		issues = append(issues, Issue{
			Key:      IssueKey(f.WaypointID, f.Position, f.RuleCode, severity),
			Origin:   OriginLocal,
			Severity: severity,
			RuleCode: f.RuleCode,
			Category: CategoryOf(f.RuleCode),
			Message:  f.Message,
			Anchor: Anchor{
				Position:   f.Position,
				WaypointID: f.WaypointID,
				Label:      f.Label,
			},
			PointID: f.PointID,
		})
	}
	return issues
}
