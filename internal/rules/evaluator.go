package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/rules/remote"
)

// Strategy selects how remote and local issues are combined.
type Strategy string

const (
	// StrategyPreferRemote uses remote issues, falling back to local ones when
	// the remote evaluator fails or reports nothing.
	StrategyPreferRemote Strategy = "prefer-remote"
	// StrategyPreferLocal uses local issues, falling back to remote ones only
	// when the local evaluator cannot run.
	StrategyPreferLocal Strategy = "prefer-local"
	// StrategyMergeBoth concatenates and deduplicates both.
	StrategyMergeBoth Strategy = "merge-both"
)

// ParseStrategy parses a strategy name; empty selects StrategyPreferRemote.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPreferRemote:
		return StrategyPreferRemote, nil
	case StrategyPreferLocal:
		return StrategyPreferLocal, nil
	case StrategyMergeBoth:
		return StrategyMergeBoth, nil
	default:
		return "", fmt.Errorf("unknown evaluation strategy %q", s)
	}
}

// Outcome is the result of running one evaluator. A non-nil Err means the
// evaluator could not run.
type Outcome struct {
	Issues []Issue
	Err    error
}

func (o Outcome) ok() bool {
	return o.Err == nil
}

// Combine merges the two outcomes under strategy and reports which source
// the issues came from.
func Combine(strategy Strategy, remoteOut, localOut Outcome) ([]Issue, Source) {
	switch strategy {
	case StrategyPreferLocal:
		if localOut.ok() {
			return nonNil(localOut.Issues), SourceLocal
		}
		if remoteOut.ok() {
			return nonNil(remoteOut.Issues), SourceRemote
		}
		return []Issue{}, SourceNone

	case StrategyMergeBoth:
		var all []Issue
		if remoteOut.ok() {
			all = append(all, remoteOut.Issues...)
		}
		if localOut.ok() {
			all = append(all, localOut.Issues...)
		}
		source := SourceNone
		switch {
		case remoteOut.ok() && localOut.ok():
			source = SourceMerged
		case remoteOut.ok():
			source = SourceRemote
		case localOut.ok():
			source = SourceLocal
		}
		return dedupe(all), source

	default:
		if remoteOut.ok() && len(remoteOut.Issues) > 0 {
			return remoteOut.Issues, SourceRemote
		}
		if localOut.ok() {
			return nonNil(localOut.Issues), SourceLocal
		}
		if remoteOut.ok() {
			return []Issue{}, SourceRemote
		}
		return []Issue{}, SourceNone
	}
}

func nonNil(issues []Issue) []Issue {
	if issues == nil {
		return []Issue{}
	}
	return issues
}

// Observer is told about every completed evaluation.
type Observer interface {
	ObserveEvaluation(ctx context.Context, overview Overview, duration time.Duration)
}

// EngineConfig holds configuration for the evaluation engine.
type EngineConfig struct {
	// Remote is the compliance service client (optional). Without it every
	// strategy degrades to local evaluation.
	Remote Fetcher

	// Thresholds configures the local evaluator.
	Thresholds Thresholds

	// Observer receives evaluation outcomes (optional).
	Observer Observer

	// Logger for evaluation operations.
	Logger zerolog.Logger
}

// Engine runs the evaluators and assembles reports.
type Engine struct {
	remote   *RemoteEvaluator
	local    *LocalEvaluator
	observer Observer
	logger   zerolog.Logger
}

// NewEngine creates an evaluation engine.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		local:    NewLocalEvaluator(cfg.Thresholds),
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
	if cfg.Remote != nil {
		e.remote = NewRemoteEvaluator(cfg.Remote)
	}
	return e
}

// Local returns the engine's local evaluator.
func (e *Engine) Local() *LocalEvaluator {
	return e.local
}

// Evaluate produces the report for in under strategy. It never fails: an
// unavailable remote evaluator degrades to local issues.
func (e *Engine) Evaluate(ctx context.Context, in Input, strategy Strategy) Report {
	start := time.Now()

	localIssues, localErr := e.local.Evaluate(ctx, in)
	localOut := Outcome{Issues: localIssues, Err: localErr}

	remoteOut := Outcome{Err: ErrNoSchemeID}
	var ev *remote.Evaluation
	if strategy != StrategyPreferLocal || !localOut.ok() {
		ev, remoteOut = e.runRemote(ctx, in)
	}

	issues, source := Combine(strategy, remoteOut, localOut)
	report := Report{
		Issues:       issues,
		Overview:     BuildOverview(issues, source),
		Remediations: []Remediation{},
		PointAlerts:  PointAlerts(issues),
	}
	if source == SourceRemote || source == SourceMerged {
		report.Remediations = Remediations(ev, in.Sequence.Points)
	}

	e.logger.Debug().
		Str("scheme_id", in.SchemeID).
		Str("strategy", string(strategy)).
		Str("source", string(source)).
		Str("status", string(report.Overview.Status)).
		Int("alerts", report.Overview.AlertCount).
		Int("suggestions", report.Overview.SuggestionCount).
		Msg("scheme evaluated")

	if e.observer != nil {
		e.observer.ObserveEvaluation(ctx, report.Overview, time.Since(start))
	}
	return report
}

func (e *Engine) runRemote(ctx context.Context, in Input) (*remote.Evaluation, Outcome) {
	if e.remote == nil {
		return nil, Outcome{Err: fmt.Errorf("remote evaluator not configured: %w", remote.ErrUnavailable)}
	}

	ev, err := e.remote.fetch(ctx, in)
	if errors.Is(err, ErrNoSchemeID) {
		return nil, Outcome{Err: err}
	}
	if err != nil {
		e.logger.Warn().Err(err).
			Str("scheme_id", in.SchemeID).
			Msg("remote evaluation unavailable, using local rules")
		return nil, Outcome{Err: err}
	}
	return ev, Outcome{Issues: NormalizeRemote(ev, in.Sequence.Points)}
}
