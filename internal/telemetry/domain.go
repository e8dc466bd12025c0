package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/luc118i/operacional-app/internal/routing"
	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/scheme"
)

const domainMeterName = "github.com/luc118i/operacional-app/internal/telemetry"

// DomainMetrics records distance lookups, sequence edits and compliance
// evaluations.
type DomainMetrics struct {
	lookupDuration     metric.Float64Histogram
	lookupTotal        metric.Int64Counter
	editTotal          metric.Int64Counter
	evaluationDuration metric.Float64Histogram
	evaluationIssues   metric.Int64Counter
}

var (
	_ routing.Recorder    = (*DomainMetrics)(nil)
	_ scheme.EditObserver = (*DomainMetrics)(nil)
	_ rules.Observer      = (*DomainMetrics)(nil)
)

// NewDomainMetrics creates the domain instruments on the global meter provider.
func NewDomainMetrics() (*DomainMetrics, error) {
	meter := otel.Meter(domainMeterName)

	lookupDuration, err := meter.Float64Histogram(
		"routing.lookup.duration",
		metric.WithDescription("Duration of leg distance lookups in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	lookupTotal, err := meter.Int64Counter(
		"routing.lookup.total",
		metric.WithDescription("Leg distance lookups by source"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	editTotal, err := meter.Int64Counter(
		"scheme.edit.total",
		metric.WithDescription("Sequence edits by operation and outcome"),
		metric.WithUnit("{edit}"),
	)
	if err != nil {
		return nil, err
	}

	evaluationDuration, err := meter.Float64Histogram(
		"rules.evaluation.duration",
		metric.WithDescription("Duration of compliance evaluations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	evaluationIssues, err := meter.Int64Counter(
		"rules.evaluation.issues",
		metric.WithDescription("Compliance issues by severity"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		return nil, err
	}

	return &DomainMetrics{
		lookupDuration:     lookupDuration,
		lookupTotal:        lookupTotal,
		editTotal:          editTotal,
		evaluationDuration: evaluationDuration,
		evaluationIssues:   evaluationIssues,
	}, nil
}

// RecordLookup records one resolved leg.
func (m *DomainMetrics) RecordLookup(ctx context.Context, source string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("routing.source", source),
		attribute.Bool("routing.degraded", source == string(routing.SourceGeodesic)),
	)
	m.lookupDuration.Record(context.WithoutCancel(ctx), duration.Seconds(), attrs)
	m.lookupTotal.Add(context.WithoutCancel(ctx), 1, attrs)
}

// ObserveEdit records one editor operation.
func (m *DomainMetrics) ObserveEdit(ctx context.Context, op string, applied bool) {
	m.editTotal.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("scheme.operation", op),
		attribute.String("scheme.applied", strconv.FormatBool(applied)),
	))
}

// ObserveEvaluation records one compliance evaluation.
func (m *DomainMetrics) ObserveEvaluation(ctx context.Context, overview rules.Overview, duration time.Duration) {
	ctx = context.WithoutCancel(ctx)
	base := []attribute.KeyValue{
		attribute.String("rules.source", string(overview.Source)),
		attribute.String("rules.status", string(overview.Status)),
	}
	m.evaluationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(base...))

	if overview.AlertCount > 0 {
		m.evaluationIssues.Add(ctx, int64(overview.AlertCount), metric.WithAttributes(
			append(base, attribute.String("rules.severity", string(rules.SeverityAlert)))...))
	}
	if overview.SuggestionCount > 0 {
		m.evaluationIssues.Add(ctx, int64(overview.SuggestionCount), metric.WithAttributes(
			append(base, attribute.String("rules.severity", string(rules.SeveritySuggestion)))...))
	}
}
