package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/scheme"
)

// Reevaluator refreshes, saves and evaluates one saved scheme.
type Reevaluator interface {
	Reevaluate(ctx context.Context, schemeID string) (rules.Report, error)
}

// SchemeLister lists saved schemes.
type SchemeLister interface {
	List(ctx context.Context, opts scheme.ListOptions) ([]*scheme.Scheme, error)
}

// ReevaluateJob re-evaluates saved schemes with a bounded worker pool.
type ReevaluateJob struct {
	config      ReevaluateConfig
	reevaluator Reevaluator
	lister      SchemeLister
	logger      zerolog.Logger

	metrics *ReevaluateMetrics
}

// ReevaluateMetrics tracks re-evaluation job statistics.
type ReevaluateMetrics struct {
	mu sync.RWMutex

	Runs      int64
	Evaluated int64
	Failed    int64
	NotFound  int64

	// Outcome of successful evaluations.
	StatusCounts map[rules.Status]int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// ReevaluateJobConfig holds configuration for creating a ReevaluateJob.
type ReevaluateJobConfig struct {
	Config      ReevaluateConfig
	Reevaluator Reevaluator
	// Lister enables line-wide jobs (optional).
	Lister SchemeLister
	Logger zerolog.Logger
}

// NewReevaluateJob creates a new re-evaluation job processor.
func NewReevaluateJob(cfg ReevaluateJobConfig) *ReevaluateJob {
	return &ReevaluateJob{
		config:      cfg.Config.withDefaults(),
		reevaluator: cfg.Reevaluator,
		lister:      cfg.Lister,
		logger:      cfg.Logger,
		metrics:     &ReevaluateMetrics{StatusCounts: make(map[rules.Status]int64)},
	}
}

// ReevaluateResult contains the result of a batch.
type ReevaluateResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Total     int
	Evaluated int
	Failed    int
	// NotFound counts schemes deleted before the job reached them. They are
	// neither evaluated nor failed.
	NotFound int
	Statuses map[string]rules.Status
	Errors   []SchemeError
}

// SchemeError is the failure of one scheme in a batch.
type SchemeError struct {
	SchemeID string
	Error    string
}

// Failing reports whether the share of failures exceeds ratio.
func (r *ReevaluateResult) Failing(ratio float64) bool {
	if r.Total == 0 || r.Failed == 0 {
		return false
	}
	return float64(r.Failed)/float64(r.Total) > ratio
}

// Run re-evaluates the given schemes. Duplicate ids are processed once.
func (j *ReevaluateJob) Run(ctx context.Context, schemeIDs []string) *ReevaluateResult {
	startTime := time.Now()
	ids := dedupe(schemeIDs)
	result := &ReevaluateResult{
		StartTime: startTime,
		Total:     len(ids),
		Statuses:  make(map[string]rules.Status, len(ids)),
	}

	j.logger.Info().
		Int("schemes", result.Total).
		Int("concurrency", j.config.Concurrency).
		Msg("starting scheme re-evaluation")

	idsChan := make(chan string, len(ids))
	resultsChan := make(chan schemeResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.worker(ctx, idsChan, resultsChan)
		}()
	}

	for _, id := range ids {
		idsChan <- id
	}
	close(idsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for sr := range resultsChan {
		switch {
		case sr.err == nil:
			result.Evaluated++
			result.Statuses[sr.schemeID] = sr.status
		case errors.Is(sr.err, scheme.ErrSchemeNotFound):
			result.NotFound++
		default:
			result.Failed++
			result.Errors = append(result.Errors, SchemeError{SchemeID: sr.schemeID, Error: sr.err.Error()})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("evaluated", result.Evaluated).
		Int("failed", result.Failed).
		Int("not_found", result.NotFound).
		Msg("scheme re-evaluation completed")

	return result
}

// RunLine re-evaluates every saved scheme of a line, or every saved scheme
// when lineCode is empty.
func (j *ReevaluateJob) RunLine(ctx context.Context, lineCode string) (*ReevaluateResult, error) {
	if j.lister == nil {
		return nil, errors.New("line re-evaluation requires a scheme lister")
	}

	schemes, err := j.lister.List(ctx, scheme.ListOptions{LineCode: lineCode, Limit: j.config.BatchLimit})
	if err != nil {
		return nil, fmt.Errorf("list schemes for line %q: %w", lineCode, err)
	}

	ids := make([]string, 0, len(schemes))
	for _, s := range schemes {
		ids = append(ids, s.ID)
	}
	return j.Run(ctx, ids), nil
}

type schemeResult struct {
	schemeID string
	status   rules.Status
	err      error
}

func (j *ReevaluateJob) worker(ctx context.Context, ids <-chan string, results chan<- schemeResult) {
	for id := range ids {
		select {
		case <-ctx.Done():
			results <- schemeResult{schemeID: id, err: ctx.Err()}
		default:
			results <- j.reevaluate(ctx, id)
		}
	}
}

func (j *ReevaluateJob) reevaluate(ctx context.Context, schemeID string) schemeResult {
	schemeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	report, err := j.reevaluator.Reevaluate(schemeCtx, schemeID)
	if err != nil {
		j.logger.Warn().Err(err).Str("scheme_id", schemeID).Msg("scheme re-evaluation failed")
		return schemeResult{schemeID: schemeID, err: err}
	}
	return schemeResult{schemeID: schemeID, status: report.Overview.Status}
}

func (j *ReevaluateJob) updateMetrics(result *ReevaluateResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.Runs++
	j.metrics.Evaluated += int64(result.Evaluated)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.NotFound += int64(result.NotFound)
	for _, status := range result.Statuses {
		j.metrics.StatusCounts[status]++
	}
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ReevaluateJob) MetricsSnapshot() map[string]interface{} {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	statuses := make(map[string]int64, len(j.metrics.StatusCounts))
	for status, n := range j.metrics.StatusCounts {
		statuses[string(status)] = n
	}
	return map[string]interface{}{
		"runs":              j.metrics.Runs,
		"evaluated":         j.metrics.Evaluated,
		"failed":            j.metrics.Failed,
		"not_found":         j.metrics.NotFound,
		"statuses":          statuses,
		"last_run_at":       j.metrics.LastRunAt,
		"last_run_duration": j.metrics.LastRunDuration.String(),
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
