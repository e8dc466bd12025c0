package planning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/scheme"
)

// Config holds configuration for the planning service.
type Config struct {
	// Repository persists schemes (required).
	Repository scheme.Repository

	// Resolver resolves leg distances for every editor (optional).
	Resolver scheme.DistanceResolver

	// Engine evaluates drafts (required).
	Engine *rules.Engine

	// Observer receives edit outcomes from every editor (optional).
	Observer scheme.EditObserver

	// Logger for planning operations.
	Logger zerolog.Logger

	// SessionTTL is how long an idle draft is kept (default: 2 hours).
	SessionTTL time.Duration

	// CleanupInterval is how often idle drafts are swept (default: 5 minutes).
	CleanupInterval time.Duration
}

// Service owns the open drafts.
type Service struct {
	repo            scheme.Repository
	resolver        scheme.DistanceResolver
	engine          *rules.Engine
	observer        scheme.EditObserver
	logger          zerolog.Logger
	sessionTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	mu          sync.Mutex
	drafts      map[string]*Draft
	lastCleanup time.Time
}

// NewService creates a new planning service.
func NewService(cfg Config) *Service {
	sessionTTL := cfg.SessionTTL
	if sessionTTL == 0 {
		sessionTTL = 2 * time.Hour
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		repo:            cfg.Repository,
		resolver:        cfg.Resolver,
		engine:          cfg.Engine,
		observer:        cfg.Observer,
		logger:          cfg.Logger,
		sessionTTL:      sessionTTL,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		drafts:          make(map[string]*Draft),
	}
}

func (s *Service) newEditor(initial scheme.Sequence) *scheme.Editor {
	return scheme.NewEditor(scheme.EditorConfig{
		Resolver: s.resolver,
		Initial:  initial,
		Observer: s.observer,
		Logger:   s.logger,
	})
}

func (s *Service) register(d *Draft) *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[d.ID] = d
	s.cleanupIfNeeded()
	return d
}

// NewDraft opens an empty draft.
func (s *Service) NewDraft(h Header) *Draft {
	now := s.now()
	d := &Draft{
		ID:        "drf_" + uuid.NewString(),
		Editor:    s.newEditor(scheme.Sequence{}),
		CreatedAt: now,
		header:    h,
		lastUsed:  now,
	}

	s.logger.Info().Str("draft_id", d.ID).Msg("draft created")
	return s.register(d)
}

// Open loads a saved scheme into a new draft.
func (s *Service) Open(ctx context.Context, schemeID string) (*Draft, error) {
	d, err := s.load(ctx, schemeID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("draft_id", d.ID).
		Str("scheme_id", schemeID).
		Int("points", d.Editor.Snapshot().Len()).
		Msg("scheme opened for editing")
	return s.register(d), nil
}

func (s *Service) load(ctx context.Context, schemeID string) (*Draft, error) {
	sch, err := s.repo.Get(ctx, schemeID)
	if err != nil {
		return nil, fmt.Errorf("load scheme %s: %w", schemeID, err)
	}

	now := s.now()
	return &Draft{
		ID:        "drf_" + uuid.NewString(),
		Editor:    s.newEditor(sch.Sequence()),
		CreatedAt: now,
		header: Header{
			LineCode:  sch.LineCode,
			LineName:  sch.LineName,
			Direction: sch.Direction,
		},
		schemeID: sch.ID,
		lastUsed: now,
	}, nil
}

// Draft returns an open draft and marks it as used.
func (s *Service) Draft(id string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupIfNeeded()
	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	d.touch(s.now())
	return d, nil
}

// Close discards a draft.
func (s *Service) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
}

// Len returns the number of open drafts.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// cleanupIfNeeded drops drafts idle for longer than the session TTL. Caller holds mu.
func (s *Service) cleanupIfNeeded() {
	now := s.now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for id, d := range s.drafts {
		if now.Sub(d.idleSince()) > s.sessionTTL {
			delete(s.drafts, id)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug().Int("expired_drafts", expired).Msg("cleaned up idle drafts")
	}
}

// Save persists a draft as a scheme, creating it on first save.
func (s *Service) Save(ctx context.Context, id string) (*scheme.Scheme, error) {
	d, err := s.Draft(id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, d)
}

func (s *Service) save(ctx context.Context, d *Draft) (*scheme.Scheme, error) {
	h := d.Header()
	if err := h.Validate(); err != nil {
		return nil, err
	}

	seq := d.Editor.Snapshot()
	if seq.Len() == 0 {
		return nil, fmt.Errorf("%w: no points", ErrIncompleteDraft)
	}
	if seq.AnchorClock == "" {
		return nil, fmt.Errorf("%w: the anchor has no departure time", ErrIncompleteDraft)
	}

	schemeID := d.SchemeID()
	if schemeID == "" {
		schemeID = "sch_" + uuid.NewString()
	}

	sch := &scheme.Scheme{
		ID:        schemeID,
		LineCode:  h.LineCode,
		LineName:  h.LineName,
		Direction: h.Direction,
		TripTime:  seq.AnchorClock,
		Points:    seq.Points,
	}
	if err := s.repo.Save(ctx, sch); err != nil {
		return nil, fmt.Errorf("save scheme %s: %w", schemeID, err)
	}

	d.mu.Lock()
	d.schemeID = schemeID
	d.mu.Unlock()

	s.logger.Info().
		Str("draft_id", d.ID).
		Str("scheme_id", schemeID).
		Int("points", seq.Len()).
		Float64("total_km", seq.TotalKm()).
		Msg("scheme saved")
	return sch, nil
}

// Evaluate produces the compliance report of a draft's current sequence.
func (s *Service) Evaluate(ctx context.Context, id string, strategy rules.Strategy) (rules.Report, error) {
	d, err := s.Draft(id)
	if err != nil {
		return rules.Report{}, err
	}
	return s.evaluate(ctx, d, strategy), nil
}

func (s *Service) evaluate(ctx context.Context, d *Draft, strategy rules.Strategy) rules.Report {
	return s.engine.Evaluate(ctx, rules.Input{
		SchemeID: d.SchemeID(),
		Sequence: d.Editor.Snapshot(),
	}, strategy)
}

// Summary summarizes a draft's current sequence.
func (s *Service) Summary(id string) (scheme.Summary, error) {
	d, err := s.Draft(id)
	if err != nil {
		return scheme.Summary{}, err
	}
	return scheme.Summarize(d.Editor.Snapshot()), nil
}

// Reevaluate reloads a saved scheme, refreshes every leg distance, saves the
// result and evaluates it. The scheme is not left open as a draft.
func (s *Service) Reevaluate(ctx context.Context, schemeID string) (rules.Report, error) {
	d, err := s.load(ctx, schemeID)
	if err != nil {
		return rules.Report{}, err
	}

	if _, err := d.Editor.RefreshDistances(ctx); err != nil {
		return rules.Report{}, fmt.Errorf("refresh distances for %s: %w", schemeID, err)
	}

	if _, err := s.save(ctx, d); err != nil {
		return rules.Report{}, err
	}

	report := s.evaluate(ctx, d, rules.StrategyPreferRemote)
	s.logger.Info().
		Str("scheme_id", schemeID).
		Str("status", string(report.Overview.Status)).
		Str("source", string(report.Overview.Source)).
		Msg("scheme re-evaluated")
	return report, nil
}
