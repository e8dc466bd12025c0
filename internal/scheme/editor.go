package scheme

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/routing"
)

// DistanceResolver resolves road distances. Implementations never fail; they
// degrade to a straight-line estimate.
type DistanceResolver interface {
	ResolveKm(ctx context.Context, from, to routing.Endpoint) float64
}

// EditObserver is told about every edit attempt.
type EditObserver interface {
	ObserveEdit(ctx context.Context, op string, applied bool)
}

type geodesicResolver struct{}

func (geodesicResolver) ResolveKm(_ context.Context, from, to routing.Endpoint) float64 {
	return routing.GreatCircleKm(from, to)
}

// EditorConfig holds configuration for an Editor.
type EditorConfig struct {
	// Resolver resolves leg distances on append and refresh (default: great-circle only).
	Resolver DistanceResolver

	// Initial is the starting sequence. It is recomputed on construction.
	Initial Sequence

	// Observer receives edit outcomes (optional).
	Observer EditObserver

	// Logger for editor operations.
	Logger zerolog.Logger

	// NewID generates point ids (default: "pt_" + uuid).
	NewID func() string
}

// Editor owns one route point sequence and applies structural edits to it.
// Every applied edit replaces the sequence wholesale and fully recomputes it.
// Refused edits return an error wrapping ErrInvalidMutation together with the
// unchanged sequence.
type Editor struct {
	resolver DistanceResolver
	observer EditObserver
	logger   zerolog.Logger
	newID    func() string

	mu  sync.Mutex
	seq Sequence
}

// NewEditor creates an editor over cfg.Initial.
func NewEditor(cfg EditorConfig) *Editor {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = geodesicResolver{}
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return "pt_" + uuid.NewString() }
	}

	initial := cfg.Initial.clone()
	if len(initial.Points) > 0 {
		initial.Points = Recompute(initial.Points, initial.AnchorClock)
	}

	return &Editor{
		resolver: resolver,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		newID:    newID,
		seq:      initial,
	}
}

// Snapshot returns a copy of the current sequence.
func (e *Editor) Snapshot() Sequence {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq.clone()
}

// Append adds a point at the end. When the input carries no leg distance it is
// resolved from the current last point; drive time is estimated when absent.
func (e *Editor) Append(ctx context.Context, in PointInput) (Sequence, error) {
	base := e.Snapshot()
	p := in.toPoint(e.newID())
	p.IsAnchor = false

	if n := len(base.Points); n > 0 {
		last := base.Points[n-1]
		if !usableKm(p.LegKm) {
			p.LegKm = e.resolver.ResolveKm(ctx, last.Waypoint.Endpoint(), p.Waypoint.Endpoint())
		}
		p.LegFrom = last.Waypoint.ID
		if p.DriveMin <= 0 {
			p.DriveMin = EstimateDriveMinutes(p.LegKm, p.CustomSpeedKmh)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seq.Version != base.Version {
		// The resolved leg belongs to a predecessor that may be gone.
		e.logger.Debug().
			Uint64("resolved_version", base.Version).
			Uint64("current_version", e.seq.Version).
			Msg("discarding superseded distance for appended point")
		p.LegKm = in.LegKm
		p.DriveMin = in.DriveMin
		p.LegFrom = ""
	}

	points := append(clonePoints(e.seq.Points), p)
	return e.commitLocked(ctx, "append", points, e.seq.AnchorClock), nil
}

// InsertAfter inserts a point right after the point with the given id. Its
// leg is resolved on recompute with the great-circle fallback.
func (e *Editor) InsertAfter(ctx context.Context, id string, in PointInput) (Sequence, error) {
	return e.mutate(ctx, "insert_after", func(points []RoutePoint, clock string) ([]RoutePoint, string, error) {
		i := indexOf(points, id)
		if i < 0 {
			return nil, "", ErrPointNotFound
		}

		p := in.toPoint(e.newID())
		p.IsAnchor = false
		if usableKm(p.LegKm) {
			p.LegFrom = points[i].Waypoint.ID
		}

		out := make([]RoutePoint, 0, len(points)+1)
		out = append(out, points[:i+1]...)
		out = append(out, p)
		out = append(out, points[i+1:]...)
		return out, clock, nil
	})
}

// Update merges the patch into the point with the given id.
func (e *Editor) Update(ctx context.Context, id string, patch PointPatch) (Sequence, error) {
	return e.mutate(ctx, "update", func(points []RoutePoint, clock string) ([]RoutePoint, string, error) {
		i := indexOf(points, id)
		if i < 0 {
			return nil, "", ErrPointNotFound
		}
		points[i] = applyPatch(points, i, patch)
		return points, clock, nil
	})
}

func applyPatch(points []RoutePoint, i int, patch PointPatch) RoutePoint {
	p := points[i]

	if patch.Waypoint != nil && patch.Waypoint.ID != p.Waypoint.ID {
		p.Waypoint = *patch.Waypoint
		// The stored leg was measured to the old waypoint.
		p.LegKm = 0
		p.DriveMin = 0
	} else if patch.Waypoint != nil {
		p.Waypoint = *patch.Waypoint
	}

	if patch.Kind != nil && *patch.Kind != p.Kind {
		// Functions still at the old kind's defaults follow the new kind.
		if patch.Functions == nil && sameFunctions(p.Functions, DefaultFunctions(p.Kind)) {
			p.Functions = nil
		}
		p.Kind = *patch.Kind
	}
	if patch.Functions != nil {
		p.Functions = append([]Function(nil), (*patch.Functions)...)
	}

	if patch.LegKm != nil {
		p.LegKm = *patch.LegKm
		if i > 0 {
			p.LegFrom = points[i-1].Waypoint.ID
		}
		if patch.DriveMin == nil {
			p.DriveMin = 0
		}
	}
	if patch.DriveMin != nil {
		p.DriveMin = *patch.DriveMin
	}
	if patch.CustomSpeedKmh != nil {
		p.CustomSpeedKmh = *patch.CustomSpeedKmh
		if patch.DriveMin == nil {
			p.DriveMin = 0
		}
	}
	if patch.DwellMin != nil {
		p.DwellMin = *patch.DwellMin
	}
	if patch.Justification != nil {
		p.Justification = strings.TrimSpace(*patch.Justification)
	}

	return Normalize(p)
}

// Delete removes the point with the given id. Removing the anchor promotes
// the new first point.
func (e *Editor) Delete(ctx context.Context, id string) (Sequence, error) {
	return e.mutate(ctx, "delete", func(points []RoutePoint, clock string) ([]RoutePoint, string, error) {
		i := indexOf(points, id)
		if i < 0 {
			return nil, "", ErrPointNotFound
		}
		return append(points[:i], points[i+1:]...), clock, nil
	})
}

// MoveUp swaps the point with its predecessor.
func (e *Editor) MoveUp(ctx context.Context, id string) (Sequence, error) {
	return e.move(ctx, "move_up", id, -1)
}

// MoveDown swaps the point with its successor.
func (e *Editor) MoveDown(ctx context.Context, id string) (Sequence, error) {
	return e.move(ctx, "move_down", id, 1)
}

func (e *Editor) move(ctx context.Context, op, id string, delta int) (Sequence, error) {
	return e.mutate(ctx, op, func(points []RoutePoint, clock string) ([]RoutePoint, string, error) {
		i := indexOf(points, id)
		if i < 0 {
			return nil, "", ErrPointNotFound
		}
		if points[i].IsAnchor {
			return nil, "", ErrAnchorLocked
		}
		j := i + delta
		if j < 0 || j >= len(points) {
			return nil, "", ErrOutOfBounds
		}
		points[i], points[j] = points[j], points[i]
		return points, clock, nil
	})
}

// SetAnchor makes the point with the given id the anchor, departing at clock.
func (e *Editor) SetAnchor(ctx context.Context, id, clock string) (Sequence, error) {
	return e.mutate(ctx, "set_anchor", func(points []RoutePoint, _ string) ([]RoutePoint, string, error) {
		clock = strings.TrimSpace(clock)
		if clock == "" {
			return nil, "", ErrMissingClock
		}
		minutes, err := ParseClock(clock)
		if err != nil {
			return nil, "", ErrInvalidClock
		}
		i := indexOf(points, id)
		if i < 0 {
			return nil, "", ErrPointNotFound
		}
		for k := range points {
			points[k].IsAnchor = k == i
		}
		return points, FormatClock(minutes), nil
	})
}

// RefreshDistances re-resolves every leg through the resolver and re-estimates
// every drive time. If another edit lands while distances are resolving, the
// results are discarded and ErrSuperseded is returned.
func (e *Editor) RefreshDistances(ctx context.Context) (Sequence, error) {
	base := e.Snapshot()

	points := base.Points
	for i := 1; i < len(points); i++ {
		if err := ctx.Err(); err != nil {
			e.observe(ctx, "refresh_distances", false)
			return e.Snapshot(), err
		}
		prev, p := points[i-1], &points[i]
		p.LegKm = e.resolver.ResolveKm(ctx, prev.Waypoint.Endpoint(), p.Waypoint.Endpoint())
		p.LegFrom = prev.Waypoint.ID
		p.DriveMin = EstimateDriveMinutes(p.LegKm, p.CustomSpeedKmh)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seq.Version != base.Version {
		e.logger.Debug().
			Uint64("resolved_version", base.Version).
			Uint64("current_version", e.seq.Version).
			Msg("discarding superseded distance refresh")
		e.observe(ctx, "refresh_distances", false)
		return e.seq.clone(), ErrSuperseded
	}

	return e.commitLocked(ctx, "refresh_distances", points, e.seq.AnchorClock), nil
}

type mutation func(points []RoutePoint, anchorClock string) ([]RoutePoint, string, error)

func (e *Editor) mutate(ctx context.Context, op string, fn mutation) (Sequence, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	points, clock, err := fn(clonePoints(e.seq.Points), e.seq.AnchorClock)
	if err != nil {
		if errors.Is(err, ErrInvalidMutation) {
			e.logger.Debug().Err(err).Str("op", op).Msg("edit refused")
		}
		e.observe(ctx, op, false)
		return e.seq.clone(), err
	}

	return e.commitLocked(ctx, op, points, clock), nil
}

// commitLocked installs the recomputed sequence. Caller holds mu.
func (e *Editor) commitLocked(ctx context.Context, op string, points []RoutePoint, clock string) Sequence {
	next := Sequence{AnchorClock: clock, Version: e.seq.Version + 1}
	if len(points) > 0 {
		next.Points = Recompute(points, clock)
	} else {
		next.Points = []RoutePoint{}
	}
	e.seq = next

	e.logger.Debug().
		Str("op", op).
		Int("points", len(next.Points)).
		Uint64("version", next.Version).
		Msg("sequence updated")
	e.observe(ctx, op, true)

	return next.clone()
}

func (e *Editor) observe(ctx context.Context, op string, applied bool) {
	if e.observer != nil {
		e.observer.ObserveEdit(ctx, op, applied)
	}
}
