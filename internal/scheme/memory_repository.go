package scheme

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/luc118i/operacional-app/internal/waypoint"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Points are kept as persistence records so loading goes through the same
// decode path as the database.
type InMemoryRepository struct {
	mu        sync.RWMutex
	headers   map[string]Scheme
	records   map[string][]PointRecord
	waypoints map[string]waypoint.Waypoint
}

// NewInMemoryRepository creates a new in-memory scheme repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		headers:   make(map[string]Scheme),
		records:   make(map[string][]PointRecord),
		waypoints: make(map[string]waypoint.Waypoint),
	}
}

// Get retrieves a scheme by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Scheme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	header, ok := r.headers[id]
	if !ok {
		return nil, ErrSchemeNotFound
	}

	s := header
	s.Points = DecodeRecords(r.records[id], r.waypoints)
	return &s, nil
}

// List retrieves scheme headers ordered by most recently updated.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]*Scheme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var schemes []*Scheme
	for _, h := range r.headers {
		if opts.LineCode != "" && h.LineCode != opts.LineCode {
			continue
		}
		cpy := h
		schemes = append(schemes, &cpy)
	}

	sort.Slice(schemes, func(i, j int) bool {
		return schemes[i].UpdatedAt.After(schemes[j].UpdatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(schemes) > limit {
		schemes = schemes[:limit]
	}
	return schemes, nil
}

// Save creates or replaces a scheme.
func (r *InMemoryRepository) Save(_ context.Context, s *Scheme) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	header := *s
	header.Points = nil
	if existing, ok := r.headers[s.ID]; ok {
		header.CreatedAt = existing.CreatedAt
	} else if header.CreatedAt.IsZero() {
		header.CreatedAt = now
	}
	header.UpdatedAt = now

	r.headers[s.ID] = header
	r.records[s.ID] = EncodeRecords(s.ID, s.Points)
	for _, p := range s.Points {
		r.waypoints[p.Waypoint.ID] = p.Waypoint
	}

	s.CreatedAt = header.CreatedAt
	s.UpdatedAt = header.UpdatedAt
	return nil
}

// Delete deletes a scheme by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.headers, id)
	delete(r.records, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
