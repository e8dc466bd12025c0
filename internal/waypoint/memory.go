package waypoint

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryDirectory is an in-memory Directory used in tests and local development.
type MemoryDirectory struct {
	mu        sync.RWMutex
	waypoints map[string]Waypoint
}

var _ Directory = (*MemoryDirectory)(nil)

// NewMemoryDirectory creates a directory seeded with the given waypoints.
func NewMemoryDirectory(seed ...Waypoint) *MemoryDirectory {
	d := &MemoryDirectory{waypoints: make(map[string]Waypoint, len(seed))}
	for _, w := range seed {
		d.waypoints[w.ID] = w
	}
	return d
}

// Put adds or replaces a waypoint.
func (d *MemoryDirectory) Put(w Waypoint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waypoints[w.ID] = w
}

// Search matches the query against code, name and city, case-insensitively.
func (d *MemoryDirectory) Search(_ context.Context, query string, limit int) ([]Waypoint, error) {
	q, ok := normalizeQuery(query)
	if !ok {
		return []Waypoint{}, nil
	}
	q = strings.ToLower(q)
	limit = normalizeLimit(limit)

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Waypoint, 0)
	for _, w := range d.waypoints {
		if strings.Contains(strings.ToLower(w.Code), q) ||
			strings.Contains(strings.ToLower(w.Name), q) ||
			strings.Contains(strings.ToLower(w.City), q) {
			out = append(out, w)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a waypoint by id.
func (d *MemoryDirectory) Get(_ context.Context, id string) (*Waypoint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	w, ok := d.waypoints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}
