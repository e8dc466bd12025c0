package scheme_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/luc118i/operacional-app/internal/routing"
	"github.com/luc118i/operacional-app/internal/scheme"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

// Waypoints on the equator one degree apart: every consecutive great-circle
// leg is 111.2 km.
var (
	wpA = waypoint.Waypoint{ID: "loc-a", Name: "Terminal A", City: "Alpha", State: "GO", Lat: 0, Lng: 0}
	wpB = waypoint.Waypoint{ID: "loc-b", Name: "Posto B", City: "Bravo", State: "GO", Lat: 0, Lng: 1}
	wpC = waypoint.Waypoint{ID: "loc-c", Name: "Posto C", City: "Charlie", State: "MG", Lat: 0, Lng: 2}
	wpD = waypoint.Waypoint{ID: "loc-d", Name: "Terminal D", City: "Delta", State: "MG", Lat: 0, Lng: 3}
)

type fixedResolver struct {
	mu     sync.Mutex
	km     float64
	calls  int
	onCall func(call int)
}

func (r *fixedResolver) ResolveKm(_ context.Context, _, _ routing.Endpoint) float64 {
	r.mu.Lock()
	r.calls++
	call := r.calls
	hook := r.onCall
	r.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return r.km
}

type countingObserver struct {
	mu      sync.Mutex
	applied map[string]int
	refused map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{applied: map[string]int{}, refused: map[string]int{}}
}

func (o *countingObserver) ObserveEdit(_ context.Context, op string, applied bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if applied {
		o.applied[op]++
	} else {
		o.refused[op]++
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("pt_%d", n)
	}
}

func input(wp waypoint.Waypoint, kind scheme.Kind) scheme.PointInput {
	return scheme.PointInput{Waypoint: wp, Kind: kind}
}

func ids(seq scheme.Sequence) []string {
	out := make([]string, len(seq.Points))
	for i, p := range seq.Points {
		out[i] = p.ID
	}
	return out
}
