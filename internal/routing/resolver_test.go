package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockProvider is a mock road-distance provider for testing.
type mockProvider struct {
	name      string
	km        float64
	err       error
	callCount atomic.Int32
}

func (m *mockProvider) RoadDistance(ctx context.Context, from, to Endpoint) (float64, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return 0, m.err
	}
	return m.km, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
}

func (c *memoryCache) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *memoryCache) Put(_ context.Context, key string, entry CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

type recorder struct {
	mu      sync.Mutex
	sources []string
}

func (r *recorder) RecordLookup(_ context.Context, source string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

var (
	saoPaulo = Endpoint{WaypointID: "loc-sp", Lat: -23.5505, Lon: -46.6333}
	rio      = Endpoint{WaypointID: "loc-rj", Lat: -22.9068, Lon: -43.1729}
)

func TestGreatCircleKm(t *testing.T) {
	if got := GreatCircleKm(saoPaulo, rio); got != 360.7 {
		t.Errorf("expected 360.7 km, got %v", got)
	}
	if got := GreatCircleKm(Endpoint{Lat: 0, Lon: 0}, Endpoint{Lat: 0, Lon: 1}); got != 111.2 {
		t.Errorf("expected 111.2 km, got %v", got)
	}
	if got := GreatCircleKm(saoPaulo, saoPaulo); got != 0 {
		t.Errorf("expected 0 km for identical points, got %v", got)
	}
}

func TestResolver_RoadLookupCached(t *testing.T) {
	provider := &mockProvider{name: "road-segments", km: 429.04}
	rec := &recorder{}
	resolver := NewResolver(ResolverConfig{Provider: provider, Metrics: rec})

	first := resolver.Resolve(context.Background(), saoPaulo, rio)
	second := resolver.Resolve(context.Background(), saoPaulo, rio)

	if first.Km != 429.0 || first.Source != SourceRoad {
		t.Errorf("expected road distance 429.0, got %+v", first)
	}
	if second.Source != SourceCache || second.Km != 429.0 {
		t.Errorf("expected cached distance, got %+v", second)
	}
	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
	if len(rec.sources) != 2 || rec.sources[0] != "road" || rec.sources[1] != "cache" {
		t.Errorf("unexpected recorded sources %v", rec.sources)
	}
}

func TestResolver_DirectionSensitive(t *testing.T) {
	provider := &mockProvider{name: "road-segments", km: 430}
	resolver := NewResolver(ResolverConfig{Provider: provider})

	resolver.ResolveKm(context.Background(), saoPaulo, rio)
	resolver.ResolveKm(context.Background(), rio, saoPaulo)

	if provider.callCount.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.callCount.Load())
	}
}

func TestResolver_FallbackOnError(t *testing.T) {
	provider := &mockProvider{name: "road-segments", err: &Error{
		Provider: "road-segments",
		Code:     "SERVER_503",
		Message:  "unavailable",
		Err:      ErrProviderUnavailable,
	}}
	resolver := NewResolver(ResolverConfig{Provider: provider})

	d := resolver.Resolve(context.Background(), saoPaulo, rio)

	if d.Source != SourceGeodesic || !d.Degraded() {
		t.Errorf("expected geodesic fallback, got %+v", d)
	}
	if d.Km != 360.7 {
		t.Errorf("expected 360.7 km, got %v", d.Km)
	}
}

func TestResolver_FallbackOnInvalidDistance(t *testing.T) {
	for _, km := range []float64{0, -12} {
		provider := &mockProvider{name: "road-segments", km: km}
		resolver := NewResolver(ResolverConfig{Provider: provider})

		if got := resolver.ResolveKm(context.Background(), saoPaulo, rio); got != 360.7 {
			t.Errorf("km=%v: expected geodesic 360.7, got %v", km, got)
		}
	}
}

func TestResolver_NoProvider(t *testing.T) {
	resolver := NewResolver(ResolverConfig{})

	if got := resolver.ResolveKm(context.Background(), saoPaulo, rio); got != 360.7 {
		t.Errorf("expected 360.7, got %v", got)
	}
	if resolver.ProviderName() != "geodesic" {
		t.Errorf("expected geodesic provider name, got %s", resolver.ProviderName())
	}
}

func TestResolver_IdenticalWaypoints(t *testing.T) {
	provider := &mockProvider{name: "road-segments", km: 10}
	resolver := NewResolver(ResolverConfig{Provider: provider})

	d := resolver.Resolve(context.Background(), saoPaulo, saoPaulo)

	if d.Km != 0 || d.Source != SourceIdentical {
		t.Errorf("expected identical 0 km, got %+v", d)
	}
	if provider.callCount.Load() != 0 {
		t.Errorf("expected no provider call")
	}
}

func TestResolver_StaleIfError(t *testing.T) {
	provider := &mockProvider{name: "road-segments", km: 431}
	resolver := NewResolver(ResolverConfig{
		Provider: provider,
		CacheTTL: time.Millisecond,
	})

	resolver.ResolveKm(context.Background(), saoPaulo, rio)
	time.Sleep(5 * time.Millisecond)

	provider.err = errors.New("connection refused")
	d := resolver.Resolve(context.Background(), saoPaulo, rio)

	if d.Source != SourceStale || d.Km != 431 {
		t.Errorf("expected stale 431 km, got %+v", d)
	}
}

func TestResolver_PersistentCache(t *testing.T) {
	cache := &memoryCache{entries: map[string]CacheEntry{}}
	provider := &mockProvider{name: "road-segments", km: 432}

	warm := NewResolver(ResolverConfig{Provider: provider, Cache: cache})
	warm.ResolveKm(context.Background(), saoPaulo, rio)

	cold := NewResolver(ResolverConfig{Provider: provider, Cache: cache})
	d := cold.Resolve(context.Background(), saoPaulo, rio)

	if d.Source != SourcePersistent || d.Km != 432 {
		t.Errorf("expected persisted 432 km, got %+v", d)
	}
	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
}

func TestResolver_ConcurrentLookups(t *testing.T) {
	provider := &mockProvider{name: "road-segments", km: 433}
	resolver := NewResolver(ResolverConfig{Provider: provider})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := resolver.ResolveKm(context.Background(), saoPaulo, rio); got != 433 {
				t.Errorf("expected 433, got %v", got)
			}
		}()
	}
	wg.Wait()

	stats := resolver.CacheStats()
	if stats.TotalEntries != 1 || stats.FreshEntries != 1 {
		t.Errorf("unexpected cache stats %+v", stats)
	}
}

func TestResolver_InvalidateCache(t *testing.T) {
	provider := &mockProvider{name: "road-segments", km: 434}
	resolver := NewResolver(ResolverConfig{Provider: provider})

	resolver.ResolveKm(context.Background(), saoPaulo, rio)
	resolver.InvalidateCache()
	resolver.ResolveKm(context.Background(), saoPaulo, rio)

	if provider.callCount.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.callCount.Load())
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey(saoPaulo, rio); got != "loc-sp>loc-rj" {
		t.Errorf("unexpected key %q", got)
	}
	anon := Endpoint{Lat: -15.79390, Lon: -47.88280}
	if got := cacheKey(anon, rio); got != "-15.79390,-47.88280>loc-rj" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestError_IsRetryable(t *testing.T) {
	retryable := &Error{Err: ErrRateLimitExceeded}
	if !retryable.IsRetryable() {
		t.Error("rate limit should be retryable")
	}
	final := &Error{Err: ErrNoRouteFound, Message: "no route"}
	if final.IsRetryable() {
		t.Error("no route should not be retryable")
	}
	if !errors.Is(final, ErrNoRouteFound) {
		t.Error("expected errors.Is to unwrap")
	}
}
