package routing

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Recorder receives one observation per resolved leg.
type Recorder interface {
	RecordLookup(ctx context.Context, source string, duration time.Duration)
}

// ResolverConfig holds configuration for the distance resolver.
type ResolverConfig struct {
	// Provider is the road-distance provider. When nil every lookup uses the
	// great-circle fallback.
	Provider Provider

	// Cache persists road distances across restarts (optional).
	Cache PersistentCache

	// Logger for resolver operations.
	Logger zerolog.Logger

	// Metrics records lookup outcomes (optional).
	Metrics Recorder

	// CacheTTL is how long a road distance is served from memory (default: 24 hours).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving old road distances on provider errors (default: 7 days).
	StaleIfErrorTTL time.Duration

	// PersistentTTL is how long a persisted road distance counts as fresh (default: 30 days).
	PersistentTTL time.Duration

	// LookupTimeout bounds a single provider lookup (default: 5 seconds).
	LookupTimeout time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 10 minutes).
	CleanupInterval time.Duration
}

// Resolver resolves leg distances. It never fails: any provider error
// degrades to the great-circle distance.
type Resolver struct {
	provider        Provider
	cache           PersistentCache
	logger          zerolog.Logger
	metrics         Recorder
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	persistentTTL   time.Duration
	lookupTimeout   time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	memory      map[string]*cachedDistance
	lastCleanup time.Time
}

type cachedDistance struct {
	km        float64
	provider  string
	fetchedAt time.Time
	expiresAt time.Time
}

// NewResolver creates a new distance resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 7 * 24 * time.Hour
	}

	persistentTTL := cfg.PersistentTTL
	if persistentTTL == 0 {
		persistentTTL = 30 * 24 * time.Hour
	}

	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout == 0 {
		lookupTimeout = 5 * time.Second
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}

	return &Resolver{
		provider:        cfg.Provider,
		cache:           cfg.Cache,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		persistentTTL:   persistentTTL,
		lookupTimeout:   lookupTimeout,
		cleanupInterval: cleanupInterval,
		memory:          make(map[string]*cachedDistance),
	}
}

// ResolveKm returns the leg distance in kilometers.
func (r *Resolver) ResolveKm(ctx context.Context, from, to Endpoint) float64 {
	return r.Resolve(ctx, from, to).Km
}

// Resolve returns the leg distance together with where it came from.
func (r *Resolver) Resolve(ctx context.Context, from, to Endpoint) Distance {
	start := time.Now()
	d := r.resolve(ctx, from, to)
	if r.metrics != nil {
		r.metrics.RecordLookup(ctx, string(d.Source), time.Since(start))
	}
	return d
}

func (r *Resolver) resolve(ctx context.Context, from, to Endpoint) Distance {
	if from.same(to) {
		return Distance{Km: 0, Source: SourceIdentical}
	}

	if r.provider == nil {
		return r.fallback(from, to, nil)
	}

	key := cacheKey(from, to)

	r.mu.RLock()
	if cached, ok := r.memory[key]; ok && time.Now().Before(cached.expiresAt) {
		r.mu.RUnlock()
		r.logger.Debug().Str("cache_key", key).Msg("cache hit for road distance")
		return Distance{Km: cached.km, Source: SourceCache, Provider: cached.provider}
	}
	r.mu.RUnlock()

	if entry, ok := r.loadPersistent(ctx, key); ok && time.Since(entry.FetchedAt) < r.persistentTTL {
		r.remember(key, entry)
		return Distance{Km: entry.Km, Source: SourcePersistent, Provider: entry.Provider}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	r.logger.Debug().
		Str("from", from.key()).
		Str("to", to.key()).
		Str("provider", r.provider.Name()).
		Msg("fetching road distance from provider")

	km, err := r.provider.RoadDistance(lookupCtx, from, to)
	if err == nil && (math.IsNaN(km) || math.IsInf(km, 0) || km <= 0) {
		err = &Error{
			Provider: r.provider.Name(),
			Code:     "INVALID_DISTANCE",
			Message:  "provider returned a non-positive distance",
			Err:      ErrInvalidResponse,
		}
	}
	if err != nil {
		if stale, ok := r.stale(ctx, key); ok {
			r.logger.Warn().Err(err).
				Str("cache_key", key).
				Time("fetched_at", stale.FetchedAt).
				Msg("serving stale road distance due to provider error")
			return Distance{Km: stale.Km, Source: SourceStale, Provider: stale.Provider}
		}
		return r.fallback(from, to, err)
	}

	entry := CacheEntry{Km: RoundKm(km), Provider: r.provider.Name(), FetchedAt: time.Now()}
	r.remember(key, entry)
	r.storePersistent(ctx, key, entry)

	return Distance{Km: entry.Km, Source: SourceRoad, Provider: entry.Provider}
}

func (r *Resolver) fallback(from, to Endpoint, cause error) Distance {
	km := GreatCircleKm(from, to)
	ev := r.logger.Debug().
		Str("from", from.key()).
		Str("to", to.key()).
		Float64("distance_km", km)
	if cause != nil {
		ev = ev.Err(cause)
	}
	ev.Msg("using great-circle distance")
	return Distance{Km: km, Source: SourceGeodesic}
}

func (r *Resolver) stale(ctx context.Context, key string) (CacheEntry, bool) {
	r.mu.RLock()
	cached, ok := r.memory[key]
	r.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < r.staleIfErrorTTL {
		return CacheEntry{Km: cached.km, Provider: cached.provider, FetchedAt: cached.fetchedAt}, true
	}
	// Persisted distances are kept indefinitely and are preferable to a straight line.
	return r.loadPersistent(ctx, key)
}

func (r *Resolver) loadPersistent(ctx context.Context, key string) (CacheEntry, bool) {
	if r.cache == nil {
		return CacheEntry{}, false
	}
	entry, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to read persisted road distance")
		return CacheEntry{}, false
	}
	return entry, ok
}

func (r *Resolver) storePersistent(ctx context.Context, key string, entry CacheEntry) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, key, entry); err != nil {
		r.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to persist road distance")
	}
}

func (r *Resolver) remember(key string, entry CacheEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memory[key] = &cachedDistance{
		km:        entry.Km,
		provider:  entry.Provider,
		fetchedAt: entry.FetchedAt,
		expiresAt: time.Now().Add(r.cacheTTL),
	}
	r.cleanupIfNeeded()
}

// cleanupIfNeeded removes entries past the stale window. Caller holds mu.
func (r *Resolver) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(r.lastCleanup) < r.cleanupInterval {
		return
	}

	r.lastCleanup = now
	expired := 0

	for key, cached := range r.memory {
		if now.After(cached.fetchedAt.Add(r.staleIfErrorTTL)) {
			delete(r.memory, key)
			expired++
		}
	}

	if expired > 0 {
		r.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired road distance entries")
	}
}

// InvalidateCache clears all in-memory distances.
func (r *Resolver) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory = make(map[string]*cachedDistance)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// CacheStats returns in-memory cache statistics.
func (r *Resolver) CacheStats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	stats := CacheStats{TotalEntries: len(r.memory), Provider: r.ProviderName()}
	for _, c := range r.memory {
		if now.Before(c.expiresAt) {
			stats.FreshEntries++
		} else if now.Before(c.fetchedAt.Add(r.staleIfErrorTTL)) {
			stats.StaleEntries++
		}
	}
	return stats
}

// ProviderName returns the name of the underlying provider, or "geodesic".
func (r *Resolver) ProviderName() string {
	if r.provider == nil {
		return string(SourceGeodesic)
	}
	return r.provider.Name()
}

// cacheKey is direction sensitive: road distances need not be symmetric.
func cacheKey(from, to Endpoint) string {
	return from.key() + ">" + to.key()
}
