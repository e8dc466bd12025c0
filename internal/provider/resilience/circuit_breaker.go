// Package resilience wraps calls to upstream collaborators (road distances,
// remote evaluation, waypoint directory) with timeouts, retries and circuit
// breakers, and tracks their health for the ops endpoints.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures the breaker in front of one upstream.
type CircuitBreakerConfig struct {
	Name string
	// MaxRequests is how many probes pass while half-open (default: 1).
	MaxRequests uint32
	// Interval clears the counts while closed; zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing (default: 30s).
	Timeout time.Duration
	// ReadyToTrip decides when to open (default: DefaultReadyToTrip).
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker used by upstream clients.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip opens the breaker after at least 5 requests when half
// or more of them failed. Each retry counts as a request.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return counts.TotalFailures*2 >= counts.Requests
}

func (cfg CircuitBreakerConfig) settings() gobreaker.Settings {
	s := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: cfg.OnStateChange,
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.ReadyToTrip == nil {
		s.ReadyToTrip = DefaultReadyToTrip
	}
	return s
}
