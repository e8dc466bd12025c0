// Package worker provides background job processing for saved route schemes.
package worker

import (
	"time"
)

// ReevaluateConfig holds configuration for the re-evaluation job.
type ReevaluateConfig struct {
	// Concurrency is the number of schemes re-evaluated at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the re-evaluation of a single scheme, distance lookups
	// and remote evaluation included.
	// Default: 60 seconds
	Timeout time.Duration

	// BatchLimit caps how many schemes a line-wide job lists.
	// Default: 500
	BatchLimit int

	// FailureRatio is the share of failed schemes above which a batch is
	// reported as failed and its message redelivered.
	// Default: 0.5
	FailureRatio float64
}

// DefaultReevaluateConfig returns the default re-evaluation configuration.
func DefaultReevaluateConfig() ReevaluateConfig {
	return ReevaluateConfig{
		Concurrency:  3,
		Timeout:      60 * time.Second,
		BatchLimit:   500,
		FailureRatio: 0.5,
	}
}

func (c ReevaluateConfig) withDefaults() ReevaluateConfig {
	d := DefaultReevaluateConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = d.BatchLimit
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = d.FailureRatio
	}
	return c
}
