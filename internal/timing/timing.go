// Package timing holds the pacing primitives shared by the typing, replay and
// polling loops. Every wait in the authentication flow goes through a Sleeper
// so tests can record delays instead of spending them.
package timing

import (
	"context"
	"math/rand"
	"time"
)

// Sleeper pauses the calling goroutine for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ContextSleeper is the production Sleeper backed by a timer.
type ContextSleeper struct{}

// Sleep blocks for d. A non-positive d returns immediately (clamp to zero).
func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Range is a half-open duration interval [Min, Max).
type Range struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// Seconds builds a Range from fractional seconds.
func Seconds(min, max float64) Range {
	return Range{
		Min: time.Duration(min * float64(time.Second)),
		Max: time.Duration(max * float64(time.Second)),
	}
}

// Draw returns a uniformly distributed duration in [Min, Max).
// A degenerate range (Max <= Min) always yields Min.
func (r Range) Draw(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int63n(int64(r.Max-r.Min)))
}

// Contains reports whether d lies within [Min, Max).
func (r Range) Contains(d time.Duration) bool {
	if r.Max <= r.Min {
		return d == r.Min
	}
	return d >= r.Min && d < r.Max
}

// NewRand returns a time-seeded source when seed is zero, otherwise a
// deterministic one.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
