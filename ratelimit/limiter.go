// Package ratelimit throttles outbound requests to a fixed number of grants
// per second shared by every caller in the process.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultRate is the TMDB request budget used when no rate is configured.
const DefaultRate = 40

// Limiter spaces grants at least 1/R apart across all callers.
//
// Two bounds apply. The gate is a FIFO weighted semaphore limiting how many
// callers evaluate the wait condition at once; with the default size of one,
// waiters are released strictly in arrival order. The rate bound is the
// check-and-grant on the last grant time, done under mu, so spacing holds
// for any gate size. A Limiter must not be copied after first use.
type Limiter struct {
	interval time.Duration
	gate     *semaphore.Weighted

	mu   sync.Mutex
	last time.Time

	now     func() time.Time
	granted func(time.Time)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithConcurrency sets the gate size. Values < 1 are ignored.
func WithConcurrency(n int64) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.gate = semaphore.NewWeighted(n)
		}
	}
}

// New returns a limiter granting at most perSecond permits per second.
// A non-positive rate falls back to DefaultRate.
func New(perSecond float64, opts ...Option) *Limiter {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	l := &Limiter{
		interval: time.Duration(float64(time.Second) / perSecond),
		gate:     semaphore.NewWeighted(1),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Interval returns the minimum spacing between two grants.
func (l *Limiter) Interval() time.Duration { return l.interval }

// Acquire blocks until issuing a request would not exceed the rate. It only
// fails when ctx is done before a grant is made.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.gate.Release(1)

	for {
		wait, ok := l.tryGrant()
		if ok {
			return nil
		}
		if err := SleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Limiter) tryGrant() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.last.IsZero() {
		if wait := l.interval - now.Sub(l.last); wait > 0 {
			return wait, false
		}
	}
	l.last = now
	if l.granted != nil {
		l.granted(now)
	}
	return 0, true
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
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
