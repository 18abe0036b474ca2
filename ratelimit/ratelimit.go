// Package ratelimit provides a sliding-window request limiter used to
// keep client-side request rates under a configured quota.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Limiter admits at most quota requests within any trailing window.
// It tracks the timestamps of admitted requests and delays callers until
// admission would not exceed the quota. A single Limiter is safe for use
// by concurrent callers; admission and timestamp recording happen
// atomically under one lock.
type Limiter struct {
	quota  int
	window time.Duration
	logger zerolog.Logger

	mu     sync.Mutex
	stamps []time.Time // ascending admission times, pruned on every call
}

// New creates a Limiter admitting quota requests per window. A quota or
// window of zero (or less) disables limiting entirely.
func New(quota int, window time.Duration, logger zerolog.Logger) *Limiter {
	return &Limiter{
		quota:  quota,
		window: window,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Enabled reports whether the limiter enforces a quota.
func (l *Limiter) Enabled() bool {
	return l != nil && l.quota > 0 && l.window > 0
}

// Acquire blocks until issuing a request would not exceed the quota, then
// records the admission timestamp and returns. The timestamp is recorded
// after any wait so the window reflects actual issuance. The only failure
// mode is context cancellation.
func (l *Limiter) Acquire(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}

	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)

		if len(l.stamps) < l.quota {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		// Window is full. Wait until the oldest admission leaves it,
		// then re-evaluate; another caller may have been admitted in
		// the meantime.
		wait := l.stamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}

		l.logger.Debug().
			Dur("wait", wait).
			Int("quota", l.quota).
			Dur("window", l.window).
			Msg("Rate limit reached, waiting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Recorded returns the number of admissions currently inside the window.
func (l *Limiter) Recorded() int {
	if !l.Enabled() {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return len(l.stamps)
}

// prune drops timestamps that have left the window. Callers hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
