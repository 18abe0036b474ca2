package fetch

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultRetryAfter is the wait applied to a 429 response that carries
// no usable Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// retryAfterFrom parses the Retry-After header of a 429 response.
// Servers send either delay-seconds or an HTTP-date; both forms are
// handled, anything else falls back to DefaultRetryAfter.
func retryAfterFrom(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return DefaultRetryAfter
	}

	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}

	return DefaultRetryAfter
}

// waitForRetry sleeps for the given duration, returning early with the
// context's error if it is cancelled first.
func waitForRetry(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// newBackOff builds the delay schedule for retryable failures. The base
// delay doubles per attempt, without jitter, capped at 30s.
func newBackOff(base time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
