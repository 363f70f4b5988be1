// Package retry implements bounded exponential backoff with full jitter.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultPolicy matches the service-wide configurable defaults.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseBackoff: 200 * time.Millisecond}

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = DefaultPolicy.BaseBackoff
	}
	return p
}

// Do runs op up to MaxAttempts times. Between attempts it sleeps an
// exponentially growing, fully jittered backoff, aborting early when ctx is
// done. A non-retryable error stops the loop immediately.
func (p Policy) Do(ctx context.Context, op func() error, retryable func(error) bool) error {
	p = p.normalize()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := p.BaseBackoff * time.Duration(1<<uint(attempt-2))
			// full jitter: sleep in [0, backoff)
			sleep := time.Duration(rand.Int64N(int64(backoff) + 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return err
		}
	}
	return lastErr
}
