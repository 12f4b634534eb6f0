package utils

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy bounds a retry loop with exponential backoff and jitter.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64

	// Retryable decides whether an error deserves another attempt. Nil retries everything.
	Retryable func(error) bool
}

// DefaultRetryPolicy is three attempts starting at one second and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	out := p
	if out.Attempts <= 0 {
		out.Attempts = 1
	}
	if out.InitialDelay < 0 {
		out.InitialDelay = 0
	}
	if out.Multiplier < 1 {
		out.Multiplier = 2
	}
	if out.Jitter < 0 || out.Jitter > 1 {
		out.Jitter = 0
	}
	return out
}

// Backoff returns the delay before the given retry (1-based), without jitter.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	p = p.withDefaults()
	d := float64(p.InitialDelay)
	for i := 1; i < retry; i++ {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, the policy gives up, or ctx is done.
// The last error from fn is returned.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		delay := p.Backoff(attempt)
		if p.Jitter > 0 && delay > 0 {
			spread := float64(delay) * p.Jitter
			delay = time.Duration(float64(delay) - spread + rand.Float64()*2*spread)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}
