// Package retry holds the bounded exponential backoff used around vector index writes.
package retry

import (
	"context"
	"time"
)

type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock sleeps on the wall clock and wakes early when ctx is done.
var SystemClock Clock = systemClock{}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
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

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps a single wait, zero means uncapped
	MaxDelay time.Duration
	Clock    Clock
	// Retryable decides if an error gets another attempt, nil retries everything
	Retryable func(error) bool
}

// Backoff is the wait after the given failed attempt (1-based): BaseDelay * 2^(attempt-1).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, the attempts are used up, the error is not
// retryable or ctx is done. onFailure, if set, sees every failed attempt.
// It returns the number of attempts made and the last error.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, onFailure func(attempt int, err error)) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	clock := p.Clock
	if clock == nil {
		clock = SystemClock
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return attempt - 1, err
		}

		err = op(ctx)
		if err == nil {
			return attempt, nil
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return attempt, err
		}
		if attempt == maxAttempts {
			return attempt, err
		}
		if sleepErr := clock.Sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
			return attempt, err
		}
	}
	return maxAttempts, err
}
