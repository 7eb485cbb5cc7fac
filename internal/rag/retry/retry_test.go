package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	slept []time.Duration
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return ctx.Err()
}

func TestBackoff_Doubles(t *testing.T) {
	p := Policy{BaseDelay: time.Second}
	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, time.Second, p.Backoff(0))
}

func TestBackoff_Capped(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 3*time.Second, p.Backoff(3))
	assert.Equal(t, 3*time.Second, p.Backoff(10))
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	clock := &fakeClock{}
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Clock: clock}

	calls := 0
	var failures []int
	attempts, err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	}, func(attempt int, err error) { failures = append(failures, attempt) })

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, failures)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.slept)
}

func TestDo_ExhaustsWithoutTrailingSleep(t *testing.T) {
	clock := &fakeClock{}
	p := Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, Clock: clock}
	boom := errors.New("boom")

	attempts, err := p.Do(context.Background(), func(ctx context.Context) error { return boom }, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
	assert.Len(t, clock.slept, 2)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	clock := &fakeClock{}
	fatal := errors.New("schema")
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Clock:       clock,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	attempts, err := p.Do(context.Background(), func(ctx context.Context) error { return fatal }, nil)

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, clock.slept)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxAttempts: 3, Clock: &fakeClock{}}

	called := false
	attempts, err := p.Do(ctx, func(ctx context.Context) error { called = true; return nil }, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
	assert.False(t, called)
}

func TestSystemClock_WakesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := SystemClock.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
