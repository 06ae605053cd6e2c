package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/metrics"
)

// Policy describes a bounded exponential backoff: the wait before retry n (0-based)
// is InitialWait * 2^n, capped at MaxWait. No jitter is applied.
type Policy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// Wait returns the delay applied after the given failed attempt (0-based)
func (p Policy) Wait(attempt int) time.Duration {
	wait := p.InitialWait
	for i := 0; i < attempt; i++ {
		if p.MaxWait > 0 && wait >= p.MaxWait {
			break
		}
		if wait > math.MaxInt64/2 {
			return math.MaxInt64
		}
		wait *= 2
	}
	if p.MaxWait > 0 && wait > p.MaxWait {
		return p.MaxWait
	}
	return wait
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(&policyBackOff{policy: p}, ctx)
}

// policyBackOff feeds Policy.Wait to backoff and stops once the attempts are used up
type policyBackOff struct {
	policy  Policy
	retries int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	if b.retries >= b.policy.attempts()-1 {
		return backoff.Stop
	}
	wait := b.policy.Wait(b.retries)
	b.retries++
	return wait
}

func (b *policyBackOff) Reset() {
	b.retries = 0
}

// Retrier runs operations under a Policy
type Retrier struct {
	policy Policy
	clock  adapter.Clock
}

// New creates a Retrier; the clock drives the waits between attempts
func New(policy Policy, clock adapter.Clock) *Retrier {
	return &Retrier{policy: policy, clock: clock}
}

// Permanent marks an error as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// clockTimer adapts adapter.Clock to backoff.Timer
type clockTimer struct {
	clock adapter.Clock
	c     <-chan time.Time
}

func (t *clockTimer) Start(d time.Duration) {
	t.c = t.clock.After(d)
}

func (t *clockTimer) Stop() {}

func (t *clockTimer) C() <-chan time.Time {
	return t.c
}

// Do runs fn until it succeeds, returns a permanent error, the context ends or the
// policy's attempts are exhausted. The returned error wraps the last failure.
func Do[T any](ctx context.Context, r *Retrier, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := 0
	op := func() (T, error) {
		attempts++
		res, err := fn(ctx)
		if err != nil && ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		metrics.RetriesTotal.WithLabelValues(operation).Inc()
		logger.WarnCtx(ctx, "Operation failed, retrying",
			zap.String("operation", operation),
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", r.policy.attempts()),
			zap.Duration("next_retry_in", wait),
		)
	}

	res, err := backoff.RetryNotifyWithTimerAndData(op, r.policy.backOff(ctx), notify, &clockTimer{clock: r.clock})
	if err != nil {
		var zero T
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		return zero, fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, err)
	}

	return res, nil
}
