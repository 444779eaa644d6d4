package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Observer is notified of every attempt and backoff. Either method may be
// called from the goroutine running Do, never concurrently.
type Observer interface {
	// OnAttempt is called after attempt n (1-based) finished with err (nil on success).
	OnAttempt(n int, err error)
	// OnBackoff is called before sleeping delay ahead of attempt n+1.
	OnBackoff(n int, delay time.Duration)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	Attempt func(n int, err error)
	Backoff func(n int, delay time.Duration)
}

// OnAttempt implements Observer.
func (o ObserverFuncs) OnAttempt(n int, err error) {
	if o.Attempt != nil {
		o.Attempt(n, err)
	}
}

// OnBackoff implements Observer.
func (o ObserverFuncs) OnBackoff(n int, delay time.Duration) {
	if o.Backoff != nil {
		o.Backoff(n, delay)
	}
}

// Policy describes how an operation is retried. The zero value makes a
// single attempt.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	// MinDelay and MaxDelay bound the random sleep between attempts.
	// MaxDelay below MinDelay is treated as MinDelay.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Observer receives attempt and backoff notifications. Optional.
	Observer Observer

	// Rand returns a float in [0, 1). Defaults to math/rand/v2.Float64.
	Rand func() float64

	// Sleep waits for d or until ctx is done. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// WithObserver returns a copy of p reporting to o.
func (p Policy) WithObserver(o Observer) Policy {
	p.Observer = o
	return p
}

// Attempts is the maximum number of attempts p makes.
func (p Policy) Attempts() int {
	return max(p.MaxRetries, 0) + 1
}

// Delay picks the sleep before the next attempt.
func (p Policy) Delay() time.Duration {
	lo, hi := p.MinDelay, p.MaxDelay
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		return lo
	}
	r := rand.Float64
	if p.Rand != nil {
		r = p.Rand
	}
	return lo + time.Duration(r()*float64(hi-lo))
}

// Do runs op until it succeeds, returns a permanent error, the attempts run
// out, or ctx is cancelled. It returns the number of attempts made.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	sleep := SleepContext
	if p.Sleep != nil {
		sleep = p.Sleep
	}

	total := p.Attempts()
	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, cancelled(err)
		}

		err := op(ctx)
		if p.Observer != nil {
			p.Observer.OnAttempt(attempt, err)
		}
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, cancelled(ctxErr)
		}
		if IsPermanent(err) {
			return attempt, err
		}
		if attempt == total {
			break
		}

		delay := p.Delay()
		if p.Observer != nil {
			p.Observer.OnBackoff(attempt, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return attempt, cancelled(err)
		}
	}

	return total, fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, total, lastErr)
}

// Execute is Do for operations that produce a value.
// On failure the zero value of T is returned.
func Execute[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	var result T
	attempts, err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, attempts, err
	}
	return result, attempts, nil
}

// SleepContext waits for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
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

func cancelled(cause error) error {
	if errors.Is(cause, ErrCancelled) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
