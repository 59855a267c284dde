// Package retry provides the bounded-attempt backoff executor used by every
// capability call that talks to a remote service.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Class partitions errors into retry behavior buckets.
type Class int

const (
	// ClassRetryable marks throttling and transient network failures.
	ClassRetryable Class = iota
	// ClassTerminal marks authorization, validation, and not-found failures.
	ClassTerminal
)

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) Class

// ErrAttemptsExhausted wraps the last error once the attempt budget is spent.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMultiplier  = 2.0
)

// Policy configures the attempt budget and backoff shape. Zero fields are
// normalized to the defaults by Do.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
	Classify    Classifier

	// Sleep is replaced in tests; nil selects a context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the backoff used for capability service calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
		Jitter:      true,
	}
}

// Do runs op until it succeeds, a terminal error occurs, the context is
// cancelled, or the attempt budget is exhausted. Terminal errors return
// unwrapped on first occurrence; an exhausted budget returns the last error
// wrapped in ErrAttemptsExhausted.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		return zero, errors.New("retry: nil context")
	}

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !retryable(ctx, policy, err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleep(ctx, policy, backoffDelay(policy, attempt)); sleepErr != nil {
			return zero, sleepErr
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}

func retryable(ctx context.Context, policy Policy, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if policy.Classify == nil {
		return true
	}
	return policy.Classify(err) == ClassRetryable
}

// backoffDelay grows exponentially from the base delay, capped at the max,
// with optional jitter in [0.5, 1.0) of the computed delay.
func backoffDelay(policy Policy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	multiplier := policy.Multiplier
	if multiplier <= 1 {
		multiplier = DefaultMultiplier
	}

	delay := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	if policy.Jitter {
		delay *= 0.5 + 0.5*rand.Float64()
	}
	return time.Duration(delay)
}

func sleep(ctx context.Context, policy Policy, d time.Duration) error {
	if policy.Sleep != nil {
		return policy.Sleep(ctx, d)
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
