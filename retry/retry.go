// Package retry runs a single external call with bounded attempts, backoff and a per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aluiziolira/go-scrape-apps/catalog"
	"github.com/aluiziolira/go-scrape-apps/metrics"
)

// Backoff computes the wait after the failed attempt with 0-based index attempt.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Constant waits the same duration between every attempt.
type Constant time.Duration

// Delay implements Backoff.
func (c Constant) Delay(int) time.Duration {
	return time.Duration(c)
}

// Exponential waits Initial * 2^attempt, capped at Max when Max is positive.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay implements Backoff.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if e.Initial <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := e.Initial * time.Duration(1<<attempt)
	if delay < e.Initial {
		delay = time.Duration(math.MaxInt64)
	}
	if e.Max > 0 && delay > e.Max {
		delay = e.Max
	}
	return delay
}

// Policy bounds one retried call.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	Timeout     time.Duration
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Executor runs operations under a Policy. The zero value is usable.
type Executor struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// NewExecutor returns an executor that logs to logger and counts retries in m.
func NewExecutor(logger *slog.Logger, m *metrics.Metrics) *Executor {
	return &Executor{Logger: logger, Metrics: m}
}

// Do calls op until it succeeds or the policy runs out of attempts.
// Cancelling ctx stops immediately with ctx.Err().
func (e *Executor) Do(ctx context.Context, name string, p Policy, op func(context.Context) error) error {
	_, err := Do(ctx, e, name, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is the typed form of Executor.Do.
func Do[T any](ctx context.Context, e *Executor, name string, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if e == nil {
		e = &Executor{}
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := runAttempt(ctx, p.Timeout, op)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		lastErr = err
		e.Metrics.IncError(catalog.ErrorType(err))

		if attempt == attempts-1 {
			logger.Warn("attempt failed",
				slog.String("operation", name),
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", attempts),
				slog.Any("error", err),
			)
			break
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff.Delay(attempt)
		}
		logger.Warn("attempt failed",
			slog.String("operation", name),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("retry_in", delay),
			slog.Any("error", err),
		)
		e.Metrics.IncRetries(name)

		if err := Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

type outcome[T any] struct {
	value T
	err   error
}

// runAttempt races op against the per-attempt timeout. A value that settled
// before the timer was observed wins over the timeout.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(attemptCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-attemptCtx.Done():
		select {
		case res := <-done:
			return res.value, res.err
		default:
		}
		var zero T
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, catalog.ErrTimeout{Err: fmt.Errorf("no response within %s: %w", timeout, context.DeadlineExceeded)}
		}
		return zero, attemptCtx.Err()
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
