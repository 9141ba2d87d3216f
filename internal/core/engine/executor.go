package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	apperrors "github.com/personalens/personalens/internal/errors"
	"github.com/personalens/personalens/internal/metrics"
)

// defaultJitterMax bounds the random addition to retry waits so
// concurrent callers do not retry in lockstep.
const defaultJitterMax = 500 * time.Millisecond

// Executor runs remote-call operations against one service identity
// under the registry's admission and backoff discipline. It is the only
// component that records requests, successes, and failures on the
// limiter.
type Executor struct {
	Registry *Registry
	Service  string

	// MaxRetries bounds retries after the first attempt. Zero or
	// negative means attempt exactly once.
	MaxRetries int

	// JitterMax caps the random jitter added to each retry wait.
	// Defaults to 500ms when unset.
	JitterMax time.Duration

	Logger *logging.Logger

	// sleep is a test seam; nil means context-aware time.Sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// Do executes op under the executor's service limiter. Waits for window
// capacity do not consume retry attempts; failed attempts retry only for
// rate-limited and transient classifications, up to MaxRetries. The
// terminal error always carries its taxonomy kind and the attempt count.
func Do[T any](ctx context.Context, ex *Executor, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if ex == nil || ex.Registry == nil || ex.Service == "" {
		return zero, apperrors.Transient("", "executor is not configured", nil)
	}
	if op == nil {
		return zero, apperrors.Transient(ex.Service, "operation is required", nil)
	}

	limiter := ex.Registry.Limiter(ex.Service)
	maxRetries := ex.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempts := 0
	for {
		// Admission waits never consume an attempt. Allowance is the
		// boolean, not the wait value: a zero wait still means denied.
		for {
			allowed, wait := limiter.Allow()
			if allowed {
				break
			}
			ex.logWait("rate limit window saturated", wait, attempts)
			metrics.RecordRateLimitWait(ex.Service, wait)
			if err := ex.pause(ctx, wait); err != nil {
				return zero, apperrors.WithAttempts(ex.Service, err, attempts)
			}
		}

		limiter.RecordRequest()
		attempts++

		result, err := op(ctx)
		if err == nil {
			limiter.RecordSuccess()
			metrics.RecordRequest(ex.Service, true)
			return result, nil
		}

		kind := apperrors.KindOf(err)
		metrics.RecordRequest(ex.Service, false)
		metrics.RecordError(ex.Service, kind.String())
		if !kind.Retryable() {
			return zero, apperrors.WithAttempts(ex.Service, err, attempts)
		}

		limiter.RecordFailure()

		if attempts > maxRetries {
			return zero, apperrors.WithAttempts(ex.Service, err, attempts)
		}

		wait := limiter.BackoffWait()
		if typed := apperrors.AsError(ex.Service, err); typed.Kind == apperrors.KindRateLimited && typed.Wait > wait {
			// The service's own retry hint wins when it is longer.
			wait = typed.Wait
		}
		wait += ex.jitter()

		metrics.RecordRetry(ex.Service)
		metrics.RecordBackoffWait(ex.Service, wait)
		ex.logWait("attempt failed, backing off", wait, attempts)
		if err := ex.pause(ctx, wait); err != nil {
			return zero, apperrors.WithAttempts(ex.Service, err, attempts)
		}
	}
}

func (ex *Executor) jitter() time.Duration {
	max := ex.JitterMax
	if max <= 0 {
		max = defaultJitterMax
	}
	return rand.N(max)
}

// pause sleeps for d or until the context is done. Cancellation during
// a wait surfaces as a transient error and never records a request.
func (ex *Executor) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still yield to cancellation between iterations.
		select {
		case <-ctx.Done():
			return apperrors.Transient(ex.Service, "wait cancelled", ctx.Err())
		default:
			return nil
		}
	}

	if ex.sleep != nil {
		return ex.sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return apperrors.Transient(ex.Service, "wait cancelled", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (ex *Executor) logWait(msg string, wait time.Duration, attempts int) {
	if ex.Logger == nil {
		return
	}
	ex.Logger.Debug(msg,
		zap.String("service", ex.Service),
		zap.Duration("wait", wait),
		zap.Int("attempts", attempts),
	)
}
