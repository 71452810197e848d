package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/observability"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/ratelimit"
)

// Config holds retry executor settings.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff delay, doubled each retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration

	// AttemptTimeout bounds each individual attempt. Zero disables the
	// per-attempt deadline.
	AttemptTimeout time.Duration
}

// Executor runs external calls under the shared rate limiter with
// classification-driven retries. Fatal and quota failures return immediately;
// overload and unknown failures back off exponentially, honoring
// provider-supplied retry-after hints when present.
type Executor struct {
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
	logger  zerolog.Logger
	cfg     Config

	sleepFn func(ctx context.Context, d time.Duration) error
	nowFn   func() time.Time
}

// NewExecutor creates an Executor. metrics may be nil, in which case no
// metrics are recorded.
func NewExecutor(limiter *ratelimit.Limiter, metrics *observability.Metrics, logger zerolog.Logger, cfg Config) *Executor {
	return &Executor{
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		sleepFn: sleepContext,
		nowFn:   time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn under the retry policy for the given service. Every attempt,
// including retries, first acquires a slot from the rate limiter; a spent
// daily quota therefore aborts the call before any request is made.
func (e *Executor) Do(ctx context.Context, service, operation string, fn func(ctx context.Context) error) error {
	logger := observability.WithServiceContext(e.logger, service, operation)

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		waitStart := e.nowFn()
		if err := e.limiter.Acquire(ctx, service); err != nil {
			// QuotaError from the limiter's daily window, or cancellation.
			return err
		}
		e.observeWait(service, e.nowFn().Sub(waitStart))

		err := e.attempt(ctx, service, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		category := Classify(err)
		e.countFailure(service, category)
		if !category.Retryable() {
			logger.Warn().Err(err).Str("classification", category.String()).Msg("call failed, not retrying")
			return err
		}
		if attempt == e.cfg.MaxRetries {
			break
		}

		delay := e.backoff(attempt)
		if hint := RetryAfterHint(err); hint > 0 {
			// The provider knows better than our schedule. Lock the limiter
			// too so sibling callers stop hammering it meanwhile.
			delay = hint
			e.limiter.Lock(service, hint)
		}

		logger.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Str("classification", category.String()).
			Msg("call failed, retrying")
		if e.metrics != nil {
			e.metrics.ServiceRetries.WithLabelValues(service).Inc()
		}

		if err := e.sleepFn(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s %s: exhausted %d retries: %w", service, operation, e.cfg.MaxRetries, lastErr)
}

// attempt runs fn once under the per-attempt deadline, recording call count
// and duration.
func (e *Executor) attempt(ctx context.Context, service string, fn func(ctx context.Context) error) error {
	attemptCtx := ctx
	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}

	start := e.nowFn()
	err := fn(attemptCtx)
	if e.metrics != nil {
		e.metrics.ServiceRequestsTotal.WithLabelValues(service).Inc()
		e.metrics.ServiceRequestDuration.WithLabelValues(service).Observe(e.nowFn().Sub(start).Seconds())
	}
	return err
}

// countFailure records a failed attempt under its classification label.
func (e *Executor) countFailure(service string, category Category) {
	if e.metrics == nil {
		return
	}
	e.metrics.ServiceRequestsFailed.WithLabelValues(service, category.String()).Inc()
}

// backoff returns the exponential delay for the given zero-based attempt,
// capped at MaxDelay.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.cfg.BaseDelay << uint(attempt)
	if delay <= 0 || delay > e.cfg.MaxDelay {
		return e.cfg.MaxDelay
	}
	return delay
}

func (e *Executor) observeWait(service string, waited time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RateLimitWaitDuration.WithLabelValues(service).Observe(waited.Seconds())
	if waited > 0 {
		e.metrics.RateLimitWaits.WithLabelValues(service).Inc()
	}
}
