// Package ratelimit implements a sliding-window request limiter shared by all
// callers of a given external service. Unlike a token bucket, the window is
// exact: at most RPM requests are admitted in any trailing 60 second span,
// regardless of how they cluster inside it.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
)

// Limit configures the budget for one service.
type Limit struct {
	// RPM is the maximum requests admitted in any trailing 60s window.
	// Zero means no per-minute cap.
	RPM int

	// Daily is the maximum requests admitted in any trailing 24h window.
	// Zero means no daily quota.
	Daily int
}

type serviceState struct {
	limit Limit

	// minute and daily hold admission timestamps in order, pruned to their
	// trailing windows on every call.
	minute []time.Time
	daily  []time.Time

	// lockedUntil is the penalty box: no admissions before this instant.
	lockedUntil time.Time
}

// Limiter admits requests per service under sliding-window budgets. It is safe
// for concurrent use. All blocking happens outside the internal lock so one
// waiting caller never stalls the others.
type Limiter struct {
	mu       sync.Mutex
	services map[string]*serviceState

	// nowFn and sleepFn are swapped out in tests for a deterministic clock.
	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration) error
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the limiter's time source and sleep function, letting
// tests drive it deterministically.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.nowFn = now
		l.sleepFn = sleep
	}
}

// New creates a Limiter with the given per-service limits.
func New(limits map[string]Limit, opts ...Option) *Limiter {
	services := make(map[string]*serviceState, len(limits))
	for name, l := range limits {
		services[name] = &serviceState{limit: l}
	}
	lim := &Limiter{
		services: services,
		nowFn:    time.Now,
		sleepFn:  sleepContext,
	}
	for _, opt := range opts {
		opt(lim)
	}
	return lim
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

// Acquire blocks until the service admits one more request, then records the
// admission and returns. It returns immediately with a QuotaError when the
// trailing-24h quota is spent: waiting out a daily window is never useful
// inside a single run. Context cancellation aborts the wait.
func (l *Limiter) Acquire(ctx context.Context, service string) error {
	for {
		wait, err := l.tryAcquire(service)
		if err != nil {
			return err
		}
		if wait <= 0 {
			return nil
		}
		if err := l.sleepFn(ctx, wait); err != nil {
			return err
		}
		// Another caller may have taken the freed slot while we slept, so
		// loop and re-check rather than assuming admission.
	}
}

// tryAcquire either records an admission (wait <= 0) or reports how long the
// caller should sleep before re-checking.
func (l *Limiter) tryAcquire(service string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.services[service]
	if !ok {
		return 0, fmt.Errorf("rate limiter: unknown service %q", service)
	}

	now := l.nowFn()
	st.minute = prune(st.minute, now.Add(-minuteWindow))
	st.daily = prune(st.daily, now.Add(-dayWindow))

	if st.limit.Daily > 0 && len(st.daily) >= st.limit.Daily {
		return 0, &domain.QuotaError{
			Service: service,
			Used:    len(st.daily),
			Limit:   st.limit.Daily,
		}
	}

	var wait time.Duration
	if until := st.lockedUntil.Sub(now); until > wait {
		wait = until
	}
	if st.limit.RPM > 0 && len(st.minute) >= st.limit.RPM {
		if until := st.minute[0].Add(minuteWindow).Sub(now); until > wait {
			wait = until
		}
	}
	if wait > 0 {
		return wait, nil
	}

	st.minute = append(st.minute, now)
	if st.limit.Daily > 0 {
		st.daily = append(st.daily, now)
	}
	return 0, nil
}

// Lock puts a service in the penalty box for d: no admissions until it
// elapses. Used when the provider itself rejects a request with 429 so the
// retry does not immediately burn another attempt.
func (l *Limiter) Lock(service string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.services[service]
	if !ok {
		return
	}
	until := l.nowFn().Add(d)
	if until.After(st.lockedUntil) {
		st.lockedUntil = until
	}
}

// Usage reports how many admissions a service currently holds in its trailing
// minute and day windows.
func (l *Limiter) Usage(service string) (minute, daily int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.services[service]
	if !ok {
		return 0, 0
	}
	now := l.nowFn()
	st.minute = prune(st.minute, now.Add(-minuteWindow))
	st.daily = prune(st.daily, now.Add(-dayWindow))
	return len(st.minute), len(st.daily)
}

// DailyUsage reports the admissions spent in a service's trailing 24h window
// alongside the configured quota. limit is zero when the service has no daily
// quota.
func (l *Limiter) DailyUsage(service string) (used, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.services[service]
	if !ok {
		return 0, 0
	}
	st.daily = prune(st.daily, l.nowFn().Add(-dayWindow))
	return len(st.daily), st.limit.Daily
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// order, so the first retained index bounds the rest.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
