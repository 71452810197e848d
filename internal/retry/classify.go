// Package retry provides error classification and a retry executor for calls
// to external services. Every attempt passes through the shared rate limiter
// first, so retries spend limiter budget like any other request.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/llm"
)

// Category classifies errors into the retry and reporting behaviour of the
// pipeline.
type Category int

const (
	// Fatal errors are non-recoverable; the call fails without retries.
	Fatal Category = iota

	// Quota errors indicate daily or billing quota exhaustion. They are
	// fatal for the call and surface to the user as a quota failure rather
	// than a system error.
	Quota

	// Overload errors are transient provider failures (429, 5xx, network)
	// that should be retried with exponential backoff.
	Overload

	// Unknown errors are unclassified. They are retried, since retrying an
	// unknown failure is safer than giving up on it.
	Unknown
)

// String returns a human-readable name for the category.
func (c Category) String() string {
	switch c {
	case Fatal:
		return "fatal"
	case Quota:
		return "quota"
	case Overload:
		return "overload"
	default:
		return "unknown"
	}
}

// Retryable reports whether a call failing with this category may be retried.
func (c Category) Retryable() bool {
	return c == Overload || c == Unknown
}

// quotaSubstrings distinguish daily/billing quota exhaustion from plain rate
// limiting; providers use 429 for both.
var quotaSubstrings = []string{
	"quota",
	"billing",
	"exceeded your current",
	"resource_exhausted",
}

// overloadSubstrings indicate a transient failure when the error is not
// already classified by a structured error type.
var overloadSubstrings = []string{
	"timeout",
	"network",
	"connection refused",
	"connection reset",
	"rate limit",
	"rate_limit",
	"server_error",
	"service unavailable",
	"overloaded",
	"temporary",
	"deadline exceeded",
	"i/o timeout",
}

// fatalSubstrings indicate a permanent failure. Substrings are chosen to
// avoid false positives: "unauthorized" instead of "auth", "invalid request"
// instead of bare "invalid".
var fatalSubstrings = []string{
	"unauthorized",
	"authentication failed",
	"forbidden",
	"api key",
	"bad_request",
	"bad request",
	"not_found",
	"not found",
	"invalid request",
	"invalid parameter",
	"content_filter",
}

// Classify inspects err and returns its Category.
//
// Classification priority:
//  1. Nil errors — Fatal (no-op; callers should not retry nil)
//  2. Domain quota errors — Quota
//  3. Structured provider errors (*llm.APIError) — uses status code, with a
//     quota substring check on 429 bodies
//  4. Domain sentinel errors — ErrRateLimited, ErrServiceUnavailable, etc.
//  5. Attempt-level context deadline — Overload (the attempt timed out)
//  6. Error message substring matching (quota, then overload, then fatal)
//  7. Default: Unknown (retried)
func Classify(err error) Category {
	if err == nil {
		return Fatal
	}

	if errors.Is(err, domain.ErrQuotaExhausted) {
		return Quota
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			if containsAny(strings.ToLower(apiErr.Message), quotaSubstrings) ||
				strings.EqualFold(apiErr.Type, "RESOURCE_EXHAUSTED") {
				return Quota
			}
			return Overload
		case apiErr.StatusCode == 0 || apiErr.StatusCode >= 500:
			return Overload
		default:
			return Fatal
		}
	}

	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrServiceUnavailable) {
		return Overload
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return Fatal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Overload
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, quotaSubstrings) {
		return Quota
	}
	if containsAny(msg, overloadSubstrings) {
		return Overload
	}
	if containsAny(msg, fatalSubstrings) {
		return Fatal
	}

	return Unknown
}

// RetryAfterHint extracts a provider-supplied retry delay from err, or zero
// when the error carries none.
func RetryAfterHint(err error) time.Duration {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
		return rlErr.RetryAfter
	}
	return 0
}

func containsAny(msg string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
