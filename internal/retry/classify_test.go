package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/llm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, Fatal},
		{"daily quota", &domain.QuotaError{Service: "discovery", Used: 1500, Limit: 1500}, Quota},
		{"wrapped quota sentinel", fmt.Errorf("call: %w", domain.ErrQuotaExhausted), Quota},
		{"api 429 plain", &llm.APIError{Provider: "gemini", StatusCode: 429, Message: "slow down"}, Overload},
		{"api 429 quota body", &llm.APIError{Provider: "gemini", StatusCode: 429, Message: "You exceeded your current quota"}, Quota},
		{"api 429 resource exhausted", &llm.APIError{Provider: "gemini", StatusCode: 429, Message: "x", Type: "RESOURCE_EXHAUSTED"}, Quota},
		{"api 500", &llm.APIError{Provider: "openrouter", StatusCode: 500, Message: "boom"}, Overload},
		{"api network", &llm.APIError{Provider: "openrouter", Message: "dial tcp: refused"}, Overload},
		{"api 401", &llm.APIError{Provider: "openrouter", StatusCode: 401, Message: "bad key"}, Fatal},
		{"api 400", &llm.APIError{Provider: "gemini", StatusCode: 400, Message: "malformed"}, Fatal},
		{"rate limit sentinel", domain.NewRateLimitError("generation", time.Second), Overload},
		{"service unavailable sentinel", domain.ErrServiceUnavailable, Overload},
		{"validation", domain.NewValidationError("resume", "empty"), Fatal},
		{"attempt deadline", context.DeadlineExceeded, Overload},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), Overload},
		{"substring overload", errors.New("upstream connection reset by peer"), Overload},
		{"substring quota", errors.New("billing hard limit reached"), Quota},
		{"substring fatal", errors.New("request rejected: invalid parameter 'model'"), Fatal},
		{"unclassified", errors.New("something odd happened"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestCategoryRetryable(t *testing.T) {
	assert.False(t, Fatal.Retryable())
	assert.False(t, Quota.Retryable())
	assert.True(t, Overload.Retryable())
	assert.True(t, Unknown.Retryable())
}

func TestRetryAfterHint(t *testing.T) {
	assert.Equal(t, 9*time.Second, RetryAfterHint(&llm.APIError{StatusCode: 429, RetryAfter: 9 * time.Second}))
	assert.Equal(t, 4*time.Second, RetryAfterHint(domain.NewRateLimitError("generation", 4*time.Second)))
	assert.Zero(t, RetryAfterHint(errors.New("plain")))
	assert.Zero(t, RetryAfterHint(&llm.APIError{StatusCode: 429}))
}
