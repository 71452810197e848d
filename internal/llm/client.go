// Package llm provides thin single-attempt clients for the LLM providers the
// pipeline calls: Gemini for search-grounded discovery and skill extraction,
// and an OpenAI-compatible endpoint (OpenRouter) for question generation.
// Retries, rate limiting and timeouts are the caller's concern.
package llm

import "context"

// Request is a provider-neutral completion request.
type Request struct {
	// System is the system instruction. Empty means none.
	System string

	// Prompt is the user message.
	Prompt string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// JSONOutput asks the provider for a JSON object response where the
	// provider supports enforcing it.
	JSONOutput bool

	// WebSearch enables search grounding on providers that support it.
	WebSearch bool
}

// Response is a provider-neutral completion response.
type Response struct {
	// Text is the completion text.
	Text string

	// InputTokens and OutputTokens report usage when the provider returns it.
	InputTokens  int
	OutputTokens int
}

// Client is a single-attempt LLM completion client.
type Client interface {
	// Complete performs one completion call. Provider failures are returned
	// as *APIError so callers can classify them.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Provider returns the provider name (e.g. "gemini", "openrouter").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
