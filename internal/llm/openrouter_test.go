package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenRouterTestServer(t *testing.T, handler http.HandlerFunc) *OpenRouterClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenRouterClient(OpenRouterConfig{
		APIKey:  "test-key",
		Model:   "deepseek/deepseek-chat",
		BaseURL: srv.URL,
	}, 5*time.Second)
}

func TestOpenRouterComplete(t *testing.T) {
	var gotReq chatRequest
	client := newOpenRouterTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: `{"all_questions":[]}`}}},
			Usage:   chatUsage{PromptTokens: 100, CompletionTokens: 40},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	resp, err := client.Complete(context.Background(), Request{
		System:      "you write interview questions",
		Prompt:      "generate",
		Temperature: 0.7,
		JSONOutput:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"all_questions":[]}`, resp.Text)
	assert.Equal(t, 100, resp.InputTokens)
	assert.Equal(t, 40, resp.OutputTokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
}

func TestOpenRouterAPIError(t *testing.T) {
	client := newOpenRouterTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(chatErrorResponse{Error: chatErrorDetail{
			Message: "model overloaded",
			Type:    "server_error",
		}})
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "openrouter", apiErr.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "model overloaded", apiErr.Message)
	assert.True(t, apiErr.IsTransient())
}

func TestOpenRouterEmptyChoices(t *testing.T) {
	client := newOpenRouterTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestFactory(t *testing.T) {
	t.Run("gemini", func(t *testing.T) {
		c, err := NewClient(FactoryConfig{Provider: "gemini"})
		require.NoError(t, err)
		assert.Equal(t, "gemini", c.Provider())
	})

	t.Run("openrouter", func(t *testing.T) {
		c, err := NewClient(FactoryConfig{Provider: "openrouter"})
		require.NoError(t, err)
		assert.Equal(t, "openrouter", c.Provider())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewClient(FactoryConfig{Provider: "acme"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM provider")
	})
}
