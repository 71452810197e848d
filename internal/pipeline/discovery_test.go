package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/llm"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/ratelimit"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/retry"
)

// completeFn adapts a function to the llm.Client interface.
type completeFn func(ctx context.Context, req llm.Request) (*llm.Response, error)

func (f completeFn) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}
func (f completeFn) Provider() string { return "fake" }
func (f completeFn) Model() string    { return "fake-model" }

func newPipelineExecutor() *retry.Executor {
	limiter := ratelimit.New(map[string]ratelimit.Limit{
		domain.ServiceDiscovery:  {RPM: 10000},
		domain.ServiceGeneration: {RPM: 10000},
	})
	return retry.NewExecutor(limiter, nil, zerolog.Nop(), retry.Config{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	})
}

func TestDiscoverParsesSections(t *testing.T) {
	response := "## Go\nGoroutines and channels, scheduler trade-offs.\n\n" +
		"## Apache Kafka\nPartitioning, ISR, exactly-once semantics.\n"

	client := completeFn(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		assert.True(t, req.WebSearch, "discovery uses search grounding")
		assert.Contains(t, req.Prompt, "- Go\n")
		return &llm.Response{Text: response}, nil
	})

	d := NewLLMDiscoverer(client, newPipelineExecutor(), zerolog.Nop())
	sources, err := d.Discover(context.Background(), []string{"Go", "apache kafka", "Redis"})
	require.NoError(t, err)
	require.Len(t, sources, 3, "one source per requested skill")

	assert.Equal(t, "Go", sources[0].Skill)
	assert.Contains(t, sources[0].Content, "Goroutines")
	assert.Contains(t, sources[1].Content, "Partitioning", "headers match case-insensitively")
	assert.False(t, sources[2].HasContent(), "missing section degrades to an empty source")
}

func TestDiscoverSingleSkillFallback(t *testing.T) {
	// No markers in the response: with exactly one skill the whole text is
	// attributed to it instead of being dropped.
	client := completeFn(func(context.Context, llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: "Plain prose about Kubernetes internals."}, nil
	})

	d := NewLLMDiscoverer(client, newPipelineExecutor(), zerolog.Nop())
	sources, err := d.Discover(context.Background(), []string{"Kubernetes"})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.True(t, sources[0].HasContent())
}

func TestDiscoverEmptyResponseRetriedThenFails(t *testing.T) {
	calls := 0
	client := completeFn(func(context.Context, llm.Request) (*llm.Response, error) {
		calls++
		return &llm.Response{Text: "   "}, nil
	})

	d := NewLLMDiscoverer(client, newPipelineExecutor(), zerolog.Nop())
	_, err := d.Discover(context.Background(), []string{"Go"})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "empty output is retryable")
	assert.Contains(t, err.Error(), "source discovery failed")
}

func TestHeaderMatchesSkill(t *testing.T) {
	assert.True(t, headerMatchesSkill("Go", "go"))
	assert.True(t, headerMatchesSkill("{Apache Kafka}", "Apache Kafka"))
	assert.True(t, headerMatchesSkill("  CI/CD ", "ci/cd"))
	assert.False(t, headerMatchesSkill("Golang", "Go"))
}
