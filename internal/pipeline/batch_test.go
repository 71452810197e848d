package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/llm"
)

func newBatchPipeline(d SourceDiscoverer, g QuestionGenerator, events chan domain.Event, limit int) *BatchPipeline {
	return NewBatchPipeline(d, g, events, BatchPipelineConfig{
		SafeTokenLimit: limit,
		TokenDivisor:   4,
	}, nil, zerolog.Nop())
}

func TestBatchRunHappyPath(t *testing.T) {
	events := make(chan domain.Event, 64)
	gen := generateAll()
	p := newBatchPipeline(discoverAll("short context"), gen, events, 1000)

	p.Run(context.Background(), domain.Batch{Index: 1, Skills: []string{"Go", "Kafka", "Redis"}}, 1)

	byKind := eventsByKind(drainEvents(events))
	assert.Len(t, byKind[domain.EventData], 3)
	require.Len(t, byKind[domain.EventBatchCompleted], 1, "exactly one completion per batch")

	batch := byKind[domain.EventBatchCompleted][0].Batch
	assert.Equal(t, 1, batch.BatchIndex)
	assert.Equal(t, 3, batch.TotalSkills)
	assert.Equal(t, 3, batch.ProcessedSkills)
	assert.Equal(t, domain.BatchSucceeded, batch.Outcome)

	require.Len(t, gen.Calls(), 1, "whole batch fits the budget in one call")
}

func TestBatchSplitsOverTokenBudget(t *testing.T) {
	// Each skill carries ~100 tokens of context; a limit of 150 forces
	// recursive bisection down to single-skill calls.
	events := make(chan domain.Event, 64)
	gen := generateAll()
	p := newBatchPipeline(discoverAll(strings.Repeat("x", 400)), gen, events, 150)

	skills := []string{"a", "b", "c", "d"}
	p.Run(context.Background(), domain.Batch{Index: 1, Skills: skills}, 1)

	byKind := eventsByKind(drainEvents(events))
	require.Len(t, byKind[domain.EventBatchCompleted], 1, "recursion is invisible outside the batch")
	assert.Equal(t, domain.BatchSucceeded, byKind[domain.EventBatchCompleted][0].Batch.Outcome)
	assert.Len(t, byKind[domain.EventData], 4)

	// The leaf calls partition the original skill set: no duplicates, no
	// omissions.
	var leaves []string
	for _, call := range gen.Calls() {
		leaves = append(leaves, call...)
	}
	sort.Strings(leaves)
	assert.Equal(t, []string{"a", "b", "c", "d"}, leaves)
}

func TestBatchSingleOverBudgetSkillGeneratedAnyway(t *testing.T) {
	events := make(chan domain.Event, 64)
	gen := generateAll()
	// One skill whose context alone dwarfs the limit: the base case
	// generates instead of recursing forever.
	p := newBatchPipeline(discoverAll(strings.Repeat("x", 10000)), gen, events, 10)

	p.Run(context.Background(), domain.Batch{Index: 1, Skills: []string{"solo"}}, 1)

	byKind := eventsByKind(drainEvents(events))
	assert.Len(t, byKind[domain.EventData], 1)
	assert.Equal(t, domain.BatchSucceeded, byKind[domain.EventBatchCompleted][0].Batch.Outcome)
	require.Len(t, gen.Calls(), 1)
}

func TestBatchContextFreeSkillsRoutedIndividually(t *testing.T) {
	// "ghost" gets no discovered content and must be generated alone with
	// the context-free prompt, outside the token-budget group.
	disc := &fakeDiscoverer{fn: func(_ context.Context, skills []string) ([]domain.SkillSource, error) {
		sources := make([]domain.SkillSource, 0, len(skills))
		for _, s := range skills {
			content := "solid context"
			if s == "ghost" {
				content = "   "
			}
			sources = append(sources, domain.SkillSource{Skill: s, Content: content})
		}
		return sources, nil
	}}

	events := make(chan domain.Event, 64)
	gen := generateAll()
	p := newBatchPipeline(disc, gen, events, 1000)

	p.Run(context.Background(), domain.Batch{Index: 2, Skills: []string{"Go", "ghost", "Kafka"}}, 3)

	byKind := eventsByKind(drainEvents(events))
	assert.Len(t, byKind[domain.EventData], 3)
	assert.Equal(t, domain.BatchSucceeded, byKind[domain.EventBatchCompleted][0].Batch.Outcome)

	var single, grouped [][]string
	for _, call := range gen.Calls() {
		if len(call) == 1 && call[0] == "ghost" {
			single = append(single, call)
		} else {
			grouped = append(grouped, call)
		}
	}
	require.Len(t, single, 1, "context-free skill generated individually")
	require.Len(t, grouped, 1)
	assert.ElementsMatch(t, []string{"Go", "Kafka"}, grouped[0])
}

func TestBatchPartialOutcome(t *testing.T) {
	gen := &fakeGenerator{fn: func(_ context.Context, skills []string, _ string) (*domain.QuestionSet, error) {
		// Model silently drops every skill but the first.
		return &domain.QuestionSet{AllQuestions: []domain.SkillQuestions{
			{Skill: skills[0], Questions: []string{"q"}},
		}}, nil
	}}

	events := make(chan domain.Event, 64)
	p := newBatchPipeline(discoverAll("ctx"), gen, events, 1000)
	p.Run(context.Background(), domain.Batch{Index: 1, Skills: []string{"a", "b", "c"}}, 1)

	byKind := eventsByKind(drainEvents(events))
	batch := byKind[domain.EventBatchCompleted][0].Batch
	assert.Equal(t, domain.BatchPartial, batch.Outcome)
	assert.Equal(t, 1, batch.ProcessedSkills)
	assert.Len(t, byKind[domain.EventData], 1)
}

func TestBatchGenerationFailureEmitsSkillErrors(t *testing.T) {
	gen := &fakeGenerator{fn: func(context.Context, []string, string) (*domain.QuestionSet, error) {
		return nil, errors.New("generation exploded")
	}}

	events := make(chan domain.Event, 64)
	p := newBatchPipeline(discoverAll("ctx"), gen, events, 1000)
	p.Run(context.Background(), domain.Batch{Index: 1, Skills: []string{"a", "b"}}, 1)

	byKind := eventsByKind(drainEvents(events))
	assert.Len(t, byKind[domain.EventError], 2, "one skill-scoped error per skill")
	assert.Empty(t, byKind[domain.EventData])

	batch := byKind[domain.EventBatchCompleted][0].Batch
	assert.Equal(t, domain.BatchFailed, batch.Outcome)
	assert.Equal(t, 0, batch.ProcessedSkills)
}

func TestBatchDiscoveryFailureClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind domain.EventKind
	}{
		{
			name:     "overload",
			err:      &llm.APIError{Provider: "gemini", StatusCode: 503, Message: "overloaded"},
			wantKind: domain.EventServiceError,
		},
		{
			name:     "quota",
			err:      &domain.QuotaError{Service: "discovery", Used: 1500, Limit: 1500},
			wantKind: domain.EventQuotaError,
		},
		{
			name:     "unknown",
			err:      errors.New("something odd"),
			wantKind: domain.EventError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disc := &fakeDiscoverer{fn: func(context.Context, []string) ([]domain.SkillSource, error) {
				return nil, tt.err
			}}
			events := make(chan domain.Event, 64)
			gen := generateAll()
			p := newBatchPipeline(disc, gen, events, 1000)

			p.Run(context.Background(), domain.Batch{Index: 4, Skills: []string{"a", "b"}}, 4)

			byKind := eventsByKind(drainEvents(events))
			require.Len(t, byKind[tt.wantKind], 1)
			payload := byKind[tt.wantKind][0].Err
			assert.Equal(t, 4, payload.BatchIndex, "discovery failures are batch-scoped")

			batch := byKind[domain.EventBatchCompleted][0].Batch
			assert.Equal(t, domain.BatchFailed, batch.Outcome)
			assert.Empty(t, gen.Calls(), "generation is never reached")

			if tt.wantKind == domain.EventQuotaError {
				assert.NotEmpty(t, payload.UserMessage)
			}
		})
	}
}
