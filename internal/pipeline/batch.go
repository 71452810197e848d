package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/observability"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/retry"
)

// BatchPipeline runs the two-stage discovery -> generation state machine for
// one batch at a time. One instance is shared by every batch of a run; all
// per-batch state lives in Run's frame, so concurrent Run calls are safe.
//
// Failure isolation is the contract: whatever happens inside one Run, it
// emits exactly one batch_completed event and never panics into its siblings.
type BatchPipeline struct {
	discoverer SourceDiscoverer
	generator  QuestionGenerator
	events     chan<- domain.Event

	safeTokenLimit int
	tokenDivisor   int

	metrics *observability.Metrics
	logger  zerolog.Logger

	// step transitions are emitted once per run, by whichever batch gets
	// there first.
	discoveryStepOnce  sync.Once
	generationStepOnce sync.Once
}

// BatchPipelineConfig holds the knobs for one run's batch pipelines.
type BatchPipelineConfig struct {
	SafeTokenLimit int
	TokenDivisor   int
}

// NewBatchPipeline creates a BatchPipeline emitting onto events. metrics may
// be nil.
func NewBatchPipeline(
	discoverer SourceDiscoverer,
	generator QuestionGenerator,
	events chan<- domain.Event,
	cfg BatchPipelineConfig,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *BatchPipeline {
	return &BatchPipeline{
		discoverer:     discoverer,
		generator:      generator,
		events:         events,
		safeTokenLimit: cfg.SafeTokenLimit,
		tokenDivisor:   cfg.TokenDivisor,
		metrics:        metrics,
		logger:         logger,
	}
}

// Run processes one batch end to end. It always emits exactly one
// batch_completed event for the batch, regardless of outcome; recursive
// splits inside the generation stage are invisible to the consumer.
func (p *BatchPipeline) Run(ctx context.Context, batch domain.Batch, totalBatches int) {
	logger := observability.WithBatchContext(p.logger, batch.Index, totalBatches)
	label := fmt.Sprintf("Batch %d/%d", batch.Index, totalBatches)

	processed := 0
	defer func() {
		outcome := domain.BatchFailed
		switch {
		case processed == len(batch.Skills):
			outcome = domain.BatchSucceeded
		case processed > 0:
			outcome = domain.BatchPartial
		}
		if p.metrics != nil {
			p.metrics.BatchesCompleted.WithLabelValues(string(outcome)).Inc()
		}
		logger.Info().
			Int("processed", processed).
			Int("total", len(batch.Skills)).
			Str("outcome", string(outcome)).
			Msg("batch finished")
		p.emit(ctx, domain.BatchCompletedEvent(domain.BatchCompletedPayload{
			BatchIndex:      batch.Index,
			TotalSkills:     len(batch.Skills),
			ProcessedSkills: processed,
			Outcome:         outcome,
		}))
	}()

	// Discovering.
	p.discoveryStepOnce.Do(func() { p.emit(ctx, domain.StatusEvent("step_2")) })
	p.emit(ctx, domain.StatusEvent(fmt.Sprintf("Finding sources for %s...", label)))
	logger.Info().Msg("starting source discovery")

	sources, err := p.discoverer.Discover(ctx, batch.Skills)
	if err != nil {
		p.emitDiscoveryFailure(ctx, logger, batch, err)
		return
	}

	// BuildingContext: split context-free skills out of the token-budget
	// decision; they are prompted individually without sources.
	var withSources, contextFree []string
	hasContent := make(map[string]bool, len(sources))
	for _, src := range sources {
		if src.HasContent() {
			hasContent[src.Skill] = true
		}
	}
	for _, skill := range batch.Skills {
		if hasContent[skill] {
			withSources = append(withSources, skill)
		} else {
			contextFree = append(contextFree, skill)
		}
	}

	// Generating.
	p.generationStepOnce.Do(func() { p.emit(ctx, domain.StatusEvent("step_3")) })
	p.emit(ctx, domain.StatusEvent(fmt.Sprintf("Generating questions for %s...", label)))
	logger.Info().
		Int("with_sources", len(withSources)).
		Int("context_free", len(contextFree)).
		Msg("starting question generation")

	var count atomic.Int64
	var wg sync.WaitGroup
	if len(withSources) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count.Add(int64(p.processGroup(ctx, logger, withSources, sources, label)))
		}()
	}
	for _, skill := range contextFree {
		wg.Add(1)
		go func(skill string) {
			defer wg.Done()
			if p.processSingle(ctx, logger, skill, noContextMarker, label) {
				count.Add(1)
			}
		}(skill)
	}
	wg.Wait()

	processed = int(count.Load())
}

// emitDiscoveryFailure classifies a total discovery failure and emits one
// batch-scoped error event. Quota exhaustion gets its own event kind with an
// operator-facing message, since it is not a system fault.
func (p *BatchPipeline) emitDiscoveryFailure(ctx context.Context, logger zerolog.Logger, batch domain.Batch, err error) {
	category := retry.Classify(err)
	payload := &domain.ErrorPayload{
		BatchIndex: batch.Index,
		Error:      fmt.Sprintf("Batch %d failed: %v", batch.Index, err),
		ErrorType:  category.String(),
	}

	switch category {
	case retry.Quota:
		logger.Warn().Err(err).Msg("quota exhaustion detected")
		payload.UserMessage = "The LLM provider has reached its API request limit. " +
			"This is not a system error. Please try again later or contact support."
		p.emit(ctx, domain.Event{Kind: domain.EventQuotaError, Err: payload})
	case retry.Overload:
		logger.Error().Err(err).Msg("discovery failed: service overloaded")
		p.emit(ctx, domain.Event{Kind: domain.EventServiceError, Err: payload})
	default:
		logger.Error().Err(err).Msg("discovery failed")
		p.emit(ctx, domain.Event{Kind: domain.EventError, Err: payload})
	}
}

// processGroup generates questions for a context-bearing skill group,
// bisecting it while the merged context exceeds the token budget. The halves
// recurse concurrently and independently; a single over-budget skill is
// generated anyway rather than split further. Returns the number of skills
// that produced questions.
func (p *BatchPipeline) processGroup(ctx context.Context, logger zerolog.Logger, skills []string, sources []domain.SkillSource, label string) int {
	if len(skills) == 0 {
		return 0
	}

	contextStr := buildContext(sources, skills)
	estimate := estimateTokens(contextStr, p.tokenDivisor)

	if len(skills) == 1 {
		// Irreducible unit: generate even when over budget and accept a
		// possible provider-side truncation instead of recursing forever.
		if estimate > p.safeTokenLimit {
			logger.Warn().Str("skill", skills[0]).Int("estimate", estimate).
				Msg("single-skill context exceeds budget, generating anyway")
		}
		if p.processSingle(ctx, logger, skills[0], contextStr, label) {
			return 1
		}
		return 0
	}

	if estimate <= p.safeTokenLimit {
		logger.Debug().Int("skills", len(skills)).Int("estimate", estimate).Msg("group fits token budget")
		return p.generateGroup(ctx, logger, skills, contextStr, label)
	}

	// Splitting: bisect and recurse concurrently.
	if p.metrics != nil {
		p.metrics.BatchSplits.Inc()
	}
	mid := len(skills) / 2
	logger.Info().
		Int("estimate", estimate).
		Int("limit", p.safeTokenLimit).
		Int("left", mid).
		Int("right", len(skills)-mid).
		Msg("splitting group over token budget")

	var count atomic.Int64
	var wg sync.WaitGroup
	halves := []struct {
		skills []string
		label  string
	}{
		{skills[:mid], label + "-L"},
		{skills[mid:], label + "-R"},
	}
	for _, half := range halves {
		wg.Add(1)
		go func(skills []string, label string) {
			defer wg.Done()
			count.Add(int64(p.processGroup(ctx, logger, skills, sources, label)))
		}(half.skills, half.label)
	}
	wg.Wait()
	return int(count.Load())
}

// generateGroup runs one generation call for a group and emits its results.
func (p *BatchPipeline) generateGroup(ctx context.Context, logger zerolog.Logger, skills []string, contextStr, label string) int {
	result, err := p.generator.Generate(ctx, skills, contextStr)
	if err != nil {
		logger.Error().Err(err).Str("group", label).Msg("group generation failed")
		for _, skill := range skills {
			p.emitSkillFailure(ctx, skill, err)
		}
		return 0
	}
	return p.emitResults(ctx, logger, result, skills, label)
}

// processSingle generates questions for one skill, with or without context.
func (p *BatchPipeline) processSingle(ctx context.Context, logger zerolog.Logger, skill, contextStr, label string) bool {
	result, err := p.generator.Generate(ctx, []string{skill}, contextStr)
	if err != nil {
		logger.Error().Err(err).Str("skill", skill).Msg("skill generation failed")
		p.emitSkillFailure(ctx, skill, err)
		return false
	}
	return p.emitResults(ctx, logger, result, []string{skill}, label) > 0
}

// emitResults validates a generation result by count, emits a data event per
// returned skill, and error events for the shortfall. Skill names in the
// result are canonical; only counts are compared, because models reformat
// names freely.
func (p *BatchPipeline) emitResults(ctx context.Context, logger zerolog.Logger, result *domain.QuestionSet, expected []string, label string) int {
	if result == nil || len(result.AllQuestions) == 0 {
		for _, skill := range expected {
			p.emitSkillFailure(ctx, skill, fmt.Errorf("no questions generated"))
		}
		return 0
	}

	for _, item := range result.AllQuestions {
		if p.metrics != nil {
			p.metrics.SkillsProcessed.Inc()
		}
		p.emit(ctx, domain.DataEvent(item))
	}

	received := len(result.AllQuestions)
	if received < len(expected) {
		logger.Warn().
			Str("group", label).
			Int("expected", len(expected)).
			Int("received", received).
			Msg("incomplete generation result")
		return received
	}
	return len(expected)
}

func (p *BatchPipeline) emitSkillFailure(ctx context.Context, skill string, err error) {
	if p.metrics != nil {
		p.metrics.SkillsFailed.Inc()
	}
	p.emit(ctx, domain.SkillErrorEvent(skill, err))
}

// emit sends an event unless the run context is gone; after a run is
// abandoned nobody drains the channel, so an unconditional send would leak
// this goroutine.
func (p *BatchPipeline) emit(ctx context.Context, e domain.Event) {
	select {
	case p.events <- e:
	case <-ctx.Done():
	}
}
