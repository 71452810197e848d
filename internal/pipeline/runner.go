package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/extract"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/observability"
)

// RunnerConfig holds the orchestration knobs for a run.
type RunnerConfig struct {
	// SkillCount is how many skills to extract from the resume.
	SkillCount int

	// BatchSize is the number of skills per batch.
	BatchSize int

	// MaxConcurrentBatches bounds simultaneous batch pipelines.
	MaxConcurrentBatches int

	// SafeTokenLimit and TokenDivisor feed the token-budget decision.
	SafeTokenLimit int
	TokenDivisor   int

	// GlobalTimeout is the wall-clock budget for the whole run.
	GlobalTimeout time.Duration

	// BatchStaggerDelay spaces out batch launches.
	BatchStaggerDelay time.Duration
}

// TerminalPublisher mirrors a run's terminal event to an external system.
// Publishing is best effort; failures are logged, never surfaced.
type TerminalPublisher interface {
	Publish(ctx context.Context, runID string, e domain.Event) error
}

// Runner drives one full run: skill extraction, partitioning, scheduling the
// batch pipelines, and draining their events under the global deadline.
type Runner struct {
	cfg        RunnerConfig
	extractor  extract.SkillExtractor
	discoverer SourceDiscoverer
	generator  QuestionGenerator
	publisher  TerminalPublisher

	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewRunner creates a Runner. publisher and metrics may be nil.
func NewRunner(
	cfg RunnerConfig,
	extractor extract.SkillExtractor,
	discoverer SourceDiscoverer,
	generator QuestionGenerator,
	publisher TerminalPublisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		cfg:        cfg,
		extractor:  extractor,
		discoverer: discoverer,
		generator:  generator,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run processes a resume end to end, forwarding events to emit as they
// happen. Pre-flight failures (extraction, partitioning) are returned as
// errors before any batch work starts; once batches are dispatched, the run
// always ends with exactly one terminal event (complete or timeout) and a nil
// error.
func (r *Runner) Run(ctx context.Context, runID, resume string, emit func(domain.Event)) error {
	logger := observability.WithRunContext(r.logger, runID)
	if r.metrics != nil {
		r.metrics.RunsStarted.Inc()
	}

	emit(domain.StatusEvent("step_1"))
	emit(domain.StatusEvent("Analyzing your resume..."))

	skills, err := r.extractor.Extract(ctx, resume, r.cfg.SkillCount)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RunsFailed.Inc()
		}
		return fmt.Errorf("run %s: %w", runID, err)
	}
	logger.Info().Strs("skills", skills).Msg("skills extracted")
	emit(domain.StatusEvent(fmt.Sprintf("Found %d skills to prepare for", len(skills))))

	batches, err := Partition(skills, r.cfg.BatchSize)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RunsFailed.Inc()
		}
		return fmt.Errorf("run %s: %w", runID, err)
	}
	logger.Info().Int("batches", len(batches)).Int("batch_size", r.cfg.BatchSize).Msg("work partitioned")

	// Cancelled once the drain ends so abandoned pipelines stop emitting
	// and unwind instead of leaking.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan domain.Event, 64)
	bp := NewBatchPipeline(r.discoverer, r.generator, events, BatchPipelineConfig{
		SafeTokenLimit: r.cfg.SafeTokenLimit,
		TokenDivisor:   r.cfg.TokenDivisor,
	}, r.metrics, logger)

	NewScheduler(r.cfg.MaxConcurrentBatches, r.cfg.BatchStaggerDelay, logger).
		Dispatch(runCtx, batches, func(ctx context.Context, batch domain.Batch) {
			bp.Run(ctx, batch, len(batches))
		})

	var terminal domain.Event
	NewAggregator(r.metrics, logger).
		Drain(runCtx, events, len(batches), r.cfg.GlobalTimeout, func(e domain.Event) {
			if e.IsTerminal() {
				terminal = e
			}
			emit(e)
		})

	if r.publisher != nil && terminal.Kind != "" {
		if err := r.publisher.Publish(ctx, runID, terminal); err != nil {
			logger.Warn().Err(err).Msg("failed to publish terminal event")
		}
	}
	return nil
}
