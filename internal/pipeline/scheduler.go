package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

// Scheduler launches one batch pipeline per batch under an admission gate of
// fixed capacity. Batches beyond the capacity queue on the gate; a failure
// inside one pipeline never cancels or blocks another.
type Scheduler struct {
	maxConcurrent int
	stagger       time.Duration
	logger        zerolog.Logger
}

// NewScheduler creates a Scheduler admitting up to maxConcurrent pipelines at
// once. stagger spaces out launches to soften the initial burst against the
// discovery provider; zero disables it.
func NewScheduler(maxConcurrent int, stagger time.Duration, logger zerolog.Logger) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Scheduler{maxConcurrent: maxConcurrent, stagger: stagger, logger: logger}
}

// Dispatch launches every batch and returns without waiting; completion is
// observed through the batch_completed events each pipeline emits. Pipelines
// still queued on the gate when ctx dies exit without running.
func (s *Scheduler) Dispatch(ctx context.Context, batches []domain.Batch, run func(ctx context.Context, batch domain.Batch)) {
	gate := make(chan struct{}, s.maxConcurrent)

	go func() {
		for i, batch := range batches {
			if s.stagger > 0 && i > 0 {
				select {
				case <-time.After(s.stagger):
				case <-ctx.Done():
					return
				}
			}

			go func(batch domain.Batch) {
				select {
				case gate <- struct{}{}:
				case <-ctx.Done():
					return
				}
				defer func() { <-gate }()

				s.logger.Debug().Int("batch_index", batch.Index).Msg("batch admitted")
				run(ctx, batch)
			}(batch)
		}
	}()
}
