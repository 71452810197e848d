package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/observability"
)

// Summary is the aggregator's account of one drained run.
type Summary struct {
	// TotalResults is the number of data events forwarded.
	TotalResults int

	// Succeeded, Partial and Failed count batches by outcome.
	Succeeded int
	Partial   int
	Failed    int

	// TimedOut reports whether the run ended on the deadline instead of
	// draining normally.
	TimedOut bool

	// Duration is the wall-clock time of the drain.
	Duration time.Duration
}

// Aggregator merges the event streams of all concurrently running batch
// pipelines into one ordered sequence for the external boundary, and bounds
// the whole drain with the run's wall-clock budget.
type Aggregator struct {
	metrics *observability.Metrics
	logger  zerolog.Logger

	nowFn func() time.Time
}

// NewAggregator creates an Aggregator. metrics may be nil.
func NewAggregator(metrics *observability.Metrics, logger zerolog.Logger) *Aggregator {
	return &Aggregator{metrics: metrics, logger: logger, nowFn: time.Now}
}

// Drain consumes events until totalBatches batch_completed events have been
// observed or the budget expires, forwarding every non-bookkeeping event to
// emit as it arrives.
//
// batch_completed events update the summary and are not forwarded. On normal
// termination exactly one complete event is emitted; on budget expiry exactly
// one timeout event. Pipelines still running at expiry are abandoned: their
// sends are dropped once the run context is cancelled by the caller.
func (a *Aggregator) Drain(ctx context.Context, events <-chan domain.Event, totalBatches int, budget time.Duration, emit func(domain.Event)) Summary {
	start := a.nowFn()
	deadline := time.NewTimer(budget)
	defer deadline.Stop()

	var s Summary
	completed := 0
	for completed < totalBatches {
		select {
		case e := <-events:
			if e.Kind == domain.EventBatchCompleted {
				completed++
				switch e.Batch.Outcome {
				case domain.BatchSucceeded:
					s.Succeeded++
				case domain.BatchPartial:
					s.Partial++
				default:
					s.Failed++
				}
				continue
			}
			if e.Kind == domain.EventData {
				s.TotalResults++
			}
			emit(e)

		case <-deadline.C:
			s.TimedOut = true
			s.Duration = a.nowFn().Sub(start)
			a.logger.Warn().
				Dur("budget", budget).
				Int("completed_batches", completed).
				Int("results", s.TotalResults).
				Msg("run deadline exceeded, abandoning remaining work")
			if a.metrics != nil {
				a.metrics.RunsTimedOut.Inc()
			}
			emit(domain.Event{
				Kind: domain.EventTimeout,
				Timeout: &domain.TimeoutPayload{
					Budget:       budget,
					ResultsSoFar: s.TotalResults,
				},
			})
			return s

		case <-ctx.Done():
			// The caller is gone; nobody is listening, so no terminal
			// event is emitted.
			s.Duration = a.nowFn().Sub(start)
			return s
		}
	}

	s.Duration = a.nowFn().Sub(start)
	a.logger.Info().
		Int("results", s.TotalResults).
		Int("succeeded", s.Succeeded).
		Int("partial", s.Partial).
		Int("failed", s.Failed).
		Dur("duration", s.Duration).
		Msg("run complete")
	if a.metrics != nil {
		a.metrics.RunsCompleted.Inc()
		a.metrics.RunDuration.Observe(s.Duration.Seconds())
	}
	emit(domain.Event{
		Kind: domain.EventComplete,
		Complete: &domain.CompletePayload{
			TotalResults:     s.TotalResults,
			BatchesSucceeded: s.Succeeded,
			BatchesPartial:   s.Partial,
			BatchesFailed:    s.Failed,
			Duration:         s.Duration,
		},
	})
	return s
}
