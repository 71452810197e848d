// Package events provides the optional Kafka publisher that mirrors each
// run's terminal event to downstream consumers (billing, analytics).
// Publishing is best effort: the run's own event stream is the source of
// truth and never waits on Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

// Config holds configuration for the terminal-event publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for run terminal events.
	Topic string
	// BatchTimeout is the maximum time to wait for a batch to fill.
	BatchTimeout time.Duration
}

// runTerminalRecord is the wire format of one published terminal event.
type runTerminalRecord struct {
	RunID      string       `json:"run_id"`
	FinishedAt time.Time    `json:"finished_at"`
	Event      domain.Event `json:"event"`
}

// Publisher writes run terminal events to Kafka, keyed by run ID so all
// events for one run land in the same partition.
type Publisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewPublisher creates a new terminal-event publisher.
func NewPublisher(cfg Config, logger zerolog.Logger) *Publisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{writer: writer, logger: logger}
}

// Publish writes one terminal event. Callers treat failures as advisory; the
// error is returned for logging only.
func (p *Publisher) Publish(ctx context.Context, runID string, e domain.Event) error {
	if !e.IsTerminal() {
		return fmt.Errorf("events: refusing to publish non-terminal event %q", e.Kind)
	}

	value, err := json.Marshal(runTerminalRecord{
		RunID:      runID,
		FinishedAt: time.Now().UTC(),
		Event:      e,
	})
	if err != nil {
		return fmt.Errorf("events: marshal terminal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(runID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("events: write terminal event: %w", err)
	}

	p.logger.Debug().Str("run_id", runID).Str("kind", string(e.Kind)).Msg("terminal event published")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
