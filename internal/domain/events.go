package domain

import "time"

// EventKind identifies the variant of a pipeline Event.
type EventKind string

// Event kinds emitted by the orchestration pipeline. BatchCompleted is
// internal bookkeeping consumed by the aggregator; every other kind is
// forwarded to the streaming boundary as emitted.
const (
	EventStatus         EventKind = "status"
	EventData           EventKind = "data"
	EventError          EventKind = "error"
	EventServiceError   EventKind = "service_error"
	EventQuotaError     EventKind = "quota_error"
	EventBatchCompleted EventKind = "batch_completed"
	EventComplete       EventKind = "complete"
	EventTimeout        EventKind = "timeout"
)

// ErrorPayload describes a topic- or batch-scoped failure. Exactly one of
// Skill or BatchIndex is meaningful depending on scope; BatchIndex is 0 for
// skill-scoped errors.
type ErrorPayload struct {
	// Skill is the affected skill for skill-scoped errors.
	Skill string `json:"skill,omitempty"`

	// BatchIndex is the 1-based batch index for batch-scoped errors.
	BatchIndex int `json:"batch_index,omitempty"`

	// Error is the error text.
	Error string `json:"error"`

	// ErrorType is the classification label (e.g. "service_overload",
	// "quota_exhausted", "unknown").
	ErrorType string `json:"error_type,omitempty"`

	// UserMessage is an optional operator-facing explanation for quota
	// failures that are not system errors.
	UserMessage string `json:"user_message,omitempty"`
}

// BatchCompletedPayload carries per-batch accounting for the aggregator.
type BatchCompletedPayload struct {
	BatchIndex      int          `json:"batch_index"`
	TotalSkills     int          `json:"total_skills"`
	ProcessedSkills int          `json:"processed_skills"`
	Outcome         BatchOutcome `json:"outcome"`
}

// CompletePayload is the terminal payload of a run that drained normally.
type CompletePayload struct {
	// TotalResults is the number of data events emitted during the run.
	TotalResults int `json:"total_results"`

	// BatchesSucceeded, BatchesPartial and BatchesFailed break the run down
	// by batch outcome.
	BatchesSucceeded int `json:"batches_succeeded"`
	BatchesPartial   int `json:"batches_partial"`
	BatchesFailed    int `json:"batches_failed"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration_ns"`
}

// TimeoutPayload is the terminal payload of a run that exceeded its budget.
type TimeoutPayload struct {
	// Budget is the configured wall-clock budget that was exhausted.
	Budget time.Duration `json:"budget_ns"`

	// ResultsSoFar is the number of data events delivered before expiry.
	ResultsSoFar int `json:"results_so_far"`
}

// Event is the tagged-variant message flowing from pipeline stages to the
// aggregator and onward to the streaming boundary. Kind selects which payload
// field is set; all others are nil or zero.
type Event struct {
	Kind EventKind `json:"kind"`

	// Status is set for EventStatus (a phase transition or progress note).
	Status string `json:"status,omitempty"`

	// Data is set for EventData.
	Data *SkillQuestions `json:"data,omitempty"`

	// Err is set for EventError, EventServiceError and EventQuotaError.
	Err *ErrorPayload `json:"error,omitempty"`

	// Batch is set for EventBatchCompleted.
	Batch *BatchCompletedPayload `json:"batch,omitempty"`

	// Complete is set for EventComplete.
	Complete *CompletePayload `json:"complete,omitempty"`

	// Timeout is set for EventTimeout.
	Timeout *TimeoutPayload `json:"timeout,omitempty"`
}

// StatusEvent creates a status event.
func StatusEvent(status string) Event {
	return Event{Kind: EventStatus, Status: status}
}

// DataEvent creates a data event for one skill's generated questions.
func DataEvent(result SkillQuestions) Event {
	return Event{Kind: EventData, Data: &result}
}

// SkillErrorEvent creates a skill-scoped error event.
func SkillErrorEvent(skill string, err error) Event {
	return Event{Kind: EventError, Err: &ErrorPayload{Skill: skill, Error: err.Error()}}
}

// BatchCompletedEvent creates the per-batch completion signal.
func BatchCompletedEvent(p BatchCompletedPayload) Event {
	return Event{Kind: EventBatchCompleted, Batch: &p}
}

// IsTerminal reports whether the event ends the run's event stream.
func (e Event) IsTerminal() bool {
	return e.Kind == EventComplete || e.Kind == EventTimeout
}
