// Package sink publishes experiment lifecycle and decision events for
// downstream consumers. Publishing is fire-and-forget: a slow or absent
// broker never blocks or fails the operation that produced the event.
package sink

import (
	"context"
	"time"
)

// Event types emitted by the engine.
const (
	TypeExperimentCreated   = "experiment.created"
	TypeExperimentStarted   = "experiment.started"
	TypeExperimentConcluded = "experiment.concluded"
	TypeSubjectAssigned     = "subject.assigned"
	TypeObservationRecorded = "observation.recorded"
)

// Event is one engine occurrence worth broadcasting.
type Event struct {
	Type         string    `json:"type"`
	ExperimentID string    `json:"experiment_id"`
	VariantID    string    `json:"variant_id,omitempty"`
	SubjectID    string    `json:"subject_id,omitempty"`
	Metric       string    `json:"metric,omitempty"`
	Value        float64   `json:"value,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Sink receives engine events.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// Noop discards every event. It is the default when no broker is configured.
type Noop struct{}

// Publish implements Sink.
func (Noop) Publish(context.Context, Event) {}
