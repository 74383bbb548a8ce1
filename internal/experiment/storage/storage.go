// Package storage defines the persistence boundary for the engine.
//
// The statistical core never performs I/O itself; it reads snapshots from
// and applies deltas through these interfaces. Implementations must support
// the conditional assignment write that backs the sticky-assignment race
// guarantee.
package storage

import (
	"context"

	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	apperrors "github.com/splitsignal/splitsignal/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and wrong-state rejections.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ExperimentStore owns experiment and variant records.
type ExperimentStore interface {
	// CreateExperiment persists a new experiment together with its variant
	// set atomically; a failed variant write leaves no experiment behind.
	CreateExperiment(ctx context.Context, experiment domain.Experiment, variants []domain.Variant) error
	PutExperiment(ctx context.Context, experiment domain.Experiment) error
	GetExperiment(ctx context.Context, id string) (domain.Experiment, error)
	// ListExperiments returns a page of experiments in creation order
	// starting after the page token.
	ListExperiments(ctx context.Context, pageSize int, pageToken string) (ExperimentPage, error)
	PutVariant(ctx context.Context, variant domain.Variant) error
	GetVariant(ctx context.Context, id string) (domain.Variant, error)
	// ListVariantsByExperiment returns the experiment's variants in
	// insertion order. Selection algorithms rely on this order for
	// deterministic tie-breaking.
	ListVariantsByExperiment(ctx context.Context, experimentID string) ([]domain.Variant, error)
}

// ExperimentPage describes a page of experiment records.
type ExperimentPage struct {
	Experiments   []domain.Experiment
	NextPageToken string
}

// AssignmentStore owns the sticky (experiment, subject) -> variant mapping.
type AssignmentStore interface {
	// CreateAssignment persists the assignment unless one already exists
	// for the (experiment, subject) pair. It returns the stored assignment
	// and whether this call created it; when two writers race, exactly one
	// observes created=true and the other receives the winner's record.
	CreateAssignment(ctx context.Context, assignment domain.Assignment) (domain.Assignment, bool, error)
	GetAssignment(ctx context.Context, id string) (domain.Assignment, error)
	GetAssignmentBySubject(ctx context.Context, experimentID, subjectID string) (domain.Assignment, error)
}

// ObservationStore owns the append-only observation journal and the fold of
// observations into variant statistics.
type ObservationStore interface {
	// AppendObservation stores the observation and, when fold is set, folds
	// its value into the variant's statistics in the same transaction.
	// Binary controls the success/failure counting of the fold.
	AppendObservation(ctx context.Context, observation domain.Observation, fold, binary bool) (domain.Variant, error)
}

// Store bundles every persistence interface the engine consumes.
type Store interface {
	ExperimentStore
	AssignmentStore
	ObservationStore
	Close() error
}
