package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/splitsignal/splitsignal/internal/experiment/bandit"
	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	"github.com/splitsignal/splitsignal/internal/experiment/sink"
	"github.com/splitsignal/splitsignal/internal/experiment/storage"
	"go.uber.org/zap"
)

// Decision is the outcome of an assignment request. Excluded subjects carry
// no assignment; everyone else carries the sticky assignment and its variant.
type Decision struct {
	Excluded   bool
	Created    bool
	Assignment domain.Assignment
	Variant    domain.Variant
}

// AssignVariant resolves the variant for a subject. The decision is sticky:
// the first call picks a variant via the experiment's strategy, every later
// call returns the same assignment regardless of how the statistics have
// moved since.
func (s *Service) AssignVariant(ctx context.Context, experimentID, subjectID string, subjectContext map[string]string) (Decision, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return Decision{}, domain.ErrSubjectEmpty
	}

	experiment, err := s.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return Decision{}, err
	}
	if experiment.Status != domain.StatusRunning {
		return Decision{}, domain.ErrStatusDisallowsOperation
	}

	// Sticky fast path: no lock needed for an existing assignment.
	if existing, err := s.store.GetAssignmentBySubject(ctx, experimentID, subjectID); err == nil {
		return s.decisionFor(ctx, existing, false)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Decision{}, err
	}

	fraction := allocationFraction(experimentID, subjectID)
	if fraction >= experiment.Config.TrafficAllocation {
		return Decision{Excluded: true}, nil
	}

	lock := s.lockFor(experimentID)
	lock.Lock()
	defer lock.Unlock()

	// A racing writer may have assigned while we waited on the stripe.
	if existing, err := s.store.GetAssignmentBySubject(ctx, experimentID, subjectID); err == nil {
		return s.decisionFor(ctx, existing, false)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Decision{}, err
	}

	variants, err := s.store.ListVariantsByExperiment(ctx, experimentID)
	if err != nil {
		return Decision{}, err
	}

	index, err := s.selectVariant(experiment, variants, fraction)
	if err != nil {
		return Decision{}, err
	}
	chosen := variants[index]

	assignmentID, err := s.newID()
	if err != nil {
		return Decision{}, fmt.Errorf("generate assignment id: %w", err)
	}
	assignment := domain.Assignment{
		ID:           assignmentID,
		ExperimentID: experimentID,
		VariantID:    chosen.ID,
		SubjectID:    subjectID,
		Context:      subjectContext,
		AssignedAt:   s.now().UTC(),
	}

	stored, created, err := s.store.CreateAssignment(ctx, assignment)
	if err != nil {
		return Decision{}, err
	}
	if !created {
		// Lost the conflict race on the unique (experiment, subject) row.
		return s.decisionFor(ctx, stored, false)
	}

	s.logger.Debug("subject assigned",
		zap.String("experiment_id", experimentID),
		zap.String("subject_id", subjectID),
		zap.String("variant_id", chosen.ID))
	s.events.Publish(ctx, sink.Event{
		Type:         sink.TypeSubjectAssigned,
		ExperimentID: experimentID,
		VariantID:    chosen.ID,
		SubjectID:    subjectID,
		OccurredAt:   stored.AssignedAt,
	})
	return Decision{Created: true, Assignment: stored, Variant: chosen}, nil
}

// selectVariant dispatches to the experiment's strategy against a stats
// snapshot. fraction is the subject's allocation hash, already known to be
// below the traffic allocation.
func (s *Service) selectVariant(experiment domain.Experiment, variants []domain.Variant, fraction float64) (int, error) {
	arms := snapshotArms(variants)

	switch experiment.Config.Strategy {
	case domain.StrategyThompson:
		return bandit.Thompson(arms, experiment.Config.PriorAlpha, experiment.Config.PriorBeta, s.newSource())
	case domain.StrategyUCB:
		return bandit.UCB(arms, experiment.Config.Exploration)
	case domain.StrategyEpsilonGreedy:
		return bandit.EpsilonGreedy(arms, experiment.Config.Epsilon, s.newSource())
	case domain.StrategyBayesianAB:
		// Rescale the hash to [0, 1) within the admitted traffic so the
		// chosen variant stays a pure function of the subject.
		return bandit.FixedSplit(arms, fraction/experiment.Config.TrafficAllocation)
	default:
		return 0, domain.ErrInvalidStrategy
	}
}

func (s *Service) decisionFor(ctx context.Context, assignment domain.Assignment, created bool) (Decision, error) {
	variant, err := s.store.GetVariant(ctx, assignment.VariantID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Created: created, Assignment: assignment, Variant: variant}, nil
}

// snapshotArms projects variants into immutable strategy inputs.
func snapshotArms(variants []domain.Variant) []bandit.Arm {
	arms := make([]bandit.Arm, len(variants))
	for i, variant := range variants {
		arms[i] = bandit.Arm{
			VariantID:    variant.ID,
			Observations: variant.Stats.Observations,
			Successes:    variant.Stats.Successes,
			Failures:     variant.Stats.Failures,
			Mean:         variant.Stats.Mean,
			Weight:       variant.Weight,
		}
	}
	return arms
}

// allocationFraction hashes (experiment, subject) to a stable fraction in
// [0, 1). The top 53 bits of the FNV-1a hash keep the full float64 mantissa.
func allocationFraction(experimentID, subjectID string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(experimentID))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(subjectID))
	return float64(h.Sum64()>>11) / (1 << 53)
}
