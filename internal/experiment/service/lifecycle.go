package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	"github.com/splitsignal/splitsignal/internal/experiment/sink"
	"github.com/splitsignal/splitsignal/internal/experiment/storage"
	"go.uber.org/zap"
)

// CreateExperiment validates the input, persists a draft experiment with its
// variant set, and returns both.
func (s *Service) CreateExperiment(ctx context.Context, input domain.CreateExperimentInput) (domain.Experiment, []domain.Variant, error) {
	experiment, variants, err := domain.CreateExperiment(input, s.now, s.newID)
	if err != nil {
		return domain.Experiment{}, nil, err
	}

	if err := s.store.CreateExperiment(ctx, experiment, variants); err != nil {
		return domain.Experiment{}, nil, fmt.Errorf("persist experiment: %w", err)
	}

	s.logger.Info("experiment created",
		zap.String("experiment_id", experiment.ID),
		zap.String("strategy", string(experiment.Config.Strategy)),
		zap.Int("variants", len(variants)))
	s.events.Publish(ctx, sink.Event{
		Type:         sink.TypeExperimentCreated,
		ExperimentID: experiment.ID,
		OccurredAt:   experiment.CreatedAt,
	})
	return experiment, variants, nil
}

// StartExperiment transitions a draft experiment to running.
func (s *Service) StartExperiment(ctx context.Context, experimentID string) (domain.Experiment, error) {
	lock := s.lockFor(experimentID)
	lock.Lock()
	defer lock.Unlock()

	experiment, err := s.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return domain.Experiment{}, err
	}
	if err := experiment.Start(s.now); err != nil {
		return domain.Experiment{}, err
	}
	if err := s.store.PutExperiment(ctx, experiment); err != nil {
		return domain.Experiment{}, fmt.Errorf("persist experiment: %w", err)
	}

	s.logger.Info("experiment started", zap.String("experiment_id", experiment.ID))
	s.events.Publish(ctx, sink.Event{
		Type:         sink.TypeExperimentStarted,
		ExperimentID: experiment.ID,
		OccurredAt:   *experiment.StartedAt,
	})
	return experiment, nil
}

// ConcludeExperiment transitions a running experiment to completed. When no
// winner is supplied, the winner defaults from the current stats
// recommendation, which may legitimately be empty.
func (s *Service) ConcludeExperiment(ctx context.Context, experimentID, winnerVariantID string) (domain.Experiment, error) {
	winnerVariantID = strings.TrimSpace(winnerVariantID)

	lock := s.lockFor(experimentID)
	lock.Lock()
	defer lock.Unlock()

	experiment, err := s.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return domain.Experiment{}, err
	}
	// State conflicts outrank winner validation: concluding from the wrong
	// state reports the transition error even when the winner id is foreign.
	if !domain.IsStatusTransitionAllowed(experiment.Status, domain.StatusCompleted) {
		return domain.Experiment{}, domain.ErrInvalidStatusTransition
	}

	variants, err := s.store.ListVariantsByExperiment(ctx, experimentID)
	if err != nil {
		return domain.Experiment{}, err
	}

	if winnerVariantID == "" {
		winnerVariantID = s.recommendWinner(experiment, variants)
	} else if !variantBelongs(variants, winnerVariantID) {
		return domain.Experiment{}, storage.ErrNotFound
	}

	if err := experiment.Conclude(winnerVariantID, s.now); err != nil {
		return domain.Experiment{}, err
	}
	if err := s.store.PutExperiment(ctx, experiment); err != nil {
		return domain.Experiment{}, fmt.Errorf("persist experiment: %w", err)
	}

	s.logger.Info("experiment concluded",
		zap.String("experiment_id", experiment.ID),
		zap.String("winner_variant_id", experiment.WinnerVariantID))
	s.events.Publish(ctx, sink.Event{
		Type:         sink.TypeExperimentConcluded,
		ExperimentID: experiment.ID,
		VariantID:    experiment.WinnerVariantID,
		OccurredAt:   *experiment.ConcludedAt,
	})
	return experiment, nil
}

// GetExperiment retrieves one experiment with its variants.
func (s *Service) GetExperiment(ctx context.Context, experimentID string) (domain.Experiment, []domain.Variant, error) {
	experiment, err := s.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return domain.Experiment{}, nil, err
	}
	variants, err := s.store.ListVariantsByExperiment(ctx, experimentID)
	if err != nil {
		return domain.Experiment{}, nil, err
	}
	return experiment, variants, nil
}

// ListExperiments returns a page of experiments in creation order.
func (s *Service) ListExperiments(ctx context.Context, pageSize int, pageToken string) (storage.ExperimentPage, error) {
	return s.store.ListExperiments(ctx, pageSize, pageToken)
}

func variantBelongs(variants []domain.Variant, variantID string) bool {
	for _, variant := range variants {
		if variant.ID == variantID {
			return true
		}
	}
	return false
}
