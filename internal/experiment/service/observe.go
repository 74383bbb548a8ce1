package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	"github.com/splitsignal/splitsignal/internal/experiment/sink"
	"go.uber.org/zap"
)

// RecordObservation appends one metric event to an assignment. Primary-metric
// observations fold into the variant's statistics atomically with the append;
// secondary metrics are journaled only. Recording is not idempotent, so
// duplicate deliveries double-count unless deduplicated upstream.
func (s *Service) RecordObservation(ctx context.Context, assignmentID, metric string, value float64) (domain.Observation, domain.Variant, error) {
	metric = strings.TrimSpace(metric)
	if metric == "" {
		return domain.Observation{}, domain.Variant{}, domain.ErrMetricEmpty
	}

	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Observation{}, domain.Variant{}, err
	}

	experiment, err := s.store.GetExperiment(ctx, assignment.ExperimentID)
	if err != nil {
		return domain.Observation{}, domain.Variant{}, err
	}
	if experiment.Status != domain.StatusRunning {
		return domain.Observation{}, domain.Variant{}, domain.ErrStatusDisallowsOperation
	}
	if !experiment.AcceptsMetric(metric) {
		return domain.Observation{}, domain.Variant{}, domain.ErrUnknownMetric
	}

	observationID, err := s.newID()
	if err != nil {
		return domain.Observation{}, domain.Variant{}, fmt.Errorf("generate observation id: %w", err)
	}
	observation := domain.Observation{
		ID:           observationID,
		AssignmentID: assignment.ID,
		ExperimentID: assignment.ExperimentID,
		VariantID:    assignment.VariantID,
		Metric:       metric,
		Value:        value,
		RecordedAt:   s.now().UTC(),
	}

	// Only the primary metric drives the selection statistics.
	fold := metric == experiment.Config.PrimaryMetric

	lock := s.lockFor(assignment.ExperimentID)
	lock.Lock()
	variant, err := s.store.AppendObservation(ctx, observation, fold, experiment.Config.PrimaryMetricBinary)
	lock.Unlock()
	if err != nil {
		return domain.Observation{}, domain.Variant{}, err
	}

	s.logger.Debug("observation recorded",
		zap.String("experiment_id", assignment.ExperimentID),
		zap.String("variant_id", assignment.VariantID),
		zap.String("metric", metric),
		zap.Float64("value", value))
	s.events.Publish(ctx, sink.Event{
		Type:         sink.TypeObservationRecorded,
		ExperimentID: assignment.ExperimentID,
		VariantID:    assignment.VariantID,
		SubjectID:    assignment.SubjectID,
		Metric:       metric,
		Value:        value,
		OccurredAt:   observation.RecordedAt,
	})
	return observation, variant, nil
}
