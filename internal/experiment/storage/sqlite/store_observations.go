package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	"github.com/splitsignal/splitsignal/internal/experiment/storage"
)

// Observation methods

// AppendObservation stores the observation and, when fold is set, folds its
// value into the variant's statistics in the same transaction. The returned
// variant reflects the post-fold state.
func (s *Store) AppendObservation(ctx context.Context, observation domain.Observation, fold, binary bool) (domain.Variant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Variant{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Variant{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(observation.ID) == "" {
		return domain.Variant{}, fmt.Errorf("observation id is required")
	}
	if strings.TrimSpace(observation.AssignmentID) == "" {
		return domain.Variant{}, fmt.Errorf("assignment id is required")
	}
	if strings.TrimSpace(observation.ExperimentID) == "" {
		return domain.Variant{}, fmt.Errorf("experiment id is required")
	}
	if strings.TrimSpace(observation.VariantID) == "" {
		return domain.Variant{}, fmt.Errorf("variant id is required")
	}
	if strings.TrimSpace(observation.Metric) == "" {
		return domain.Variant{}, fmt.Errorf("metric is required")
	}
	if observation.RecordedAt.IsZero() {
		return domain.Variant{}, fmt.Errorf("recorded_at is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
SELECT `+variantColumns+`
FROM variants
WHERE id = ?
`, observation.VariantID)
	variant, err := scanVariant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Variant{}, storage.ErrNotFound
		}
		return domain.Variant{}, fmt.Errorf("get variant: %w", err)
	}

	if fold {
		variant.Stats.Record(observation.Value, binary)
		variant.UpdatedAt = observation.RecordedAt.UTC()
		if _, err := tx.ExecContext(ctx, `
UPDATE variants
SET observations = ?, successes = ?, failures = ?, mean = ?, m2 = ?, updated_at = ?
WHERE id = ?
`,
			variant.Stats.Observations,
			variant.Stats.Successes,
			variant.Stats.Failures,
			variant.Stats.Mean,
			variant.Stats.M2,
			toMillis(variant.UpdatedAt),
			variant.ID,
		); err != nil {
			return domain.Variant{}, fmt.Errorf("update variant stats: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO observations (
		id, assignment_id, experiment_id, variant_id, metric, value, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		observation.ID,
		observation.AssignmentID,
		observation.ExperimentID,
		observation.VariantID,
		observation.Metric,
		observation.Value,
		toMillis(observation.RecordedAt),
	); err != nil {
		if isUniqueConstraintError(err) {
			return domain.Variant{}, fmt.Errorf("observation already recorded: %w", err)
		}
		return domain.Variant{}, fmt.Errorf("append observation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Variant{}, fmt.Errorf("commit: %w", err)
	}
	return variant, nil
}
