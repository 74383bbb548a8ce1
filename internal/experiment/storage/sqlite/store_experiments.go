package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	"github.com/splitsignal/splitsignal/internal/experiment/storage"
	apperrors "github.com/splitsignal/splitsignal/internal/platform/errors"
	"github.com/splitsignal/splitsignal/internal/platform/storage/cursor"
)

// Experiment methods

// CreateExperiment persists a new experiment together with its variant set
// in one transaction, so a failed variant write leaves no experiment behind.
func (s *Store) CreateExperiment(ctx context.Context, experiment domain.Experiment, variants []domain.Variant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := validateExperiment(experiment); err != nil {
		return err
	}
	for _, variant := range variants {
		if err := validateVariant(variant); err != nil {
			return err
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertExperiment(ctx, tx, experiment); err != nil {
		return err
	}
	for _, variant := range variants {
		if err := insertVariant(ctx, tx, variant); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PutExperiment upserts an experiment row.
func (s *Store) PutExperiment(ctx context.Context, experiment domain.Experiment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := validateExperiment(experiment); err != nil {
		return err
	}
	return upsertExperiment(ctx, s.sqlDB, experiment)
}

func validateExperiment(experiment domain.Experiment) error {
	if strings.TrimSpace(experiment.ID) == "" {
		return fmt.Errorf("experiment id is required")
	}
	if experiment.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if experiment.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

const insertExperimentSQL = `
	INSERT INTO experiments (
		id, name, strategy, primary_metric, primary_metric_binary, secondary_metrics,
		traffic_allocation, min_sample_size, significance_threshold, auto_promote_winner,
		prior_alpha, prior_beta, epsilon, exploration,
		status, winner_variant_id, created_at, updated_at, started_at, concluded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertExperimentSQL = insertExperimentSQL + `
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		strategy = excluded.strategy,
		primary_metric = excluded.primary_metric,
		primary_metric_binary = excluded.primary_metric_binary,
		secondary_metrics = excluded.secondary_metrics,
		traffic_allocation = excluded.traffic_allocation,
		min_sample_size = excluded.min_sample_size,
		significance_threshold = excluded.significance_threshold,
		auto_promote_winner = excluded.auto_promote_winner,
		prior_alpha = excluded.prior_alpha,
		prior_beta = excluded.prior_beta,
		epsilon = excluded.epsilon,
		exploration = excluded.exploration,
		status = excluded.status,
		winner_variant_id = excluded.winner_variant_id,
		updated_at = excluded.updated_at,
		started_at = excluded.started_at,
		concluded_at = excluded.concluded_at`

func experimentArgs(experiment domain.Experiment) ([]any, error) {
	secondaryMetrics, err := encodeSecondaryMetrics(experiment.Config.SecondaryMetrics)
	if err != nil {
		return nil, err
	}
	return []any{
		experiment.ID,
		experiment.Config.Name,
		string(experiment.Config.Strategy),
		experiment.Config.PrimaryMetric,
		boolToInt(experiment.Config.PrimaryMetricBinary),
		secondaryMetrics,
		experiment.Config.TrafficAllocation,
		experiment.Config.MinSampleSize,
		experiment.Config.SignificanceThreshold,
		boolToInt(experiment.Config.AutoPromoteWinner),
		experiment.Config.PriorAlpha,
		experiment.Config.PriorBeta,
		experiment.Config.Epsilon,
		experiment.Config.Exploration,
		string(experiment.Status),
		experiment.WinnerVariantID,
		toMillis(experiment.CreatedAt),
		toMillis(experiment.UpdatedAt),
		toNullMillis(experiment.StartedAt),
		toNullMillis(experiment.ConcludedAt),
	}, nil
}

// insertExperiment is create-only: an existing id is an error, never an
// update, so a transactional create cannot silently overwrite.
func insertExperiment(ctx context.Context, db execer, experiment domain.Experiment) error {
	args, err := experimentArgs(experiment)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, insertExperimentSQL, args...); err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}
	return nil
}

func upsertExperiment(ctx context.Context, db execer, experiment domain.Experiment) error {
	args, err := experimentArgs(experiment)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, upsertExperimentSQL, args...); err != nil {
		return fmt.Errorf("put experiment: %w", err)
	}
	return nil
}

// GetExperiment retrieves one experiment by id.
func (s *Store) GetExperiment(ctx context.Context, id string) (domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Experiment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Experiment{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return domain.Experiment{}, fmt.Errorf("experiment id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+experimentColumns+`
FROM experiments
WHERE id = ?
`, id)
	experiment, err := scanExperiment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Experiment{}, storage.ErrNotFound
		}
		return domain.Experiment{}, fmt.Errorf("get experiment: %w", err)
	}
	return experiment, nil
}

// ListExperiments returns a page of experiments in creation order.
func (s *Store) ListExperiments(ctx context.Context, pageSize int, pageToken string) (storage.ExperimentPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ExperimentPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ExperimentPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.ExperimentPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	limit := pageSize + 1
	if pageToken == "" {
		rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+experimentColumns+`
FROM experiments
ORDER BY created_at ASC, id ASC
LIMIT ?
`, limit)
		if err != nil {
			return storage.ExperimentPage{}, fmt.Errorf("list experiments: %w", err)
		}
		defer rows.Close()
		return collectExperimentPage(rows, pageSize)
	}

	decoded, err := cursor.Decode(pageToken)
	if err != nil {
		return storage.ExperimentPage{}, apperrors.Wrap(apperrors.CodePageTokenInvalid, "invalid page token", err)
	}

	tokenCreatedAt, err := s.experimentCreatedAtByID(ctx, decoded.LastID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ExperimentPage{}, nil
		}
		return storage.ExperimentPage{}, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+experimentColumns+`
FROM experiments
WHERE (created_at > ? OR (created_at = ? AND id > ?))
ORDER BY created_at ASC, id ASC
LIMIT ?
`, toMillis(tokenCreatedAt), toMillis(tokenCreatedAt), decoded.LastID, limit)
	if err != nil {
		return storage.ExperimentPage{}, fmt.Errorf("list experiments with token: %w", err)
	}
	defer rows.Close()
	return collectExperimentPage(rows, pageSize)
}

// Variant methods

// PutVariant upserts a variant row, including its folded statistics.
func (s *Store) PutVariant(ctx context.Context, variant domain.Variant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := validateVariant(variant); err != nil {
		return err
	}
	return upsertVariant(ctx, s.sqlDB, variant)
}

func validateVariant(variant domain.Variant) error {
	if strings.TrimSpace(variant.ID) == "" {
		return fmt.Errorf("variant id is required")
	}
	if strings.TrimSpace(variant.ExperimentID) == "" {
		return fmt.Errorf("experiment id is required")
	}
	if variant.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if variant.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

const insertVariantSQL = `
	INSERT INTO variants (
		id, experiment_id, name, is_control, weight, payload,
		observations, successes, failures, mean, m2, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertVariantSQL = insertVariantSQL + `
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		is_control = excluded.is_control,
		weight = excluded.weight,
		payload = excluded.payload,
		observations = excluded.observations,
		successes = excluded.successes,
		failures = excluded.failures,
		mean = excluded.mean,
		m2 = excluded.m2,
		updated_at = excluded.updated_at`

func variantArgs(variant domain.Variant) []any {
	return []any{
		variant.ID,
		variant.ExperimentID,
		variant.Name,
		boolToInt(variant.IsControl),
		variant.Weight,
		variant.Payload,
		variant.Stats.Observations,
		variant.Stats.Successes,
		variant.Stats.Failures,
		variant.Stats.Mean,
		variant.Stats.M2,
		toMillis(variant.CreatedAt),
		toMillis(variant.UpdatedAt),
	}
}

// insertVariant is create-only, like insertExperiment.
func insertVariant(ctx context.Context, db execer, variant domain.Variant) error {
	if _, err := db.ExecContext(ctx, insertVariantSQL, variantArgs(variant)...); err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

func upsertVariant(ctx context.Context, db execer, variant domain.Variant) error {
	if _, err := db.ExecContext(ctx, upsertVariantSQL, variantArgs(variant)...); err != nil {
		return fmt.Errorf("put variant: %w", err)
	}
	return nil
}

// GetVariant retrieves one variant by id.
func (s *Store) GetVariant(ctx context.Context, id string) (domain.Variant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Variant{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Variant{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return domain.Variant{}, fmt.Errorf("variant id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+variantColumns+`
FROM variants
WHERE id = ?
`, id)
	variant, err := scanVariant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Variant{}, storage.ErrNotFound
		}
		return domain.Variant{}, fmt.Errorf("get variant: %w", err)
	}
	return variant, nil
}

// ListVariantsByExperiment returns the experiment's variants in insertion
// order. Variants are never deleted, so rowid order is stable.
func (s *Store) ListVariantsByExperiment(ctx context.Context, experimentID string) ([]domain.Variant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(experimentID) == "" {
		return nil, fmt.Errorf("experiment id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+variantColumns+`
FROM variants
WHERE experiment_id = ?
ORDER BY rowid ASC
`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		variant, scanErr := scanVariant(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan variant row: %w", scanErr)
		}
		variants = append(variants, variant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}
	return variants, nil
}

const experimentColumns = `id, name, strategy, primary_metric, primary_metric_binary, secondary_metrics,
	traffic_allocation, min_sample_size, significance_threshold, auto_promote_winner,
	prior_alpha, prior_beta, epsilon, exploration,
	status, winner_variant_id, created_at, updated_at, started_at, concluded_at`

const variantColumns = `id, experiment_id, name, is_control, weight, payload,
	observations, successes, failures, mean, m2, created_at, updated_at`

func scanExperiment(scan scanner) (domain.Experiment, error) {
	var experiment domain.Experiment
	var strategy string
	var primaryMetricBinary int
	var secondaryMetrics string
	var autoPromote int
	var status string
	var createdAt int64
	var updatedAt int64
	var startedAt sql.NullInt64
	var concludedAt sql.NullInt64
	if err := scan(
		&experiment.ID,
		&experiment.Config.Name,
		&strategy,
		&experiment.Config.PrimaryMetric,
		&primaryMetricBinary,
		&secondaryMetrics,
		&experiment.Config.TrafficAllocation,
		&experiment.Config.MinSampleSize,
		&experiment.Config.SignificanceThreshold,
		&autoPromote,
		&experiment.Config.PriorAlpha,
		&experiment.Config.PriorBeta,
		&experiment.Config.Epsilon,
		&experiment.Config.Exploration,
		&status,
		&experiment.WinnerVariantID,
		&createdAt,
		&updatedAt,
		&startedAt,
		&concludedAt,
	); err != nil {
		return domain.Experiment{}, err
	}

	experiment.Config.Strategy = domain.Strategy(strategy)
	experiment.Config.PrimaryMetricBinary = primaryMetricBinary != 0
	experiment.Config.AutoPromoteWinner = autoPromote != 0
	experiment.Status = domain.Status(status)
	experiment.CreatedAt = fromMillis(createdAt)
	experiment.UpdatedAt = fromMillis(updatedAt)
	experiment.StartedAt = fromNullMillis(startedAt)
	experiment.ConcludedAt = fromNullMillis(concludedAt)

	metrics, err := decodeSecondaryMetrics(secondaryMetrics)
	if err != nil {
		return domain.Experiment{}, err
	}
	experiment.Config.SecondaryMetrics = metrics
	return experiment, nil
}

func scanVariant(scan scanner) (domain.Variant, error) {
	var variant domain.Variant
	var isControl int
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&variant.ID,
		&variant.ExperimentID,
		&variant.Name,
		&isControl,
		&variant.Weight,
		&variant.Payload,
		&variant.Stats.Observations,
		&variant.Stats.Successes,
		&variant.Stats.Failures,
		&variant.Stats.Mean,
		&variant.Stats.M2,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Variant{}, err
	}
	variant.IsControl = isControl != 0
	variant.CreatedAt = fromMillis(createdAt)
	variant.UpdatedAt = fromMillis(updatedAt)
	return variant, nil
}

func collectExperimentPage(rows *sql.Rows, pageSize int) (storage.ExperimentPage, error) {
	page := storage.ExperimentPage{
		Experiments: make([]domain.Experiment, 0, pageSize),
	}
	for rows.Next() {
		experiment, err := scanExperiment(rows.Scan)
		if err != nil {
			return storage.ExperimentPage{}, fmt.Errorf("scan experiment row: %w", err)
		}
		page.Experiments = append(page.Experiments, experiment)
	}
	if err := rows.Err(); err != nil {
		return storage.ExperimentPage{}, fmt.Errorf("iterate experiment rows: %w", err)
	}
	if len(page.Experiments) > pageSize {
		token, err := cursor.Encode(cursor.Cursor{LastID: page.Experiments[pageSize-1].ID})
		if err != nil {
			return storage.ExperimentPage{}, fmt.Errorf("encode page token: %w", err)
		}
		page.NextPageToken = token
		page.Experiments = page.Experiments[:pageSize]
	}
	return page, nil
}

func (s *Store) experimentCreatedAtByID(ctx context.Context, experimentID string) (time.Time, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT created_at
FROM experiments
WHERE id = ?
`, experimentID)
	var createdAtMillis int64
	if err := row.Scan(&createdAtMillis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("lookup experiment cursor: %w", err)
	}
	return fromMillis(createdAtMillis), nil
}

func encodeSecondaryMetrics(metrics []string) (string, error) {
	if len(metrics) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(metrics)
	if err != nil {
		return "", fmt.Errorf("encode secondary metrics: %w", err)
	}
	return string(encoded), nil
}

func decodeSecondaryMetrics(encoded string) ([]string, error) {
	if strings.TrimSpace(encoded) == "" || encoded == "[]" {
		return nil, nil
	}
	var metrics []string
	if err := json.Unmarshal([]byte(encoded), &metrics); err != nil {
		return nil, fmt.Errorf("decode secondary metrics: %w", err)
	}
	return metrics, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
