package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/splitsignal/splitsignal/internal/experiment/domain"
	"github.com/splitsignal/splitsignal/internal/experiment/storage"
)

// Assignment methods

// CreateAssignment inserts the assignment unless the (experiment, subject)
// pair already has one. The conditional insert plus read-back makes the
// write a compare-and-swap: when two writers race, exactly one row wins and
// both callers observe it.
func (s *Store) CreateAssignment(ctx context.Context, assignment domain.Assignment) (domain.Assignment, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Assignment{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Assignment{}, false, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(assignment.ID) == "" {
		return domain.Assignment{}, false, fmt.Errorf("assignment id is required")
	}
	if strings.TrimSpace(assignment.ExperimentID) == "" {
		return domain.Assignment{}, false, fmt.Errorf("experiment id is required")
	}
	if strings.TrimSpace(assignment.VariantID) == "" {
		return domain.Assignment{}, false, fmt.Errorf("variant id is required")
	}
	if strings.TrimSpace(assignment.SubjectID) == "" {
		return domain.Assignment{}, false, fmt.Errorf("subject id is required")
	}
	if assignment.AssignedAt.IsZero() {
		return domain.Assignment{}, false, fmt.Errorf("assigned_at is required")
	}

	contextJSON, err := encodeAssignmentContext(assignment.Context)
	if err != nil {
		return domain.Assignment{}, false, err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO assignments (
		id, experiment_id, variant_id, subject_id, context, assigned_at
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(experiment_id, subject_id) DO NOTHING
	`,
		assignment.ID,
		assignment.ExperimentID,
		assignment.VariantID,
		assignment.SubjectID,
		contextJSON,
		toMillis(assignment.AssignedAt),
	)
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("create assignment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("create assignment rows affected: %w", err)
	}
	if affected > 0 {
		return assignment, true, nil
	}

	existing, err := s.GetAssignmentBySubject(ctx, assignment.ExperimentID, assignment.SubjectID)
	if err != nil {
		return domain.Assignment{}, false, err
	}
	return existing, false, nil
}

// GetAssignment retrieves one assignment by id.
func (s *Store) GetAssignment(ctx context.Context, id string) (domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Assignment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Assignment{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return domain.Assignment{}, fmt.Errorf("assignment id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, experiment_id, variant_id, subject_id, context, assigned_at
FROM assignments
WHERE id = ?
`, id)
	assignment, err := scanAssignment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Assignment{}, storage.ErrNotFound
		}
		return domain.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return assignment, nil
}

// GetAssignmentBySubject retrieves the sticky assignment for a subject in an
// experiment.
func (s *Store) GetAssignmentBySubject(ctx context.Context, experimentID, subjectID string) (domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Assignment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Assignment{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(experimentID) == "" {
		return domain.Assignment{}, fmt.Errorf("experiment id is required")
	}
	if strings.TrimSpace(subjectID) == "" {
		return domain.Assignment{}, fmt.Errorf("subject id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, experiment_id, variant_id, subject_id, context, assigned_at
FROM assignments
WHERE experiment_id = ? AND subject_id = ?
`, experimentID, subjectID)
	assignment, err := scanAssignment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Assignment{}, storage.ErrNotFound
		}
		return domain.Assignment{}, fmt.Errorf("get assignment by subject: %w", err)
	}
	return assignment, nil
}

func scanAssignment(scan scanner) (domain.Assignment, error) {
	var assignment domain.Assignment
	var contextJSON string
	var assignedAt int64
	if err := scan(
		&assignment.ID,
		&assignment.ExperimentID,
		&assignment.VariantID,
		&assignment.SubjectID,
		&contextJSON,
		&assignedAt,
	); err != nil {
		return domain.Assignment{}, err
	}
	assignment.AssignedAt = fromMillis(assignedAt)

	subjectContext, err := decodeAssignmentContext(contextJSON)
	if err != nil {
		return domain.Assignment{}, err
	}
	assignment.Context = subjectContext
	return assignment, nil
}

func encodeAssignmentContext(subjectContext map[string]string) (string, error) {
	if len(subjectContext) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(subjectContext)
	if err != nil {
		return "", fmt.Errorf("encode assignment context: %w", err)
	}
	return string(encoded), nil
}

func decodeAssignmentContext(encoded string) (map[string]string, error) {
	if strings.TrimSpace(encoded) == "" || encoded == "{}" {
		return nil, nil
	}
	var subjectContext map[string]string
	if err := json.Unmarshal([]byte(encoded), &subjectContext); err != nil {
		return nil, fmt.Errorf("decode assignment context: %w", err)
	}
	return subjectContext, nil
}
