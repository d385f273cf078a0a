package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// PolicyRepository handles persistence of the grading scale, the academic
// policy row and classification bands.
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository constructs the repository.
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// ListScale returns the grading bands ordered by ascending minimum score.
func (r *PolicyRepository) ListScale(ctx context.Context) ([]models.GradingBand, error) {
	const query = `SELECT id, letter, min_score, max_score, grade_point, created_at
        FROM grading_bands ORDER BY min_score ASC`
	var bands []models.GradingBand
	if err := r.db.SelectContext(ctx, &bands, query); err != nil {
		return nil, fmt.Errorf("list grading bands: %w", err)
	}
	return bands, nil
}

// ReplaceScale swaps the whole grading scale in one transaction. Callers
// validate the new scale before getting here; a half-written scale must
// never be observable.
func (r *PolicyRepository) ReplaceScale(ctx context.Context, bands []models.GradingBand) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace scale: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM grading_bands`); err != nil {
		return fmt.Errorf("clear grading bands: %w", err)
	}

	const insert = `INSERT INTO grading_bands (id, letter, min_score, max_score, grade_point, created_at)
        VALUES (:id, :letter, :min_score, :max_score, :grade_point, :created_at)`
	now := time.Now().UTC()
	for i := range bands {
		if bands[i].ID == "" {
			bands[i].ID = uuid.NewString()
		}
		if bands[i].CreatedAt.IsZero() {
			bands[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, bands[i]); err != nil {
			return fmt.Errorf("insert grading band %s: %w", bands[i].Letter, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace scale: %w", err)
	}
	return nil
}

// GetPolicy returns the single academic policy row.
func (r *PolicyRepository) GetPolicy(ctx context.Context) (*models.AcademicPolicy, error) {
	const query = `SELECT id, repeat_rule, max_attempts, ca_max, exam_max,
        probation_gpa, dismissal_gpa, at_risk_completion_pct, updated_at
        FROM academic_policy LIMIT 1`
	var policy models.AcademicPolicy
	if err := r.db.GetContext(ctx, &policy, query); err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpdatePolicy writes the academic policy row.
func (r *PolicyRepository) UpdatePolicy(ctx context.Context, policy *models.AcademicPolicy) error {
	policy.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_policy SET repeat_rule = :repeat_rule, max_attempts = :max_attempts,
        ca_max = :ca_max, exam_max = :exam_max, probation_gpa = :probation_gpa,
        dismissal_gpa = :dismissal_gpa, at_risk_completion_pct = :at_risk_completion_pct,
        updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("update academic policy: %w", err)
	}
	return nil
}

// ListClassificationBands returns the degree classification ladder for a
// program, or the institution defaults when programID is nil.
func (r *PolicyRepository) ListClassificationBands(ctx context.Context, programID *string) ([]models.ClassificationBand, error) {
	var bands []models.ClassificationBand
	if programID == nil {
		const query = `SELECT id, program_id, label, min_cgpa FROM classification_bands
            WHERE program_id IS NULL ORDER BY min_cgpa DESC`
		if err := r.db.SelectContext(ctx, &bands, query); err != nil {
			return nil, fmt.Errorf("list default classification bands: %w", err)
		}
		return bands, nil
	}
	const query = `SELECT id, program_id, label, min_cgpa FROM classification_bands
        WHERE program_id = $1 ORDER BY min_cgpa DESC`
	if err := r.db.SelectContext(ctx, &bands, query, *programID); err != nil {
		return nil, fmt.Errorf("list program classification bands: %w", err)
	}
	return bands, nil
}

// ReplaceClassificationBands swaps one ladder (program-specific or the
// defaults) in a single transaction.
func (r *PolicyRepository) ReplaceClassificationBands(ctx context.Context, programID *string, bands []models.ClassificationBand) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace classification bands: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if programID == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM classification_bands WHERE program_id IS NULL`); err != nil {
			return fmt.Errorf("clear default classification bands: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `DELETE FROM classification_bands WHERE program_id = $1`, *programID); err != nil {
			return fmt.Errorf("clear program classification bands: %w", err)
		}
	}

	const insert = `INSERT INTO classification_bands (id, program_id, label, min_cgpa)
        VALUES (:id, :program_id, :label, :min_cgpa)`
	for i := range bands {
		if bands[i].ID == "" {
			bands[i].ID = uuid.NewString()
		}
		bands[i].ProgramID = programID
		if _, err := tx.NamedExecContext(ctx, insert, bands[i]); err != nil {
			return fmt.Errorf("insert classification band %s: %w", bands[i].Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace classification bands: %w", err)
	}
	return nil
}
