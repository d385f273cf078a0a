package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

// GradeRepository handles persistence of grade records.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeDetailJoins = `FROM grades g
JOIN enrollments e ON e.id = g.enrollment_id
JOIN students s ON s.id = e.student_id
JOIN course_offerings o ON o.id = e.offering_id
JOIN courses c ON c.id = o.course_id
JOIN sessions ses ON ses.id = o.session_id`

// FindByID returns a grade by its ID.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	const query = `SELECT id, enrollment_id, ca_score, exam_score, total_score, letter,
        grade_point, status, submitted_at, approved_at, approved_by, rejection_reason,
        created_at, updated_at FROM grades WHERE id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// FindByEnrollment returns the grade attached to an enrollment, if any.
func (r *GradeRepository) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	const query = `SELECT id, enrollment_id, ca_score, exam_score, total_score, letter,
        grade_point, status, submitted_at, approved_at, approved_by, rejection_reason,
        created_at, updated_at FROM grades WHERE enrollment_id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, enrollmentID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// List returns grades with enrollment context, filtered and paginated.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("g.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.OfferingID != "" {
		conditions = append(conditions, fmt.Sprintf("e.offering_id = $%d", len(args)+1))
		args = append(args, filter.OfferingID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("o.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("g.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"updated_at":   "g.updated_at",
		"total_score":  "g.total_score",
		"student_name": "s.full_name",
		"course_code":  "c.code",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "updated_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "g.updated_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT g.id, g.enrollment_id, g.ca_score, g.exam_score, g.total_score, g.letter,
        g.grade_point, g.status, g.submitted_at, g.approved_at, g.approved_by, g.rejection_reason,
        g.created_at, g.updated_at,
        e.student_id, s.reg_no AS student_reg_no, s.full_name AS student_name,
        o.course_id, c.code AS course_code, c.title AS course_title, c.units,
        o.session_id, ses.name AS session_name, o.semester
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, gradeDetailJoins+clause, orderBy, order, size, offset)

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", gradeDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return grades, total, nil
}

// Create persists a new grade record.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	if grade.UpdatedAt.IsZero() {
		grade.UpdatedAt = now
	}
	const query = `INSERT INTO grades (id, enrollment_id, ca_score, exam_score, total_score, letter,
        grade_point, status, submitted_at, approved_at, approved_by, rejection_reason, created_at, updated_at)
        VALUES (:id, :enrollment_id, :ca_score, :exam_score, :total_score, :letter,
        :grade_point, :status, :submitted_at, :approved_at, :approved_by, :rejection_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update writes the full grade row.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	const query = `UPDATE grades SET ca_score = :ca_score, exam_score = :exam_score,
        total_score = :total_score, letter = :letter, grade_point = :grade_point, status = :status,
        submitted_at = :submitted_at, approved_at = :approved_at, approved_by = :approved_by,
        rejection_reason = :rejection_reason, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// UpdateGuarded writes the full grade row only if the stored status still
// matches the status the caller read. Zero rows means another request moved
// the grade first, which surfaces as a conflict.
func (r *GradeRepository) UpdateGuarded(ctx context.Context, grade *models.Grade, expected models.GradeStatus) error {
	const query = `UPDATE grades SET ca_score = $1, exam_score = $2, total_score = $3, letter = $4,
        grade_point = $5, status = $6, submitted_at = $7, approved_at = $8, approved_by = $9,
        rejection_reason = $10, updated_at = $11
        WHERE id = $12 AND status = $13`
	result, err := r.db.ExecContext(ctx, query,
		grade.CAScore, grade.ExamScore, grade.TotalScore, grade.Letter,
		grade.GradePoint, grade.Status, grade.SubmittedAt, grade.ApprovedAt, grade.ApprovedBy,
		grade.RejectionReason, grade.UpdatedAt, grade.ID, expected)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "grade was changed by another request, reload and retry")
	}
	return nil
}

// Delete removes a grade record.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM grades WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}

// CountNonDraft counts grades on the enrollment that have entered review.
// A non-zero result blocks dropping the enrollment.
func (r *GradeRepository) CountNonDraft(ctx context.Context, enrollmentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM grades WHERE enrollment_id = $1 AND status <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, enrollmentID, models.GradeStatusDraft); err != nil {
		return 0, fmt.Errorf("count reviewed grades: %w", err)
	}
	return count, nil
}

// ListAttempts returns every approved grade the student holds, flattened
// with course and session context. This is the raw input for GPA work.
func (r *GradeRepository) ListAttempts(ctx context.Context, studentID string) ([]models.CourseAttempt, error) {
	const query = `SELECT o.course_id, c.code AS course_code, c.title AS course_title, c.units,
        o.session_id, ses.name AS session_name, o.semester,
        g.total_score, g.letter, g.grade_point, e.enrolled_at
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN course_offerings o ON o.id = e.offering_id
        JOIN courses c ON c.id = o.course_id
        JOIN sessions ses ON ses.id = o.session_id
        WHERE e.student_id = $1 AND g.status = $2
        ORDER BY e.enrolled_at ASC`
	var attempts []models.CourseAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, studentID, models.GradeStatusApproved); err != nil {
		return nil, fmt.Errorf("list course attempts: %w", err)
	}
	return attempts, nil
}

// ListByOffering returns all grades recorded for an offering, one per
// enrolled student who has a record.
func (r *GradeRepository) ListByOffering(ctx context.Context, offeringID string) ([]models.GradeDetail, error) {
	query := fmt.Sprintf(`SELECT g.id, g.enrollment_id, g.ca_score, g.exam_score, g.total_score, g.letter,
        g.grade_point, g.status, g.submitted_at, g.approved_at, g.approved_by, g.rejection_reason,
        g.created_at, g.updated_at,
        e.student_id, s.reg_no AS student_reg_no, s.full_name AS student_name,
        o.course_id, c.code AS course_code, c.title AS course_title, c.units,
        o.session_id, ses.name AS session_name, o.semester
        %s WHERE e.offering_id = $1 ORDER BY s.reg_no ASC`, gradeDetailJoins)
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, offeringID); err != nil {
		return nil, fmt.Errorf("list offering grades: %w", err)
	}
	return grades, nil
}
