package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// OfferingRepository handles persistence for course offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository instantiates an offering repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

const offeringDetailColumns = `o.id, o.course_id, o.session_id, o.semester, o.level_id, o.lecturer_id,
        o.capacity, o.is_active, o.created_at, o.updated_at,
        c.code AS course_code, c.title AS course_title, c.units,
        ses.name AS session_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.offering_id = o.id) AS enrolled`

const offeringDetailJoins = `FROM course_offerings o
JOIN courses c ON c.id = o.course_id
JOIN sessions ses ON ses.id = o.session_id`

// List returns offerings with course and session context.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("o.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("o.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("o.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.LevelID != "" {
		conditions = append(conditions, fmt.Sprintf("o.level_id = $%d", len(args)+1))
		args = append(args, filter.LevelID)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("o.is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"course_code":  "c.code",
		"session_name": "ses.name",
		"created_at":   "o.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "course_code"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "c.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, offeringDetailColumns, offeringDetailJoins+clause, orderBy, order, size, offset)

	var offerings []models.OfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", offeringDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}

// FindByID loads an offering by identifier.
func (r *OfferingRepository) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	const query = `SELECT id, course_id, session_id, semester, level_id, lecturer_id, capacity, is_active, created_at, updated_at
        FROM course_offerings WHERE id = $1`
	var offering models.CourseOffering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// FindDetailByID loads an offering with course and session context.
func (r *OfferingRepository) FindDetailByID(ctx context.Context, id string) (*models.OfferingDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s WHERE o.id = $1`, offeringDetailColumns, offeringDetailJoins)
	var detail models.OfferingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new offering record.
func (r *OfferingRepository) Create(ctx context.Context, offering *models.CourseOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = now
	}
	offering.UpdatedAt = now

	const query = `INSERT INTO course_offerings (id, course_id, session_id, semester, level_id, lecturer_id, capacity, is_active, created_at, updated_at)
        VALUES (:id, :course_id, :session_id, :semester, :level_id, :lecturer_id, :capacity, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// Update modifies an existing offering.
func (r *OfferingRepository) Update(ctx context.Context, offering *models.CourseOffering) error {
	offering.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_offerings SET course_id = :course_id, session_id = :session_id, semester = :semester,
        level_id = :level_id, lecturer_id = :lecturer_id, capacity = :capacity, is_active = :is_active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("update offering: %w", err)
	}
	return nil
}

// SetActive flips the offering's active flag.
func (r *OfferingRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE course_offerings SET is_active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set offering active: %w", err)
	}
	return nil
}

// Delete removes an offering permanently.
func (r *OfferingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM course_offerings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	return nil
}
