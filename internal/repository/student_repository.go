package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a student repository backed by sqlx.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `st.id, st.reg_no, st.full_name, st.email, st.program_id, st.entry_session_id,
        st.current_level_id, st.status, st.created_at, st.updated_at,
        p.code AS program_code, p.name AS program_name,
        l.name AS level_name, ses.name AS entry_session`

const studentDetailJoins = `FROM students st
JOIN programs p ON p.id = st.program_id
JOIN levels l ON l.id = st.current_level_id
JOIN sessions ses ON ses.id = st.entry_session_id`

// List returns students with catalogue context, filtered and paginated.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(st.full_name) LIKE $%d OR LOWER(st.reg_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("st.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.LevelID != "" {
		conditions = append(conditions, fmt.Sprintf("st.current_level_id = $%d", len(args)+1))
		args = append(args, filter.LevelID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("st.entry_session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("st.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"reg_no":     "st.reg_no",
		"full_name":  "st.full_name",
		"created_at": "st.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "reg_no"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "st.reg_no"
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
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentDetailColumns, studentDetailJoins+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", studentDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID loads a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, reg_no, full_name, email, program_id, entry_session_id, current_level_id, status, created_at, updated_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID loads a student with catalogue context.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        %s WHERE st.id = $1`, studentDetailColumns, studentDetailJoins)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByRegNo loads a student by registration number.
func (r *StudentRepository) FindByRegNo(ctx context.Context, regNo string) (*models.Student, error) {
	const query = `SELECT id, reg_no, full_name, email, program_id, entry_session_id, current_level_id, status, created_at, updated_at
        FROM students WHERE reg_no = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, regNo); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByRegNo checks registration number uniqueness, optionally excluding
// one record.
func (r *StudentRepository) ExistsByRegNo(ctx context.Context, regNo, excludeID string) (bool, error) {
	base := "SELECT 1 FROM students WHERE reg_no = $1"
	args := []interface{}{regNo}
	if excludeID != "" {
		base += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student reg no: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}

	const query = `INSERT INTO students (id, reg_no, full_name, email, program_id, entry_session_id, current_level_id, status, created_at, updated_at)
        VALUES (:id, :reg_no, :full_name, :email, :program_id, :entry_session_id, :current_level_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET reg_no = :reg_no, full_name = :full_name, email = :email,
        program_id = :program_id, entry_session_id = :entry_session_id, current_level_id = :current_level_id,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateStatus changes only the student's administrative status.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}

// Delete removes a student permanently.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// ListByProgramAndLevel returns the students of a cohort ordered by
// registration number. LevelID may be empty to take the whole programme.
func (r *StudentRepository) ListByProgramAndLevel(ctx context.Context, programID, levelID string) ([]models.Student, error) {
	base := `SELECT id, reg_no, full_name, email, program_id, entry_session_id, current_level_id, status, created_at, updated_at
        FROM students WHERE program_id = $1`
	args := []interface{}{programID}
	if levelID != "" {
		base += " AND current_level_id = $2"
		args = append(args, levelID)
	}
	base += " ORDER BY reg_no ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, base, args...); err != nil {
		return nil, fmt.Errorf("list cohort students: %w", err)
	}
	return students, nil
}
