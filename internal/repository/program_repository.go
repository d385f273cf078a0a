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

// ProgramRepository handles persistence for degree programmes and their
// curricula.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository instantiates a programme repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// List returns programmes matching provided filters.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error) {
	base := "FROM programs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "code"
	}
	allowedSorts := map[string]bool{
		"code":       true,
		"name":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "code"
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

	query := fmt.Sprintf("SELECT id, code, name, degree_award, min_graduation_units, min_graduation_cgpa, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)

	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}

	return programs, total, nil
}

// FindByID loads a programme by identifier.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	const query = `SELECT id, code, name, degree_award, min_graduation_units, min_graduation_cgpa, active, created_at, updated_at FROM programs WHERE id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// FindByCode loads a programme by its unique code.
func (r *ProgramRepository) FindByCode(ctx context.Context, code string) (*models.Program, error) {
	const query = `SELECT id, code, name, degree_award, min_graduation_units, min_graduation_cgpa, active, created_at, updated_at FROM programs WHERE code = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, code); err != nil {
		return nil, err
	}
	return &program, nil
}

// Create inserts a new programme record.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now

	const query = `INSERT INTO programs (id, code, name, degree_award, min_graduation_units, min_graduation_cgpa, active, created_at, updated_at)
        VALUES (:id, :code, :name, :degree_award, :min_graduation_units, :min_graduation_cgpa, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update modifies an existing programme.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programs SET code = :code, name = :name, degree_award = :degree_award,
        min_graduation_units = :min_graduation_units, min_graduation_cgpa = :min_graduation_cgpa,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return nil
}

// Delete removes a programme permanently.
func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	return nil
}

// CountStudents returns the number of students registered on the programme.
func (r *ProgramRepository) CountStudents(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE program_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count program students: %w", err)
	}
	return count, nil
}

// ListCurriculum returns the curriculum entries of a programme with course
// context, ordered by level then course code.
func (r *ProgramRepository) ListCurriculum(ctx context.Context, programID string) ([]models.CurriculumCourse, error) {
	const query = `SELECT cc.id, cc.program_id, cc.course_id, cc.level_id, cc.semester, cc.compulsory, cc.created_at,
        c.code AS course_code, c.title AS course_title, c.units
        FROM curriculum_courses cc
        JOIN courses c ON c.id = cc.course_id
        JOIN levels l ON l.id = cc.level_id
        WHERE cc.program_id = $1
        ORDER BY l.rank ASC, c.code ASC`
	var curriculum []models.CurriculumCourse
	if err := r.db.SelectContext(ctx, &curriculum, query, programID); err != nil {
		return nil, fmt.Errorf("list curriculum: %w", err)
	}
	return curriculum, nil
}

// AddCurriculumCourse pins a course into the programme curriculum.
func (r *ProgramRepository) AddCurriculumCourse(ctx context.Context, entry *models.CurriculumCourse) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO curriculum_courses (id, program_id, course_id, level_id, semester, compulsory, created_at)
        VALUES (:id, :program_id, :course_id, :level_id, :semester, :compulsory, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("add curriculum course: %w", err)
	}
	return nil
}

// RemoveCurriculumCourse detaches a course from the programme curriculum.
func (r *ProgramRepository) RemoveCurriculumCourse(ctx context.Context, programID, courseID string) error {
	const query = `DELETE FROM curriculum_courses WHERE program_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, programID, courseID); err != nil {
		return fmt.Errorf("remove curriculum course: %w", err)
	}
	return nil
}
