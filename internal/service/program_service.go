package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
	FindByCode(ctx context.Context, code string) (*models.Program, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	Delete(ctx context.Context, id string) error
	CountStudents(ctx context.Context, id string) (int, error)
	ListCurriculum(ctx context.Context, programID string) ([]models.CurriculumCourse, error)
	AddCurriculumCourse(ctx context.Context, entry *models.CurriculumCourse) error
	RemoveCurriculumCourse(ctx context.Context, programID, courseID string) error
}

// CreateProgramRequest holds payload for creating programmes.
type CreateProgramRequest struct {
	Code               string   `json:"code" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	DegreeAward        string   `json:"degree_award" validate:"required"`
	MinGraduationUnits int      `json:"min_graduation_units" validate:"required,min=1"`
	MinGraduationCGPA  *float64 `json:"min_graduation_cgpa" validate:"omitempty,min=0"`
}

// UpdateProgramRequest holds payload for updating programmes.
type UpdateProgramRequest struct {
	Code               string   `json:"code" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	DegreeAward        string   `json:"degree_award" validate:"required"`
	MinGraduationUnits int      `json:"min_graduation_units" validate:"required,min=1"`
	MinGraduationCGPA  *float64 `json:"min_graduation_cgpa" validate:"omitempty,min=0"`
	Active             *bool    `json:"active"`
}

// AddCurriculumCourseRequest pins a course into a programme curriculum.
type AddCurriculumCourseRequest struct {
	CourseID   string          `json:"course_id" validate:"required"`
	LevelID    string          `json:"level_id" validate:"required"`
	Semester   models.Semester `json:"semester" validate:"required"`
	Compulsory bool            `json:"compulsory"`
}

// ProgramService manages degree programmes and their curricula.
type ProgramService struct {
	repo      programRepository
	courses   courseReader
	levels    levelReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs the programme service.
func NewProgramService(repo programRepository, courses courseReader, levels levelReader, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, courses: courses, levels: levels, validator: validate, logger: logger}
}

// List returns programmes and pagination metadata.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programmes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return programs, pagination, nil
}

// Get returns a programme by ID.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "programme not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load programme")
	}
	return program, nil
}

// Create registers a new programme.
func (s *ProgramService) Create(ctx context.Context, req CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid programme payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "programme code already used")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check programme code")
	}
	program := &models.Program{
		Code:               code,
		Name:               req.Name,
		DegreeAward:        req.DegreeAward,
		MinGraduationUnits: req.MinGraduationUnits,
		MinGraduationCGPA:  req.MinGraduationCGPA,
		Active:             true,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create programme")
	}
	return program, nil
}

// Update modifies a programme record.
func (s *ProgramService) Update(ctx context.Context, id string, req UpdateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid programme payload")
	}
	program, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if other, err := s.repo.FindByCode(ctx, code); err == nil && other.ID != id {
		return nil, appErrors.Clone(appErrors.ErrConflict, "programme code already used")
	} else if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check programme code")
	}
	program.Code = code
	program.Name = req.Name
	program.DegreeAward = req.DegreeAward
	program.MinGraduationUnits = req.MinGraduationUnits
	program.MinGraduationCGPA = req.MinGraduationCGPA
	if req.Active != nil {
		program.Active = *req.Active
	}
	if err := s.repo.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update programme")
	}
	return program, nil
}

// Delete removes a programme with no registered students.
func (s *ProgramService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check programme dependencies")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "programme has students registered")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete programme")
	}
	return nil
}

// ListCurriculum returns the programme curriculum ordered by level and
// course code.
func (s *ProgramService) ListCurriculum(ctx context.Context, programID string) ([]models.CurriculumCourse, error) {
	if _, err := s.Get(ctx, programID); err != nil {
		return nil, err
	}
	curriculum, err := s.repo.ListCurriculum(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curriculum")
	}
	return curriculum, nil
}

// AddCurriculumCourse pins a course into the programme curriculum.
func (s *ProgramService) AddCurriculumCourse(ctx context.Context, programID string, req AddCurriculumCourseRequest) (*models.CurriculumCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	if !req.Semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	program, err := s.Get(ctx, programID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.levels.FindByID(ctx, req.LevelID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "level not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load level")
	}

	existing, err := s.repo.ListCurriculum(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curriculum")
	}
	for _, entry := range existing {
		if entry.CourseID == course.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already in curriculum")
		}
	}

	entry := &models.CurriculumCourse{
		ProgramID:   program.ID,
		CourseID:    course.ID,
		LevelID:     req.LevelID,
		Semester:    req.Semester,
		Compulsory:  req.Compulsory,
		CourseCode:  course.Code,
		CourseTitle: course.Title,
		Units:       course.Units,
	}
	if err := s.repo.AddCurriculumCourse(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add curriculum course")
	}
	s.logger.Info("curriculum course added",
		zap.String("program", program.Code),
		zap.String("course", course.Code),
		zap.Bool("compulsory", req.Compulsory))
	return entry, nil
}

// RemoveCurriculumCourse detaches a course from the programme curriculum.
func (s *ProgramService) RemoveCurriculumCourse(ctx context.Context, programID, courseID string) error {
	if _, err := s.Get(ctx, programID); err != nil {
		return err
	}
	if err := s.repo.RemoveCurriculumCourse(ctx, programID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove curriculum course")
	}
	return nil
}
