package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByRegNo(ctx context.Context, regNo, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
	Delete(ctx context.Context, id string) error
}

type levelReader interface {
	List(ctx context.Context) ([]models.Level, error)
	FindByID(ctx context.Context, id string) (*models.Level, error)
}

type standingComputer interface {
	Compute(ctx context.Context, studentID string) (*models.AcademicStanding, bool, error)
}

// studentStatusMoves is the closed set of allowed status changes. The two
// terminal states, WITHDRAWN and GRADUATED, cannot be left.
var studentStatusMoves = map[models.StudentStatus]map[models.StudentStatus]bool{
	models.StudentStatusActive: {
		models.StudentStatusProbation: true,
		models.StudentStatusSuspended: true,
		models.StudentStatusWithdrawn: true,
		models.StudentStatusGraduated: true,
	},
	models.StudentStatusProbation: {
		models.StudentStatusActive:    true,
		models.StudentStatusSuspended: true,
		models.StudentStatusWithdrawn: true,
	},
	models.StudentStatusSuspended: {
		models.StudentStatusActive:    true,
		models.StudentStatusWithdrawn: true,
	},
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	RegNo          string `json:"reg_no" validate:"required"`
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	ProgramID      string `json:"program_id" validate:"required"`
	EntrySessionID string `json:"entry_session_id" validate:"required"`
	CurrentLevelID string `json:"current_level_id" validate:"required"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	RegNo          string `json:"reg_no" validate:"required"`
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	ProgramID      string `json:"program_id" validate:"required"`
	EntrySessionID string `json:"entry_session_id" validate:"required"`
	CurrentLevelID string `json:"current_level_id" validate:"required"`
}

// ChangeStudentStatusRequest moves a student to a new administrative status.
type ChangeStudentStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required"`
	Reason string               `json:"reason"`
}

// StudentStanding pairs a student with their computed academic position.
type StudentStanding struct {
	Student  models.StudentDetail    `json:"student"`
	Standing models.AcademicStanding `json:"standing"`
}

// StudentService handles student record use-cases.
type StudentService struct {
	repo      studentRepository
	levels    levelReader
	standings standingComputer
	audits    auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, levels levelReader, standings standingComputer, audits auditWriter, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, levels: levels, standings: standings, audits: audits, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetWithStanding returns the student together with their computed academic
// standing.
func (s *StudentService) GetWithStanding(ctx context.Context, id string) (*StudentStanding, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	standing, _, err := s.standings.Compute(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StudentStanding{Student: *student, Standing: *standing}, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByRegNo(ctx, req.RegNo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate registration number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already used")
	}
	student := &models.Student{
		RegNo:          req.RegNo,
		FullName:       req.FullName,
		Email:          req.Email,
		ProgramID:      req.ProgramID,
		EntrySessionID: req.EntrySessionID,
		CurrentLevelID: req.CurrentLevelID,
		Status:         models.StudentStatusActive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.String("reg_no", student.RegNo))
	return student, nil
}

// Update modifies an existing student record. Status is managed through
// ChangeStatus, not here.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByRegNo(ctx, req.RegNo, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate registration number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already used")
	}
	student.RegNo = req.RegNo
	student.FullName = req.FullName
	student.Email = req.Email
	student.ProgramID = req.ProgramID
	student.EntrySessionID = req.EntrySessionID
	student.CurrentLevelID = req.CurrentLevelID
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// ChangeStatus moves a student through the administrative status rules and
// records the change in the audit trail.
func (s *StudentService) ChangeStatus(ctx context.Context, id, actorID string, req ChangeStudentStatusRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown student status")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status == req.Status {
		return student, nil
	}
	if !studentStatusMoves[student.Status][req.Status] {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, fmt.Sprintf("cannot move student from %s to %s", student.Status, req.Status))
	}
	previous := student.Status
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}
	student.Status = req.Status
	s.recordStatusAudit(ctx, actorID, student, previous, req.Reason)
	s.logger.Info("student status changed",
		zap.String("student_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(req.Status)))
	return student, nil
}

// PromoteLevel moves a student one rung up the level ladder.
func (s *StudentService) PromoteLevel(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status != models.StudentStatusActive && student.Status != models.StudentStatusProbation {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot promote a %s student", student.Status))
	}
	current, err := s.levels.FindByID(ctx, student.CurrentLevelID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "current level not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load level")
	}
	levels, err := s.levels.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list levels")
	}
	var next *models.Level
	for i := range levels {
		if levels[i].Rank == current.Rank+1 {
			next = &levels[i]
			break
		}
	}
	if next == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is already at the final level")
	}
	student.CurrentLevelID = next.ID
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote student")
	}
	s.logger.Info("student promoted",
		zap.String("student_id", id),
		zap.String("level", next.Name))
	return student, nil
}

// Delete removes a student record entirely. Enrollment history blocks the
// delete at the database level through foreign keys.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) recordStatusAudit(ctx context.Context, actorID string, student *models.Student, previous models.StudentStatus, reason string) {
	if s.audits == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(previous)})
	newValues, _ := json.Marshal(map[string]string{"status": string(student.Status), "reason": reason})
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionStudentStatusChange,
		Resource:   "students",
		ResourceID: &student.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write status audit log", zap.Error(err), zap.String("student_id", student.ID))
	}
}
