package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type offeringRepository interface {
	List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	FindDetailByID(ctx context.Context, id string) (*models.OfferingDetail, error)
	Create(ctx context.Context, offering *models.CourseOffering) error
	Update(ctx context.Context, offering *models.CourseOffering) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type sessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type enrollmentCounter interface {
	CountByOffering(ctx context.Context, offeringID string) (int, error)
}

// CreateOfferingRequest schedules a course for a session and semester.
type CreateOfferingRequest struct {
	CourseID   string          `json:"course_id" validate:"required"`
	SessionID  string          `json:"session_id" validate:"required"`
	Semester   models.Semester `json:"semester" validate:"required"`
	LevelID    *string         `json:"level_id"`
	LecturerID *string         `json:"lecturer_id"`
	Capacity   *int            `json:"capacity" validate:"omitempty,min=1"`
}

// UpdateOfferingRequest updates mutable offering fields.
type UpdateOfferingRequest struct {
	LevelID    *string `json:"level_id"`
	LecturerID *string `json:"lecturer_id"`
	Capacity   *int    `json:"capacity" validate:"omitempty,min=1"`
}

// OfferingService manages course offerings and their enrollment windows.
type OfferingService struct {
	repo        offeringRepository
	courses     courseReader
	sessions    sessionReader
	enrollments enrollmentCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewOfferingService constructs the offering service.
func NewOfferingService(repo offeringRepository, courses courseReader, sessions sessionReader, enrollments enrollmentCounter, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{
		repo:        repo,
		courses:     courses,
		sessions:    sessions,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// List returns offerings and pagination metadata.
func (s *OfferingService) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
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
	return offerings, pagination, nil
}

// Get returns an offering with course and session context.
func (s *OfferingService) Get(ctx context.Context, id string) (*models.OfferingDetail, error) {
	offering, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return offering, nil
}

// Create schedules a course offering. New offerings start inactive so
// enrollment only opens through an explicit activation.
func (s *OfferingService) Create(ctx context.Context, req CreateOfferingRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if !req.Semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot offer an inactive course")
	}
	if _, err := s.sessions.FindByID(ctx, req.SessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	offering := &models.CourseOffering{
		CourseID:   course.ID,
		SessionID:  req.SessionID,
		Semester:   req.Semester,
		LevelID:    req.LevelID,
		LecturerID: req.LecturerID,
		Capacity:   req.Capacity,
		IsActive:   false,
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}
	s.logger.Info("offering scheduled",
		zap.String("offering_id", offering.ID),
		zap.String("course", course.Code),
		zap.String("semester", string(req.Semester)))
	return offering, nil
}

// Update modifies the mutable fields of an offering. Capacity can never
// drop below the seats already taken.
func (s *OfferingService) Update(ctx context.Context, id string, req UpdateOfferingRequest) (*models.CourseOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if req.Capacity != nil {
		enrolled, err := s.enrollments.CountByOffering(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
		if *req.Capacity < enrolled {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity cannot be below current enrollment")
		}
	}
	offering.LevelID = req.LevelID
	offering.LecturerID = req.LecturerID
	offering.Capacity = req.Capacity
	if err := s.repo.Update(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update offering")
	}
	return offering, nil
}

// Activate opens an offering for enrollment.
func (s *OfferingService) Activate(ctx context.Context, id string) (*models.CourseOffering, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate closes an offering for enrollment. Existing enrollments are
// untouched.
func (s *OfferingService) Deactivate(ctx context.Context, id string) (*models.CourseOffering, error) {
	return s.setActive(ctx, id, false)
}

func (s *OfferingService) setActive(ctx context.Context, id string, active bool) (*models.CourseOffering, error) {
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if offering.IsActive == active {
		return offering, nil
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change offering state")
	}
	offering.IsActive = active
	s.logger.Info("offering state changed", zap.String("offering_id", id), zap.Bool("active", active))
	return offering, nil
}

// Delete removes an offering with no enrollments.
func (s *OfferingService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	enrolled, err := s.enrollments.CountByOffering(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if enrolled > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "offering has enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete offering")
	}
	return nil
}
