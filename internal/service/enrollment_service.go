package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/academics"
	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, studentID, offeringID string) (bool, error)
	CountByOffering(ctx context.Context, offeringID string) (int, error)
	CountAttempts(ctx context.Context, studentID, courseID string) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	PassedCourseIDs(ctx context.Context, studentID string) (map[string]bool, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type offeringReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListPrerequisites(ctx context.Context, courseID string) ([]models.Prerequisite, error)
}

type gradeCounter interface {
	CountNonDraft(ctx context.Context, enrollmentID string) (int, error)
}

type policyProvider interface {
	Config(ctx context.Context) (*academics.PolicyConfig, error)
}

// CheckEligibilityRequest asks whether a student could enroll in an
// offering. Strict turns missing prerequisites into a blocker.
type CheckEligibilityRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	OfferingID string `json:"offering_id" validate:"required"`
	Strict     bool   `json:"strict"`
}

// EnrollRequest registers a student into an offering. A nil Strict falls
// back to the configured default, strict unless overridden.
type EnrollRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	OfferingID string `json:"offering_id" validate:"required"`
	Strict     *bool  `json:"strict"`
}

// BulkEnrollRequest registers many students into one offering.
type BulkEnrollRequest struct {
	OfferingID string   `json:"offering_id" validate:"required"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
	Strict     *bool    `json:"strict"`
}

// BulkEnrollFailure reports one rejected student of a bulk request.
type BulkEnrollFailure struct {
	StudentID string `json:"student_id"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// BulkEnrollResult summarises a bulk enrollment run.
type BulkEnrollResult struct {
	OfferingID   string              `json:"offering_id"`
	SuccessCount int                 `json:"success_count"`
	Failures     []BulkEnrollFailure `json:"failures"`
}

// EnrollmentService orchestrates enrollment workflows around the
// eligibility rules.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	offerings offeringReader
	courses   courseReader
	grades    gradeCounter
	policies  policyProvider
	validator *validator.Validate
	logger    *zap.Logger

	defaultStrict bool
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, offerings offeringReader, courses courseReader, grades gradeCounter, policies policyProvider, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:          repo,
		students:      students,
		offerings:     offerings,
		courses:       courses,
		grades:        grades,
		policies:      policies,
		validator:     validate,
		logger:        logger,
		defaultStrict: true,
	}
}

// SetDefaultStrict overrides the prerequisite enforcement applied when an
// enrollment request does not choose one.
func (s *EnrollmentService) SetDefaultStrict(strict bool) {
	s.defaultStrict = strict
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Get returns one enrollment with context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// ListByStudent returns a student's enrollments, newest first.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student enrollments")
	}
	return enrollments, nil
}

// Check runs the eligibility rules without touching anything. The result
// reports the first blocker plus every advisory warning.
func (s *EnrollmentService) Check(ctx context.Context, req CheckEligibilityRequest) (*models.EligibilityResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid eligibility payload")
	}
	config, input, err := s.buildEligibilityInput(ctx, req.StudentID, req.OfferingID, req.Strict)
	if err != nil {
		return nil, err
	}
	result := config.CheckEligibility(*input)
	return &result, nil
}

// Enroll re-checks eligibility and inserts the enrollment. The unique index
// on (student, offering) closes the race between the check and the insert:
// the second of two concurrent requests fails with ALREADY_ENROLLED even
// though its check passed.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	strict := s.defaultStrict
	if req.Strict != nil {
		strict = *req.Strict
	}
	config, input, err := s.buildEligibilityInput(ctx, req.StudentID, req.OfferingID, strict)
	if err != nil {
		return nil, err
	}
	result := config.CheckEligibility(*input)
	if !result.OK {
		return nil, blockerError(result)
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, OfferingID: req.OfferingID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrAlreadyEnrolled.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", req.StudentID),
		zap.String("offering_id", req.OfferingID),
		zap.Int("warnings", len(result.Warnings)))

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// BulkEnroll enrolls a batch of students into one offering. Individual
// failures are collected and never abort the rest of the batch.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, req BulkEnrollRequest) (*BulkEnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk enrollment payload")
	}
	result := &BulkEnrollResult{OfferingID: req.OfferingID, Failures: []BulkEnrollFailure{}}
	for _, studentID := range req.StudentIDs {
		_, err := s.Enroll(ctx, EnrollRequest{StudentID: studentID, OfferingID: req.OfferingID, Strict: req.Strict})
		if err != nil {
			appErr := appErrors.FromError(err)
			result.Failures = append(result.Failures, BulkEnrollFailure{
				StudentID: studentID,
				Code:      appErr.Code,
				Reason:    appErr.Message,
			})
			continue
		}
		result.SuccessCount++
	}
	s.logger.Info("bulk enrollment finished",
		zap.String("offering_id", req.OfferingID),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

// Drop removes an enrollment. Once any grade on it has entered review the
// enrollment is part of the academic record and can no longer be dropped.
func (s *EnrollmentService) Drop(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	reviewed, err := s.grades.CountNonDraft(ctx, enrollment.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect enrollment grades")
	}
	if reviewed > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment has grades under review and cannot be dropped")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	s.logger.Info("enrollment dropped", zap.String("enrollment_id", id), zap.String("student_id", enrollment.StudentID))
	return nil
}

func (s *EnrollmentService) buildEligibilityInput(ctx context.Context, studentID, offeringID string, strict bool) (*academics.PolicyConfig, *academics.EligibilityInput, error) {
	config, err := s.policies.Config(ctx)
	if err != nil {
		return nil, nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	offering, err := s.offerings.FindByID(ctx, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	course, err := s.courses.FindByID(ctx, offering.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	links, err := s.courses.ListPrerequisites(ctx, course.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	prerequisites := make([]models.Course, 0, len(links))
	for _, link := range links {
		prerequisites = append(prerequisites, models.Course{ID: link.RequiredCourseID, Code: link.RequiredCode, Title: link.RequiredTitle})
	}

	passed := map[string]bool{}
	if len(prerequisites) > 0 {
		passed, err = s.repo.PassedCourseIDs(ctx, studentID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passed courses")
		}
	}

	alreadyEnrolled, err := s.repo.Exists(ctx, studentID, offeringID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	enrolledCount := 0
	if offering.Capacity != nil {
		enrolledCount, err = s.repo.CountByOffering(ctx, offeringID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
	}
	priorAttempts, err := s.repo.CountAttempts(ctx, studentID, offering.CourseID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count prior attempts")
	}

	input := &academics.EligibilityInput{
		Student:         *student,
		Offering:        *offering,
		Course:          *course,
		Prerequisites:   prerequisites,
		Passed:          passed,
		AlreadyEnrolled: alreadyEnrolled,
		EnrolledCount:   enrolledCount,
		PriorAttempts:   priorAttempts,
		Strict:          strict,
	}
	return config, input, nil
}

// blockerError converts a failed eligibility result into the typed error
// carrying the same code the check reports.
func blockerError(result models.EligibilityResult) error {
	switch result.Blocker {
	case models.BlockOfferingInactive:
		return appErrors.Clone(appErrors.ErrOfferingInactive, "")
	case models.BlockAlreadyEnrolled:
		return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	case models.BlockOfferingFull:
		return appErrors.Clone(appErrors.ErrOfferingFull, "")
	case models.BlockRepeatLimitExceeded:
		return appErrors.Clone(appErrors.ErrRepeatLimitExceeded, "")
	case models.BlockPrerequisiteNotMet:
		return appErrors.Clone(appErrors.ErrPrerequisiteNotMet, "missing prerequisites: "+strings.Join(result.MissingPrerequisites, ", "))
	default:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment not permitted")
	}
}
