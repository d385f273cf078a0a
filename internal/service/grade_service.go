package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/academics"
	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	UpdateGuarded(ctx context.Context, grade *models.Grade, expected models.GradeStatus) error
	ListByOffering(ctx context.Context, offeringID string) ([]models.GradeDetail, error)
}

type enrollmentExistence interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type standingInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// RecordScoresRequest carries component scores for one enrollment. The
// first write for an enrollment creates the grade as a draft.
type RecordScoresRequest struct {
	EnrollmentID string  `json:"enrollment_id" validate:"required"`
	CAScore      float64 `json:"ca_score" validate:"min=0"`
	ExamScore    float64 `json:"exam_score" validate:"min=0"`
}

// RejectGradeRequest returns a submitted grade to its author.
type RejectGradeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BulkGradeActionRequest applies one review action to every grade of an
// offering that is in the right state.
type BulkGradeActionRequest struct {
	OfferingID string `json:"offering_id" validate:"required"`
}

// BulkGradeFailure captures one grade the bulk action skipped.
type BulkGradeFailure struct {
	GradeID      string `json:"grade_id"`
	EnrollmentID string `json:"enrollment_id"`
	StudentRegNo string `json:"student_reg_no"`
	Code         string `json:"code"`
	Reason       string `json:"reason"`
}

// BulkGradeResult summarises a bulk review action.
type BulkGradeResult struct {
	OfferingID   string             `json:"offering_id"`
	SuccessCount int                `json:"success_count"`
	Failures     []BulkGradeFailure `json:"failures"`
}

// GradeService drives grades through their review lifecycle. Every state
// change goes through the rules engine first and is persisted with a
// status-guarded update, so concurrent reviewers cannot both win.
type GradeService struct {
	grades      gradeRepository
	enrollments enrollmentExistence
	policies    policyProvider
	audits      auditWriter
	standings   standingInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(grades gradeRepository, enrollments enrollmentExistence, policies policyProvider, audits auditWriter, standings standingInvalidator, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:      grades,
		enrollments: enrollments,
		policies:    policies,
		audits:      audits,
		standings:   standings,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns grades with pagination metadata.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, *models.Pagination, error) {
	grades, total, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
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
	return grades, pagination, nil
}

// Get returns one grade.
func (s *GradeService) Get(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// GetByEnrollment returns the grade attached to an enrollment.
func (s *GradeService) GetByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	grade, err := s.grades.FindByEnrollment(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade recorded for enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// RecordScores writes component scores for an enrollment. The first call
// creates a draft grade; later calls edit it while it is still editable.
// Editing a rejected grade returns it to draft. Scores are validated
// against the policy maxima before any state changes.
func (s *GradeService) RecordScores(ctx context.Context, req RecordScoresRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scores payload")
	}
	config, err := s.policies.Config(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	grade, err := s.grades.FindByEnrollment(ctx, req.EnrollmentID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}

	if grade == nil {
		grade = &models.Grade{EnrollmentID: req.EnrollmentID, Status: models.GradeStatusDraft}
		if err := config.SetScores(grade, req.CAScore, req.ExamScore, s.now()); err != nil {
			return nil, err
		}
		if err := s.grades.Create(ctx, grade); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade")
		}
		s.logger.Info("grade drafted", zap.String("grade_id", grade.ID), zap.String("enrollment_id", grade.EnrollmentID))
		return grade, nil
	}

	previous := grade.Status
	if err := config.SetScores(grade, req.CAScore, req.ExamScore, s.now()); err != nil {
		return nil, err
	}
	if err := s.grades.UpdateGuarded(ctx, grade, previous); err != nil {
		return nil, err
	}
	s.logger.Info("grade scores updated",
		zap.String("grade_id", grade.ID),
		zap.Float64("total", grade.TotalScore),
		zap.String("letter", grade.Letter))
	return grade, nil
}

// Submit moves a draft grade into review.
func (s *GradeService) Submit(ctx context.Context, id string) (*models.Grade, error) {
	return s.transition(ctx, id, func(g *models.Grade) error {
		return academics.Submit(g, s.now())
	})
}

// Approve finalises a submitted grade, stamping the approver. Approved
// grades feed standings and transcripts, so the student's cached standing
// is invalidated.
func (s *GradeService) Approve(ctx context.Context, id, approverID string) (*models.Grade, error) {
	grade, err := s.transition(ctx, id, func(g *models.Grade) error {
		return academics.Approve(g, approverID, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, approverID, models.AuditActionGradeApprove, grade)
	s.invalidateStanding(ctx, grade.EnrollmentID)
	return grade, nil
}

// Reject returns a submitted grade to its author with a mandatory reason.
func (s *GradeService) Reject(ctx context.Context, id, reviewerID string, req RejectGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	grade, err := s.transition(ctx, id, func(g *models.Grade) error {
		return academics.Reject(g, req.Reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, reviewerID, models.AuditActionGradeReject, grade)
	return grade, nil
}

// Reopen pulls an approved grade back to draft for correction. The change
// is audited because it retroactively alters the academic record.
func (s *GradeService) Reopen(ctx context.Context, id, actorID string) (*models.Grade, error) {
	grade, err := s.transition(ctx, id, func(g *models.Grade) error {
		return academics.Reopen(g, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, models.AuditActionGradeReopen, grade)
	s.invalidateStanding(ctx, grade.EnrollmentID)
	s.logger.Warn("approved grade reopened", zap.String("grade_id", grade.ID), zap.String("actor_id", actorID))
	return grade, nil
}

// BulkSubmit submits every draft grade of an offering. Grades in other
// states are reported as failures without stopping the batch.
func (s *GradeService) BulkSubmit(ctx context.Context, req BulkGradeActionRequest) (*BulkGradeResult, error) {
	return s.bulkAction(ctx, req, func(ctx context.Context, gradeID string) error {
		_, err := s.Submit(ctx, gradeID)
		return err
	})
}

// BulkApprove approves every submitted grade of an offering.
func (s *GradeService) BulkApprove(ctx context.Context, req BulkGradeActionRequest, approverID string) (*BulkGradeResult, error) {
	return s.bulkAction(ctx, req, func(ctx context.Context, gradeID string) error {
		_, err := s.Approve(ctx, gradeID, approverID)
		return err
	})
}

func (s *GradeService) bulkAction(ctx context.Context, req BulkGradeActionRequest, apply func(ctx context.Context, gradeID string) error) (*BulkGradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	grades, err := s.grades.ListByOffering(ctx, req.OfferingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offering grades")
	}
	result := &BulkGradeResult{OfferingID: req.OfferingID, Failures: []BulkGradeFailure{}}
	for _, grade := range grades {
		if err := apply(ctx, grade.ID); err != nil {
			appErr := appErrors.FromError(err)
			result.Failures = append(result.Failures, BulkGradeFailure{
				GradeID:      grade.ID,
				EnrollmentID: grade.EnrollmentID,
				StudentRegNo: grade.StudentRegNo,
				Code:         appErr.Code,
				Reason:       appErr.Message,
			})
			continue
		}
		result.SuccessCount++
	}
	s.logger.Info("bulk grade action finished",
		zap.String("offering_id", req.OfferingID),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

// transition loads a grade, applies the state change in memory, and
// persists it guarded by the status the change started from.
func (s *GradeService) transition(ctx context.Context, id string, apply func(*models.Grade) error) (*models.Grade, error) {
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	previous := grade.Status
	if err := apply(grade); err != nil {
		return nil, err
	}
	if err := s.grades.UpdateGuarded(ctx, grade, previous); err != nil {
		return nil, err
	}
	return grade, nil
}

func (s *GradeService) recordAudit(ctx context.Context, actorID string, action models.AuditAction, grade *models.Grade) {
	if s.audits == nil {
		return
	}
	values, _ := json.Marshal(grade)
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "grades",
		ResourceID: &grade.ID,
		NewValues:  values,
	}
	if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write grade audit log", zap.Error(err), zap.String("grade_id", grade.ID))
	}
}

func (s *GradeService) invalidateStanding(ctx context.Context, enrollmentID string) {
	if s.standings == nil {
		return
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		s.logger.Warn("failed to resolve enrollment for standing invalidation", zap.Error(err))
		return
	}
	s.standings.InvalidateStudent(ctx, enrollment.StudentID)
}
