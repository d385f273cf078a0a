package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/academics"
	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type curriculumReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
	ListCurriculum(ctx context.Context, programID string) ([]models.CurriculumCourse, error)
}

type classificationReader interface {
	ListClassificationBands(ctx context.Context, programID *string) ([]models.ClassificationBand, error)
}

// GraduationService runs graduation audits. It persists nothing: every
// audit is recomputed from approved grades and the curriculum, so the
// result always reflects the current record.
type GraduationService struct {
	students studentReader
	programs curriculumReader
	bands    classificationReader
	attempts attemptsReader
	cohort   cohortReader
	policies policyProvider
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewGraduationService constructs GraduationService.
func NewGraduationService(students studentReader, programs curriculumReader, bands classificationReader, attempts attemptsReader, cohort cohortReader, policies policyProvider, metrics *MetricsService, logger *zap.Logger) *GraduationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraduationService{
		students: students,
		programs: programs,
		bands:    bands,
		attempts: attempts,
		cohort:   cohort,
		policies: policies,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Audit checks one student against their programme's graduation
// requirements.
func (s *GraduationService) Audit(ctx context.Context, studentID string) (*models.GraduationAudit, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	config, err := s.policies.Config(ctx)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	scope, err := s.loadProgramScope(ctx, student.ProgramID)
	if err != nil {
		return nil, err
	}
	audit, err := s.auditStudent(ctx, config, *student, scope)
	if err != nil {
		return nil, err
	}
	return audit, nil
}

// CohortAudit audits every student of a programme, optionally narrowed to
// one level, and totals the outcome.
func (s *GraduationService) CohortAudit(ctx context.Context, programID, levelID string) (*models.CohortAudit, error) {
	if programID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program id is required")
	}
	config, err := s.policies.Config(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := s.loadProgramScope(ctx, programID)
	if err != nil {
		return nil, err
	}
	students, err := s.cohort.ListByProgramAndLevel(ctx, programID, levelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohort students")
	}

	cohort := &models.CohortAudit{
		ProgramID: programID,
		LevelID:   levelID,
		Results:   make([]models.GraduationAudit, 0, len(students)),
	}
	for _, student := range students {
		audit, err := s.auditStudent(ctx, config, student, scope)
		if err != nil {
			s.logger.Warn("cohort audit skipped student",
				zap.String("student_id", student.ID),
				zap.Error(err))
			continue
		}
		cohort.Results = append(cohort.Results, *audit)
		if audit.Eligible {
			cohort.Summary.EligibleCount++
		} else {
			cohort.Summary.IneligibleCount++
		}
	}
	cohort.Summary.Count = len(cohort.Results)
	s.logger.Info("cohort graduation audit finished",
		zap.String("program_id", programID),
		zap.Int("audited", cohort.Summary.Count),
		zap.Int("eligible", cohort.Summary.EligibleCount))
	return cohort, nil
}

// programScope is the per-programme data shared by every audit in a cohort.
type programScope struct {
	program    *models.Program
	curriculum []models.CurriculumCourse
	bands      []models.ClassificationBand
}

func (s *GraduationService) loadProgramScope(ctx context.Context, programID string) (*programScope, error) {
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "programme not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load programme")
	}
	curriculum, err := s.programs.ListCurriculum(ctx, program.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	bands, err := s.bands.ListClassificationBands(ctx, &program.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classification bands")
	}
	return &programScope{program: program, curriculum: curriculum, bands: bands}, nil
}

func (s *GraduationService) auditStudent(ctx context.Context, config *academics.PolicyConfig, student models.Student, scope *programScope) (*models.GraduationAudit, error) {
	attempts, err := s.attempts.ListAttempts(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course attempts")
	}

	now := s.now()
	standing := config.ComputeStanding(student.ID, attempts, now)
	outcomes := config.CountedOutcomes(attempts)

	audit, err := config.AuditGraduation(academics.GraduationInput{
		Student:      student,
		Program:      *scope.program,
		Curriculum:   scope.curriculum,
		Standing:     standing,
		Outcomes:     outcomes,
		ProgramBands: scope.bands,
	}, now)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordEngineEvaluation("graduation")
	}
	return &audit, nil
}
