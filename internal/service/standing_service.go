package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type attemptsReader interface {
	ListAttempts(ctx context.Context, studentID string) ([]models.CourseAttempt, error)
}

type cohortReader interface {
	ListByProgramAndLevel(ctx context.Context, programID, levelID string) ([]models.Student, error)
}

// RecomputeCohortRequest refreshes cached standings for a whole cohort.
type RecomputeCohortRequest struct {
	ProgramID string `json:"program_id" validate:"required"`
	LevelID   string `json:"level_id"`
}

// CohortComputeFailure is one student whose standing could not be computed.
type CohortComputeFailure struct {
	StudentID string `json:"student_id"`
	RegNo     string `json:"reg_no"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// CohortRecomputeResult summarises a cohort standing refresh.
type CohortRecomputeResult struct {
	ProgramID    string                 `json:"program_id"`
	LevelID      string                 `json:"level_id,omitempty"`
	Count        int                    `json:"count"`
	SuccessCount int                    `json:"success_count"`
	Failures     []CohortComputeFailure `json:"failures"`
}

// StandingService computes GPA standings from approved grades. Standings
// are derived data: they are cached for speed but recomputing from the
// grade records always yields the same figures, so the cache can be
// dropped at any time.
type StandingService struct {
	attempts  attemptsReader
	students  studentReader
	cohort    cohortReader
	policies  policyProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewStandingService constructs StandingService.
func NewStandingService(attempts attemptsReader, students studentReader, cohort cohortReader, policies policyProvider, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StandingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandingService{
		attempts:  attempts,
		students:  students,
		cohort:    cohort,
		policies:  policies,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  15 * time.Minute,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetCacheTTL overrides how long computed standings stay cached.
func (s *StandingService) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func standingCacheKey(studentID string) string {
	return fmt.Sprintf("standing:%s", studentID)
}

// Compute returns the student's academic standing, served from cache when
// possible. The boolean reports whether the cache was hit.
func (s *StandingService) Compute(ctx context.Context, studentID string) (*models.AcademicStanding, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	key := standingCacheKey(studentID)
	if s.cache != nil {
		var cached models.AcademicStanding
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	standing, err := s.compute(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, standing, s.cacheTTL); err != nil {
			s.logger.Warn("standing cache write failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return standing, false, nil
}

// SessionGPA returns the standing line for one session of a student.
func (s *StandingService) SessionGPA(ctx context.Context, studentID, sessionID string) (*models.SessionStanding, error) {
	standing, _, err := s.Compute(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for i := range standing.Sessions {
		if standing.Sessions[i].SessionID == sessionID {
			return &standing.Sessions[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no approved grades recorded for this session")
}

// InvalidateStudent drops the cached standing after the underlying grades
// changed. Grade approval and reopen both call this.
func (s *StandingService) InvalidateStudent(ctx context.Context, studentID string) {
	if s.cache == nil || studentID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, standingCacheKey(studentID)); err != nil {
		s.logger.Warn("standing cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

// RecomputeCohort recomputes and re-caches standings for every student of a
// program, optionally narrowed to one level. Per-student failures are
// collected without stopping the run.
func (s *StandingService) RecomputeCohort(ctx context.Context, req RecomputeCohortRequest) (*CohortRecomputeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}
	students, err := s.cohort.ListByProgramAndLevel(ctx, req.ProgramID, req.LevelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohort students")
	}
	result := &CohortRecomputeResult{
		ProgramID: req.ProgramID,
		LevelID:   req.LevelID,
		Count:     len(students),
		Failures:  []CohortComputeFailure{},
	}
	for _, student := range students {
		standing, err := s.compute(ctx, student.ID)
		if err != nil {
			appErr := appErrors.FromError(err)
			result.Failures = append(result.Failures, CohortComputeFailure{
				StudentID: student.ID,
				RegNo:     student.RegNo,
				Code:      appErr.Code,
				Reason:    appErr.Message,
			})
			continue
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, standingCacheKey(student.ID), standing, s.cacheTTL); err != nil {
				s.logger.Warn("standing cache write failed", zap.String("student_id", student.ID), zap.Error(err))
			}
		}
		result.SuccessCount++
	}
	s.logger.Info("cohort standings recomputed",
		zap.String("program_id", req.ProgramID),
		zap.Int("students", result.Count),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

// compute runs the engine against the student's approved attempts.
func (s *StandingService) compute(ctx context.Context, studentID string) (*models.AcademicStanding, error) {
	config, err := s.policies.Config(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	attempts, err := s.attempts.ListAttempts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course attempts")
	}

	start := s.now()
	standing := config.ComputeStanding(studentID, attempts, start)
	if s.metrics != nil {
		s.metrics.ObserveStandingComputation(time.Since(start))
		s.metrics.RecordEngineEvaluation("standing")
	}
	return &standing, nil
}
