package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type analyticsRepository interface {
	GradeDistribution(ctx context.Context, filter models.GradeDistributionFilter) (*models.GradeDistribution, error)
	RepeatedCourses(ctx context.Context, limit int) ([]models.RepeatedCourseStat, error)
	EnrollmentStats(ctx context.Context, sessionID string) ([]models.EnrollmentStats, error)
	GradedStudents(ctx context.Context, programID, levelID string) ([]models.GradedStudentRef, error)
}

// AnalyticsService provides read-optimised access to academic analytics
// with cache integration.
type AnalyticsService struct {
	repo      analyticsRepository
	standings standingComputer
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo analyticsRepository, standings standingComputer, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, standings: standings, cache: cache, metrics: metrics, logger: logger}
}

// GradeDistribution returns approved grades bucketed by letter. The boolean
// indicates whether data originated from cache.
func (s *AnalyticsService) GradeDistribution(ctx context.Context, filter models.GradeDistributionFilter) (*models.GradeDistribution, bool, error) {
	cacheKey := makeAnalyticsCacheKey("distribution", filter.OfferingID, filter.CourseID, filter.SessionID)
	var cached models.GradeDistribution
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get distribution cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	distribution, err := s.repo.GradeDistribution(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grade distribution")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_distribution", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, distribution, 0); err != nil {
			s.logger.Warn("cache distribution", zap.Error(err))
		}
	}
	return distribution, false, nil
}

// RepeatedCourses lists the courses students repeat most.
func (s *AnalyticsService) RepeatedCourses(ctx context.Context, limit int) ([]models.RepeatedCourseStat, bool, error) {
	cacheKey := makeAnalyticsCacheKey("repeats", fmt.Sprintf("%d", limit))
	var cached []models.RepeatedCourseStat
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get repeats cache: %w", err)
		} else if hit {
			return cached, true, nil
		}
	}

	start := time.Now()
	stats, err := s.repo.RepeatedCourses(ctx, limit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate repeated courses")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_repeats", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, 0); err != nil {
			s.logger.Warn("cache repeats", zap.Error(err))
		}
	}
	return stats, false, nil
}

// EnrollmentStats aggregates enrollment activity per semester of a session.
func (s *AnalyticsService) EnrollmentStats(ctx context.Context, sessionID string) ([]models.EnrollmentStats, bool, error) {
	if sessionID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	cacheKey := makeAnalyticsCacheKey("enrollments", sessionID)
	var cached []models.EnrollmentStats
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get enrollment stats cache: %w", err)
		} else if hit {
			return cached, true, nil
		}
	}

	start := time.Now()
	stats, err := s.repo.EnrollmentStats(ctx, sessionID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate enrollment stats")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_enrollments", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, 0); err != nil {
			s.logger.Warn("cache enrollment stats", zap.Error(err))
		}
	}
	return stats, false, nil
}

// AtRisk recomputes standing for every graded student in scope and returns
// those the policy flags as at risk, lowest CGPA first.
func (s *AnalyticsService) AtRisk(ctx context.Context, programID, levelID string) ([]models.AtRiskStudent, error) {
	students, err := s.repo.GradedStudents(ctx, programID, levelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list graded students")
	}

	atRisk := make([]models.AtRiskStudent, 0)
	for _, student := range students {
		standing, _, err := s.standings.Compute(ctx, student.StudentID)
		if err != nil {
			s.logger.Warn("at-risk scan skipped student",
				zap.String("student_id", student.StudentID),
				zap.Error(err))
			continue
		}
		if !standing.AtRisk {
			continue
		}
		atRisk = append(atRisk, models.AtRiskStudent{
			StudentID:      student.StudentID,
			RegNo:          student.RegNo,
			FullName:       student.FullName,
			CGPA:           standing.CGPA,
			CompletionRate: standing.CompletionRate,
			Standing:       standing.Standing,
		})
	}
	for i := 0; i < len(atRisk); i++ {
		for j := i + 1; j < len(atRisk); j++ {
			if atRisk[j].CGPA < atRisk[i].CGPA {
				atRisk[i], atRisk[j] = atRisk[j], atRisk[i]
			}
		}
	}
	return atRisk, nil
}

// SystemMetrics returns the system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
