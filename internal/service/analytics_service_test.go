package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	distribution *models.GradeDistribution
	repeats      []models.RepeatedCourseStat
	enrollments  []models.EnrollmentStats
	graded       []models.GradedStudentRef
	err          error
}

func (m *mockAnalyticsRepo) GradeDistribution(ctx context.Context, filter models.GradeDistributionFilter) (*models.GradeDistribution, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.distribution, nil
}

func (m *mockAnalyticsRepo) RepeatedCourses(ctx context.Context, limit int) ([]models.RepeatedCourseStat, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.repeats) {
		return m.repeats[:limit], nil
	}
	return m.repeats, nil
}

func (m *mockAnalyticsRepo) EnrollmentStats(ctx context.Context, sessionID string) ([]models.EnrollmentStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.enrollments, nil
}

func (m *mockAnalyticsRepo) GradedStudents(ctx context.Context, programID, levelID string) ([]models.GradedStudentRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.graded, nil
}

// mockStandingDirectory serves a different standing per student, unlike
// mockStandingComputer which always returns one.
type mockStandingDirectory struct {
	standings map[string]*models.AcademicStanding
}

func (m *mockStandingDirectory) Compute(ctx context.Context, studentID string) (*models.AcademicStanding, bool, error) {
	standing, ok := m.standings[studentID]
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return standing, false, nil
}

func TestAnalyticsGradeDistribution(t *testing.T) {
	repo := &mockAnalyticsRepo{distribution: &models.GradeDistribution{
		OfferingID: "off-1",
		Total:      40,
		PassCount:  35,
		FailCount:  5,
		Buckets: []models.GradeDistributionBucket{
			{Letter: "A", Count: 10},
			{Letter: "F", Count: 5},
		},
	}}
	svc := NewAnalyticsService(repo, nil, nil, nil, nil)

	distribution, cached, err := svc.GradeDistribution(context.Background(), models.GradeDistributionFilter{OfferingID: "off-1"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 40, distribution.Total)
	require.Len(t, distribution.Buckets, 2)
}

func TestAnalyticsGradeDistributionRepoError(t *testing.T) {
	repo := &mockAnalyticsRepo{err: errors.New("connection reset")}
	svc := NewAnalyticsService(repo, nil, nil, nil, nil)

	_, _, err := svc.GradeDistribution(context.Background(), models.GradeDistributionFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestAnalyticsRepeatedCoursesHonoursLimit(t *testing.T) {
	repo := &mockAnalyticsRepo{repeats: []models.RepeatedCourseStat{
		{CourseID: "crs-1", CourseCode: "CSC101", RepeaterCount: 12},
		{CourseID: "crs-2", CourseCode: "MTH101", RepeaterCount: 7},
	}}
	svc := NewAnalyticsService(repo, nil, nil, nil, nil)

	stats, cached, err := svc.RepeatedCourses(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, stats, 1)
	assert.Equal(t, "CSC101", stats[0].CourseCode)
}

func TestAnalyticsEnrollmentStatsRequiresSession(t *testing.T) {
	svc := NewAnalyticsService(&mockAnalyticsRepo{}, nil, nil, nil, nil)

	_, _, err := svc.EnrollmentStats(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnalyticsEnrollmentStats(t *testing.T) {
	repo := &mockAnalyticsRepo{enrollments: []models.EnrollmentStats{
		{SessionID: "ses-1", Semester: string(models.SemesterFirst), Enrollments: 120, Students: 60, Offerings: 8},
	}}
	svc := NewAnalyticsService(repo, nil, nil, nil, nil)

	stats, _, err := svc.EnrollmentStats(context.Background(), "ses-1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 120, stats[0].Enrollments)
}

func TestAnalyticsAtRiskFiltersAndSorts(t *testing.T) {
	repo := &mockAnalyticsRepo{graded: []models.GradedStudentRef{
		{StudentID: "stu-1", RegNo: "U2021/001", FullName: "Ada Obi"},
		{StudentID: "stu-2", RegNo: "U2021/002", FullName: "Bola Ade"},
		{StudentID: "stu-3", RegNo: "U2021/003", FullName: "Chike Eze"},
	}}
	standings := &mockStandingDirectory{standings: map[string]*models.AcademicStanding{
		"stu-1": {StudentID: "stu-1", CGPA: 1.8, CompletionRate: 55, Standing: models.StandingProbation, AtRisk: true},
		"stu-2": {StudentID: "stu-2", CGPA: 3.4, CompletionRate: 98, Standing: models.StandingGood, AtRisk: false},
		"stu-3": {StudentID: "stu-3", CGPA: 0.9, CompletionRate: 40, Standing: models.StandingDismissal, AtRisk: true},
	}}
	svc := NewAnalyticsService(repo, standings, nil, nil, nil)

	atRisk, err := svc.AtRisk(context.Background(), "prg-1", "")
	require.NoError(t, err)
	require.Len(t, atRisk, 2)
	// lowest CGPA first; the healthy student is excluded
	assert.Equal(t, "stu-3", atRisk[0].StudentID)
	assert.Equal(t, "stu-1", atRisk[1].StudentID)
	assert.Equal(t, models.StandingProbation, atRisk[1].Standing)
}

func TestAnalyticsAtRiskSkipsFailedComputations(t *testing.T) {
	repo := &mockAnalyticsRepo{graded: []models.GradedStudentRef{
		{StudentID: "stu-gone"},
		{StudentID: "stu-1", RegNo: "U2021/001"},
	}}
	standings := &mockStandingDirectory{standings: map[string]*models.AcademicStanding{
		"stu-1": {StudentID: "stu-1", CGPA: 1.5, Standing: models.StandingProbation, AtRisk: true},
	}}
	svc := NewAnalyticsService(repo, standings, nil, nil, nil)

	atRisk, err := svc.AtRisk(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	assert.Equal(t, "stu-1", atRisk[0].StudentID)
}

func TestAnalyticsSystemMetricsWithoutCollector(t *testing.T) {
	svc := NewAnalyticsService(&mockAnalyticsRepo{}, nil, nil, nil, nil)

	snapshot := svc.SystemMetrics()
	assert.Zero(t, snapshot.CacheHits)
	assert.Zero(t, snapshot.CacheHitRatio)
}
