package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockAttemptsReader struct {
	attempts map[string][]models.CourseAttempt
	err      error
}

func (m *mockAttemptsReader) ListAttempts(ctx context.Context, studentID string) ([]models.CourseAttempt, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.attempts[studentID], nil
}

type mockCohortReader struct {
	students []models.Student
	err      error
}

func (m *mockCohortReader) ListByProgramAndLevel(ctx context.Context, programID, levelID string) ([]models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.students, nil
}

func attemptFixture(courseID, code, sessionID string, units int, point float64, enrolled time.Time) models.CourseAttempt {
	return models.CourseAttempt{
		CourseID:    courseID,
		CourseCode:  code,
		Units:       units,
		SessionID:   sessionID,
		SessionName: "2023/2024",
		Semester:    models.SemesterFirst,
		GradePoint:  point,
		EnrolledAt:  enrolled,
	}
}

func standingFixture(t *testing.T, attempts []models.CourseAttempt) *StandingService {
	t.Helper()
	reader := &mockAttemptsReader{attempts: map[string][]models.CourseAttempt{"stu-1": attempts}}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", RegNo: "U2021/001", Status: models.StudentStatusActive},
	}}
	cohort := &mockCohortReader{students: []models.Student{{ID: "stu-1", RegNo: "U2021/001"}}}
	policies := &mockPolicyProvider{config: rulesConfig(t, models.RepeatRuleLast)}
	return NewStandingService(reader, students, cohort, policies, nil, nil, nil, nil)
}

func TestStandingComputeAggregatesSessions(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := standingFixture(t, []models.CourseAttempt{
		attemptFixture("crs-1", "CSC101", "ses-1", 3, 4, base),
		attemptFixture("crs-2", "MTH101", "ses-1", 2, 2, base),
	})

	standing, cached, err := svc.Compute(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, cached)
	// (4*3 + 2*2) / 5 = 3.2
	assert.Equal(t, 3.2, standing.CGPA)
	assert.Equal(t, 5, standing.UnitsAttempted)
	assert.Equal(t, 5, standing.UnitsPassed)
	assert.Equal(t, models.StandingGood, standing.Standing)
	require.Len(t, standing.Sessions, 1)
	assert.Equal(t, 3.2, standing.Sessions[0].GPA)
}

func TestStandingComputeRepeatRuleLast(t *testing.T) {
	first := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	fail := attemptFixture("crs-1", "CSC101", "ses-1", 3, 0, first)
	pass := attemptFixture("crs-1", "CSC101", "ses-2", 3, 3, second)
	svc := standingFixture(t, []models.CourseAttempt{fail, pass})

	standing, _, err := svc.Compute(context.Background(), "stu-1")
	require.NoError(t, err)
	// only the later attempt counts toward the CGPA
	assert.Equal(t, 3.0, standing.CGPA)
	assert.Equal(t, 6, standing.UnitsAttempted)
	assert.Equal(t, 3, standing.UnitsPassed)
}

func TestStandingComputeStudentNotFound(t *testing.T) {
	svc := standingFixture(t, nil)

	_, _, err := svc.Compute(context.Background(), "stu-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStandingComputeRequiresID(t *testing.T) {
	svc := standingFixture(t, nil)

	_, _, err := svc.Compute(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStandingSessionGPA(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := standingFixture(t, []models.CourseAttempt{
		attemptFixture("crs-1", "CSC101", "ses-1", 3, 4, base),
	})

	line, err := svc.SessionGPA(context.Background(), "stu-1", "ses-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, line.GPA)

	_, err = svc.SessionGPA(context.Background(), "stu-1", "ses-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStandingRecomputeCohort(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := standingFixture(t, []models.CourseAttempt{
		attemptFixture("crs-1", "CSC101", "ses-1", 3, 4, base),
	})

	result, err := svc.RecomputeCohort(context.Background(), RecomputeCohortRequest{ProgramID: "prg-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Empty(t, result.Failures)
}

func TestStandingRecomputeCohortCollectsFailures(t *testing.T) {
	svc := standingFixture(t, nil)
	svc.cohort = &mockCohortReader{students: []models.Student{
		{ID: "stu-1", RegNo: "U2021/001"},
		{ID: "stu-404", RegNo: "U2021/404"},
	}}

	result, err := svc.RecomputeCohort(context.Background(), RecomputeCohortRequest{ProgramID: "prg-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stu-404", result.Failures[0].StudentID)
	assert.Equal(t, appErrors.ErrNotFound.Code, result.Failures[0].Code)
}

func TestStandingRecomputeCohortValidatesPayload(t *testing.T) {
	svc := standingFixture(t, nil)

	_, err := svc.RecomputeCohort(context.Background(), RecomputeCohortRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
