package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockCurriculumReader struct {
	program    *models.Program
	curriculum []models.CurriculumCourse
}

func (m *mockCurriculumReader) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if m.program == nil || m.program.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.program, nil
}

func (m *mockCurriculumReader) ListCurriculum(ctx context.Context, programID string) ([]models.CurriculumCourse, error) {
	return m.curriculum, nil
}

type mockClassificationReader struct {
	bands []models.ClassificationBand
}

func (m *mockClassificationReader) ListClassificationBands(ctx context.Context, programID *string) ([]models.ClassificationBand, error) {
	return m.bands, nil
}

func graduationFixture(t *testing.T, attempts []models.CourseAttempt) (*GraduationService, *mockCurriculumReader) {
	t.Helper()
	programs := &mockCurriculumReader{
		program: &models.Program{ID: "prg-1", Code: "CSC", MinGraduationUnits: 6},
		curriculum: []models.CurriculumCourse{
			{ProgramID: "prg-1", CourseID: "crs-1", CourseCode: "CSC101", Units: 3, Compulsory: true},
			{ProgramID: "prg-1", CourseID: "crs-2", CourseCode: "MTH101", Units: 3, Compulsory: true},
			{ProgramID: "prg-1", CourseID: "crs-3", CourseCode: "GST101", Units: 2, Compulsory: false},
		},
	}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", RegNo: "U2021/001", ProgramID: "prg-1", Status: models.StudentStatusActive},
	}}
	reader := &mockAttemptsReader{attempts: map[string][]models.CourseAttempt{"stu-1": attempts}}
	cohort := &mockCohortReader{students: []models.Student{
		{ID: "stu-1", RegNo: "U2021/001", ProgramID: "prg-1"},
	}}
	policies := &mockPolicyProvider{config: rulesConfig(t, models.RepeatRuleLast)}
	svc := NewGraduationService(students, programs, &mockClassificationReader{}, reader, cohort, policies, nil, nil)
	return svc, programs
}

func TestGraduationAuditEligible(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := graduationFixture(t, []models.CourseAttempt{
		attemptFixture("crs-1", "CSC101", "ses-1", 3, 4, base),
		attemptFixture("crs-2", "MTH101", "ses-1", 3, 3, base),
	})

	audit, err := svc.Audit(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.True(t, audit.Eligible)
	assert.Empty(t, audit.Reasons)
	assert.Empty(t, audit.MissingCourses)
	assert.Equal(t, 3.5, audit.CGPA)
	require.NotNil(t, audit.Classification)
	assert.Equal(t, "First Class", *audit.Classification)
}

func TestGraduationAuditReportsEveryGap(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc, programs := graduationFixture(t, []models.CourseAttempt{
		attemptFixture("crs-1", "CSC101", "ses-1", 3, 1, base),
	})
	floor := 2.0
	programs.program.MinGraduationCGPA = &floor

	audit, err := svc.Audit(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, audit.Eligible)
	assert.Nil(t, audit.Classification)
	assert.Equal(t, []string{"MTH101"}, audit.MissingCourses)
	// units, compulsory course and CGPA floor all reported together
	require.Len(t, audit.Reasons, 3)
}

func TestGraduationAuditFailedCompulsoryStillMissing(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := graduationFixture(t, []models.CourseAttempt{
		attemptFixture("crs-1", "CSC101", "ses-1", 3, 4, base),
		attemptFixture("crs-2", "MTH101", "ses-1", 3, 0, base),
	})

	audit, err := svc.Audit(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, audit.Eligible)
	assert.Contains(t, audit.MissingCourses, "MTH101")
}

func TestGraduationAuditStudentNotFound(t *testing.T) {
	svc, _ := graduationFixture(t, nil)

	_, err := svc.Audit(context.Background(), "stu-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGraduationCohortAuditTotals(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := graduationFixture(t, []models.CourseAttempt{
		attemptFixture("crs-1", "CSC101", "ses-1", 3, 4, base),
		attemptFixture("crs-2", "MTH101", "ses-1", 3, 3, base),
	})

	cohort, err := svc.CohortAudit(context.Background(), "prg-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cohort.Summary.Count)
	assert.Equal(t, 1, cohort.Summary.EligibleCount)
	assert.Equal(t, 0, cohort.Summary.IneligibleCount)
	require.Len(t, cohort.Results, 1)
}

func TestGraduationCohortAuditRequiresProgram(t *testing.T) {
	svc, _ := graduationFixture(t, nil)

	_, err := svc.CohortAudit(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGraduationAuditProgramNotFound(t *testing.T) {
	svc, programs := graduationFixture(t, nil)
	programs.program = &models.Program{ID: "prg-other"}

	_, err := svc.Audit(context.Background(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
