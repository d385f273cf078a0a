package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/academics"
	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func boolPtr(v bool) *bool       { return &v }
func floatPtr(v float64) *float64 { return &v }

// rulesConfig builds a validated policy bundle shared by the service tests:
// the standard 5-band scale, the default honours ladder and a LAST repeat
// rule with 3 attempts.
func rulesConfig(t *testing.T, rule models.RepeatRule) *academics.PolicyConfig {
	t.Helper()
	scale := []models.GradingBand{
		{Letter: "F", MinScore: 0, MaxScore: 39, GradePoint: 0},
		{Letter: "D", MinScore: 40, MaxScore: 49, GradePoint: 1},
		{Letter: "C", MinScore: 50, MaxScore: 59, GradePoint: 2},
		{Letter: "B", MinScore: 60, MaxScore: 69, GradePoint: 3},
		{Letter: "A", MinScore: 70, MaxScore: 100, GradePoint: 4},
	}
	ladder := []models.ClassificationBand{
		{Label: "First Class", MinCGPA: 3.5},
		{Label: "Second Class Upper", MinCGPA: 3.0},
		{Label: "Second Class Lower", MinCGPA: 2.0},
		{Label: "Third Class", MinCGPA: 1.0},
		{Label: "Fail", MinCGPA: 0},
	}
	policy := models.AcademicPolicy{
		RepeatRule:          rule,
		MaxAttempts:         3,
		CAMax:               30,
		ExamMax:             70,
		ProbationGPA:        2.0,
		DismissalGPA:        1.0,
		AtRiskCompletionPct: 70,
	}
	cfg, err := academics.NewPolicyConfig(scale, ladder, policy)
	require.NoError(t, err)
	return cfg
}

type mockPolicyProvider struct {
	config *academics.PolicyConfig
	err    error
}

func (m *mockPolicyProvider) Config(ctx context.Context) (*academics.PolicyConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.config, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
	err      error
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

type mockOfferingReader struct {
	offering *models.CourseOffering
	err      error
}

func (m *mockOfferingReader) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.offering == nil || m.offering.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.offering, nil
}

type mockCourseReader struct {
	course        *models.Course
	prerequisites []models.Prerequisite
	err           error
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.course, nil
}

func (m *mockCourseReader) ListPrerequisites(ctx context.Context, courseID string) ([]models.Prerequisite, error) {
	return m.prerequisites, nil
}

type mockGradeCounter struct {
	nonDraft int
	err      error
}

func (m *mockGradeCounter) CountNonDraft(ctx context.Context, enrollmentID string) (int, error) {
	return m.nonDraft, m.err
}

type mockEnrollmentRepo struct {
	enrollment    *models.Enrollment
	detail        *models.EnrollmentDetail
	details       []models.EnrollmentDetail
	total         int
	exists        bool
	enrolledCount int
	attempts      map[string]int
	passed        map[string]bool
	created       []*models.Enrollment
	deleted       []string
	createErr     error
	deleteErr     error
	listErr       error
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.details, m.total, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.enrollment == nil || m.enrollment.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, studentID, offeringID string) (bool, error) {
	return m.exists, nil
}

func (m *mockEnrollmentRepo) CountByOffering(ctx context.Context, offeringID string) (int, error) {
	return m.enrolledCount, nil
}

func (m *mockEnrollmentRepo) CountAttempts(ctx context.Context, studentID, courseID string) (int, error) {
	return m.attempts[studentID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	enrollment.ID = "enr-new"
	m.created = append(m.created, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.details, nil
}

func (m *mockEnrollmentRepo) PassedCourseIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	if m.passed == nil {
		return map[string]bool{}, nil
	}
	return m.passed, nil
}

func enrollmentFixture(t *testing.T) (*EnrollmentService, *mockEnrollmentRepo) {
	t.Helper()
	repo := &mockEnrollmentRepo{
		detail: &models.EnrollmentDetail{
			Enrollment: models.Enrollment{ID: "enr-new", StudentID: "stu-1", OfferingID: "off-1"},
		},
	}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", RegNo: "U2021/001", CurrentLevelID: "lvl-200", Status: models.StudentStatusActive},
	}}
	offerings := &mockOfferingReader{offering: &models.CourseOffering{
		ID: "off-1", CourseID: "crs-1", IsActive: true, LevelID: strPtr("lvl-200"), Capacity: intPtr(30),
	}}
	courses := &mockCourseReader{course: &models.Course{ID: "crs-1", Code: "CSC201", Units: 3, Active: true}}
	policies := &mockPolicyProvider{config: rulesConfig(t, models.RepeatRuleLast)}
	svc := NewEnrollmentService(repo, students, offerings, courses, &mockGradeCounter{}, policies, nil, nil)
	return svc, repo
}

func TestEnrollmentCheckEligible(t *testing.T) {
	svc, _ := enrollmentFixture(t)

	result, err := svc.Check(context.Background(), CheckEligibilityRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Empty(t, result.Blocker)
}

func TestEnrollmentCheckReportsBlocker(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.exists = true

	result, err := svc.Check(context.Background(), CheckEligibilityRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, models.BlockAlreadyEnrolled, result.Blocker)
}

func TestEnrollmentCheckValidatesPayload(t *testing.T) {
	svc, _ := enrollmentFixture(t)

	_, err := svc.Check(context.Background(), CheckEligibilityRequest{StudentID: "stu-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCheckStudentNotFound(t *testing.T) {
	svc, _ := enrollmentFixture(t)

	_, err := svc.Check(context.Background(), CheckEligibilityRequest{StudentID: "stu-404", OfferingID: "off-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollSuccess(t *testing.T) {
	svc, repo := enrollmentFixture(t)

	detail, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "stu-1", repo.created[0].StudentID)
	assert.Equal(t, "enr-new", detail.ID)
}

func TestEnrollBlockedOfferingFull(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.enrolledCount = 30

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOfferingFull.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestEnrollBlockedRepeatLimit(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.attempts = map[string]int{"stu-1": 3}

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRepeatLimitExceeded.Code, appErrors.FromError(err).Code)
}

func TestEnrollStrictPrerequisiteBlocks(t *testing.T) {
	svc, _ := enrollmentFixture(t)
	courses := &mockCourseReader{
		course: &models.Course{ID: "crs-1", Code: "CSC201", Units: 3, Active: true},
		prerequisites: []models.Prerequisite{
			{CourseID: "crs-1", RequiredCourseID: "crs-0", RequiredCode: "CSC101"},
		},
	}
	svc.courses = courses

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1", Strict: boolPtr(true)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPrerequisiteNotMet.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "CSC101")
}

func TestEnrollLenientPrerequisiteWarns(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	svc.courses = &mockCourseReader{
		course: &models.Course{ID: "crs-1", Code: "CSC201", Units: 3, Active: true},
		prerequisites: []models.Prerequisite{
			{CourseID: "crs-1", RequiredCourseID: "crs-0", RequiredCode: "CSC101"},
		},
	}

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1", Strict: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestEnrollDefaultStrictness(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	svc.courses = &mockCourseReader{
		course: &models.Course{ID: "crs-1", Code: "CSC201", Units: 3, Active: true},
		prerequisites: []models.Prerequisite{
			{CourseID: "crs-1", RequiredCourseID: "crs-0", RequiredCode: "CSC101"},
		},
	}

	// strict by default
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.Error(t, err)

	svc.SetDefaultStrict(false)
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestEnrollRaceReportsAlreadyEnrolled(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.createErr = appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", OfferingID: "off-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestBulkEnrollCollectsFailures(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", CurrentLevelID: "lvl-200", Status: models.StudentStatusActive},
		"stu-2": {ID: "stu-2", CurrentLevelID: "lvl-200", Status: models.StudentStatusActive},
	}}
	svc.students = students

	result, err := svc.BulkEnroll(context.Background(), BulkEnrollRequest{
		OfferingID: "off-1",
		StudentIDs: []string{"stu-1", "stu-2", "stu-404"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stu-404", result.Failures[0].StudentID)
	assert.Equal(t, appErrors.ErrNotFound.Code, result.Failures[0].Code)
	assert.Len(t, repo.created, 2)
}

func TestDropEnrollment(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.enrollment = &models.Enrollment{ID: "enr-1", StudentID: "stu-1", OfferingID: "off-1"}

	err := svc.Drop(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-1"}, repo.deleted)
}

func TestDropBlockedByReviewedGrades(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.enrollment = &models.Enrollment{ID: "enr-1", StudentID: "stu-1", OfferingID: "off-1"}
	svc.grades = &mockGradeCounter{nonDraft: 1}

	err := svc.Drop(context.Background(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestDropNotFound(t *testing.T) {
	svc, _ := enrollmentFixture(t)

	err := svc.Drop(context.Background(), "enr-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentListPaginates(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.details = []models.EnrollmentDetail{{Enrollment: models.Enrollment{ID: "enr-1"}}}
	repo.total = 41

	items, pagination, err := svc.List(context.Background(), models.EnrollmentFilter{Page: 0, PageSize: 0})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}

func TestEnrollmentListRepoError(t *testing.T) {
	svc, repo := enrollmentFixture(t)
	repo.listErr = errors.New("boom")

	_, _, err := svc.List(context.Background(), models.EnrollmentFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
