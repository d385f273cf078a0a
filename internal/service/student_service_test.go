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

type mockStudentRepo struct {
	students      map[string]*models.Student
	details       map[string]*models.StudentDetail
	regNoTaken    bool
	created       []*models.Student
	updated       []*models.Student
	statusUpdates map[string]models.StudentStatus
	deleted       []string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, d := range m.details {
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *student
	return &clone, nil
}

func (m *mockStudentRepo) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, ok := m.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return detail, nil
}

func (m *mockStudentRepo) ExistsByRegNo(ctx context.Context, regNo, excludeID string) (bool, error) {
	return m.regNoTaken, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.ID = "stu-new"
	m.created = append(m.created, student)
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.updated = append(m.updated, student)
	if stored, ok := m.students[student.ID]; ok {
		*stored = *student
	}
	return nil
}

func (m *mockStudentRepo) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = map[string]models.StudentStatus{}
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockLevelReader struct {
	levels []models.Level
}

func (m *mockLevelReader) List(ctx context.Context) ([]models.Level, error) {
	return m.levels, nil
}

func (m *mockLevelReader) FindByID(ctx context.Context, id string) (*models.Level, error) {
	for i := range m.levels {
		if m.levels[i].ID == id {
			return &m.levels[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockStandingComputer struct {
	standing *models.AcademicStanding
	err      error
}

func (m *mockStandingComputer) Compute(ctx context.Context, studentID string) (*models.AcademicStanding, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	return m.standing, false, nil
}

func studentFixture(t *testing.T) (*StudentService, *mockStudentRepo, *mockAuditWriter) {
	t.Helper()
	repo := &mockStudentRepo{
		students: map[string]*models.Student{
			"stu-1": {ID: "stu-1", RegNo: "U2021/001", Status: models.StudentStatusActive, CurrentLevelID: "lvl-100"},
		},
		details: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1", RegNo: "U2021/001", Status: models.StudentStatusActive}},
		},
	}
	levels := &mockLevelReader{levels: []models.Level{
		{ID: "lvl-100", Name: "100 Level", Rank: 1},
		{ID: "lvl-200", Name: "200 Level", Rank: 2},
	}}
	standings := &mockStandingComputer{standing: &models.AcademicStanding{
		StudentID: "stu-1", CGPA: 3.2, Standing: models.StandingGood, ComputedAt: time.Now(),
	}}
	audits := &mockAuditWriter{}
	svc := NewStudentService(repo, levels, standings, audits, nil, nil)
	return svc, repo, audits
}

func TestStudentCreate(t *testing.T) {
	svc, repo, _ := studentFixture(t)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		RegNo:          "U2024/042",
		FullName:       "Ada Obi",
		Email:          "ada@example.edu",
		ProgramID:      "prg-1",
		EntrySessionID: "ses-1",
		CurrentLevelID: "lvl-100",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Len(t, repo.created, 1)
}

func TestStudentCreateDuplicateRegNo(t *testing.T) {
	svc, repo, _ := studentFixture(t)
	repo.regNoTaken = true

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		RegNo:          "U2021/001",
		FullName:       "Ada Obi",
		Email:          "ada@example.edu",
		ProgramID:      "prg-1",
		EntrySessionID: "ses-1",
		CurrentLevelID: "lvl-100",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentCreateInvalidEmail(t *testing.T) {
	svc, _, _ := studentFixture(t)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		RegNo:          "U2024/042",
		FullName:       "Ada Obi",
		Email:          "not-an-email",
		ProgramID:      "prg-1",
		EntrySessionID: "ses-1",
		CurrentLevelID: "lvl-100",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentGetWithStanding(t *testing.T) {
	svc, _, _ := studentFixture(t)

	result, err := svc.GetWithStanding(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "U2021/001", result.Student.RegNo)
	assert.Equal(t, 3.2, result.Standing.CGPA)
}

func TestStudentChangeStatusAllowed(t *testing.T) {
	svc, repo, audits := studentFixture(t)

	student, err := svc.ChangeStatus(context.Background(), "stu-1", "usr-1", ChangeStudentStatusRequest{
		Status: models.StudentStatusProbation,
		Reason: "CGPA below threshold",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusProbation, student.Status)
	assert.Equal(t, models.StudentStatusProbation, repo.statusUpdates["stu-1"])
	require.Len(t, audits.entries, 1)
	assert.Equal(t, models.AuditActionStudentStatusChange, audits.entries[0].Action)
}

func TestStudentChangeStatusTerminalState(t *testing.T) {
	svc, repo, _ := studentFixture(t)
	repo.students["stu-1"].Status = models.StudentStatusGraduated

	_, err := svc.ChangeStatus(context.Background(), "stu-1", "usr-1", ChangeStudentStatusRequest{
		Status: models.StudentStatusActive,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestStudentChangeStatusNoOp(t *testing.T) {
	svc, repo, audits := studentFixture(t)

	student, err := svc.ChangeStatus(context.Background(), "stu-1", "usr-1", ChangeStudentStatusRequest{
		Status: models.StudentStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Empty(t, repo.statusUpdates)
	assert.Empty(t, audits.entries)
}

func TestStudentPromoteLevel(t *testing.T) {
	svc, repo, _ := studentFixture(t)

	student, err := svc.PromoteLevel(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "lvl-200", student.CurrentLevelID)
	assert.Len(t, repo.updated, 1)
}

func TestStudentPromoteAtFinalLevel(t *testing.T) {
	svc, repo, _ := studentFixture(t)
	repo.students["stu-1"].CurrentLevelID = "lvl-200"

	_, err := svc.PromoteLevel(context.Background(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestStudentPromoteSuspendedBlocked(t *testing.T) {
	svc, repo, _ := studentFixture(t)
	repo.students["stu-1"].Status = models.StudentStatusSuspended

	_, err := svc.PromoteLevel(context.Background(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestStudentUpdateNotFound(t *testing.T) {
	svc, _, _ := studentFixture(t)

	_, err := svc.Update(context.Background(), "stu-404", UpdateStudentRequest{
		RegNo:          "U2024/042",
		FullName:       "Ada Obi",
		Email:          "ada@example.edu",
		ProgramID:      "prg-1",
		EntrySessionID: "ses-1",
		CurrentLevelID: "lvl-100",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentDelete(t *testing.T) {
	svc, repo, _ := studentFixture(t)

	require.NoError(t, svc.Delete(context.Background(), "stu-1"))
	assert.Equal(t, []string{"stu-1"}, repo.deleted)

	err := svc.Delete(context.Background(), "stu-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
