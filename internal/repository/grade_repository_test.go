package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

func newGradeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func gradeRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "enrollment_id", "ca_score", "exam_score", "total_score", "letter",
		"grade_point", "status", "submitted_at", "approved_at", "approved_by",
		"rejection_reason", "created_at", "updated_at",
	}).AddRow("grd-1", "enr-1", 25.0, 48.0, 73.0, "A", 4.0, "DRAFT",
		nil, nil, nil, nil, time.Now(), time.Now())
}

func TestGradeRepositoryFindByEnrollment(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grades WHERE enrollment_id = $1")).
		WithArgs("enr-1").
		WillReturnRows(gradeRow())

	grade, err := repo.FindByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, "grd-1", grade.ID)
	assert.Equal(t, models.GradeStatusDraft, grade.Status)
	assert.InDelta(t, 73.0, grade.TotalScore, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnResult(sqlmock.NewResult(1, 1))

	grade := &models.Grade{EnrollmentID: "enr-1", Status: models.GradeStatusDraft}
	err := repo.Create(context.Background(), grade)
	require.NoError(t, err)
	assert.NotEmpty(t, grade.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateGuarded(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grades SET")).
		WithArgs(25.0, 48.0, 73.0, "A", 4.0, models.GradeStatusSubmitted,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"grd-1", models.GradeStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := &models.Grade{
		ID: "grd-1", EnrollmentID: "enr-1",
		CAScore: 25, ExamScore: 48, TotalScore: 73, Letter: "A", GradePoint: 4,
		Status: models.GradeStatusSubmitted, UpdatedAt: time.Now(),
	}
	err := repo.UpdateGuarded(context.Background(), grade, models.GradeStatusDraft)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateGuardedConflict(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grades SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	grade := &models.Grade{ID: "grd-1", Status: models.GradeStatusApproved}
	err := repo.UpdateGuarded(context.Background(), grade, models.GradeStatusSubmitted)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListAttempts(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{
		"course_id", "course_code", "course_title", "units",
		"session_id", "session_name", "semester",
		"total_score", "letter", "grade_point", "enrolled_at",
	}).
		AddRow("crs-1", "CSC301", "Data Structures", 3, "ses-1", "2022/2023", "FIRST", 55.0, "C", 2.0, time.Now().Add(-time.Hour)).
		AddRow("crs-1", "CSC301", "Data Structures", 3, "ses-2", "2023/2024", "FIRST", 65.0, "B", 3.0, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.student_id = $1 AND g.status = $2")).
		WithArgs("stu-1", models.GradeStatusApproved).
		WillReturnRows(rows)

	attempts, err := repo.ListAttempts(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "CSC301", attempts[0].CourseCode)
	assert.InDelta(t, 3.0, attempts[1].GradePoint, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCountNonDraft(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grades WHERE enrollment_id = $1 AND status <> $2")).
		WithArgs("enr-1", models.GradeStatusDraft).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountNonDraft(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
