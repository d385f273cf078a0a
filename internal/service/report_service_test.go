package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/dto"
	"github.com/noah-isme/uni-adp-api/internal/models"
	"github.com/noah-isme/uni-adp-api/internal/repository"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
	"github.com/noah-isme/uni-adp-api/pkg/jobs"
)

type mockReportJobStore struct {
	jobs    map[string]*models.ReportJob
	updates map[string][]repository.UpdateReportJobParams
	queued  []models.ReportJob
}

func (m *mockReportJobStore) Create(ctx context.Context, job *models.ReportJob) error {
	job.ID = "job-1"
	if m.jobs == nil {
		m.jobs = map[string]*models.ReportJob{}
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockReportJobStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (m *mockReportJobStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	if m.updates == nil {
		m.updates = map[string][]repository.UpdateReportJobParams{}
	}
	m.updates[id] = append(m.updates[id], params)
	if job, ok := m.jobs[id]; ok {
		if params.Status != nil {
			job.Status = *params.Status
		}
		if params.Progress != nil {
			job.Progress = *params.Progress
		}
		if params.ResultURL != nil {
			job.ResultURL = params.ResultURL
		}
	}
	return nil
}

func (m *mockReportJobStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	return m.queued, nil
}

func (m *mockReportJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockExportGenerator struct {
	result *ExportResult
	err    error
	calls  int
}

func (m *mockExportGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func reportFixture(t *testing.T) (*ReportService, *mockReportJobStore, *mockDispatcher) {
	t.Helper()
	store := &mockReportJobStore{jobs: map[string]*models.ReportJob{}}
	lecturer := "usr-lect"
	offerings := &mockOfferingReader{offering: &models.CourseOffering{ID: "off-1", CourseID: "crs-1", LecturerID: &lecturer, IsActive: true}}
	queue := &mockDispatcher{}
	svc := NewReportService(store, offerings, queue, nil, nil, ReportServiceConfig{ResultTTL: time.Hour})
	return svc, store, queue
}

func staffClaims() models.JWTClaims {
	return models.JWTClaims{UserID: "usr-reg", Role: models.RoleRegistry}
}

func TestReportCreateTranscriptQueues(t *testing.T) {
	svc, store, queue := reportFixture(t)

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeTranscript,
		StudentID: strPtr("stu-1"),
		Format:    models.ReportFormatCSV,
	}, staffClaims())
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "job-1", queue.enqueued[0].ID)
	assert.Contains(t, store.jobs, "job-1")
}

func TestReportCreateStudentSelfOnly(t *testing.T) {
	svc, _, _ := reportFixture(t)
	own := "stu-1"
	claims := models.JWTClaims{UserID: "usr-stu", Role: models.RoleStudent, StudentID: &own}

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeTranscript,
		StudentID: strPtr("stu-2"),
		Format:    models.ReportFormatPDF,
	}, claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeTranscript,
		StudentID: strPtr("stu-1"),
		Format:    models.ReportFormatPDF,
	}, claims)
	require.NoError(t, err)
}

func TestReportCreateGradeSheetLecturerOwnership(t *testing.T) {
	svc, _, _ := reportFixture(t)
	claims := models.JWTClaims{UserID: "usr-other", Role: models.RoleLecturer}

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:       models.ReportTypeGradeSheet,
		OfferingID: strPtr("off-1"),
		Format:     models.ReportFormatCSV,
	}, claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	claims.UserID = "usr-lect"
	_, err = svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:       models.ReportTypeGradeSheet,
		OfferingID: strPtr("off-1"),
		Format:     models.ReportFormatCSV,
	}, claims)
	require.NoError(t, err)
}

func TestReportCreateCohortAuditRegistryOnly(t *testing.T) {
	svc, _, _ := reportFixture(t)

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeCohortAudit,
		ProgramID: strPtr("prg-1"),
		Format:    models.ReportFormatCSV,
	}, models.JWTClaims{UserID: "usr-lect", Role: models.RoleLecturer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportCreateRejectsBadFormat(t *testing.T) {
	svc, _, _ := reportFixture(t)

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeTranscript,
		StudentID: strPtr("stu-1"),
		Format:    "xlsx",
	}, staffClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportCreateEnqueueFailureMarksJobFailed(t *testing.T) {
	svc, store, queue := reportFixture(t)
	queue.err = errors.New("queue closed")

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:      models.ReportTypeTranscript,
		StudentID: strPtr("stu-1"),
		Format:    models.ReportFormatCSV,
	}, staffClaims())
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
}

func TestReportStatusOwnershipCheck(t *testing.T) {
	svc, store, _ := reportFixture(t)
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Status: models.ReportStatusProcessing, Progress: 10, CreatedBy: "usr-a"}

	_, err := svc.GetStatus(context.Background(), "job-1", models.JWTClaims{UserID: "usr-b", Role: models.RoleLecturer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	resp, err := svc.GetStatus(context.Background(), "job-1", models.JWTClaims{UserID: "usr-a", Role: models.RoleLecturer})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, resp.Status)

	// registry may read any job
	_, err = svc.GetStatus(context.Background(), "job-1", staffClaims())
	require.NoError(t, err)
}

func TestReportWorkerFinishesJob(t *testing.T) {
	store := &mockReportJobStore{jobs: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeTranscript, Status: models.ReportStatusQueued},
	}}
	exporter := &mockExportGenerator{result: &ExportResult{URL: "/api/v1/export/token-1"}}
	worker := NewReportWorker(store, exporter, NewMetricsService(), 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, store.jobs["job-1"].Status)
	assert.Equal(t, 100, store.jobs["job-1"].Progress)
	require.NotNil(t, store.jobs["job-1"].ResultURL)
}

func TestReportWorkerRequeuesUntilRetriesExhausted(t *testing.T) {
	store := &mockReportJobStore{jobs: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeTranscript, Status: models.ReportStatusQueued},
	}}
	exporter := &mockExportGenerator{err: errors.New("render failed")}
	worker := NewReportWorker(store, exporter, NewMetricsService(), 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, store.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
}
