package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	"github.com/noah-isme/uni-adp-api/pkg/storage"
)

type mockTranscriptBuilder struct {
	transcript *models.Transcript
	err        error
}

func (m *mockTranscriptBuilder) BuildTranscript(ctx context.Context, studentID string) (*models.Transcript, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.transcript, nil
}

type mockCohortAuditor struct {
	cohort *models.CohortAudit
}

func (m *mockCohortAuditor) CohortAudit(ctx context.Context, programID, levelID string) (*models.CohortAudit, error) {
	return m.cohort, nil
}

type mockFileStorage struct {
	saved map[string][]byte
}

func (m *mockFileStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockFileStorage) Open(filename string) (*os.File, error) {
	return nil, errors.New("not stored on disk")
}

func (m *mockFileStorage) Delete(filename string) error { return nil }

func (m *mockFileStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) { return nil, nil }

func exportFixture(t *testing.T) (*ExportService, *mockFileStorage) {
	t.Helper()
	transcripts := &mockTranscriptBuilder{transcript: &models.Transcript{
		Student: models.StudentDetail{Student: models.Student{ID: "stu-1", RegNo: "U2021/001", FullName: "Ada Obi"}},
		Sessions: []models.TranscriptSession{{
			SessionID:   "ses-1",
			SessionName: "2023/2024",
			GPA:         3.5,
			Rows: []models.TranscriptRow{{
				CourseCode: "CSC101", CourseTitle: "Intro", Units: 3,
				Semester: models.SemesterFirst, TotalScore: 75, Letter: "A", GradePoint: 4, Counted: true,
			}},
		}},
		CGPA:           3.5,
		UnitsAttempted: 3,
		UnitsPassed:    3,
	}}
	grades := &mockGradeRepo{offering: []models.GradeDetail{{
		Grade:        models.Grade{ID: "grd-1", CAScore: 25, ExamScore: 50, TotalScore: 75, Letter: "A", GradePoint: 4, Status: models.GradeStatusApproved},
		StudentRegNo: "U2021/001",
		StudentName:  "Ada Obi",
		CourseCode:   "CSC101",
		SessionName:  "2023/2024",
		Semester:     models.SemesterFirst,
	}}}
	audits := &mockCohortAuditor{cohort: &models.CohortAudit{
		ProgramID: "prg-1",
		Summary:   models.CohortAuditSummary{Count: 1, EligibleCount: 1},
		Results: []models.GraduationAudit{{
			StudentRegNo: "U2021/001", Eligible: true, CGPA: 3.5,
			UnitsPassed: 120, UnitsRequired: 120,
			MissingCourses: []string{}, Reasons: []string{},
		}},
	}}
	files := &mockFileStorage{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(transcripts, grades, audits, files, signer, ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
	return svc, files
}

func TestExportGenerateTranscriptCSV(t *testing.T) {
	svc, files := exportFixture(t)
	studentID := "stu-1"
	job := &models.ReportJob{
		ID:   "job-1",
		Type: models.ReportTypeTranscript,
		Params: models.ReportJobParams{
			StudentID: &studentID,
			Format:    models.ReportFormatCSV,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.Equal(t, models.ReportFormatCSV, result.Format)

	require.Len(t, files.saved, 1)
	var payload []byte
	for name, data := range files.saved {
		assert.True(t, strings.HasPrefix(name, "transcript_stu-1_"))
		assert.True(t, strings.HasSuffix(name, ".csv"))
		payload = data
	}
	content := string(payload)
	assert.Contains(t, content, "CSC101")
	assert.Contains(t, content, "CUMULATIVE")

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportGenerateGradeSheetPDF(t *testing.T) {
	svc, files := exportFixture(t)
	offeringID := "off-1"
	job := &models.ReportJob{
		ID:   "job-2",
		Type: models.ReportTypeGradeSheet,
		Params: models.ReportJobParams{
			OfferingID: &offeringID,
			Format:     models.ReportFormatPDF,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)
	require.Len(t, files.saved, 1)
	for name, data := range files.saved {
		assert.True(t, strings.HasSuffix(name, ".pdf"))
		assert.True(t, strings.HasPrefix(string(data[:5]), "%PDF-"))
	}
}

func TestExportGenerateCohortAuditCSV(t *testing.T) {
	svc, files := exportFixture(t)
	programID := "prg-1"
	job := &models.ReportJob{
		ID:   "job-3",
		Type: models.ReportTypeCohortAudit,
		Params: models.ReportJobParams{
			ProgramID: &programID,
			Format:    models.ReportFormatCSV,
		},
	}

	_, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	for _, data := range files.saved {
		assert.Contains(t, string(data), "1 of 1")
	}
}

func TestExportGenerateUnsupportedFormat(t *testing.T) {
	svc, _ := exportFixture(t)
	studentID := "stu-1"
	job := &models.ReportJob{
		ID:   "job-4",
		Type: models.ReportTypeTranscript,
		Params: models.ReportJobParams{
			StudentID: &studentID,
			Format:    "xlsx",
		},
	}

	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportGenerateMissingScope(t *testing.T) {
	svc, _ := exportFixture(t)
	job := &models.ReportJob{
		ID:     "job-5",
		Type:   models.ReportTypeTranscript,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}

	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "studentId")
}
