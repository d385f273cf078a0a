package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	"github.com/noah-isme/uni-adp-api/pkg/export"
	"github.com/noah-isme/uni-adp-api/pkg/storage"
)

type transcriptBuilder interface {
	BuildTranscript(ctx context.Context, studentID string) (*models.Transcript, error)
}

type offeringGradesReader interface {
	ListByOffering(ctx context.Context, offeringID string) ([]models.GradeDetail, error)
}

type cohortAuditor interface {
	CohortAudit(ctx context.Context, programID, levelID string) (*models.CohortAudit, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders report datasets to CSV or PDF and persists the
// files. Transcripts come from the transcript builder, grade sheets from
// offering grades, cohort audits from the graduation auditor.
type ExportService struct {
	transcripts transcriptBuilder
	grades      offeringGradesReader
	audits      cohortAuditor
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(transcripts transcriptBuilder, grades offeringGradesReader, audits cohortAuditor, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		transcripts: transcripts,
		grades:      grades,
		audits:      audits,
		storage:     storage,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset according to the job definition and stores the
// rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "na"
	switch {
	case job.Params.StudentID != nil && *job.Params.StudentID != "":
		scope = *job.Params.StudentID
	case job.Params.OfferingID != nil && *job.Params.OfferingID != "":
		scope = *job.Params.OfferingID
	case job.Params.ProgramID != nil && *job.Params.ProgramID != "":
		scope = *job.Params.ProgramID
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), sanitizeFilename(scope), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeTranscript:
		return s.buildTranscriptDataset(ctx, job.Params)
	case models.ReportTypeGradeSheet:
		return s.buildGradeSheetDataset(ctx, job.Params)
	case models.ReportTypeCohortAudit:
		return s.buildCohortAuditDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildTranscriptDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	studentID := deref(params.StudentID)
	if studentID == "" {
		return export.Dataset{}, "", fmt.Errorf("transcript requires studentId")
	}
	transcript, err := s.transcripts.BuildTranscript(ctx, studentID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Session", "Semester", "Course Code", "Course Title", "Units", "Score", "Letter", "Grade Point", "Counted", "Session GPA"}
	var rows []map[string]string
	for _, session := range transcript.Sessions {
		for _, row := range session.Rows {
			counted := "yes"
			if !row.Counted {
				counted = "no"
			}
			rows = append(rows, map[string]string{
				"Session":      session.SessionName,
				"Semester":     string(row.Semester),
				"Course Code":  row.CourseCode,
				"Course Title": row.CourseTitle,
				"Units":        strconv.Itoa(row.Units),
				"Score":        fmt.Sprintf("%.2f", row.TotalScore),
				"Letter":       row.Letter,
				"Grade Point":  fmt.Sprintf("%.2f", row.GradePoint),
				"Counted":      counted,
				"Session GPA":  fmt.Sprintf("%.2f", session.GPA),
			})
		}
	}
	// CGPA footer row.
	rows = append(rows, map[string]string{
		"Session":      "CUMULATIVE",
		"Course Title": fmt.Sprintf("Units attempted %d, passed %d", transcript.UnitsAttempted, transcript.UnitsPassed),
		"Grade Point":  fmt.Sprintf("%.2f", transcript.CGPA),
	})

	title := fmt.Sprintf("Academic Transcript %s (%s)", transcript.Student.FullName, transcript.Student.RegNo)
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func (s *ExportService) buildGradeSheetDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	offeringID := deref(params.OfferingID)
	if offeringID == "" {
		return export.Dataset{}, "", fmt.Errorf("grade sheet requires offeringId")
	}
	grades, err := s.grades.ListByOffering(ctx, offeringID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Reg No", "Student", "CA", "Exam", "Total", "Letter", "Grade Point", "Status"}
	rows := make([]map[string]string, 0, len(grades))
	title := fmt.Sprintf("Grade Sheet %s", offeringID)
	for _, g := range grades {
		rows = append(rows, map[string]string{
			"Reg No":      g.StudentRegNo,
			"Student":     g.StudentName,
			"CA":          fmt.Sprintf("%.2f", g.CAScore),
			"Exam":        fmt.Sprintf("%.2f", g.ExamScore),
			"Total":       fmt.Sprintf("%.2f", g.TotalScore),
			"Letter":      g.Letter,
			"Grade Point": fmt.Sprintf("%.2f", g.GradePoint),
			"Status":      string(g.Status),
		})
		title = fmt.Sprintf("Grade Sheet %s (%s, %s)", g.CourseCode, g.SessionName, g.Semester)
	}
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func (s *ExportService) buildCohortAuditDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	programID := deref(params.ProgramID)
	if programID == "" {
		return export.Dataset{}, "", fmt.Errorf("cohort audit requires programId")
	}
	cohort, err := s.audits.CohortAudit(ctx, programID, deref(params.LevelID))
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Reg No", "Eligible", "CGPA", "Units Passed", "Units Required", "Classification", "Missing Courses", "Reasons"}
	rows := make([]map[string]string, 0, len(cohort.Results)+1)
	for _, audit := range cohort.Results {
		eligible := "no"
		if audit.Eligible {
			eligible = "yes"
		}
		classification := ""
		if audit.Classification != nil {
			classification = *audit.Classification
		}
		rows = append(rows, map[string]string{
			"Reg No":          audit.StudentRegNo,
			"Eligible":        eligible,
			"CGPA":            fmt.Sprintf("%.2f", audit.CGPA),
			"Units Passed":    strconv.Itoa(audit.UnitsPassed),
			"Units Required":  strconv.Itoa(audit.UnitsRequired),
			"Classification":  classification,
			"Missing Courses": strings.Join(audit.MissingCourses, "; "),
			"Reasons":         strings.Join(audit.Reasons, "; "),
		})
	}
	rows = append(rows, map[string]string{
		"Reg No":   "TOTAL",
		"Eligible": fmt.Sprintf("%d of %d", cohort.Summary.EligibleCount, cohort.Summary.Count),
	})

	title := fmt.Sprintf("Graduation Cohort Audit %s", programID)
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
