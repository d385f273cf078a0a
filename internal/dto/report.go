package dto

import "github.com/noah-isme/uni-adp-api/internal/models"

// ReportRequest captures POST /reports/generate payload. The scope fields
// are per-type: transcript needs studentId, grade_sheet needs offeringId,
// cohort_audit needs programId (levelId optional).
type ReportRequest struct {
	Type       models.ReportType   `json:"type"`
	StudentID  *string             `json:"studentId,omitempty"`
	ProgramID  *string             `json:"programId,omitempty"`
	LevelID    *string             `json:"levelId,omitempty"`
	OfferingID *string             `json:"offeringId,omitempty"`
	Format     models.ReportFormat `json:"format"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
