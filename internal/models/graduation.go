package models

import "time"

// GraduationAudit reports whether a student can graduate and, when they
// cannot, every reason why. MissingCourses lists compulsory course codes
// without a counted passing attempt; electives are never listed.
type GraduationAudit struct {
	StudentID      string    `json:"student_id"`
	StudentRegNo   string    `json:"student_reg_no"`
	ProgramID      string    `json:"program_id"`
	Eligible       bool      `json:"eligible"`
	CGPA           float64   `json:"cgpa"`
	UnitsPassed    int       `json:"units_passed"`
	UnitsRequired  int       `json:"units_required"`
	MissingCourses []string  `json:"missing_courses"`
	Reasons        []string  `json:"reasons"`
	Classification *string   `json:"classification,omitempty"`
	AuditedAt      time.Time `json:"audited_at"`
}

// CohortAuditSummary totals a cohort graduation audit run.
type CohortAuditSummary struct {
	Count           int `json:"count"`
	EligibleCount   int `json:"eligible_count"`
	IneligibleCount int `json:"ineligible_count"`
}

// CohortAudit bundles per-student audits with the cohort summary.
type CohortAudit struct {
	ProgramID string             `json:"program_id"`
	LevelID   string             `json:"level_id,omitempty"`
	Summary   CohortAuditSummary `json:"summary"`
	Results   []GraduationAudit  `json:"results"`
}
