package models

import "time"

// GradeStatus represents the review state of a grade record.
type GradeStatus string

// Grade lifecycle states. APPROVED is terminal for the review flow; an
// approved grade only leaves the state through an explicit reopen.
const (
	GradeStatusDraft     GradeStatus = "DRAFT"
	GradeStatusSubmitted GradeStatus = "SUBMITTED"
	GradeStatusApproved  GradeStatus = "APPROVED"
	GradeStatusRejected  GradeStatus = "REJECTED"
)

// Valid reports whether the status is a known value.
func (s GradeStatus) Valid() bool {
	switch s {
	case GradeStatusDraft, GradeStatusSubmitted, GradeStatusApproved, GradeStatusRejected:
		return true
	}
	return false
}

// Grade stores the scores and review state for a single enrollment. Letter
// and GradePoint are derived from the grading scale whenever scores change
// and are never written directly.
type Grade struct {
	ID              string      `db:"id" json:"id"`
	EnrollmentID    string      `db:"enrollment_id" json:"enrollment_id"`
	CAScore         float64     `db:"ca_score" json:"ca_score"`
	ExamScore       float64     `db:"exam_score" json:"exam_score"`
	TotalScore      float64     `db:"total_score" json:"total_score"`
	Letter          string      `db:"letter" json:"letter"`
	GradePoint      float64     `db:"grade_point" json:"grade_point"`
	Status          GradeStatus `db:"status" json:"status"`
	SubmittedAt     *time.Time  `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy      *string     `db:"approved_by" json:"approved_by,omitempty"`
	RejectionReason *string     `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// GradeDetail enriches a grade with enrollment context for listings and
// transcripts.
type GradeDetail struct {
	Grade
	StudentID    string   `db:"student_id" json:"student_id"`
	StudentRegNo string   `db:"student_reg_no" json:"student_reg_no"`
	StudentName  string   `db:"student_name" json:"student_name"`
	CourseID     string   `db:"course_id" json:"course_id"`
	CourseCode   string   `db:"course_code" json:"course_code"`
	CourseTitle  string   `db:"course_title" json:"course_title"`
	Units        int      `db:"units" json:"units"`
	SessionID    string   `db:"session_id" json:"session_id"`
	SessionName  string   `db:"session_name" json:"session_name"`
	Semester     Semester `db:"semester" json:"semester"`
}

// GradeFilter allows querying of grade records.
type GradeFilter struct {
	EnrollmentID string
	StudentID    string
	OfferingID   string
	SessionID    string
	Status       GradeStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
