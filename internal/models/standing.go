package models

import "time"

// Standing buckets a student's CGPA against the policy thresholds.
type Standing string

const (
	StandingGood      Standing = "GOOD"
	StandingProbation Standing = "PROBATION"
	StandingDismissal Standing = "DISMISSAL"
)

// CourseAttempt is one approved grade flattened with its enrollment context.
// It is the unit of input for GPA computation: every approved grade a
// student holds becomes exactly one attempt.
type CourseAttempt struct {
	CourseID    string    `db:"course_id" json:"course_id"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	Units       int       `db:"units" json:"units"`
	SessionID   string    `db:"session_id" json:"session_id"`
	SessionName string    `db:"session_name" json:"session_name"`
	Semester    Semester  `db:"semester" json:"semester"`
	TotalScore  float64   `db:"total_score" json:"total_score"`
	Letter      string    `db:"letter" json:"letter"`
	GradePoint  float64   `db:"grade_point" json:"grade_point"`
	EnrolledAt  time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// SessionStanding is the GPA line for one academic session.
type SessionStanding struct {
	SessionID    string  `json:"session_id"`
	SessionName  string  `json:"session_name"`
	GPA          float64 `json:"gpa"`
	UnitsCounted int     `json:"units_counted"`
}

// AcademicStanding aggregates a student's computed academic position. It is
// derived on demand from approved grades and never stored.
type AcademicStanding struct {
	StudentID        string            `json:"student_id"`
	CGPA             float64           `json:"cgpa"`
	Sessions         []SessionStanding `json:"sessions"`
	UnitsAttempted   int               `json:"units_attempted"`
	UnitsPassed      int               `json:"units_passed"`
	CompletionRate   float64           `json:"completion_rate"`
	PerformanceLevel string            `json:"performance_level"`
	Standing         Standing          `json:"standing"`
	AtRisk           bool              `json:"at_risk"`
	ComputedAt       time.Time         `json:"computed_at"`
}
