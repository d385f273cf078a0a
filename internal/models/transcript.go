package models

import "time"

// TranscriptRow is one course line on an academic transcript. Counted marks
// the attempt that carries the course's contribution under the repeat rule;
// earlier attempts stay on the record but are flagged as not counted.
type TranscriptRow struct {
	CourseCode  string   `json:"course_code"`
	CourseTitle string   `json:"course_title"`
	Units       int      `json:"units"`
	Semester    Semester `json:"semester"`
	TotalScore  float64  `json:"total_score"`
	Letter      string   `json:"letter"`
	GradePoint  float64  `json:"grade_point"`
	Counted     bool     `json:"counted"`
}

// TranscriptSession groups transcript rows for one session with its GPA.
type TranscriptSession struct {
	SessionID   string          `json:"session_id"`
	SessionName string          `json:"session_name"`
	Rows        []TranscriptRow `json:"rows"`
	GPA         float64         `json:"gpa"`
}

// Transcript is the full academic record for a student, assembled from
// approved grades only.
type Transcript struct {
	Student        StudentDetail       `json:"student"`
	Sessions       []TranscriptSession `json:"sessions"`
	CGPA           float64             `json:"cgpa"`
	UnitsAttempted int                 `json:"units_attempted"`
	UnitsPassed    int                 `json:"units_passed"`
	GeneratedAt    time.Time           `json:"generated_at"`
}
