package models

import "time"

// CourseOffering schedules a course for a session and semester. A nil
// Capacity means unlimited seats; a nil LevelID means the offering is open
// to every level.
type CourseOffering struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Semester   Semester  `db:"semester" json:"semester"`
	LevelID    *string   `db:"level_id" json:"level_id,omitempty"`
	LecturerID *string   `db:"lecturer_id" json:"lecturer_id,omitempty"`
	Capacity   *int      `db:"capacity" json:"capacity,omitempty"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// OfferingDetail enriches an offering with course and session context.
type OfferingDetail struct {
	CourseOffering
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Units       int    `db:"units" json:"units"`
	SessionName string `db:"session_name" json:"session_name"`
	Enrolled    int    `db:"enrolled" json:"enrolled"`
}

// OfferingFilter defines filters supported by list endpoints.
type OfferingFilter struct {
	CourseID  string
	SessionID string
	Semester  Semester
	LevelID   string
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
