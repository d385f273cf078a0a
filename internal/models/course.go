package models

import "time"

// Course is a unit-bearing subject in the catalogue.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Title     string    `db:"title" json:"title"`
	Units     int       `db:"units" json:"units"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Prerequisite links a course to another course that must be passed first.
type Prerequisite struct {
	ID               string    `db:"id" json:"id"`
	CourseID         string    `db:"course_id" json:"course_id"`
	RequiredCourseID string    `db:"required_course_id" json:"required_course_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	RequiredCode     string    `db:"required_code" json:"required_code"`
	RequiredTitle    string    `db:"required_title" json:"required_title"`
}
