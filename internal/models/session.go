package models

import "time"

// Semester identifies a teaching period within an academic session.
type Semester string

const (
	SemesterFirst  Semester = "FIRST"
	SemesterSecond Semester = "SECOND"
	SemesterSummer Semester = "SUMMER"
)

// Order returns the chronological position of the semester within a session.
func (s Semester) Order() int {
	switch s {
	case SemesterFirst:
		return 1
	case SemesterSecond:
		return 2
	case SemesterSummer:
		return 3
	default:
		return 4
	}
}

// Valid reports whether the semester is a known value.
func (s Semester) Valid() bool {
	switch s {
	case SemesterFirst, SemesterSecond, SemesterSummer:
		return true
	}
	return false
}

// Session models an academic year cycle, e.g. "2023/2024".
type Session struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SessionFilter defines filters supported by list endpoints.
type SessionFilter struct {
	Name      string
	IsCurrent *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
