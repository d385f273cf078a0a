package models

import "time"

// StudentStatus represents the administrative state of a student record.
type StudentStatus string

// Possible student statuses.
const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusProbation StudentStatus = "PROBATION"
	StudentStatusSuspended StudentStatus = "SUSPENDED"
	StudentStatusWithdrawn StudentStatus = "WITHDRAWN"
	StudentStatusGraduated StudentStatus = "GRADUATED"
)

// Valid reports whether the status is a known value.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusActive, StudentStatusProbation, StudentStatusSuspended, StudentStatusWithdrawn, StudentStatusGraduated:
		return true
	}
	return false
}

// Student represents a learner registered on a programme.
type Student struct {
	ID             string        `db:"id" json:"id"`
	RegNo          string        `db:"reg_no" json:"reg_no"`
	FullName       string        `db:"full_name" json:"full_name"`
	Email          string        `db:"email" json:"email"`
	ProgramID      string        `db:"program_id" json:"program_id"`
	EntrySessionID string        `db:"entry_session_id" json:"entry_session_id"`
	CurrentLevelID string        `db:"current_level_id" json:"current_level_id"`
	Status         StudentStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ProgramID string
	LevelID   string
	SessionID string
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with catalogue context.
type StudentDetail struct {
	Student
	ProgramCode  string `db:"program_code" json:"program_code"`
	ProgramName  string `db:"program_name" json:"program_name"`
	LevelName    string `db:"level_name" json:"level_name"`
	EntrySession string `db:"entry_session" json:"entry_session"`
}
