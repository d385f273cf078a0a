package models

import "time"

// Program describes a degree programme offered by the institution.
type Program struct {
	ID                 string    `db:"id" json:"id"`
	Code               string    `db:"code" json:"code"`
	Name               string    `db:"name" json:"name"`
	DegreeAward        string    `db:"degree_award" json:"degree_award"`
	MinGraduationUnits int       `db:"min_graduation_units" json:"min_graduation_units"`
	MinGraduationCGPA  *float64  `db:"min_graduation_cgpa" json:"min_graduation_cgpa,omitempty"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramFilter captures filtering criteria for listing programmes.
type ProgramFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CurriculumCourse pins a course into a programme curriculum at a level and
// semester. Compulsory courses must be passed before graduation; electives
// count toward units only.
type CurriculumCourse struct {
	ID          string    `db:"id" json:"id"`
	ProgramID   string    `db:"program_id" json:"program_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	LevelID     string    `db:"level_id" json:"level_id"`
	Semester    Semester  `db:"semester" json:"semester"`
	Compulsory  bool      `db:"compulsory" json:"compulsory"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	CourseTitle string    `db:"course_title" json:"course_title"`
	Units       int       `db:"units" json:"units"`
}

// ClassificationBand maps a minimum CGPA onto a degree classification label.
// Rows with a nil ProgramID form the institution-wide default ladder; a
// programme with its own rows overrides the defaults entirely.
type ClassificationBand struct {
	ID        string  `db:"id" json:"id"`
	ProgramID *string `db:"program_id" json:"program_id,omitempty"`
	Label     string  `db:"label" json:"label"`
	MinCGPA   float64 `db:"min_cgpa" json:"min_cgpa"`
}
