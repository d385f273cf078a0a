package models

import "time"

// Enrollment captures a student's registration in a course offering. A
// student may hold at most one enrollment per offering; the pair is unique
// at the database level and repeats of a course happen through offerings in
// later sessions.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	OfferingID string    `db:"offering_id" json:"offering_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with student, course and session info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string   `db:"student_name" json:"student_name"`
	StudentRegNo string   `db:"student_reg_no" json:"student_reg_no"`
	CourseID     string   `db:"course_id" json:"course_id"`
	CourseCode   string   `db:"course_code" json:"course_code"`
	CourseTitle  string   `db:"course_title" json:"course_title"`
	Units        int      `db:"units" json:"units"`
	SessionID    string   `db:"session_id" json:"session_id"`
	SessionName  string   `db:"session_name" json:"session_name"`
	Semester     Semester `db:"semester" json:"semester"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID  string
	OfferingID string
	CourseID   string
	SessionID  string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
