package models

import "time"

// GradeDistributionFilter scopes grade distribution queries.
type GradeDistributionFilter struct {
	OfferingID string
	SessionID  string
	CourseID   string
}

// GradeDistributionBucket counts approved grades per letter.
type GradeDistributionBucket struct {
	Letter string `db:"letter" json:"letter"`
	Count  int    `db:"count" json:"count"`
}

// GradeDistribution summarises approved grades for an offering or course.
type GradeDistribution struct {
	OfferingID   string                    `json:"offering_id,omitempty"`
	CourseID     string                    `json:"course_id,omitempty"`
	SessionID    string                    `json:"session_id,omitempty"`
	Total        int                       `json:"total"`
	AverageScore float64                   `json:"average_score"`
	PassCount    int                       `json:"pass_count"`
	FailCount    int                       `json:"fail_count"`
	Buckets      []GradeDistributionBucket `json:"buckets"`
}

// RepeatedCourseStat counts students who attempted a course more than once.
type RepeatedCourseStat struct {
	CourseID      string `db:"course_id" json:"course_id"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseTitle   string `db:"course_title" json:"course_title"`
	RepeaterCount int    `db:"repeater_count" json:"repeater_count"`
	MaxAttempts   int    `db:"max_attempts" json:"max_attempts"`
}

// GradedStudentRef identifies a student holding approved grades.
type GradedStudentRef struct {
	StudentID string `db:"id" json:"student_id"`
	RegNo     string `db:"reg_no" json:"reg_no"`
	FullName  string `db:"full_name" json:"full_name"`
}

// AtRiskStudent is one row of the at-risk report.
type AtRiskStudent struct {
	StudentID      string   `json:"student_id"`
	RegNo          string   `json:"reg_no"`
	FullName       string   `json:"full_name"`
	CGPA           float64  `json:"cgpa"`
	CompletionRate float64  `json:"completion_rate"`
	Standing       Standing `json:"standing"`
}

// EnrollmentStats aggregates enrollment counts for a session.
type EnrollmentStats struct {
	SessionID     string `db:"session_id" json:"session_id"`
	Semester      string `db:"semester" json:"semester"`
	Enrollments   int    `db:"enrollments" json:"enrollments"`
	Students      int    `db:"students" json:"students"`
	Offerings     int    `db:"offerings" json:"offerings"`
	FullOfferings int    `db:"full_offerings" json:"full_offerings"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	StandingComputations     uint64    `json:"standing_computations"`
	EngineEvaluations        uint64    `json:"engine_evaluations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
