package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// AnalyticsRepository exposes read-optimised queries for analytics endpoints.
// Only approved grades feed these aggregates.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// GradeDistribution aggregates approved grades into letter buckets for an
// offering, a course or a whole session.
func (r *AnalyticsRepository) GradeDistribution(ctx context.Context, filter models.GradeDistributionFilter) (*models.GradeDistribution, error) {
	var builder strings.Builder
	builder.WriteString(`FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN course_offerings o ON o.id = e.offering_id
        WHERE g.status = 'APPROVED'`)
	var args []interface{}
	if filter.OfferingID != "" {
		args = append(args, filter.OfferingID)
		builder.WriteString(fmt.Sprintf(" AND e.offering_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		builder.WriteString(fmt.Sprintf(" AND o.course_id = $%d", len(args)))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		builder.WriteString(fmt.Sprintf(" AND o.session_id = $%d", len(args)))
	}
	base := builder.String()

	bucketQuery := fmt.Sprintf(`SELECT g.letter, COUNT(*) AS count %s GROUP BY g.letter ORDER BY MIN(g.grade_point) DESC`, base)
	var buckets []models.GradeDistributionBucket
	if err := r.db.SelectContext(ctx, &buckets, bucketQuery, args...); err != nil {
		return nil, fmt.Errorf("query grade buckets: %w", err)
	}

	type aggregate struct {
		Total     int     `db:"total"`
		AvgScore  float64 `db:"avg_score"`
		PassCount int     `db:"pass_count"`
		FailCount int     `db:"fail_count"`
	}
	aggQuery := fmt.Sprintf(`SELECT COUNT(*) AS total,
        COALESCE(AVG(g.total_score), 0) AS avg_score,
        SUM(CASE WHEN g.grade_point > 0 THEN 1 ELSE 0 END) AS pass_count,
        SUM(CASE WHEN g.grade_point <= 0 THEN 1 ELSE 0 END) AS fail_count
        %s`, base)
	var agg aggregate
	if err := r.db.GetContext(ctx, &agg, aggQuery, args...); err != nil {
		return nil, fmt.Errorf("query grade aggregate: %w", err)
	}

	return &models.GradeDistribution{
		OfferingID:   filter.OfferingID,
		CourseID:     filter.CourseID,
		SessionID:    filter.SessionID,
		Total:        agg.Total,
		AverageScore: agg.AvgScore,
		PassCount:    agg.PassCount,
		FailCount:    agg.FailCount,
		Buckets:      buckets,
	}, nil
}

// RepeatedCourses lists courses with students on their second or later
// attempt, ordered by repeater headcount.
func (r *AnalyticsRepository) RepeatedCourses(ctx context.Context, limit int) ([]models.RepeatedCourseStat, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT a.course_id, c.code AS course_code, c.title AS course_title,
        COUNT(*) AS repeater_count, MAX(a.attempts) AS max_attempts
        FROM (
            SELECT o.course_id, e.student_id, COUNT(*) AS attempts
            FROM enrollments e
            JOIN course_offerings o ON o.id = e.offering_id
            GROUP BY o.course_id, e.student_id
            HAVING COUNT(*) > 1
        ) a
        JOIN courses c ON c.id = a.course_id
        GROUP BY a.course_id, c.code, c.title
        ORDER BY repeater_count DESC, c.code ASC
        LIMIT $1`
	var stats []models.RepeatedCourseStat
	if err := r.db.SelectContext(ctx, &stats, query, limit); err != nil {
		return nil, fmt.Errorf("query repeated courses: %w", err)
	}
	return stats, nil
}

// EnrollmentStats aggregates enrollment activity per semester of a session.
func (r *AnalyticsRepository) EnrollmentStats(ctx context.Context, sessionID string) ([]models.EnrollmentStats, error) {
	const query = `SELECT o.session_id, o.semester,
        COUNT(e.id) AS enrollments,
        COUNT(DISTINCT e.student_id) AS students,
        COUNT(DISTINCT o.id) AS offerings,
        COUNT(DISTINCT o.id) FILTER (
            WHERE o.capacity IS NOT NULL
              AND o.capacity <= (SELECT COUNT(*) FROM enrollments x WHERE x.offering_id = o.id)
        ) AS full_offerings
        FROM course_offerings o
        LEFT JOIN enrollments e ON e.offering_id = o.id
        WHERE o.session_id = $1
        GROUP BY o.session_id, o.semester
        ORDER BY o.semester ASC`
	var stats []models.EnrollmentStats
	if err := r.db.SelectContext(ctx, &stats, query, sessionID); err != nil {
		return nil, fmt.Errorf("query enrollment stats: %w", err)
	}
	return stats, nil
}

// GradedStudents returns students holding at least one approved grade,
// scoped to a programme or level when provided. The at-risk scan recomputes
// standing for each of these.
func (r *AnalyticsRepository) GradedStudents(ctx context.Context, programID, levelID string) ([]models.GradedStudentRef, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT DISTINCT st.id, st.reg_no, st.full_name
        FROM students st
        JOIN enrollments e ON e.student_id = st.id
        JOIN grades g ON g.enrollment_id = e.id AND g.status = 'APPROVED'
        WHERE st.status NOT IN ('WITHDRAWN', 'GRADUATED')`)
	var args []interface{}
	if programID != "" {
		args = append(args, programID)
		builder.WriteString(fmt.Sprintf(" AND st.program_id = $%d", len(args)))
	}
	if levelID != "" {
		args = append(args, levelID)
		builder.WriteString(fmt.Sprintf(" AND st.current_level_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY st.reg_no")

	var students []models.GradedStudentRef
	if err := r.db.SelectContext(ctx, &students, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query graded students: %w", err)
	}
	return students, nil
}
