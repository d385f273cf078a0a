package models

import "time"

// RepeatRule selects which attempt of a repeated course counts toward GPA.
type RepeatRule string

const (
	// RepeatRuleLast counts the most recent attempt.
	RepeatRuleLast RepeatRule = "LAST"
	// RepeatRuleBest counts the attempt with the highest grade point.
	RepeatRuleBest RepeatRule = "BEST"
	// RepeatRuleAverage counts the mean grade point across attempts.
	RepeatRuleAverage RepeatRule = "AVERAGE"
)

// Valid reports whether the repeat rule is a known value.
func (r RepeatRule) Valid() bool {
	switch r {
	case RepeatRuleLast, RepeatRuleBest, RepeatRuleAverage:
		return true
	}
	return false
}

// GradingBand is one row of the grading scale: a closed score interval
// mapped to a letter and a grade point. Bands must tile the whole score
// range with no gap or overlap; the scale is validated before use.
type GradingBand struct {
	ID         string    `db:"id" json:"id"`
	Letter     string    `db:"letter" json:"letter"`
	MinScore   float64   `db:"min_score" json:"min_score"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	GradePoint float64   `db:"grade_point" json:"grade_point"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AcademicPolicy is the single-row institutional rule set consumed by the
// rules engine. CAMax and ExamMax bound the score components and must sum
// to the top of the grading scale.
type AcademicPolicy struct {
	ID                  string     `db:"id" json:"id"`
	RepeatRule          RepeatRule `db:"repeat_rule" json:"repeat_rule"`
	MaxAttempts         int        `db:"max_attempts" json:"max_attempts"`
	CAMax               float64    `db:"ca_max" json:"ca_max"`
	ExamMax             float64    `db:"exam_max" json:"exam_max"`
	ProbationGPA        float64    `db:"probation_gpa" json:"probation_gpa"`
	DismissalGPA        float64    `db:"dismissal_gpa" json:"dismissal_gpa"`
	AtRiskCompletionPct float64    `db:"at_risk_completion_pct" json:"at_risk_completion_pct"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}
