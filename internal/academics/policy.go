// Package academics implements the institution's academic rules: grading
// scale resolution, enrollment eligibility, the grade review lifecycle, GPA
// computation and graduation audits. Everything here is a pure function of
// its inputs; persistence and transport live in the service layer.
package academics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

// Score bounds for a course total. Component maxima come from the policy
// and must sum to ScoreMax.
const (
	ScoreMin = 0.0
	ScoreMax = 100.0
)

// PolicyConfig is the validated bundle of grading scale, classification
// ladder and policy knobs consumed by every rule in this package. Build it
// with NewPolicyConfig; a value returned from there is immutable and safe
// to share between goroutines.
type PolicyConfig struct {
	scale    []models.GradingBand        // ascending by MinScore
	defaults []models.ClassificationBand // descending by MinCGPA
	policy   models.AcademicPolicy
	maxPoint float64
}

// NewPolicyConfig validates the grading scale, the default classification
// ladder and the policy knobs. Invalid configuration never produces a
// partially usable value: the first broken rule fails the whole load.
func NewPolicyConfig(scale []models.GradingBand, defaults []models.ClassificationBand, policy models.AcademicPolicy) (*PolicyConfig, error) {
	bands, maxPoint, err := validateScale(scale)
	if err != nil {
		return nil, err
	}
	ladder, err := validateLadder(defaults, maxPoint)
	if err != nil {
		return nil, err
	}
	if err := validatePolicy(policy, maxPoint); err != nil {
		return nil, err
	}
	return &PolicyConfig{scale: bands, defaults: ladder, policy: policy, maxPoint: maxPoint}, nil
}

// Policy returns the validated policy knobs.
func (c *PolicyConfig) Policy() models.AcademicPolicy {
	return c.policy
}

// Scale returns the grading bands in ascending score order. Callers must
// treat the slice as read-only.
func (c *PolicyConfig) Scale() []models.GradingBand {
	return c.scale
}

// MaxPoint returns the highest grade point on the scale (the GPA ceiling).
func (c *PolicyConfig) MaxPoint() float64 {
	return c.maxPoint
}

// Band resolves the grading band for a total score. Under a validated scale
// exactly one band matches any total inside the score range; totals outside
// it report a configuration error.
func (c *PolicyConfig) Band(total float64) (models.GradingBand, error) {
	if total < ScoreMin || total > ScoreMax {
		return models.GradingBand{}, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("total score %.2f is outside the grading scale", total))
	}
	for i := len(c.scale) - 1; i >= 0; i-- {
		if total >= c.scale[i].MinScore {
			return c.scale[i], nil
		}
	}
	return models.GradingBand{}, appErrors.Clone(appErrors.ErrConfiguration, "grading scale has no band for this score")
}

// Passing reports whether a grade point earns the course.
func Passing(point float64) bool {
	return point > 0
}

// PerformanceLevel maps a CGPA onto the institutional default ladder.
func (c *PolicyConfig) PerformanceLevel(cgpa float64) string {
	for _, band := range c.defaults {
		if cgpa >= band.MinCGPA {
			return band.Label
		}
	}
	return c.defaults[len(c.defaults)-1].Label
}

// Classify maps a CGPA onto a classification label, preferring programme
// bands over the institutional defaults. Programme ladders are validated
// the same way as the default ladder before use.
func (c *PolicyConfig) Classify(cgpa float64, programBands []models.ClassificationBand) (string, error) {
	ladder := c.defaults
	if len(programBands) > 0 {
		validated, err := validateLadder(programBands, c.maxPoint)
		if err != nil {
			return "", err
		}
		ladder = validated
	}
	for _, band := range ladder {
		if cgpa >= band.MinCGPA {
			return band.Label, nil
		}
	}
	return ladder[len(ladder)-1].Label, nil
}

// ValidateLadder checks a candidate classification ladder against the same
// rules applied to the defaults. Admin endpoints call this before persisting
// a programme override.
func (c *PolicyConfig) ValidateLadder(bands []models.ClassificationBand) error {
	_, err := validateLadder(bands, c.maxPoint)
	return err
}

// StandingFor buckets a CGPA against the probation and dismissal thresholds.
func (c *PolicyConfig) StandingFor(cgpa float64) models.Standing {
	switch {
	case cgpa < c.policy.DismissalGPA:
		return models.StandingDismissal
	case cgpa < c.policy.ProbationGPA:
		return models.StandingProbation
	default:
		return models.StandingGood
	}
}

func configErr(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf(format, args...))
}

// validateScale checks that the bands tile [ScoreMin, ScoreMax] with no gap
// or overlap and returns them sorted ascending along with the GPA ceiling.
func validateScale(scale []models.GradingBand) ([]models.GradingBand, float64, error) {
	if len(scale) == 0 {
		return nil, 0, configErr("grading scale is empty")
	}

	sorted := make([]models.GradingBand, len(scale))
	copy(sorted, scale)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	var maxPoint float64
	letters := make(map[string]bool, len(sorted))
	for _, band := range sorted {
		letter := strings.TrimSpace(band.Letter)
		if letter == "" {
			return nil, 0, configErr("grading band at %.0f has no letter", band.MinScore)
		}
		if letters[letter] {
			return nil, 0, configErr("grading letter %s appears more than once", letter)
		}
		letters[letter] = true
		if band.MinScore > band.MaxScore {
			return nil, 0, configErr("grading band %s has min score above max score", letter)
		}
		if band.GradePoint < 0 {
			return nil, 0, configErr("grading band %s has a negative grade point", letter)
		}
		if band.GradePoint > maxPoint {
			maxPoint = band.GradePoint
		}
	}

	if sorted[0].MinScore != ScoreMin {
		return nil, 0, configErr("grading scale must start at %.0f, got %.2f", ScoreMin, sorted[0].MinScore)
	}
	if last := sorted[len(sorted)-1]; last.MaxScore != ScoreMax {
		return nil, 0, configErr("grading scale must end at %.0f, got %.2f", ScoreMax, last.MaxScore)
	}
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		step := cur.MinScore - prev.MaxScore
		switch {
		case step <= 0:
			return nil, 0, configErr("grading bands %s and %s overlap", prev.Letter, cur.Letter)
		case step != 1:
			return nil, 0, configErr("grading scale has a gap between %s and %s", prev.Letter, cur.Letter)
		}
	}
	if maxPoint <= 0 {
		return nil, 0, configErr("grading scale has no passing grade point")
	}
	return sorted, maxPoint, nil
}

// validateLadder checks a classification ladder: unique descending minima
// inside the GPA range, with a fallback label at zero so every CGPA maps to
// something. Returns the ladder sorted descending.
func validateLadder(bands []models.ClassificationBand, maxPoint float64) ([]models.ClassificationBand, error) {
	if len(bands) == 0 {
		return nil, configErr("classification ladder is empty")
	}

	sorted := make([]models.ClassificationBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinCGPA > sorted[j].MinCGPA })

	for i, band := range sorted {
		if strings.TrimSpace(band.Label) == "" {
			return nil, configErr("classification band at %.2f has no label", band.MinCGPA)
		}
		if band.MinCGPA < 0 || band.MinCGPA > maxPoint {
			return nil, configErr("classification band %s is outside the GPA range", band.Label)
		}
		if i > 0 && sorted[i-1].MinCGPA == band.MinCGPA {
			return nil, configErr("classification bands %s and %s share a minimum CGPA", sorted[i-1].Label, band.Label)
		}
	}
	if sorted[len(sorted)-1].MinCGPA != 0 {
		return nil, configErr("classification ladder needs a fallback label with minimum CGPA 0.00")
	}
	return sorted, nil
}

func validatePolicy(policy models.AcademicPolicy, maxPoint float64) error {
	if !policy.RepeatRule.Valid() {
		return configErr("unknown repeat rule %q", string(policy.RepeatRule))
	}
	if policy.MaxAttempts < 1 {
		return configErr("max attempts must be at least 1")
	}
	if policy.CAMax < 0 || policy.ExamMax < 0 {
		return configErr("score component maxima cannot be negative")
	}
	if policy.CAMax+policy.ExamMax != ScoreMax {
		return configErr("score component maxima must sum to %.0f, got %.2f", ScoreMax, policy.CAMax+policy.ExamMax)
	}
	if policy.DismissalGPA < 0 || policy.ProbationGPA > maxPoint {
		return configErr("standing thresholds must stay inside the GPA range")
	}
	if policy.DismissalGPA > policy.ProbationGPA {
		return configErr("dismissal threshold cannot exceed probation threshold")
	}
	if policy.AtRiskCompletionPct < 0 || policy.AtRiskCompletionPct > 100 {
		return configErr("at-risk completion threshold must be a percentage")
	}
	return nil
}
