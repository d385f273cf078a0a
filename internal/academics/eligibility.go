package academics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// EligibilityInput carries everything an enrollment eligibility check needs.
// Callers resolve identifiers to records first; the check itself performs no
// lookups and mutates nothing.
type EligibilityInput struct {
	Student  models.Student
	Offering models.CourseOffering
	Course   models.Course

	// Prerequisites are the courses required before taking Course. Passed
	// holds the IDs of courses for which the student already has a counted
	// passing attempt.
	Prerequisites []models.Course
	Passed        map[string]bool

	// AlreadyEnrolled reports an existing enrollment for this exact
	// offering. EnrolledCount is the offering's current headcount and
	// PriorAttempts the number of times the student enrolled in the same
	// course across all sessions.
	AlreadyEnrolled bool
	EnrolledCount   int
	PriorAttempts   int

	// Strict makes missing prerequisites a hard blocker instead of a
	// warning.
	Strict bool
}

// CheckEligibility runs the enrollment rules in a fixed order and reports
// the first blocker. Advisory warnings are collected regardless of the
// outcome, so a blocked request still shows everything worth flagging.
// The same input always yields the same result.
func (c *PolicyConfig) CheckEligibility(in EligibilityInput) models.EligibilityResult {
	res := models.EligibilityResult{OK: true, Warnings: []models.EligibilityWarning{}}

	missing := missingPrerequisites(in.Prerequisites, in.Passed)

	if in.Offering.LevelID != nil && in.Student.CurrentLevelID != "" && *in.Offering.LevelID != in.Student.CurrentLevelID {
		res.Warnings = append(res.Warnings, models.EligibilityWarning{
			Code:    models.WarnLevelMismatch,
			Message: "offering targets a different level than the student's current level",
		})
	}
	if in.PriorAttempts > 0 {
		res.Warnings = append(res.Warnings, models.EligibilityWarning{
			Code:    models.WarnRepeatAttempt,
			Message: fmt.Sprintf("this will be attempt %d of %d for %s", in.PriorAttempts+1, c.policy.MaxAttempts, in.Course.Code),
		})
	}
	if !in.Strict && len(missing) > 0 {
		res.Warnings = append(res.Warnings, models.EligibilityWarning{
			Code:    models.WarnPrerequisiteSoft,
			Message: "missing prerequisites: " + strings.Join(missing, ", "),
		})
		res.MissingPrerequisites = missing
	}

	block := func(b models.EligibilityBlock) models.EligibilityResult {
		res.OK = false
		res.Blocker = b
		return res
	}

	if !in.Offering.IsActive {
		return block(models.BlockOfferingInactive)
	}
	if in.AlreadyEnrolled {
		return block(models.BlockAlreadyEnrolled)
	}
	if in.Offering.Capacity != nil && in.EnrolledCount >= *in.Offering.Capacity {
		return block(models.BlockOfferingFull)
	}
	if in.PriorAttempts >= c.policy.MaxAttempts {
		return block(models.BlockRepeatLimitExceeded)
	}
	if in.Strict && len(missing) > 0 {
		res.MissingPrerequisites = missing
		return block(models.BlockPrerequisiteNotMet)
	}
	return res
}

func missingPrerequisites(prereqs []models.Course, passed map[string]bool) []string {
	var missing []string
	for _, course := range prereqs {
		if !passed[course.ID] {
			missing = append(missing, course.Code)
		}
	}
	sort.Strings(missing)
	return missing
}
