package academics

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// round2 keeps GPA arithmetic on two decimals.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// sessionYear extracts the leading year from a session name such as
// "2023/2024". Sessions without a year sort before dated ones.
func sessionYear(name string) int {
	if m := yearPattern.FindString(name); m != "" {
		year, err := strconv.Atoi(m)
		if err == nil {
			return year
		}
	}
	return 0
}

// attemptBefore orders attempts chronologically: session year, then
// semester, then enrollment time as the final tie break.
func attemptBefore(a, b models.CourseAttempt) bool {
	if ay, by := sessionYear(a.SessionName), sessionYear(b.SessionName); ay != by {
		return ay < by
	}
	if ao, bo := a.Semester.Order(), b.Semester.Order(); ao != bo {
		return ao < bo
	}
	return a.EnrolledAt.Before(b.EnrolledAt)
}

// SortAttempts orders attempts chronologically in place, using the same
// ordering the repeat rule uses to pick the latest attempt.
func SortAttempts(attempts []models.CourseAttempt) {
	sort.SliceStable(attempts, func(i, j int) bool { return attemptBefore(attempts[i], attempts[j]) })
}

// CountedOutcome is the per-course contribution the repeat rule selects
// from a student's attempts. Units count once per course no matter how
// often it was attempted.
type CountedOutcome struct {
	CourseID    string
	CourseCode  string
	Units       int
	Point       float64
	Passed      bool
	SessionID   string
	SessionName string
}

// CountedOutcomes applies the repeat rule to every course the student has
// approved attempts for and returns one contribution per course, ordered by
// course code. LAST and BEST count the selected attempt in its own session
// with its own units; AVERAGE outcomes carry the mean grade point and are
// attributed to the session of the latest attempt.
func (c *PolicyConfig) CountedOutcomes(attempts []models.CourseAttempt) []CountedOutcome {
	byCourse := make(map[string][]models.CourseAttempt)
	for _, a := range attempts {
		byCourse[a.CourseID] = append(byCourse[a.CourseID], a)
	}

	outcomes := make([]CountedOutcome, 0, len(byCourse))
	for courseID, group := range byCourse {
		SortAttempts(group)
		counted := group[len(group)-1]

		point := counted.GradePoint
		switch c.policy.RepeatRule {
		case models.RepeatRuleBest:
			// chronological scan with >= keeps the latest attempt on ties
			for _, a := range group {
				if a.GradePoint >= counted.GradePoint {
					counted = a
				}
			}
			point = counted.GradePoint
		case models.RepeatRuleAverage:
			var sum float64
			for _, a := range group {
				sum += a.GradePoint
			}
			point = sum / float64(len(group))
		}

		outcomes = append(outcomes, CountedOutcome{
			CourseID:    courseID,
			CourseCode:  counted.CourseCode,
			Units:       counted.Units,
			Point:       point,
			Passed:      Passing(point),
			SessionID:   counted.SessionID,
			SessionName: counted.SessionName,
		})
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].CourseCode < outcomes[j].CourseCode })
	return outcomes
}

// ComputeStanding derives session GPAs, CGPA and the risk profile from a
// student's approved course attempts. The computation is deterministic:
// identical attempts and policy always produce identical rounded figures,
// so recomputing is always safe.
func (c *PolicyConfig) ComputeStanding(studentID string, attempts []models.CourseAttempt, now time.Time) models.AcademicStanding {
	outcomes := c.CountedOutcomes(attempts)

	unitsAttempted := 0
	for _, a := range attempts {
		unitsAttempted += a.Units
	}

	type sessionAgg struct {
		name   string
		points float64
		units  int
	}
	perSession := make(map[string]*sessionAgg)

	var totalPoints, totalUnits float64
	unitsPassed := 0
	for _, out := range outcomes {
		totalPoints += out.Point * float64(out.Units)
		totalUnits += float64(out.Units)
		if out.Passed {
			unitsPassed += out.Units
		}
		agg := perSession[out.SessionID]
		if agg == nil {
			agg = &sessionAgg{name: out.SessionName}
			perSession[out.SessionID] = agg
		}
		agg.points += out.Point * float64(out.Units)
		agg.units += out.Units
	}

	cgpa := 0.0
	if totalUnits > 0 {
		cgpa = round2(totalPoints / totalUnits)
	}

	sessions := make([]models.SessionStanding, 0, len(perSession))
	for id, agg := range perSession {
		gpa := 0.0
		if agg.units > 0 {
			gpa = round2(agg.points / float64(agg.units))
		}
		sessions = append(sessions, models.SessionStanding{
			SessionID:    id,
			SessionName:  agg.name,
			GPA:          gpa,
			UnitsCounted: agg.units,
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		if yi, yj := sessionYear(sessions[i].SessionName), sessionYear(sessions[j].SessionName); yi != yj {
			return yi < yj
		}
		return sessions[i].SessionName < sessions[j].SessionName
	})

	completion := 0.0
	if unitsAttempted > 0 {
		completion = round2(float64(unitsPassed) / float64(unitsAttempted) * 100)
	}

	return models.AcademicStanding{
		StudentID:        studentID,
		CGPA:             cgpa,
		Sessions:         sessions,
		UnitsAttempted:   unitsAttempted,
		UnitsPassed:      unitsPassed,
		CompletionRate:   completion,
		PerformanceLevel: c.PerformanceLevel(cgpa),
		Standing:         c.StandingFor(cgpa),
		AtRisk:           cgpa < c.policy.ProbationGPA || completion < c.policy.AtRiskCompletionPct,
		ComputedAt:       now,
	}
}
