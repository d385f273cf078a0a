package academics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

func attempt(courseID, code string, units int, sessionID, sessionName string, sem models.Semester, letter string, point float64, day int) models.CourseAttempt {
	return models.CourseAttempt{
		CourseID:    courseID,
		CourseCode:  code,
		Units:       units,
		SessionID:   sessionID,
		SessionName: sessionName,
		Semester:    sem,
		Letter:      letter,
		GradePoint:  point,
		EnrolledAt:  time.Date(2023, 9, day, 0, 0, 0, 0, time.UTC),
	}
}

// One 3-unit course taken twice: C (2.0) in 2022/2023, then B (3.0) in
// 2023/2024.
func repeatedCourse() []models.CourseAttempt {
	return []models.CourseAttempt{
		attempt("crs-x", "CSC301", 3, "ses-1", "2022/2023", models.SemesterFirst, "C", 2.0, 1),
		attempt("crs-x", "CSC301", 3, "ses-2", "2023/2024", models.SemesterFirst, "B", 3.0, 1),
	}
}

func TestComputeStandingRepeatRuleLast(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	standing := cfg.ComputeStanding("stu-1", repeatedCourse(), testNow)
	assert.Equal(t, 3.0, standing.CGPA)
	assert.Equal(t, 6, standing.UnitsAttempted) // both attempts count as attempted
	assert.Equal(t, 3, standing.UnitsPassed)    // units earn once
	require.Len(t, standing.Sessions, 1)
	assert.Equal(t, "ses-2", standing.Sessions[0].SessionID)
	assert.Equal(t, 3.0, standing.Sessions[0].GPA)
}

func TestComputeStandingRepeatRuleBest(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleBest)

	standing := cfg.ComputeStanding("stu-1", repeatedCourse(), testNow)
	assert.Equal(t, 3.0, standing.CGPA)
	assert.Equal(t, 3, standing.UnitsPassed)
}

func TestComputeStandingRepeatRuleBestCountsInOwnSession(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleBest)

	// The best attempt (A, 4 units) precedes a weaker retake; it must be
	// counted in its own session with its own units, not the retake's.
	attempts := []models.CourseAttempt{
		attempt("crs-x", "CSC301", 4, "ses-1", "2022/2023", models.SemesterFirst, "A", 4.0, 1),
		attempt("crs-x", "CSC301", 3, "ses-2", "2023/2024", models.SemesterFirst, "C", 2.0, 1),
	}

	outcomes := cfg.CountedOutcomes(attempts)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 4.0, outcomes[0].Point)
	assert.Equal(t, 4, outcomes[0].Units)
	assert.Equal(t, "ses-1", outcomes[0].SessionID)
	assert.Equal(t, "2022/2023", outcomes[0].SessionName)

	standing := cfg.ComputeStanding("stu-1", attempts, testNow)
	assert.Equal(t, 4.0, standing.CGPA)
	assert.Equal(t, 7, standing.UnitsAttempted)
	assert.Equal(t, 4, standing.UnitsPassed)
	require.Len(t, standing.Sessions, 1)
	assert.Equal(t, "ses-1", standing.Sessions[0].SessionID)
	assert.Equal(t, 4.0, standing.Sessions[0].GPA)
	assert.Equal(t, 4, standing.Sessions[0].UnitsCounted)
}

func TestComputeStandingRepeatRuleBestTieTakesLatest(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleBest)

	attempts := append(repeatedCourse(),
		attempt("crs-x", "CSC301", 3, "ses-3", "2024/2025", models.SemesterFirst, "B", 3.0, 1))

	outcomes := cfg.CountedOutcomes(attempts)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 3.0, outcomes[0].Point)
	assert.Equal(t, "ses-3", outcomes[0].SessionID)
}

func TestComputeStandingRepeatRuleAverage(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleAverage)

	standing := cfg.ComputeStanding("stu-1", repeatedCourse(), testNow)
	assert.Equal(t, 2.5, standing.CGPA) // mean of 2.0 and 3.0
	assert.Equal(t, 6, standing.UnitsAttempted)
	assert.Equal(t, 3, standing.UnitsPassed)
	require.Len(t, standing.Sessions, 1)
	assert.Equal(t, "ses-2", standing.Sessions[0].SessionID) // attributed to latest attempt
}

func TestComputeStandingSessionGPA(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	attempts := []models.CourseAttempt{
		attempt("crs-1", "MTH101", 3, "ses-1", "2023/2024", models.SemesterFirst, "A", 4.0, 1),
		attempt("crs-2", "GST101", 2, "ses-1", "2023/2024", models.SemesterFirst, "C", 2.0, 1),
	}

	standing := cfg.ComputeStanding("stu-1", attempts, testNow)
	require.Len(t, standing.Sessions, 1)
	assert.Equal(t, 3.20, standing.Sessions[0].GPA) // (4.0*3 + 2.0*2) / 5
	assert.Equal(t, 5, standing.Sessions[0].UnitsCounted)
	assert.Equal(t, 3.20, standing.CGPA)
}

func TestComputeStandingSessionsInChronologicalOrder(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	attempts := []models.CourseAttempt{
		attempt("crs-2", "CSC201", 3, "ses-2", "2023/2024", models.SemesterFirst, "B", 3.0, 1),
		attempt("crs-1", "CSC101", 3, "ses-1", "2022/2023", models.SemesterFirst, "A", 4.0, 1),
	}

	standing := cfg.ComputeStanding("stu-1", attempts, testNow)
	require.Len(t, standing.Sessions, 2)
	assert.Equal(t, "2022/2023", standing.Sessions[0].SessionName)
	assert.Equal(t, "2023/2024", standing.Sessions[1].SessionName)
}

func TestComputeStandingIdempotent(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleAverage)

	attempts := append(repeatedCourse(),
		attempt("crs-1", "MTH101", 4, "ses-1", "2022/2023", models.SemesterSecond, "D", 1.0, 3),
		attempt("crs-2", "GST103", 2, "ses-2", "2023/2024", models.SemesterFirst, "F", 0.0, 7),
	)

	first := cfg.ComputeStanding("stu-1", attempts, testNow)
	second := cfg.ComputeStanding("stu-1", attempts, testNow)
	assert.Equal(t, first, second)
}

func TestComputeStandingRiskProfile(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	// 3 units passed out of 6 attempted: completion 50% flags risk even
	// though the CGPA of 2.0 clears probation.
	attempts := []models.CourseAttempt{
		attempt("crs-1", "CSC101", 3, "ses-1", "2023/2024", models.SemesterFirst, "A", 4.0, 1),
		attempt("crs-2", "MTH101", 3, "ses-1", "2023/2024", models.SemesterFirst, "F", 0.0, 1),
	}

	standing := cfg.ComputeStanding("stu-1", attempts, testNow)
	assert.Equal(t, 2.0, standing.CGPA)
	assert.Equal(t, models.StandingGood, standing.Standing)
	assert.Equal(t, 50.0, standing.CompletionRate)
	assert.True(t, standing.AtRisk)
}

func TestComputeStandingProbationAndDismissal(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	probation := cfg.ComputeStanding("stu-1", []models.CourseAttempt{
		attempt("crs-1", "CSC101", 3, "ses-1", "2023/2024", models.SemesterFirst, "D", 1.0, 1),
	}, testNow)
	assert.Equal(t, models.StandingProbation, probation.Standing)
	assert.True(t, probation.AtRisk)

	dismissal := cfg.ComputeStanding("stu-1", []models.CourseAttempt{
		attempt("crs-1", "CSC101", 3, "ses-1", "2023/2024", models.SemesterFirst, "F", 0.0, 1),
	}, testNow)
	assert.Equal(t, models.StandingDismissal, dismissal.Standing)
}

func TestComputeStandingNoAttempts(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	standing := cfg.ComputeStanding("stu-1", nil, testNow)
	assert.Zero(t, standing.CGPA)
	assert.Empty(t, standing.Sessions)
	assert.Zero(t, standing.UnitsAttempted)
	assert.Zero(t, standing.CompletionRate)
	assert.True(t, standing.AtRisk) // nothing earned yet
}

func TestCountedOutcomesOrderedByCode(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	outcomes := cfg.CountedOutcomes([]models.CourseAttempt{
		attempt("crs-2", "MTH101", 3, "ses-1", "2023/2024", models.SemesterFirst, "B", 3.0, 1),
		attempt("crs-1", "CSC101", 3, "ses-1", "2023/2024", models.SemesterFirst, "A", 4.0, 1),
	})
	require.Len(t, outcomes, 2)
	assert.Equal(t, "CSC101", outcomes[0].CourseCode)
	assert.Equal(t, "MTH101", outcomes[1].CourseCode)
}
