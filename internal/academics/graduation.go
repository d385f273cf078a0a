package academics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// GraduationInput gathers the records a graduation audit needs. Standing
// and Outcomes must come from the same set of approved attempts so the
// audit agrees with the student's transcript.
type GraduationInput struct {
	Student      models.Student
	Program      models.Program
	Curriculum   []models.CurriculumCourse
	Standing     models.AcademicStanding
	Outcomes     []CountedOutcome
	ProgramBands []models.ClassificationBand
}

// AuditGraduation checks graduation requirements: units passed against the
// programme minimum, a counted passing attempt for every compulsory
// curriculum course, and any programme CGPA floor. Every failed requirement
// is reported, not just the first; electives never appear in the missing
// list. Classification is assigned only when the student is eligible.
func (c *PolicyConfig) AuditGraduation(in GraduationInput, now time.Time) (models.GraduationAudit, error) {
	audit := models.GraduationAudit{
		StudentID:      in.Student.ID,
		StudentRegNo:   in.Student.RegNo,
		ProgramID:      in.Program.ID,
		CGPA:           in.Standing.CGPA,
		UnitsPassed:    in.Standing.UnitsPassed,
		UnitsRequired:  in.Program.MinGraduationUnits,
		MissingCourses: []string{},
		Reasons:        []string{},
		AuditedAt:      now,
	}

	passed := make(map[string]bool, len(in.Outcomes))
	for _, out := range in.Outcomes {
		if out.Passed {
			passed[out.CourseID] = true
		}
	}

	missing := make(map[string]bool)
	for _, cc := range in.Curriculum {
		if cc.Compulsory && !passed[cc.CourseID] {
			missing[cc.CourseCode] = true
		}
	}
	for code := range missing {
		audit.MissingCourses = append(audit.MissingCourses, code)
	}
	sort.Strings(audit.MissingCourses)

	if audit.UnitsPassed < audit.UnitsRequired {
		audit.Reasons = append(audit.Reasons, fmt.Sprintf("Insufficient units: %d/%d", audit.UnitsPassed, audit.UnitsRequired))
	}
	if len(audit.MissingCourses) > 0 {
		audit.Reasons = append(audit.Reasons, "Missing compulsory courses: "+strings.Join(audit.MissingCourses, ", "))
	}
	if in.Program.MinGraduationCGPA != nil && audit.CGPA < *in.Program.MinGraduationCGPA {
		audit.Reasons = append(audit.Reasons, fmt.Sprintf("CGPA below graduation minimum: %.2f/%.2f", audit.CGPA, *in.Program.MinGraduationCGPA))
	}

	audit.Eligible = len(audit.Reasons) == 0
	if audit.Eligible {
		label, err := c.Classify(audit.CGPA, in.ProgramBands)
		if err != nil {
			return models.GraduationAudit{}, err
		}
		audit.Classification = &label
	}
	return audit, nil
}
