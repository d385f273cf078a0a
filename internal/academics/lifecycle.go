package academics

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

// gradeTransitions is the closed set of legal review-state moves. A draft
// goes out for review, a reviewer approves or rejects, a rejected grade
// returns to draft through editing, and an approved grade only moves again
// through an explicit reopen. Anything else is illegal.
var gradeTransitions = map[models.GradeStatus]map[models.GradeStatus]bool{
	models.GradeStatusDraft:     {models.GradeStatusSubmitted: true},
	models.GradeStatusSubmitted: {models.GradeStatusApproved: true, models.GradeStatusRejected: true},
	models.GradeStatusRejected:  {models.GradeStatusDraft: true},
	models.GradeStatusApproved:  {models.GradeStatusDraft: true},
}

// CanTransition reports whether moving a grade between the two review
// states is legal.
func CanTransition(from, to models.GradeStatus) bool {
	return gradeTransitions[from][to]
}

func transitionErr(from, to models.GradeStatus) error {
	return appErrors.Clone(appErrors.ErrStateTransition, fmt.Sprintf("cannot move grade from %s to %s", from, to))
}

// SetScores records component scores on a grade. Only drafts and rejected
// grades are editable; editing a rejected grade returns it to draft and
// clears the rejection reason. Scores are validated against the policy
// component maxima before anything is touched, so a failed call leaves the
// record unchanged. Total, letter and grade point are always recomputed
// from the scale, never written directly.
func (c *PolicyConfig) SetScores(g *models.Grade, ca, exam float64, now time.Time) error {
	if g.Status != models.GradeStatusDraft && g.Status != models.GradeStatusRejected {
		return appErrors.Clone(appErrors.ErrStateTransition, fmt.Sprintf("cannot edit scores while grade is %s", g.Status))
	}
	if ca < 0 || ca > c.policy.CAMax {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("ca score must be between 0 and %.0f", c.policy.CAMax))
	}
	if exam < 0 || exam > c.policy.ExamMax {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam score must be between 0 and %.0f", c.policy.ExamMax))
	}

	band, err := c.Band(ca + exam)
	if err != nil {
		return err
	}

	g.CAScore = ca
	g.ExamScore = exam
	g.TotalScore = ca + exam
	g.Letter = band.Letter
	g.GradePoint = band.GradePoint
	g.Status = models.GradeStatusDraft
	g.RejectionReason = nil
	g.UpdatedAt = now
	return nil
}

// Submit moves a draft into review.
func Submit(g *models.Grade, now time.Time) error {
	if !CanTransition(g.Status, models.GradeStatusSubmitted) {
		return transitionErr(g.Status, models.GradeStatusSubmitted)
	}
	g.Status = models.GradeStatusSubmitted
	g.SubmittedAt = &now
	g.RejectionReason = nil
	g.UpdatedAt = now
	return nil
}

// Approve finalises a submitted grade. Only approved grades feed GPA
// computation and transcripts.
func Approve(g *models.Grade, approverID string, now time.Time) error {
	if !CanTransition(g.Status, models.GradeStatusApproved) {
		return transitionErr(g.Status, models.GradeStatusApproved)
	}
	g.Status = models.GradeStatusApproved
	g.ApprovedAt = &now
	g.ApprovedBy = &approverID
	g.RejectionReason = nil
	g.UpdatedAt = now
	return nil
}

// Reject returns a submitted grade to its author. The reason is mandatory
// and is checked before any state changes.
func Reject(g *models.Grade, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	if !CanTransition(g.Status, models.GradeStatusRejected) {
		return transitionErr(g.Status, models.GradeStatusRejected)
	}
	g.Status = models.GradeStatusRejected
	g.RejectionReason = &reason
	g.UpdatedAt = now
	return nil
}

// Reopen pulls an approved grade back to draft for correction, clearing the
// approval trail. Callers are expected to write an audit entry alongside.
func Reopen(g *models.Grade, now time.Time) error {
	if g.Status != models.GradeStatusApproved {
		return transitionErr(g.Status, models.GradeStatusDraft)
	}
	g.Status = models.GradeStatusDraft
	g.SubmittedAt = nil
	g.ApprovedAt = nil
	g.ApprovedBy = nil
	g.UpdatedAt = now
	return nil
}
