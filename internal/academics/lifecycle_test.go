package academics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func draftGrade() *models.Grade {
	return &models.Grade{ID: "grd-1", EnrollmentID: "enr-1", Status: models.GradeStatusDraft}
}

func TestSetScoresComputesLetterAndPoint(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)
	g := draftGrade()

	require.NoError(t, cfg.SetScores(g, 25, 48, testNow))
	assert.Equal(t, 73.0, g.TotalScore)
	assert.Equal(t, "A", g.Letter)
	assert.Equal(t, 4.0, g.GradePoint)
	assert.Equal(t, models.GradeStatusDraft, g.Status)
}

func TestSetScoresRejectsOutOfRange(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)
	g := draftGrade()

	err := cfg.SetScores(g, 31, 40, testNow) // CA max is 30
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, g.TotalScore) // untouched on failure

	err = cfg.SetScores(g, 20, 71, testNow) // exam max is 70
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = cfg.SetScores(g, -1, 40, testNow)
	require.Error(t, err)
}

func TestSetScoresOnlyInEditableStates(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	g := draftGrade()
	g.Status = models.GradeStatusSubmitted
	err := cfg.SetScores(g, 20, 50, testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)

	g.Status = models.GradeStatusApproved
	err = cfg.SetScores(g, 20, 50, testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestSetScoresOnRejectedReturnsToDraft(t *testing.T) {
	cfg := testConfig(t, models.RepeatRuleLast)

	reason := "scores inconsistent with script"
	g := draftGrade()
	g.Status = models.GradeStatusRejected
	g.RejectionReason = &reason

	require.NoError(t, cfg.SetScores(g, 22, 46, testNow))
	assert.Equal(t, models.GradeStatusDraft, g.Status)
	assert.Nil(t, g.RejectionReason)
	assert.Equal(t, "B", g.Letter)
}

func TestSubmitLifecycle(t *testing.T) {
	g := draftGrade()

	require.NoError(t, Submit(g, testNow))
	assert.Equal(t, models.GradeStatusSubmitted, g.Status)
	require.NotNil(t, g.SubmittedAt)
	assert.Equal(t, testNow, *g.SubmittedAt)

	// Submitting twice is illegal.
	err := Submit(g, testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestSubmitOnApprovedFails(t *testing.T) {
	g := draftGrade()
	g.Status = models.GradeStatusApproved

	err := Submit(g, testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.GradeStatusApproved, g.Status)
}

func TestApproveLifecycle(t *testing.T) {
	g := draftGrade()
	g.Status = models.GradeStatusSubmitted

	require.NoError(t, Approve(g, "usr-registry", testNow))
	assert.Equal(t, models.GradeStatusApproved, g.Status)
	require.NotNil(t, g.ApprovedBy)
	assert.Equal(t, "usr-registry", *g.ApprovedBy)
	require.NotNil(t, g.ApprovedAt)

	// Approving a draft directly is illegal.
	fresh := draftGrade()
	err := Approve(fresh, "usr-registry", testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestRejectRequiresReason(t *testing.T) {
	g := draftGrade()
	g.Status = models.GradeStatusSubmitted

	err := Reject(g, "   ", testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.GradeStatusSubmitted, g.Status) // no state change

	require.NoError(t, Reject(g, "missing exam script", testNow))
	assert.Equal(t, models.GradeStatusRejected, g.Status)
	require.NotNil(t, g.RejectionReason)
	assert.Equal(t, "missing exam script", *g.RejectionReason)
}

func TestRejectOnlyFromSubmitted(t *testing.T) {
	g := draftGrade()

	err := Reject(g, "reason", testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestReopenClearsApprovalTrail(t *testing.T) {
	g := draftGrade()
	g.Status = models.GradeStatusSubmitted
	require.NoError(t, Approve(g, "usr-registry", testNow))

	require.NoError(t, Reopen(g, testNow.Add(time.Hour)))
	assert.Equal(t, models.GradeStatusDraft, g.Status)
	assert.Nil(t, g.ApprovedAt)
	assert.Nil(t, g.ApprovedBy)
	assert.Nil(t, g.SubmittedAt)
}

func TestReopenOnlyFromApproved(t *testing.T) {
	g := draftGrade()
	g.Status = models.GradeStatusSubmitted

	err := Reopen(g, testNow)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestTransitionTableIsClosed(t *testing.T) {
	statuses := []models.GradeStatus{
		models.GradeStatusDraft,
		models.GradeStatusSubmitted,
		models.GradeStatusApproved,
		models.GradeStatusRejected,
	}
	legal := map[[2]models.GradeStatus]bool{
		{models.GradeStatusDraft, models.GradeStatusSubmitted}:    true,
		{models.GradeStatusSubmitted, models.GradeStatusApproved}: true,
		{models.GradeStatusSubmitted, models.GradeStatusRejected}: true,
		{models.GradeStatusRejected, models.GradeStatusDraft}:     true,
		{models.GradeStatusApproved, models.GradeStatusDraft}:     true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, legal[[2]models.GradeStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}
