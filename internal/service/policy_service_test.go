package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockPolicyRepo struct {
	scale          []models.GradingBand
	defaults       []models.ClassificationBand
	overrides      map[string][]models.ClassificationBand
	policy         *models.AcademicPolicy
	replacedScale  []models.GradingBand
	updatedPolicy  *models.AcademicPolicy
	replacedLadder []models.ClassificationBand
	loads          int
}

func (m *mockPolicyRepo) ListScale(ctx context.Context) ([]models.GradingBand, error) {
	m.loads++
	return m.scale, nil
}

func (m *mockPolicyRepo) ReplaceScale(ctx context.Context, bands []models.GradingBand) error {
	m.replacedScale = bands
	m.scale = bands
	return nil
}

func (m *mockPolicyRepo) GetPolicy(ctx context.Context) (*models.AcademicPolicy, error) {
	clone := *m.policy
	return &clone, nil
}

func (m *mockPolicyRepo) UpdatePolicy(ctx context.Context, policy *models.AcademicPolicy) error {
	m.updatedPolicy = policy
	m.policy = policy
	return nil
}

func (m *mockPolicyRepo) ListClassificationBands(ctx context.Context, programID *string) ([]models.ClassificationBand, error) {
	if programID == nil {
		return m.defaults, nil
	}
	return m.overrides[*programID], nil
}

func (m *mockPolicyRepo) ReplaceClassificationBands(ctx context.Context, programID *string, bands []models.ClassificationBand) error {
	m.replacedLadder = bands
	if programID == nil {
		m.defaults = bands
	}
	return nil
}

func policyFixture(t *testing.T) (*PolicyService, *mockPolicyRepo) {
	t.Helper()
	repo := &mockPolicyRepo{
		scale: []models.GradingBand{
			{Letter: "F", MinScore: 0, MaxScore: 39, GradePoint: 0},
			{Letter: "D", MinScore: 40, MaxScore: 49, GradePoint: 1},
			{Letter: "C", MinScore: 50, MaxScore: 59, GradePoint: 2},
			{Letter: "B", MinScore: 60, MaxScore: 69, GradePoint: 3},
			{Letter: "A", MinScore: 70, MaxScore: 100, GradePoint: 4},
		},
		defaults: []models.ClassificationBand{
			{Label: "First Class", MinCGPA: 3.5},
			{Label: "Pass", MinCGPA: 0},
		},
		policy: &models.AcademicPolicy{
			ID:                  "pol-1",
			RepeatRule:          models.RepeatRuleLast,
			MaxAttempts:         3,
			CAMax:               30,
			ExamMax:             70,
			ProbationGPA:        2.0,
			DismissalGPA:        1.0,
			AtRiskCompletionPct: 70,
		},
	}
	return NewPolicyService(repo, nil, nil), repo
}

func TestPolicyConfigCachedUntilInvalidated(t *testing.T) {
	svc, repo := policyFixture(t)

	first, err := svc.Config(context.Background())
	require.NoError(t, err)
	loadsAfterFirst := repo.loads

	second, err := svc.Config(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, loadsAfterFirst, repo.loads)

	svc.Invalidate()
	third, err := svc.Config(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Greater(t, repo.loads, loadsAfterFirst)
}

func TestPolicyUpdateScaleRejectsGap(t *testing.T) {
	svc, repo := policyFixture(t)

	_, err := svc.UpdateScale(context.Background(), UpdateScaleRequest{Bands: []GradingBandRequest{
		{Letter: "F", MinScore: 0, MaxScore: 39, GradePoint: 0},
		{Letter: "P", MinScore: 41, MaxScore: 100, GradePoint: 2},
	}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.replacedScale)
}

func TestPolicyUpdateScaleValid(t *testing.T) {
	svc, repo := policyFixture(t)

	bands, err := svc.UpdateScale(context.Background(), UpdateScaleRequest{Bands: []GradingBandRequest{
		{Letter: "F", MinScore: 0, MaxScore: 44, GradePoint: 0},
		{Letter: "P", MinScore: 45, MaxScore: 69, GradePoint: 2},
		{Letter: "A", MinScore: 70, MaxScore: 100, GradePoint: 4},
	}})
	require.NoError(t, err)
	assert.Len(t, bands, 3)
	assert.Len(t, repo.replacedScale, 3)
}

func TestPolicyUpdateRejectsComponentMismatch(t *testing.T) {
	svc, repo := policyFixture(t)

	_, err := svc.UpdatePolicy(context.Background(), UpdatePolicyRequest{
		RepeatRule:          models.RepeatRuleBest,
		MaxAttempts:         2,
		CAMax:               40,
		ExamMax:             70,
		ProbationGPA:        2.0,
		DismissalGPA:        1.0,
		AtRiskCompletionPct: 70,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updatedPolicy)
}

func TestPolicyUpdateValid(t *testing.T) {
	svc, repo := policyFixture(t)

	policy, err := svc.UpdatePolicy(context.Background(), UpdatePolicyRequest{
		RepeatRule:          models.RepeatRuleBest,
		MaxAttempts:         2,
		CAMax:               40,
		ExamMax:             60,
		ProbationGPA:        1.8,
		DismissalGPA:        1.0,
		AtRiskCompletionPct: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RepeatRuleBest, policy.RepeatRule)
	require.NotNil(t, repo.updatedPolicy)
	assert.Equal(t, 2, repo.updatedPolicy.MaxAttempts)
}

func TestPolicyUpdateClassificationDefaultsNeedFallback(t *testing.T) {
	svc, repo := policyFixture(t)

	_, err := svc.UpdateClassificationBands(context.Background(), UpdateClassificationRequest{
		Bands: []ClassificationBandRequest{
			{Label: "First Class", MinCGPA: 3.5},
			{Label: "Second Class", MinCGPA: 2.5},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.replacedLadder)
}

func TestPolicyUpdateClassificationProgramOverride(t *testing.T) {
	svc, repo := policyFixture(t)

	bands, err := svc.UpdateClassificationBands(context.Background(), UpdateClassificationRequest{
		ProgramID: "prg-1",
		Bands: []ClassificationBandRequest{
			{Label: "Distinction", MinCGPA: 3.6},
			{Label: "Merit", MinCGPA: 2.8},
			{Label: "Pass", MinCGPA: 0},
		},
	})
	require.NoError(t, err)
	require.Len(t, bands, 3)
	require.NotNil(t, bands[0].ProgramID)
	assert.Equal(t, "prg-1", *bands[0].ProgramID)
	assert.Len(t, repo.replacedLadder, 3)
}
