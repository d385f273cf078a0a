package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/academics"
	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type policyRepository interface {
	ListScale(ctx context.Context) ([]models.GradingBand, error)
	ReplaceScale(ctx context.Context, bands []models.GradingBand) error
	GetPolicy(ctx context.Context) (*models.AcademicPolicy, error)
	UpdatePolicy(ctx context.Context, policy *models.AcademicPolicy) error
	ListClassificationBands(ctx context.Context, programID *string) ([]models.ClassificationBand, error)
	ReplaceClassificationBands(ctx context.Context, programID *string, bands []models.ClassificationBand) error
}

// GradingBandRequest is one band of a replacement grading scale.
type GradingBandRequest struct {
	Letter     string  `json:"letter" validate:"required"`
	MinScore   float64 `json:"min_score" validate:"gte=0,lte=100"`
	MaxScore   float64 `json:"max_score" validate:"gte=0,lte=100"`
	GradePoint float64 `json:"grade_point" validate:"gte=0"`
}

// UpdateScaleRequest replaces the whole grading scale.
type UpdateScaleRequest struct {
	Bands []GradingBandRequest `json:"bands" validate:"required,min=1,dive"`
}

// UpdatePolicyRequest rewrites the institutional academic policy.
type UpdatePolicyRequest struct {
	RepeatRule          models.RepeatRule `json:"repeat_rule" validate:"required"`
	MaxAttempts         int               `json:"max_attempts" validate:"required,min=1"`
	CAMax               float64           `json:"ca_max" validate:"gte=0,lte=100"`
	ExamMax             float64           `json:"exam_max" validate:"gte=0,lte=100"`
	ProbationGPA        float64           `json:"probation_gpa" validate:"gte=0"`
	DismissalGPA        float64           `json:"dismissal_gpa" validate:"gte=0"`
	AtRiskCompletionPct float64           `json:"at_risk_completion_pct" validate:"gte=0,lte=100"`
}

// ClassificationBandRequest is one rung of a classification ladder.
type ClassificationBandRequest struct {
	Label   string  `json:"label" validate:"required"`
	MinCGPA float64 `json:"min_cgpa" validate:"gte=0"`
}

// UpdateClassificationRequest replaces a classification ladder. ProgramID is
// empty for the institution defaults.
type UpdateClassificationRequest struct {
	ProgramID string                      `json:"program_id"`
	Bands     []ClassificationBandRequest `json:"bands" validate:"required,min=1,dive"`
}

// PolicyService owns the academic rule configuration. It assembles the
// validated engine config once and hands the cached copy to every consumer
// until an admin write invalidates it.
type PolicyService struct {
	repo      policyRepository
	validator *validator.Validate
	logger    *zap.Logger

	mu     sync.RWMutex
	cached *academics.PolicyConfig
}

// NewPolicyService constructs PolicyService.
func NewPolicyService(repo policyRepository, validate *validator.Validate, logger *zap.Logger) *PolicyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{repo: repo, validator: validate, logger: logger}
}

// Config returns the validated engine configuration, loading it on first
// use. A broken configuration surfaces as a CONFIGURATION_ERROR to every
// caller rather than a partial result.
func (s *PolicyService) Config(ctx context.Context) (*academics.PolicyConfig, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.reload(ctx)
}

// Invalidate drops the cached engine configuration.
func (s *PolicyService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *PolicyService) reload(ctx context.Context) (*academics.PolicyConfig, error) {
	scale, err := s.repo.ListScale(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
	}
	defaults, err := s.repo.ListClassificationBands(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classification bands")
	}
	policy, err := s.repo.GetPolicy(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConfiguration, "academic policy is not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic policy")
	}

	config, err := academics.NewPolicyConfig(scale, defaults, *policy)
	if err != nil {
		s.logger.Error("academic configuration rejected", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.cached = config
	s.mu.Unlock()
	return config, nil
}

// GetScale returns the stored grading scale.
func (s *PolicyService) GetScale(ctx context.Context) ([]models.GradingBand, error) {
	scale, err := s.repo.ListScale(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
	}
	return scale, nil
}

// UpdateScale validates and persists a replacement grading scale. The
// candidate is checked against the full engine configuration so a scale
// that breaks score bounds or the policy never reaches the database.
func (s *PolicyService) UpdateScale(ctx context.Context, req UpdateScaleRequest) ([]models.GradingBand, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading scale payload")
	}

	bands := make([]models.GradingBand, 0, len(req.Bands))
	for _, b := range req.Bands {
		bands = append(bands, models.GradingBand{
			Letter:     b.Letter,
			MinScore:   b.MinScore,
			MaxScore:   b.MaxScore,
			GradePoint: b.GradePoint,
		})
	}

	defaults, err := s.repo.ListClassificationBands(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classification bands")
	}
	policy, err := s.repo.GetPolicy(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic policy")
	}
	if _, err := academics.NewPolicyConfig(bands, defaults, *policy); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceScale(ctx, bands); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grading scale")
	}
	s.Invalidate()
	s.logger.Info("grading scale replaced", zap.Int("bands", len(bands)))
	return bands, nil
}

// GetPolicy returns the stored academic policy row.
func (s *PolicyService) GetPolicy(ctx context.Context) (*models.AcademicPolicy, error) {
	policy, err := s.repo.GetPolicy(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic policy")
	}
	return policy, nil
}

// UpdatePolicy validates and persists the institutional policy row.
func (s *PolicyService) UpdatePolicy(ctx context.Context, req UpdatePolicyRequest) (*models.AcademicPolicy, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic policy payload")
	}

	current, err := s.repo.GetPolicy(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic policy")
	}

	candidate := *current
	candidate.RepeatRule = req.RepeatRule
	candidate.MaxAttempts = req.MaxAttempts
	candidate.CAMax = req.CAMax
	candidate.ExamMax = req.ExamMax
	candidate.ProbationGPA = req.ProbationGPA
	candidate.DismissalGPA = req.DismissalGPA
	candidate.AtRiskCompletionPct = req.AtRiskCompletionPct

	scale, err := s.repo.ListScale(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
	}
	defaults, err := s.repo.ListClassificationBands(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classification bands")
	}
	if _, err := academics.NewPolicyConfig(scale, defaults, candidate); err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePolicy(ctx, &candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store academic policy")
	}
	s.Invalidate()
	s.logger.Info("academic policy updated",
		zap.String("repeat_rule", string(candidate.RepeatRule)),
		zap.Int("max_attempts", candidate.MaxAttempts))
	return &candidate, nil
}

// GetClassificationBands returns a ladder: the defaults when programID is
// empty, otherwise the programme override (which may be empty).
func (s *PolicyService) GetClassificationBands(ctx context.Context, programID string) ([]models.ClassificationBand, error) {
	var scope *string
	if programID != "" {
		scope = &programID
	}
	bands, err := s.repo.ListClassificationBands(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classification bands")
	}
	return bands, nil
}

// UpdateClassificationBands validates and persists a ladder replacement.
func (s *PolicyService) UpdateClassificationBands(ctx context.Context, req UpdateClassificationRequest) ([]models.ClassificationBand, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classification payload")
	}

	var scope *string
	if req.ProgramID != "" {
		scope = &req.ProgramID
	}
	bands := make([]models.ClassificationBand, 0, len(req.Bands))
	for _, b := range req.Bands {
		bands = append(bands, models.ClassificationBand{ProgramID: scope, Label: b.Label, MinCGPA: b.MinCGPA})
	}

	if scope == nil {
		// Default ladder changes must leave the whole configuration valid.
		scale, err := s.repo.ListScale(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
		}
		policy, err := s.repo.GetPolicy(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic policy")
		}
		if _, err := academics.NewPolicyConfig(scale, bands, *policy); err != nil {
			return nil, err
		}
	} else {
		config, err := s.Config(ctx)
		if err != nil {
			return nil, err
		}
		if err := config.ValidateLadder(bands); err != nil {
			return nil, err
		}
	}

	if err := s.repo.ReplaceClassificationBands(ctx, scope, bands); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store classification bands")
	}
	s.Invalidate()
	return bands, nil
}
