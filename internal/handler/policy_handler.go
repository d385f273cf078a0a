package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-adp-api/internal/service"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
	"github.com/noah-isme/uni-adp-api/pkg/response"
)

// PolicyHandler exposes the academic rule configuration endpoints: the
// grading scale, the institutional policy and per-programme classification
// ladders.
type PolicyHandler struct {
	policies *service.PolicyService
}

// NewPolicyHandler constructs PolicyHandler.
func NewPolicyHandler(policies *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policies: policies}
}

// GetScale godoc
// @Summary Get the grading scale
// @Tags Policies
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /policies/scale [get]
func (h *PolicyHandler) GetScale(c *gin.Context) {
	bands, err := h.policies.GetScale(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// UpdateScale godoc
// @Summary Replace the grading scale
// @Description Bands must cover 0-100 without gaps or overlaps. Existing
// @Description approved grades keep the letters they were awarded under.
// @Tags Policies
// @Accept json
// @Produce json
// @Param payload body service.UpdateScaleRequest true "Scale payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /policies/scale [put]
func (h *PolicyHandler) UpdateScale(c *gin.Context) {
	var req service.UpdateScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bands, err := h.policies.UpdateScale(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// GetPolicy godoc
// @Summary Get the institutional academic policy
// @Tags Policies
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /policies/academic [get]
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	policy, err := h.policies.GetPolicy(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// UpdatePolicy godoc
// @Summary Replace the institutional academic policy
// @Tags Policies
// @Accept json
// @Produce json
// @Param payload body service.UpdatePolicyRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /policies/academic [put]
func (h *PolicyHandler) UpdatePolicy(c *gin.Context) {
	var req service.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	policy, err := h.policies.UpdatePolicy(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// GetClassificationBands godoc
// @Summary Get classification ladder
// @Description Returns the programme-specific ladder when one exists,
// @Description otherwise the institutional default.
// @Tags Policies
// @Produce json
// @Param programId query string false "Program ID"
// @Success 200 {object} response.Envelope
// @Router /policies/classification [get]
func (h *PolicyHandler) GetClassificationBands(c *gin.Context) {
	bands, err := h.policies.GetClassificationBands(c.Request.Context(), c.Query("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// UpdateClassificationBands godoc
// @Summary Replace a classification ladder
// @Tags Policies
// @Accept json
// @Produce json
// @Param payload body service.UpdateClassificationRequest true "Ladder payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /policies/classification [put]
func (h *PolicyHandler) UpdateClassificationBands(c *gin.Context) {
	var req service.UpdateClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bands, err := h.policies.UpdateClassificationBands(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}
