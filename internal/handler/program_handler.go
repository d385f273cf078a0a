package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-adp-api/internal/models"
	"github.com/noah-isme/uni-adp-api/internal/service"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
	"github.com/noah-isme/uni-adp-api/pkg/response"
)

// ProgramHandler exposes degree programme endpoints, including curriculum
// management and the cohort-wide computed views.
type ProgramHandler struct {
	programs    *service.ProgramService
	graduations *service.GraduationService
	standings   *service.StandingService
}

// NewProgramHandler constructs ProgramHandler.
func NewProgramHandler(programs *service.ProgramService, graduations *service.GraduationService, standings *service.StandingService) *ProgramHandler {
	return &ProgramHandler{programs: programs, graduations: graduations, standings: standings}
}

// List godoc
// @Summary List programmes
// @Tags Programs
// @Produce json
// @Param search query string false "Search by code or name"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	var filter models.ProgramFilter
	filter.Search = c.Query("search")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	programs, pagination, err := h.programs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, pagination)
}

// Get godoc
// @Summary Get programme
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.programs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Create godoc
// @Summary Create programme
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body service.CreateProgramRequest true "Programme payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /programs [post]
func (h *ProgramHandler) Create(c *gin.Context) {
	var req service.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	program, err := h.programs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// Update godoc
// @Summary Update programme
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body service.UpdateProgramRequest true "Programme payload"
// @Success 200 {object} response.Envelope
// @Router /programs/{id} [put]
func (h *ProgramHandler) Update(c *gin.Context) {
	var req service.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	program, err := h.programs.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Delete godoc
// @Summary Delete programme
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 204 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /programs/{id} [delete]
func (h *ProgramHandler) Delete(c *gin.Context) {
	if err := h.programs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCurriculum godoc
// @Summary List programme curriculum
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/curriculum [get]
func (h *ProgramHandler) ListCurriculum(c *gin.Context) {
	curriculum, err := h.programs.ListCurriculum(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, curriculum, nil)
}

// AddCurriculumCourse godoc
// @Summary Pin a course into the programme curriculum
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body service.AddCurriculumCourseRequest true "Curriculum payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /programs/{id}/curriculum [post]
func (h *ProgramHandler) AddCurriculumCourse(c *gin.Context) {
	var req service.AddCurriculumCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.programs.AddCurriculumCourse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// RemoveCurriculumCourse godoc
// @Summary Remove a course from the programme curriculum
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Param courseId path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Router /programs/{id}/curriculum/{courseId} [delete]
func (h *ProgramHandler) RemoveCurriculumCourse(c *gin.Context) {
	if err := h.programs.RemoveCurriculumCourse(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CohortAudit godoc
// @Summary Run graduation audit across a cohort
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Param levelId query string false "Restrict to one level"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/graduation-audit [get]
func (h *ProgramHandler) CohortAudit(c *gin.Context) {
	audit, err := h.graduations.CohortAudit(c.Request.Context(), c.Param("id"), c.Query("levelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, audit, nil)
}

// RecomputeStandings godoc
// @Summary Recompute standings for a cohort
// @Description Recomputes and re-caches the standing of every active student
// @Description in the programme. Per-student failures are collected.
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Param levelId query string false "Restrict to one level"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/recompute-standings [post]
func (h *ProgramHandler) RecomputeStandings(c *gin.Context) {
	result, err := h.standings.RecomputeCohort(c.Request.Context(), service.RecomputeCohortRequest{
		ProgramID: c.Param("id"),
		LevelID:   c.Query("levelId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
