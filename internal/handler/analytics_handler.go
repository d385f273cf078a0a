package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-adp-api/internal/middleware"
	"github.com/noah-isme/uni-adp-api/internal/models"
	"github.com/noah-isme/uni-adp-api/internal/service"
	"github.com/noah-isme/uni-adp-api/pkg/response"
)

// AnalyticsHandler exposes the read-only analytics endpoints. Cached
// aggregates report their cache state through the response meta block.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GradeDistribution godoc
// @Summary Grade distribution for an offering, course or session
// @Tags Analytics
// @Produce json
// @Param offeringId query string false "Offering ID"
// @Param courseId query string false "Course ID"
// @Param sessionId query string false "Session ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/grade-distribution [get]
func (h *AnalyticsHandler) GradeDistribution(c *gin.Context) {
	filter := models.GradeDistributionFilter{
		OfferingID: c.Query("offeringId"),
		CourseID:   c.Query("courseId"),
		SessionID:  c.Query("sessionId"),
	}
	distribution, cached, err := h.analytics.GradeDistribution(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, distribution, nil, middleware.ExtractMeta(c))
}

// RepeatedCourses godoc
// @Summary Courses most often repeated
// @Tags Analytics
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /analytics/repeated-courses [get]
func (h *AnalyticsHandler) RepeatedCourses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}
	stats, cached, err := h.analytics.RepeatedCourses(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// EnrollmentStats godoc
// @Summary Enrollment counts per offering in a session
// @Tags Analytics
// @Produce json
// @Param sessionId query string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/enrollment-stats [get]
func (h *AnalyticsHandler) EnrollmentStats(c *gin.Context) {
	stats, cached, err := h.analytics.EnrollmentStats(c.Request.Context(), c.Query("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// AtRisk godoc
// @Summary Students below the probation or completion thresholds
// @Tags Analytics
// @Produce json
// @Param programId query string false "Program ID"
// @Param levelId query string false "Level ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/at-risk [get]
func (h *AnalyticsHandler) AtRisk(c *gin.Context) {
	students, err := h.analytics.AtRisk(c.Request.Context(), c.Query("programId"), c.Query("levelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// SystemMetrics godoc
// @Summary Internal engine counters
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system-metrics [get]
func (h *AnalyticsHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}
