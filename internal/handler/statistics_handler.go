package handler

import (
	"net/http"
	"time"

	"hrportal/internal/middleware"
	"hrportal/internal/model"
	"hrportal/internal/service"
	"hrportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	auth              *middleware.Auth
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService, auth *middleware.Auth) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, auth: auth, now: time.Now}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/hr/statistics")
	{
		statsGroup.GET("", h.auth.RequireRole(model.RoleHR), h.GetStatistics)
	}
}

// @Summary      Get review dashboard statistics
// @Description  Queue sizes by status and type, plus approve/reject decisions bounded by time
// @Tags         hr
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} response.Response{data=model.ReviewStatistics}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response
// @Security     BearerAuth
// @Router       /api/hr/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := h.now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			badRequest(c, "invalid start_date format, expected RFC3339")
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			badRequest(c, "invalid end_date format, expected RFC3339")
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), middleware.IdentityFrom(c), startDate, endDate)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
