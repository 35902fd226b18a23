package handler

import (
	"encoding/json"
	"net/http"

	"hrportal/internal/middleware"
	"hrportal/internal/model"
	"hrportal/internal/service"
	"hrportal/pkg/pagination"
	"hrportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type submitOnboardingRequest struct {
	FormData json.RawMessage `json:"form_data" binding:"required"`
}

type OnboardingHandler struct {
	onboardingService service.OnboardingService
	auth              *middleware.Auth
}

func NewOnboardingHandler(onboardingService service.OnboardingService, auth *middleware.Auth) *OnboardingHandler {
	return &OnboardingHandler{onboardingService: onboardingService, auth: auth}
}

func (h *OnboardingHandler) RegisterRoutes(router *gin.RouterGroup) {
	mine := router.Group("/api/onboarding", h.auth.RequireRole(model.RoleEmployee))
	{
		mine.GET("", h.GetMyOnboarding)
		mine.POST("", h.SubmitOnboarding)
	}

	hr := router.Group("/api/hr/onboarding", h.auth.RequireRole(model.RoleHR))
	{
		hr.GET("", h.ListOnboarding)
		hr.GET("/:id", h.GetOnboarding)
		hr.PUT("/:id/review", h.ReviewOnboarding)
	}
}

// SubmitOnboarding submits or resubmits the caller's onboarding form
// @Summary      Submit onboarding
// @Description  Allowed when the application was never submitted or was rejected
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      object  true  "{\"form_data\": {...}}"
// @Success      200      {object}  response.Response{data=service.OnboardingResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/onboarding [post]
func (h *OnboardingHandler) SubmitOnboarding(c *gin.Context) {
	var req submitOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if err := validateOnboardingForm(req.FormData); err != nil {
		badRequest(c, err.Error())
		return
	}

	app, err := h.onboardingService.SubmitOnboarding(c.Request.Context(), middleware.IdentityFrom(c), req.FormData)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}

// GetMyOnboarding returns the caller's application or a never_submitted placeholder
// @Summary      Get my onboarding
// @Tags         onboarding
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.OnboardingResponse}
// @Router       /api/onboarding [get]
func (h *OnboardingHandler) GetMyOnboarding(c *gin.Context) {
	app, err := h.onboardingService.GetMyOnboarding(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}

// ReviewOnboarding approves or rejects a pending application
// @Summary      Review onboarding
// @Tags         hr
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Application ID"
// @Param        payload  body      service.ReviewOnboardingRequest  true  "Review Payload"
// @Success      200      {object}  response.Response{data=service.OnboardingResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/hr/onboarding/{id}/review [put]
func (h *OnboardingHandler) ReviewOnboarding(c *gin.Context) {
	var req service.ReviewOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	app, err := h.onboardingService.ReviewOnboarding(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}

// GetOnboarding returns one application for HR
// @Summary      Get onboarding
// @Tags         hr
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=service.OnboardingResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/hr/onboarding/{id} [get]
func (h *OnboardingHandler) GetOnboarding(c *gin.Context) {
	app, err := h.onboardingService.GetOnboarding(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}

// ListOnboarding lists applications, optionally by status
// @Summary      List onboarding
// @Tags         hr
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "pending | approved | rejected"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/hr/onboarding [get]
func (h *OnboardingHandler) ListOnboarding(c *gin.Context) {
	p := pagination.Parse(c)
	apps, total, err := h.onboardingService.ListOnboarding(c.Request.Context(), middleware.IdentityFrom(c), service.OnboardingListFilter{
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"applications": apps,
		"total":        total,
		"page":         p.Page,
		"limit":        p.Limit,
	}))
}
