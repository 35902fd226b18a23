package handler

import (
	"net/http"

	"hrportal/internal/middleware"
	"hrportal/internal/model"
	"hrportal/internal/repository"
	"hrportal/internal/service"
	"hrportal/pkg/pagination"
	"hrportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole(model.RoleHR))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated system audit rows with the acting user resolved
// @Summary      Get audit logs
// @Description  Lists submissions, reviews and account changes, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Action filter, e.g. APPROVE_DOCUMENT"
// @Param        entity_id  query     string  false  "Entity ID filter"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), middleware.IdentityFrom(c), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}
