package handler

import (
	"net/http"

	"hrportal/internal/middleware"
	"hrportal/internal/service"
	"hrportal/pkg/pagination"
	"hrportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	auth                *middleware.Auth
}

func NewNotificationHandler(notificationService service.NotificationService, auth *middleware.Auth) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, auth: auth}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/api/notifications", h.auth.RequireRole())
	{
		notifications.GET("", h.ListNotifications)
		notifications.PUT("/read-all", h.MarkAllRead)
		notifications.PUT("/:id/read", h.MarkRead)
	}
}

// ListNotifications returns the caller's notifications, newest first
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread  query     bool  false  "Only unread"
// @Param        page    query     int   false  "Page number (default 1)"
// @Param        limit   query     int   false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	p := pagination.Parse(c)
	unreadOnly := c.Query("unread") == "true"

	items, total, err := h.notificationService.ListNotifications(c.Request.Context(), middleware.IdentityFrom(c), unreadOnly, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"notifications": items,
		"total":         total,
		"page":          p.Page,
		"limit":         p.Limit,
	}))
}

// MarkRead marks one of the caller's notifications as read
// @Summary      Mark notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Notification marked as read"))
}

// MarkAllRead marks every unread notification of the caller as read
// @Summary      Mark all notifications read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notificationService.MarkAllRead(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"updated": n}))
}
