package handler

import (
	"net/http"

	"hrportal/internal/middleware"
	"hrportal/internal/model"
	"hrportal/internal/service"
	"hrportal/pkg/pagination"
	"hrportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentService service.DocumentService
	auth            *middleware.Auth
}

func NewDocumentHandler(documentService service.DocumentService, auth *middleware.Auth) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, auth: auth}
}

func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	docs := router.Group("/api/documents")
	{
		docs.GET("", h.auth.RequireRole(model.RoleEmployee), h.ListMyDocuments)
		docs.POST("", h.auth.RequireRole(model.RoleEmployee), h.UploadDocument)
		docs.POST("/upload-url", h.auth.RequireRole(model.RoleEmployee), h.CreateUploadURL)
		docs.GET("/visa-progress", h.auth.RequireRole(model.RoleEmployee), h.GetVisaProgress)
		docs.GET("/:id", h.auth.RequireRole(), h.GetDocument)
		docs.GET("/:id/download-url", h.auth.RequireRole(), h.CreateDownloadURL)
	}

	hr := router.Group("/api/hr/documents", h.auth.RequireRole(model.RoleHR))
	{
		hr.GET("", h.ListDocuments)
		hr.PUT("/:id/review", h.ReviewDocument)
	}
}

// UploadDocument records a new file for one of the caller's document slots
// @Summary      Upload document
// @Description  Stores the uploaded file reference and moves the document to pending. Visa documents must follow the step order.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UploadDocumentRequest  true  "Upload Payload"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/documents [post]
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req service.UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	doc, err := h.documentService.UploadDocument(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
}

// ReviewDocument approves or rejects a pending document
// @Summary      Review document
// @Description  HR decision on a pending document. The version observed when the document was loaded is required.
// @Tags         hr
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Document ID"
// @Param        payload  body      service.ReviewDocumentRequest  true  "Review Payload"
// @Success      200      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/hr/documents/{id}/review [put]
func (h *DocumentHandler) ReviewDocument(c *gin.Context) {
	var req service.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	doc, err := h.documentService.ReviewDocument(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}

// GetDocument returns one document to its owner or to HR
// @Summary      Get document
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response{data=service.DocumentResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.documentService.GetDocument(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}

// ListMyDocuments returns every document slot the caller has touched
// @Summary      List my documents
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.DocumentResponse}
// @Router       /api/documents [get]
func (h *DocumentHandler) ListMyDocuments(c *gin.Context) {
	docs, err := h.documentService.ListMyDocuments(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, docs))
}

// ListDocuments is the HR review queue
// @Summary      List documents
// @Tags         hr
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "not_started | pending | approved | rejected"
// @Param        category  query     string  false  "onboarding | visa"
// @Param        type      query     string  false  "Document type"
// @Param        user_id   query     string  false  "Owner ID"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/hr/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	p := pagination.Parse(c)
	docs, total, err := h.documentService.ListDocuments(c.Request.Context(), middleware.IdentityFrom(c), service.DocumentListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Type:     c.Query("type"),
		UserID:   c.Query("user_id"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	}))
}

// GetVisaProgress summarizes the caller's visa step sequence
// @Summary      Visa progress
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.VisaProgressResponse}
// @Router       /api/documents/visa-progress [get]
func (h *DocumentHandler) GetVisaProgress(c *gin.Context) {
	progress, err := h.documentService.GetVisaProgress(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, progress))
}

// CreateUploadURL presigns a direct upload to object storage
// @Summary      Presigned upload URL
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UploadURLRequest  true  "File to upload"
// @Success      200      {object}  response.Response{data=service.PresignedURLResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/documents/upload-url [post]
func (h *DocumentHandler) CreateUploadURL(c *gin.Context) {
	var req service.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.documentService.CreateUploadURL(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CreateDownloadURL presigns a download of the stored file
// @Summary      Presigned download URL
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response{data=service.PresignedURLResponse}
// @Router       /api/documents/{id}/download-url [get]
func (h *DocumentHandler) CreateDownloadURL(c *gin.Context) {
	res, err := h.documentService.CreateDownloadURL(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
