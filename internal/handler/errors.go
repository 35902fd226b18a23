package handler

import (
	"errors"
	"net/http"

	"hrportal/internal/service"
	"hrportal/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps a service error to its HTTP status. Unknown errors are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidDocumentType),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConcurrentModification),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrAlreadyApproved),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrVisaOrderViolation):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError renders err in the standard envelope. Internal details stay in the request log.
func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "Internal server error"
	}
	c.JSON(code, response.Error(code, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}
