// Package handler implements the gin handlers of the serving API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phc/analytics-backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message, getRequestID(c)))
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, message, getRequestID(c)))
}

// DomainError maps a domain error to its HTTP status and sends it.
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	status, code := dto.StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak internals on unexpected failures.
		message = "Internal server error"
	}
	c.JSON(status, dto.NewErrorResponse(code, message, getRequestID(c)))
}
