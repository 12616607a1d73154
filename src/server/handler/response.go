package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error envelope of every JSON endpoint
type ErrorResponse struct {
	// Human-readable error message
	Error string `json:"error"`
	// Machine-readable error code (e.g., INVALID_INPUT, NOT_FOUND)
	Code   string `json:"code"`
	Status int    `json:"status"`
	// Additional error context (field names)
	Details map[string]interface{} `json:"details,omitempty"`
}

// Common error codes
const (
	ErrInvalidInput    = "INVALID_INPUT"
	ErrNotFound        = "NOT_FOUND"
	ErrForbidden       = "FORBIDDEN"
	ErrRateLimited     = "RATE_LIMITED"
	ErrInternal        = "INTERNAL_ERROR"
	ErrExternalService = "EXTERNAL_SERVICE_ERROR"
	ErrCanceled        = "REQUEST_CANCELED"
)

// RespondError sends a standardized error response
// Format: {"error": "Human readable message", "code": "ERROR_CODE", "status": 400, "details": {}}
func RespondError(c *gin.Context, status int, code string, message string, details ...map[string]interface{}) {
	if shouldRespondText(c) {
		c.String(status, "%s: %s\n", code, message)
		return
	}

	response := ErrorResponse{
		Error:  message,
		Code:   code,
		Status: status,
	}
	if len(details) > 0 {
		response.Details = details[0]
	}

	c.JSON(status, response)
}

// RespondData sends the item directly without wrapper
func RespondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// shouldRespondText checks for a .txt extension or Accept: text/plain
func shouldRespondText(c *gin.Context) bool {
	if filepath.Ext(c.Request.URL.Path) == ".txt" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/plain")
}

// InvalidInput returns a 400 Invalid Input error
func InvalidInput(c *gin.Context, message string, details ...map[string]interface{}) {
	RespondError(c, http.StatusBadRequest, ErrInvalidInput, message, details...)
}

// NotFound returns a 404 Not Found error
func NotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, ErrNotFound, message)
}

// RateLimited sends 429 Too Many Requests
func RateLimited(c *gin.Context) {
	RespondError(c, http.StatusTooManyRequests, ErrRateLimited, "Too many requests. Please try again later.")
}

// InternalError returns a 500 Internal Server Error
func InternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, ErrInternal, message)
}
