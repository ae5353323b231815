// file: internal/server/error_handler.go
// version: 2.1.0
// guid: 5d6e7f8a-9b0c-1d2e-3f4a-5b6c7d8e9f0a

package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/libshelf/internal/importer"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/storage"
)

// ErrorResponse provides a consistent error response format
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status int    `json:"status"`
	Hint   string `json:"hint,omitempty"`
}

// SuccessResponse provides a consistent success response format
type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

// RespondWithError sends a standardized error response and logs the error
func RespondWithError(c *gin.Context, statusCode int, message string, code string) {
	logErrorWithContext(c, statusCode, message)

	c.JSON(statusCode, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: statusCode,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error response
func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, message, "BAD_REQUEST")
}

// RespondWithValidationError sends a 400 error for validation failures
func RespondWithValidationError(c *gin.Context, field string, reason string) {
	message := "validation error: " + field
	if reason != "" {
		message = message + " (" + reason + ")"
	}
	RespondWithError(c, http.StatusBadRequest, message, "VALIDATION_ERROR")
}

// RespondWithNotFound sends a 404 Not Found error response
func RespondWithNotFound(c *gin.Context, resourceType string, id string) {
	message := resourceType + " not found"
	if id != "" {
		message = message + ": " + id
	}
	RespondWithError(c, http.StatusNotFound, message, "NOT_FOUND")
}

// RespondWithImportFailed sends a 422 with guidance for entering the book by hand.
func RespondWithImportFailed(c *gin.Context, message string) {
	logErrorWithContext(c, http.StatusUnprocessableEntity, message)
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:  message,
		Code:   "IMPORT_FAILED",
		Status: http.StatusUnprocessableEntity,
		Hint:   importer.FailureHint,
	})
}

// RespondWithInternalError sends a 500 Internal Server Error response
func RespondWithInternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// RespondWithServiceError maps a service error onto the matching response.
func RespondWithServiceError(c *gin.Context, err error, resourceType, id string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		RespondWithValidationError(c, verr.Field, verr.Reason)
	case errors.Is(err, storage.ErrNotFound):
		RespondWithNotFound(c, resourceType, id)
	case errors.Is(err, importer.ErrImportFailed):
		RespondWithImportFailed(c, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nobody is listening for a body.
		c.Status(499)
	default:
		RespondWithInternalError(c, err.Error())
	}
}

// RespondWithSuccess sends a successful response with data
func RespondWithSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, SuccessResponse{
		Data: data,
	})
}

// RespondWithList sends a successful list response
func RespondWithList(c *gin.Context, items any, count int, limit int) {
	c.JSON(http.StatusOK, NewListResponse(items, count, limit))
}

// RespondWithCreated sends a 201 Created response
func RespondWithCreated(c *gin.Context, data any) {
	RespondWithSuccess(c, http.StatusCreated, data)
}

// RespondWithOK sends a 200 OK response
func RespondWithOK(c *gin.Context, data any) {
	RespondWithSuccess(c, http.StatusOK, data)
}

// logErrorWithContext logs an error with request context for debugging
func logErrorWithContext(c *gin.Context, statusCode int, message string) {
	method := c.Request.Method
	path := c.Request.URL.Path
	clientIP := c.ClientIP()

	logLevel := "WARN"
	if statusCode >= 500 {
		logLevel = "ERROR"
	}

	log.Printf("[%s] %s %s %d - %s (from %s)", logLevel, method, path, statusCode, message, clientIP)
}

// HandleBindError handles JSON binding errors with a consistent response
func HandleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "required") || strings.Contains(errMsg, "binding") {
		RespondWithValidationError(c, "request body", errMsg)
	} else {
		RespondWithBadRequest(c, "invalid request: "+errMsg)
	}
	return true
}

// ParseQueryInt parses an integer query parameter with a default value
func ParseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.DefaultQuery(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseQueryIntPtr parses an optional integer query parameter, returning nil if not present or invalid
func ParseQueryIntPtr(c *gin.Context, key string) *int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return nil
	}
	return &value
}

// ParseQueryBool parses a boolean query parameter with a default value
func ParseQueryBool(c *gin.Context, key string, defaultValue bool) bool {
	valueStr := c.DefaultQuery(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.ToLower(valueStr) == "true" || valueStr == "1"
}

// ParseLimit reads the "limit" query parameter, clamped to [1, 1000].
func ParseLimit(c *gin.Context, defaultValue int) int {
	limit := ParseQueryInt(c, "limit", defaultValue)
	if limit < 1 {
		limit = defaultValue
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit
}
