// file: internal/server/logger.go
// version: 2.0.0
// guid: 1d2e3f4a-5b6c-7d8e-9f0a-1b2c3d4e5f6a

package server

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ulid "github.com/oklog/ulid/v2"
)

// RequestIDHeader carries the id that ties a request's log lines together.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "libshelf.request_id"

// requestIDMiddleware reuses a client supplied request id or mints one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestID returns the id assigned by requestIDMiddleware.
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}

// OperationLogger tracks the lifecycle of a handler operation
type OperationLogger struct {
	handler    string
	method     string
	path       string
	startTime  time.Time
	requestID  string
	resourceID string
	details    map[string]any
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(handler, method, path, requestID string) *OperationLogger {
	return &OperationLogger{
		handler:   handler,
		method:    method,
		path:      path,
		startTime: time.Now(),
		requestID: requestID,
		details:   make(map[string]any),
	}
}

// operationFor builds an OperationLogger from the request in c.
func operationFor(c *gin.Context, handler string) *OperationLogger {
	return NewOperationLogger(handler, c.Request.Method, c.FullPath(), RequestID(c))
}

// SetResourceID sets the resource ID being operated on
func (ol *OperationLogger) SetResourceID(id string) {
	ol.resourceID = id
}

// AddDetail adds a contextual detail to the operation log
func (ol *OperationLogger) AddDetail(key string, value any) {
	ol.details[key] = value
}

func (ol *OperationLogger) suffix() string {
	msg := ""
	if ol.resourceID != "" {
		msg = fmt.Sprintf(" (resource: %s)", ol.resourceID)
	}
	if len(ol.details) > 0 {
		msg += fmt.Sprintf(" %v", ol.details)
	}
	return fmt.Sprintf("%s [request-id: %s]", msg, ol.requestID)
}

// LogSuccess logs the successful completion of the operation
func (ol *OperationLogger) LogSuccess(statusCode int) {
	log.Printf("[INFO] %s %s %s (%d) in %v%s",
		ol.handler, ol.method, ol.path, statusCode, time.Since(ol.startTime), ol.suffix())
}

// LogError logs an error that occurred during the operation
func (ol *OperationLogger) LogError(statusCode int, err error) {
	log.Printf("[ERROR] %s %s %s (%d) in %v: %v%s",
		ol.handler, ol.method, ol.path, statusCode, time.Since(ol.startTime), err, ol.suffix())
}

// LogWarning logs a warning message
func (ol *OperationLogger) LogWarning(message string) {
	log.Printf("[WARN] %s: %s [request-id: %s]", ol.handler, message, ol.requestID)
}

// ServiceLogger provides logging for service layer operations
type ServiceLogger struct {
	serviceName string
	requestID   string
}

// NewServiceLogger creates a new service logger
func NewServiceLogger(serviceName, requestID string) *ServiceLogger {
	return &ServiceLogger{
		serviceName: serviceName,
		requestID:   requestID,
	}
}

// LogOperation logs the execution of a service operation
func (sl *ServiceLogger) LogOperation(operation string, details map[string]any) {
	detailStr := ""
	if len(details) > 0 {
		detailStr = fmt.Sprintf(" %v", details)
	}
	log.Printf("[INFO] %s.%s%s [request-id: %s]",
		sl.serviceName, operation, detailStr, sl.requestID)
}

// LogError logs an error from the service
func (sl *ServiceLogger) LogError(operation string, err error) {
	log.Printf("[ERROR] %s.%s: %v [request-id: %s]",
		sl.serviceName, operation, err, sl.requestID)
}

// LogStoreOperation logs a store call with its duration and result size.
func LogStoreOperation(operation, backend string, duration time.Duration, items int, err error) {
	if err != nil {
		log.Printf("[ERROR] %s on %s failed in %v: %v", operation, backend, duration, err)
		return
	}
	log.Printf("[DEBUG] %s on %s completed in %v (%d items)", operation, backend, duration, items)
}
