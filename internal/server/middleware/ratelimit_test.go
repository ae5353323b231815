// file: internal/server/middleware/ratelimit_test.go
// version: 2.0.0
// guid: b31f3de0-b0bc-4cbf-8448-7309df38f7c0

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewIPRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(0, 0)
	assert.Equal(t, 1, limiter.requestsPerMin)
	assert.Equal(t, 1, limiter.burst)
	assert.Equal(t, 60, limiter.retryAfter())
	assert.Equal(t, 1, NewIPRateLimiter(120, 5).retryAfter())
}

func serveFrom(router *gin.Engine, path, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = addr
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(1, 1, "/health")
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/limited", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serveFrom(router, "/limited", "192.0.2.1:1234").Code)

	resp := serveFrom(router, "/limited", "192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Contains(t, resp.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))

	// Exempt paths are never limited.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serveFrom(router, "/health", "192.0.2.1:1234").Code)
	}

	// Different IP should have its own bucket.
	assert.Equal(t, http.StatusOK, serveFrom(router, "/limited", "198.51.100.3:4321").Code)
	assert.Equal(t, 2, limiter.Clients())
}
