// file: internal/server/middleware/viewer_test.go
// version: 2.0.0
// guid: 3c1e5a57-2f8b-4d8e-9a61-6b0f4e2d7c18

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestViewerFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"none", func(r *http.Request) {}, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer reader-1") }, "reader-1"},
		{"header", func(r *http.Request) { r.Header.Set(ViewerHeader, " reader-2 ") }, "reader-2"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: ViewerCookieName, Value: "reader-3"}) }, "reader-3"},
		{"bearer wins", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer first")
			r.Header.Set(ViewerHeader, "second")
		}, "first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.want, ViewerFromRequest(req))
		})
	}
	assert.Equal(t, "", ViewerFromRequest(nil))
}

func TestViewerMiddleware(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Viewer("owner-1"))
	router.GET("/who", func(c *gin.Context) {
		viewer, ok := ViewerID(c)
		assert.True(t, ok)
		c.String(http.StatusOK, viewer)
	})

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "owner-1", resp.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(ViewerHeader, "friend@example.com")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, "friend@example.com", resp.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(ViewerHeader, "bad viewer/../x")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestViewerIDMissing(t *testing.T) {
	t.Parallel()

	_, ok := ViewerID(nil)
	assert.False(t, ok)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok = ViewerID(c)
	assert.False(t, ok)
}
