// file: internal/server/middleware/viewer.go
// version: 2.0.0
// guid: 83c42ecb-1df2-4baf-9890-3f91ab4db6fe

package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ViewerHeader carries the id of the person browsing, whose like set
	// is read and toggled.
	ViewerHeader = "X-Libshelf-Viewer"
	// ViewerCookieName is the cookie alternative to ViewerHeader.
	ViewerCookieName = "libshelf_viewer"
	contextViewerKey = "libshelf_viewer"
)

var viewerPattern = regexp.MustCompile(`^[A-Za-z0-9._@:-]{1,128}$`)

// ViewerFromRequest extracts the viewer id from Bearer auth, the viewer
// header or the viewer cookie, in that order.
func ViewerFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}
	if v := strings.TrimSpace(r.Header.Get(ViewerHeader)); v != "" {
		return v
	}
	if cookie, err := r.Cookie(ViewerCookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// Viewer resolves the viewer id for each request, falling back to
// defaultViewer (the library owner) when the request names nobody.
func Viewer(defaultViewer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := ViewerFromRequest(c.Request)
		if viewer == "" {
			viewer = defaultViewer
		}
		if !viewerPattern.MatchString(viewer) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "invalid viewer id",
				"code":   "BAD_REQUEST",
				"status": http.StatusBadRequest,
			})
			c.Abort()
			return
		}
		c.Set(contextViewerKey, viewer)
		c.Next()
	}
}

// ViewerID fetches the viewer id set by Viewer.
func ViewerID(c *gin.Context) (string, bool) {
	if c == nil {
		return "", false
	}
	value, ok := c.Get(contextViewerKey)
	if !ok {
		return "", false
	}
	viewer, ok := value.(string)
	return viewer, ok && viewer != ""
}
