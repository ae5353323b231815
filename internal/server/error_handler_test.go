// file: internal/server/error_handler_test.go
// version: 2.0.0
// guid: 6e7f8a9b-0c1d-2e3f-4a5b-6c7d8e9f0a1b

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jdfalk/libshelf/internal/importer"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/storage"
)

func newTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", &models.ValidationError{Field: "rating", Reason: "must be between 0 and 5"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", fmt.Errorf("book b1: %w", storage.ErrNotFound), http.StatusNotFound, "book not found: b1"},
		{"import failed", fmt.Errorf("%w: no book details", importer.ErrImportFailed), http.StatusUnprocessableEntity, "IMPORT_FAILED"},
		{"canceled", context.Canceled, 499, ""},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext("/")
			RespondWithServiceError(c, tt.err, "book", "b1")
			c.Writer.WriteHeaderNow()
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRespondWithImportFailedHint(t *testing.T) {
	c, w := newTestContext("/")
	RespondWithImportFailed(c, "import failed")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"hint"`)
}

func TestRespondWithValidationError(t *testing.T) {
	c, w := newTestContext("/")
	RespondWithValidationError(c, "title", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"validation error: title","code":"VALIDATION_ERROR","status":400}`, w.Body.String())
}

func TestRespondWithList(t *testing.T) {
	c, w := newTestContext("/")
	RespondWithList(c, []string{"a", "b"}, 2, 50)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":["a","b"],"count":2,"limit":50}`, w.Body.String())
}

func TestRespondWithCreated(t *testing.T) {
	c, w := newTestContext("/")
	RespondWithCreated(c, gin.H{"id": "b1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"id":"b1"}}`, w.Body.String())
}

func TestHandleBindError(t *testing.T) {
	c, _ := newTestContext("/")
	assert.False(t, HandleBindError(c, nil))

	c, w := newTestContext("/")
	assert.True(t, HandleBindError(c, errors.New("unexpected EOF")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BAD_REQUEST")

	c, w = newTestContext("/")
	assert.True(t, HandleBindError(c, errors.New("Key: 'title' Error:Field validation for 'title' failed on the 'required' tag")))
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestParseQueryHelpers(t *testing.T) {
	c, _ := newTestContext("/?n=7&bad=x&flag=1&off=false")
	assert.Equal(t, 7, ParseQueryInt(c, "n", 3))
	assert.Equal(t, 3, ParseQueryInt(c, "bad", 3))
	assert.Equal(t, 3, ParseQueryInt(c, "missing", 3))

	if assert.NotNil(t, ParseQueryIntPtr(c, "n")) {
		assert.Equal(t, 7, *ParseQueryIntPtr(c, "n"))
	}
	assert.Nil(t, ParseQueryIntPtr(c, "bad"))
	assert.Nil(t, ParseQueryIntPtr(c, "missing"))

	assert.True(t, ParseQueryBool(c, "flag", false))
	assert.False(t, ParseQueryBool(c, "off", true))
	assert.True(t, ParseQueryBool(c, "missing", true))
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"/", 8},
		{"/?limit=3", 3},
		{"/?limit=0", 8},
		{"/?limit=-4", 8},
		{"/?limit=5000", 1000},
	}
	for _, tt := range tests {
		c, _ := newTestContext(tt.query)
		assert.Equal(t, tt.want, ParseLimit(c, 8), tt.query)
	}
}
