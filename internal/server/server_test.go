// file: internal/server/server_test.go
// version: 2.1.0
// guid: 0f4b8433-d4d3-40e9-8214-e7f023262638

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/libshelf/internal/importer"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/server/middleware"
	"github.com/jdfalk/libshelf/internal/storage"
	"github.com/jdfalk/libshelf/internal/testutil"
)

type fakeDegraded struct {
	degraded bool
	err      error
}

func (f fakeDegraded) Degraded() (bool, error) { return f.degraded, f.err }

func newTestServer(t *testing.T) (*Server, *testutil.IntegrationEnv) {
	t.Helper()
	env := testutil.SetupIntegration(t)
	srv := NewServer(Deps{
		Library:  env.Library,
		Likes:    env.Likes,
		Settings: env.Store,
		Hub:      env.Hub,
	})
	return srv, env
}

func do(t *testing.T, srv *Server, method, path string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp := httptest.NewRecorder()
	srv.Router().ServeHTTP(resp, req)
	return resp
}

func doJSON(t *testing.T, srv *Server, method, path string, payload any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return do(t, srv, method, path, bytes.NewReader(data), header...)
}

// decodeData unmarshals the "data" member of a success envelope.
func decodeData(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func decodeList[T any](t *testing.T, resp *httptest.ResponseRecorder) ([]T, int) {
	t.Helper()
	var list struct {
		Items []T `json:"items"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list), resp.Body.String())
	return list.Items, list.Count
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	srv, env := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, storage.BackendLocal, health.Backend)
	assert.Equal(t, env.OwnerID, health.LibraryID)
	assert.NotEmpty(t, resp.Header().Get(RequestIDHeader))

	srv.degraded = fakeDegraded{degraded: true, err: errors.New("cloud unreachable")}
	resp = do(t, srv, http.MethodGet, "/api/v1/health", nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "cloud unreachable", health.Error)
}

func TestCategoriesAndClassify(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	cats, count := decodeList[models.Category](t, resp)
	assert.Equal(t, len(models.Categories), count)
	assert.Len(t, cats, len(models.Categories))

	tests := []struct {
		name string
		req  ClassifyRequest
		want int
	}{
		{"fantasy novel", ClassifyRequest{Text: "판타지 소설"}, 7},
		{"recipe label", ClassifyRequest{Labels: []string{"", "요리 레시피"}}, 4},
		{"nothing matches", ClassifyRequest{Text: "zzz"}, models.Unclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv, http.MethodPost, "/api/v1/classify", tt.req)
			require.Equal(t, http.StatusOK, resp.Code)
			var out ClassifyResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
			assert.Equal(t, tt.want, out.Category)
			assert.Equal(t, models.CategoryName(tt.want), out.Name)
		})
	}

	resp = doJSON(t, srv, http.MethodPost, "/api/v1/classify", ClassifyRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, resp).Code)
}

func TestBookLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/v1/books", models.NewBook{Title: "데미안", Author: "헤르만 헤세", Category: 7})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var book models.Book
	decodeData(t, resp, &book)
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, 0, book.Likes)
	assert.Equal(t, 7, book.Category)

	resp = do(t, srv, http.MethodGet, "/api/v1/books/"+book.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, srv, http.MethodPatch, "/api/v1/books/"+book.ID, map[string]any{"rating": 5})
	require.Equal(t, http.StatusOK, resp.Code)
	var updated models.Book
	decodeData(t, resp, &updated)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "데미안", updated.Title)

	resp = doJSON(t, srv, http.MethodPatch, "/api/v1/books/missing", map[string]any{"rating": 5})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)

	resp = doJSON(t, srv, http.MethodPatch, "/api/v1/books/"+book.ID, map[string]any{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, srv, http.MethodDelete, "/api/v1/books/"+book.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var del DeleteResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &del))
	assert.True(t, del.Deleted)

	resp = do(t, srv, http.MethodGet, "/api/v1/books/"+book.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateBookValidation(t *testing.T) {
	srv, env := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/v1/books", models.NewBook{Author: "무명"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, resp).Code)

	resp = do(t, srv, http.MethodPost, "/api/v1/books", strings.NewReader("{not json"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	books, err := env.Library.All(t.Context())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestCreateBookWithoutCategoryIsUnclassified(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/v1/books", strings.NewReader(`{"title":"데미안","author":"헤르만 헤세"}`))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"category":-1`)
	var book models.Book
	decodeData(t, resp, &book)
	assert.Equal(t, models.Unclassified, book.Category)

	resp = do(t, srv, http.MethodGet, "/api/v1/books?category=0", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	_, count := decodeList[models.Book](t, resp)
	assert.Zero(t, count)

	resp = do(t, srv, http.MethodPost, "/api/v1/books", strings.NewReader(`{"title":"백과사전","author":"편집부","category":0}`))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	decodeData(t, resp, &book)
	assert.Equal(t, 0, book.Category)
}

func TestListBooks(t *testing.T) {
	srv, env := newTestServer(t)
	demian := env.AddBook(models.NewBook{Title: "데미안", Author: "헤르만 헤세", Category: 7, Rating: 5, Pages: 248})
	env.AddBook(models.NewBook{Title: "코스모스", Author: "칼 세이건", Category: 4, Rating: 4, Pages: 700})
	latest := env.AddBook(models.NewBook{Title: "수레바퀴 아래서", Author: "헤르만 헤세", Category: 7, Rating: 3})

	resp := do(t, srv, http.MethodGet, "/api/v1/books", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	books, count := decodeList[models.Book](t, resp)
	require.Equal(t, 3, count)
	assert.Equal(t, latest.ID, books[0].ID)

	resp = do(t, srv, http.MethodGet, "/api/v1/books?category=7&sort=rating", nil)
	books, _ = decodeList[models.Book](t, resp)
	require.Len(t, books, 2)
	assert.Equal(t, demian.ID, books[0].ID)

	resp = do(t, srv, http.MethodGet, "/api/v1/books?pages_min=500", nil)
	books, _ = decodeList[models.Book](t, resp)
	// books without a page count pass the pages filter
	assert.Len(t, books, 2)

	resp = do(t, srv, http.MethodGet, "/api/v1/books?search=헤세&limit=1", nil)
	books, _ = decodeList[models.Book](t, resp)
	require.Len(t, books, 1)
	assert.Equal(t, latest.ID, books[0].ID)

	resp = do(t, srv, http.MethodGet, "/api/v1/books?sort=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, srv, http.MethodGet, "/api/v1/books/recent?limit=2", nil)
	books, _ = decodeList[models.Book](t, resp)
	assert.Len(t, books, 2)

	resp = do(t, srv, http.MethodGet, "/api/v1/books/"+demian.ID+"/similar", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	books, _ = decodeList[models.Book](t, resp)
	require.Len(t, books, 1)
	assert.Equal(t, latest.ID, books[0].ID)
}

func TestToggleLike(t *testing.T) {
	srv, env := newTestServer(t)
	book := env.AddBook(models.NewBook{Title: "데미안", Author: "헤르만 헤세", Category: 7})
	path := "/api/v1/books/" + book.ID + "/like"

	resp := do(t, srv, http.MethodPost, path, nil, middleware.ViewerHeader, "friend-1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var like LikeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &like))
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)

	resp = do(t, srv, http.MethodGet, "/api/v1/likes", nil, middleware.ViewerHeader, "friend-1")
	ids, _ := decodeList[string](t, resp)
	assert.Equal(t, []string{book.ID}, ids)

	resp = do(t, srv, http.MethodGet, "/api/v1/likes", nil)
	ids, count := decodeList[string](t, resp)
	assert.Empty(t, ids)
	assert.Equal(t, 0, count)

	resp = do(t, srv, http.MethodPost, path, nil, middleware.ViewerHeader, "friend-1")
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &like))
	assert.False(t, like.Liked)
	assert.Equal(t, 0, like.Likes)

	resp = do(t, srv, http.MethodPost, "/api/v1/books/missing/like", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLibraryInfoRegistryAndShare(t *testing.T) {
	srv, env := newTestServer(t)
	env.AddBook(models.NewBook{Title: "데미안", Author: "헤르만 헤세", Category: 7})

	resp := do(t, srv, http.MethodGet, "/api/v1/library", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	public := models.VisibilityPublic
	name := "테스트 서재"
	resp = doJSON(t, srv, http.MethodPut, "/api/v1/library", models.LibraryInfoPatch{Name: &name, Visibility: &public})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var info models.LibraryInfo
	decodeData(t, resp, &info)
	assert.Equal(t, name, info.Name)

	resp = do(t, srv, http.MethodGet, "/api/v1/libraries?q=테스트", nil)
	entries, _ := decodeList[models.LibraryRegistryEntry](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, env.OwnerID, entries[0].ID)
	assert.Equal(t, 1, entries[0].BookCount)

	resp = do(t, srv, http.MethodGet, "/api/v1/libraries/"+env.OwnerID, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = do(t, srv, http.MethodGet, "/api/v1/libraries/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, srv, http.MethodGet, "/api/v1/library/stats", nil)
	var stats models.Stats
	decodeData(t, resp, &stats)
	assert.Equal(t, 1, stats.TotalBooks)

	resp = do(t, srv, http.MethodPost, "/api/v1/library/share", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var link struct {
		LibraryID string `json:"library_id"`
		URL       string `json:"url"`
	}
	decodeData(t, resp, &link)
	assert.Equal(t, testutil.ShareBaseURL+"index.html?library="+env.OwnerID, link.URL)

	resp = do(t, srv, http.MethodGet, "/api/v1/libraries/"+env.OwnerID+"/shared", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var shared struct {
		Books []models.Book `json:"books"`
		URL   string        `json:"url"`
	}
	decodeData(t, resp, &shared)
	assert.Len(t, shared.Books, 1)
	assert.Equal(t, link.URL, shared.URL)

	resp = do(t, srv, http.MethodGet, "/api/v1/libraries/nobody/shared", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSettings(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var settings models.Settings
	decodeData(t, resp, &settings)
	assert.Equal(t, models.ThemeLight, settings.Theme)

	resp = doJSON(t, srv, http.MethodPut, "/api/v1/settings", models.Settings{Theme: models.ThemeDark})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, srv, http.MethodGet, "/api/v1/settings", nil)
	decodeData(t, resp, &settings)
	assert.Equal(t, models.ThemeDark, settings.Theme)

	resp = doJSON(t, srv, http.MethodPut, "/api/v1/settings", map[string]string{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestImportPage(t *testing.T) {
	srv, env := newTestServer(t)
	page, err := os.ReadFile(filepath.Join(testutil.FindRepoRoot(t), "testdata", "pages", "demian.html"))
	require.NoError(t, err)

	resp := do(t, srv, http.MethodPost, "/api/v1/import/page", bytes.NewReader(page))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var preview struct {
		Page  importer.Page  `json:"page"`
		Book  models.NewBook `json:"book"`
		Saved bool           `json:"saved"`
	}
	decodeData(t, resp, &preview)
	assert.False(t, preview.Saved)
	assert.Equal(t, "데미안", preview.Book.Title)
	assert.Equal(t, 7, preview.Page.Category)

	books, err := env.Library.All(t.Context())
	require.NoError(t, err)
	assert.Empty(t, books)

	resp = do(t, srv, http.MethodPost, "/api/v1/import/page?save=true", bytes.NewReader(page))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	books, err = env.Library.All(t.Context())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "헤르만 헤세", books[0].Author)

	resp = do(t, srv, http.MethodPost, "/api/v1/import/page", strings.NewReader("<html><body>blocked</body></html>"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	failure := decodeError(t, resp)
	assert.Equal(t, "IMPORT_FAILED", failure.Code)
	assert.Equal(t, importer.FailureHint, failure.Hint)
}

func TestImportCSV(t *testing.T) {
	srv, env := newTestServer(t)
	data, err := os.ReadFile(filepath.Join(testutil.FindRepoRoot(t), "testdata", "books.csv"))
	require.NoError(t, err)

	resp := do(t, srv, http.MethodPost, "/api/v1/import/csv", bytes.NewReader(data))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var result importer.CSVResult
	decodeData(t, resp, &result)
	assert.Len(t, result.Imported, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 4, result.Skipped[0].Line)

	books, err := env.Library.All(t.Context())
	require.NoError(t, err)
	assert.Len(t, books, 2)

	resp = do(t, srv, http.MethodPost, "/api/v1/import/csv", strings.NewReader("name,writer\na,b\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestMetricsAndCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, srv, http.MethodOptions, "/api/v1/books", nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitExemptsHealth(t *testing.T) {
	env := testutil.SetupIntegration(t)
	srv := NewServer(Deps{
		Library:            env.Library,
		Likes:              env.Likes,
		Settings:           env.Store,
		Hub:                env.Hub,
		RateLimitPerMinute: 1,
		RateLimitBurst:     1,
	})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/categories", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, srv, http.MethodGet, "/api/v1/categories", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/health", nil).Code)
}
