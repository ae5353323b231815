// file: internal/server/handlers.go
// version: 1.1.0
// guid: a0c8fae1-e8db-4747-b46e-d2032cd3cf53

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/libshelf/internal/classifier"
	"github.com/jdfalk/libshelf/internal/importer"
	"github.com/jdfalk/libshelf/internal/library"
	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/server/middleware"
)

func (s *Server) viewer(c *gin.Context) string {
	if viewer, ok := middleware.ViewerID(c); ok {
		return viewer
	}
	return s.library.Owner()
}

func (s *Server) listCategories(c *gin.Context) {
	RespondWithList(c, models.Categories, len(models.Categories), 0)
}

func (s *Server) classify(c *gin.Context) {
	var req ClassifyRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	labels := append([]string{req.Text}, req.Labels...)
	if strings.TrimSpace(strings.Join(labels, "")) == "" {
		RespondWithValidationError(c, "text", "text or labels is required")
		return
	}
	category := classifier.ClassifyAll(labels...)
	c.JSON(http.StatusOK, ClassifyResponse{Category: category, Name: models.CategoryName(category)})
}

func (s *Server) listBooks(c *gin.Context) {
	q := library.Query{
		Category:  ParseQueryIntPtr(c, "category"),
		Search:    c.Query("search"),
		Fuzzy:     ParseQueryBool(c, "fuzzy", false),
		Sort:      c.Query("sort"),
		Status:    models.ReadingStatus(c.Query("status")),
		RatingMin: ParseQueryIntPtr(c, "rating_min"),
		RatingMax: ParseQueryIntPtr(c, "rating_max"),
		PagesMin:  ParseQueryIntPtr(c, "pages_min"),
		PagesMax:  ParseQueryIntPtr(c, "pages_max"),
	}
	if c.Query("limit") != "" {
		q.Limit = ParseLimit(c, 50)
	}

	start := time.Now()
	books, err := s.library.List(c.Request.Context(), q)
	LogStoreOperation("ListBooks", s.library.Backend(), time.Since(start), len(books), err)
	if err != nil {
		RespondWithServiceError(c, err, "books", "")
		return
	}
	RespondWithList(c, books, len(books), q.Limit)
}

func (s *Server) recentBooks(c *gin.Context) {
	limit := ParseLimit(c, library.DefaultRecentLimit)
	books, err := s.library.Recent(c.Request.Context(), limit)
	if err != nil {
		RespondWithServiceError(c, err, "books", "")
		return
	}
	RespondWithList(c, books, len(books), limit)
}

func (s *Server) popularBooks(c *gin.Context) {
	limit := ParseLimit(c, library.DefaultPopularLimit)
	books, err := s.library.Popular(c.Request.Context(), limit)
	if err != nil {
		RespondWithServiceError(c, err, "books", "")
		return
	}
	RespondWithList(c, books, len(books), limit)
}

func (s *Server) createBook(c *gin.Context) {
	op := operationFor(c, "createBook")
	// absent fields keep these values
	nb := models.NewBook{Category: models.Unclassified}
	if HandleBindError(c, c.ShouldBindJSON(&nb)) {
		return
	}
	book, err := s.library.Add(c.Request.Context(), nb)
	if err != nil {
		op.LogError(http.StatusBadRequest, err)
		RespondWithServiceError(c, err, "book", "")
		return
	}
	op.SetResourceID(book.ID)
	op.LogSuccess(http.StatusCreated)
	RespondWithCreated(c, book)
}

func (s *Server) getBook(c *gin.Context) {
	id := c.Param("id")
	book, err := s.library.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithServiceError(c, err, "book", id)
		return
	}
	RespondWithOK(c, book)
}

func (s *Server) updateBook(c *gin.Context) {
	id := c.Param("id")
	op := operationFor(c, "updateBook")
	op.SetResourceID(id)

	var patch models.BookPatch
	if HandleBindError(c, c.ShouldBindJSON(&patch)) {
		return
	}
	book, err := s.library.Update(c.Request.Context(), id, patch)
	if err != nil {
		op.LogError(http.StatusBadRequest, err)
		RespondWithServiceError(c, err, "book", id)
		return
	}
	op.LogSuccess(http.StatusOK)
	RespondWithOK(c, book)
}

func (s *Server) deleteBook(c *gin.Context) {
	id := c.Param("id")
	if err := s.library.Delete(c.Request.Context(), id); err != nil {
		RespondWithServiceError(c, err, "book", id)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{Deleted: true, ID: id})
}

func (s *Server) similarBooks(c *gin.Context) {
	id := c.Param("id")
	limit := ParseLimit(c, library.DefaultSimilarLimit)
	books, err := s.library.Similar(c.Request.Context(), id, limit)
	if err != nil {
		RespondWithServiceError(c, err, "book", id)
		return
	}
	RespondWithList(c, books, len(books), limit)
}

// toggleLike likes or unlikes a book. The "library" query parameter picks
// another owner's library; the default is the served one.
func (s *Server) toggleLike(c *gin.Context) {
	id := c.Param("id")
	owner := c.DefaultQuery("library", s.library.Owner())
	op := operationFor(c, "toggleLike")
	op.SetResourceID(id)
	op.AddDetail("owner", owner)

	res, err := s.likes.Toggle(c.Request.Context(), s.viewer(c), owner, id)
	if err != nil {
		op.LogError(http.StatusInternalServerError, err)
		RespondWithServiceError(c, err, "book", id)
		return
	}
	op.LogSuccess(http.StatusOK)
	c.JSON(http.StatusOK, LikeResponse{BookID: id, Liked: res.Added, Likes: res.Likes})
}

func (s *Server) listLikes(c *gin.Context) {
	ids, err := s.likes.Liked(c.Request.Context(), s.viewer(c))
	if err != nil {
		RespondWithServiceError(c, err, "likes", "")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	RespondWithList(c, ids, len(ids), 0)
}

func (s *Server) getLibrary(c *gin.Context) {
	info, err := s.library.Info(c.Request.Context())
	if err != nil {
		RespondWithServiceError(c, err, "library", s.library.Owner())
		return
	}
	RespondWithOK(c, info)
}

func (s *Server) updateLibrary(c *gin.Context) {
	var patch models.LibraryInfoPatch
	if HandleBindError(c, c.ShouldBindJSON(&patch)) {
		return
	}
	info, err := s.library.SaveInfo(c.Request.Context(), patch)
	if err != nil {
		RespondWithServiceError(c, err, "library", s.library.Owner())
		return
	}
	RespondWithOK(c, info)
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.library.Stats(c.Request.Context())
	if err != nil {
		RespondWithServiceError(c, err, "stats", "")
		return
	}
	RespondWithOK(c, stats)
}

func (s *Server) shareLibrary(c *gin.Context) {
	link, err := s.library.Share(c.Request.Context())
	if err != nil {
		RespondWithServiceError(c, err, "library", s.library.Owner())
		return
	}
	RespondWithOK(c, link)
}

func (s *Server) searchLibraries(c *gin.Context) {
	entries, err := s.library.SearchLibraries(c.Request.Context(), c.Query("q"))
	if err != nil {
		RespondWithServiceError(c, err, "libraries", "")
		return
	}
	if entries == nil {
		entries = []models.LibraryRegistryEntry{}
	}
	RespondWithList(c, entries, len(entries), 0)
}

func (s *Server) getLibraryEntry(c *gin.Context) {
	id := c.Param("id")
	entry, err := s.library.LibraryEntry(c.Request.Context(), id)
	if err != nil {
		RespondWithServiceError(c, err, "library", id)
		return
	}
	RespondWithOK(c, entry)
}

func (s *Server) getSharedLibrary(c *gin.Context) {
	id := c.Param("id")
	shared, err := s.library.Shared(c.Request.Context(), id)
	if err != nil {
		RespondWithServiceError(c, err, "shared library", id)
		return
	}
	RespondWithOK(c, SharedLibraryResponse{SharedLibrary: shared, URL: s.library.ShareURL(id)})
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.settings.GetSettings(c.Request.Context())
	if err != nil {
		RespondWithServiceError(c, err, "settings", "")
		return
	}
	RespondWithOK(c, settings)
}

func (s *Server) updateSettings(c *gin.Context) {
	var settings models.Settings
	if HandleBindError(c, c.ShouldBindJSON(&settings)) {
		return
	}
	if err := settings.Validate(); err != nil {
		RespondWithServiceError(c, err, "settings", "")
		return
	}
	if err := s.settings.SaveSettings(c.Request.Context(), settings); err != nil {
		RespondWithServiceError(c, err, "settings", "")
		return
	}
	RespondWithOK(c, settings)
}

// ImportPageResponse is the extracted page and the book it yields. Book
// is stored only when the request asked for it with save=true.
type ImportPageResponse struct {
	Page  *importer.Page `json:"page"`
	Book  any            `json:"book"`
	Saved bool           `json:"saved"`
}

// importPage reads a product page from the request body.
func (s *Server) importPage(c *gin.Context) {
	op := operationFor(c, "importPage")
	page, err := importer.ExtractPage(c.Request.Body)
	if err != nil {
		metrics.IncImport("page", "failed")
		op.LogError(http.StatusUnprocessableEntity, err)
		RespondWithServiceError(c, err, "page", "")
		return
	}
	op.AddDetail("fields", page.Fields())

	if !ParseQueryBool(c, "save", false) {
		metrics.IncImport("page", "ok")
		op.LogSuccess(http.StatusOK)
		RespondWithOK(c, ImportPageResponse{Page: page, Book: page.NewBook()})
		return
	}

	book, err := s.library.Add(c.Request.Context(), page.NewBook())
	if err != nil {
		metrics.IncImport("page", "failed")
		op.LogError(http.StatusBadRequest, err)
		RespondWithServiceError(c, err, "book", "")
		return
	}
	metrics.IncImport("page", "ok")
	op.SetResourceID(book.ID)
	op.LogSuccess(http.StatusCreated)
	RespondWithCreated(c, ImportPageResponse{Page: page, Book: book, Saved: true})
}

// importCSV adds every valid row of a CSV body and reports skipped rows.
func (s *Server) importCSV(c *gin.Context) {
	logger := NewServiceLogger("importer", RequestID(c))
	result, err := importer.ImportCSV(c.Request.Context(), s.library, c.Request.Body, importer.CSVOptions{
		Hub:       s.hub,
		LibraryID: s.library.Owner(),
	})
	if err != nil {
		logger.LogError("csv", err)
		RespondWithServiceError(c, err, "csv", "")
		return
	}
	logger.LogOperation("csv", map[string]any{
		"imported": len(result.Imported),
		"skipped":  len(result.Skipped),
	})
	RespondWithOK(c, result)
}
