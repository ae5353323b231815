// file: internal/library/service.go
// version: 1.0.0
// guid: 202288d5-e95c-4f09-992e-03a4c41a75bb

// Package library is the catalog service: it validates input, writes
// through the selected store and announces changes on the event hub.
package library

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/storage"
)

const (
	DefaultRecentLimit  = 8
	DefaultPopularLimit = 10
	DefaultSimilarLimit = 4
)

// Service manages the library owned by one principal and reads others'.
type Service struct {
	store        storage.Store
	hub          *events.Hub
	owner        string
	shareBaseURL string
}

// NewService creates a catalog service for owner. hub may be nil.
func NewService(store storage.Store, hub *events.Hub, owner, shareBaseURL string) *Service {
	return &Service{store: store, hub: hub, owner: owner, shareBaseURL: shareBaseURL}
}

// Owner returns the library id this service writes to.
func (s *Service) Owner() string { return s.owner }

// Backend names the store in use.
func (s *Service) Backend() string { return s.store.Backend() }

func (s *Service) emit(t events.EventType, data map[string]any) {
	if s.hub != nil {
		s.hub.Emit(t, s.owner, data)
	}
}

// Add validates nb and stores it.
func (s *Service) Add(ctx context.Context, nb models.NewBook) (*models.Book, error) {
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	book, err := s.store.AddBook(ctx, s.owner, nb)
	if err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}
	log.Printf("[INFO] Added book %s (%q by %s)", book.ID, book.Title, book.Author)
	s.emit(events.BookCreated, map[string]any{"book_id": book.ID})
	return book, nil
}

// Get returns a book or storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.store.GetBook(ctx, s.owner, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}
	return book, nil
}

// Update merges patch into a book. A missing book is storage.ErrNotFound.
func (s *Service) Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	book, err := s.store.UpdateBook(ctx, s.owner, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}
	s.emit(events.BookUpdated, map[string]any{"book_id": id})
	return book, nil
}

// Delete removes a book. Deleting a missing book succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteBook(ctx, s.owner, id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	s.emit(events.BookDeleted, map[string]any{"book_id": id})
	return nil
}

// All returns every book, newest first.
func (s *Service) All(ctx context.Context) ([]models.Book, error) {
	books, err := s.store.ListBooks(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// List returns books matching q.
func (s *Service) List(ctx context.Context, q Query) ([]models.Book, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	books, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return q.Apply(books), nil
}

// Recent returns the newest books.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Book, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.List(ctx, Query{Sort: SortLatest, Limit: limit})
}

// Popular returns the most liked books.
func (s *Service) Popular(ctx context.Context, limit int) ([]models.Book, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	return s.List(ctx, Query{Sort: SortPopular, Limit: limit})
}

// Similar returns books sharing a category or author with id, or linked to
// it through related_books in either direction.
func (s *Service) Similar(ctx context.Context, id string, limit int) ([]models.Book, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	books, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	var target *models.Book
	for i := range books {
		if books[i].ID == id {
			target = &books[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("book %s: %w", id, storage.ErrNotFound)
	}

	out := []models.Book{}
	for _, b := range books {
		if len(out) == limit {
			break
		}
		if b.ID == id {
			continue
		}
		sameCategory := b.Category == target.Category && b.Category != models.Unclassified
		if sameCategory || b.Author == target.Author || related(*target, b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func related(a, b models.Book) bool {
	for _, id := range a.RelatedBooks {
		if id == b.ID {
			return true
		}
	}
	for _, id := range b.RelatedBooks {
		if id == a.ID {
			return true
		}
	}
	return false
}

// Stats computes statistics for the owner's library.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.store.ComputeStats(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	metrics.SetBooks(stats.TotalBooks)
	return stats, nil
}

// Info returns the owner's library info.
func (s *Service) Info(ctx context.Context) (*models.LibraryInfo, error) {
	return s.store.GetLibraryInfo(ctx, s.owner)
}

// SaveInfo merges patch into the owner's library info.
func (s *Service) SaveInfo(ctx context.Context, patch models.LibraryInfoPatch) (*models.LibraryInfo, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	info, err := s.store.SaveLibraryInfo(ctx, s.owner, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to save library info: %w", err)
	}
	s.emit(events.LibraryInfoChanged, map[string]any{"name": info.Name, "visibility": info.Visibility})
	return info, nil
}

// ShareLink is the result of sharing a library.
type ShareLink struct {
	LibraryID string                `json:"library_id"`
	URL       string                `json:"url"`
	Snapshot  *models.SharedLibrary `json:"snapshot"`
}

// Share publishes a snapshot of the owner's library and returns its URL.
func (s *Service) Share(ctx context.Context) (*ShareLink, error) {
	snapshot, err := s.store.PublishSnapshot(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to publish snapshot: %w", err)
	}
	s.emit(events.LibraryShared, map[string]any{"books": len(snapshot.Books)})
	return &ShareLink{LibraryID: s.owner, URL: s.ShareURL(s.owner), Snapshot: snapshot}, nil
}

// ShareURL builds the viewer link for libraryID.
func (s *Service) ShareURL(libraryID string) string {
	base := s.shareBaseURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "index.html?library=" + url.QueryEscape(libraryID)
}

// SearchLibraries finds public libraries by name or description.
func (s *Service) SearchLibraries(ctx context.Context, text string) ([]models.LibraryRegistryEntry, error) {
	return s.store.SearchLibrariesByName(ctx, text)
}

// LibraryEntry returns the registry entry for id or storage.ErrNotFound.
func (s *Service) LibraryEntry(ctx context.Context, id string) (*models.LibraryRegistryEntry, error) {
	entry, err := s.store.GetRegistryEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("library %s: %w", id, storage.ErrNotFound)
	}
	return entry, nil
}

// Shared returns the read-only view of libraryID or storage.ErrNotFound.
func (s *Service) Shared(ctx context.Context, libraryID string) (*models.SharedLibrary, error) {
	shared, err := s.store.GetSharedLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	if shared == nil {
		return nil, fmt.Errorf("shared library %s: %w", libraryID, storage.ErrNotFound)
	}
	return shared, nil
}
