// file: internal/storage/store.go
// version: 1.0.0
// guid: 2e2b1695-c17a-46b7-b18e-e38f9846c0bc

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/models"
)

// ErrNotFound is returned where an operation cannot proceed without the
// target. Read paths return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// Backend names reported by Store.Backend.
const (
	BackendCloud    = "cloud"
	BackendLocal    = "local"
	BackendFailover = "cloud+local"
)

// Store defines the library operations every backend supports.
// This abstraction lets the cloud document store and the local key-value
// store be swapped without callers knowing which one is live.
type Store interface {
	Backend() string

	// Books. ListBooks returns newest first (created_at desc, id desc).
	ListBooks(ctx context.Context, ownerID string) ([]models.Book, error)
	GetBook(ctx context.Context, ownerID, id string) (*models.Book, error)
	AddBook(ctx context.Context, ownerID string, nb models.NewBook) (*models.Book, error)
	UpdateBook(ctx context.Context, ownerID, id string, patch models.BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, ownerID, id string) error
	AdjustLikes(ctx context.Context, ownerID, id string, delta int) (int, error)

	// Like sets, keyed by viewer
	GetLikeSet(ctx context.Context, viewerID string) ([]string, error)
	SetLiked(ctx context.Context, viewerID, bookID string, liked bool) error

	// Library metadata
	GetLibraryInfo(ctx context.Context, ownerID string) (*models.LibraryInfo, error)
	SaveLibraryInfo(ctx context.Context, ownerID string, patch models.LibraryInfoPatch) (*models.LibraryInfo, error)

	// Registry
	PutRegistryEntry(ctx context.Context, entry models.LibraryRegistryEntry) error
	DeleteRegistryEntry(ctx context.Context, id string) error
	GetRegistryEntry(ctx context.Context, id string) (*models.LibraryRegistryEntry, error)
	SearchLibrariesByName(ctx context.Context, text string) ([]models.LibraryRegistryEntry, error)

	// Derived views
	ComputeStats(ctx context.Context, ownerID string) (*models.Stats, error)
	GetSharedLibrary(ctx context.Context, libraryID string) (*models.SharedLibrary, error)
	PublishSnapshot(ctx context.Context, ownerID string) (*models.SharedLibrary, error)

	Close() error
}

// observe records a storage call in metrics. Use with defer and a named
// error result.
func observe(backend, op string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	metrics.ObserveStorageOperation(backend, op, time.Since(start), e)
}

// callerError reports whether err is the caller's fault rather than the
// backend's, in which case failing over would not help.
func callerError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, models.ErrValidation) ||
		errors.Is(err, context.Canceled)
}
