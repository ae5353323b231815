// file: internal/storage/failover.go
// version: 1.0.0
// guid: 029bcf99-780d-49df-b2bd-e153fb7ba835

package storage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/models"
)

// degradedWindow is how long after a failover Degraded keeps reporting true.
const degradedWindow = 2 * time.Minute

// FailoverStore sends every call to primary and retries it once against
// fallback when primary fails for a reason other than the caller's input.
// Failovers are logged and counted, and Degraded reports them to health
// checks.
type FailoverStore struct {
	primary  Store
	fallback Store

	mu           sync.RWMutex
	lastFailover time.Time
	lastError    error
	now          func() time.Time
}

// NewFailoverStore pairs a primary with its fallback.
func NewFailoverStore(primary, fallback Store) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback, now: time.Now}
}

func (f *FailoverStore) Backend() string { return BackendFailover }

// Degraded reports whether the primary failed recently, and the last error.
func (f *FailoverStore) Degraded() (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.lastFailover.IsZero() {
		return false, nil
	}
	return f.now().Sub(f.lastFailover) < degradedWindow, f.lastError
}

func (f *FailoverStore) recordFailover(op string, err error) {
	log.Printf("[WARN] cloud store %s failed, retrying on local store: %v", op, err)
	metrics.IncFailover(op)
	metrics.SetDegraded(true)

	f.mu.Lock()
	f.lastFailover = f.now()
	f.lastError = err
	f.mu.Unlock()
}

// run calls fn on primary, falling back once on a backend error.
func run[T any](f *FailoverStore, op string, fn func(Store) (T, error)) (T, error) {
	v, err := fn(f.primary)
	if err == nil || callerError(err) {
		return v, err
	}
	f.recordFailover(op, err)
	return fn(f.fallback)
}

func runErr(f *FailoverStore, op string, fn func(Store) error) error {
	_, err := run(f, op, func(s Store) (struct{}, error) { return struct{}{}, fn(s) })
	return err
}

func (f *FailoverStore) ListBooks(ctx context.Context, ownerID string) ([]models.Book, error) {
	return run(f, "list_books", func(s Store) ([]models.Book, error) { return s.ListBooks(ctx, ownerID) })
}

func (f *FailoverStore) GetBook(ctx context.Context, ownerID, id string) (*models.Book, error) {
	return run(f, "get_book", func(s Store) (*models.Book, error) { return s.GetBook(ctx, ownerID, id) })
}

func (f *FailoverStore) AddBook(ctx context.Context, ownerID string, nb models.NewBook) (*models.Book, error) {
	return run(f, "add_book", func(s Store) (*models.Book, error) { return s.AddBook(ctx, ownerID, nb) })
}

func (f *FailoverStore) UpdateBook(ctx context.Context, ownerID, id string, patch models.BookPatch) (*models.Book, error) {
	return run(f, "update_book", func(s Store) (*models.Book, error) { return s.UpdateBook(ctx, ownerID, id, patch) })
}

func (f *FailoverStore) DeleteBook(ctx context.Context, ownerID, id string) error {
	return runErr(f, "delete_book", func(s Store) error { return s.DeleteBook(ctx, ownerID, id) })
}

func (f *FailoverStore) AdjustLikes(ctx context.Context, ownerID, id string, delta int) (int, error) {
	return run(f, "adjust_likes", func(s Store) (int, error) { return s.AdjustLikes(ctx, ownerID, id, delta) })
}

func (f *FailoverStore) GetLikeSet(ctx context.Context, viewerID string) ([]string, error) {
	return run(f, "get_like_set", func(s Store) ([]string, error) { return s.GetLikeSet(ctx, viewerID) })
}

func (f *FailoverStore) SetLiked(ctx context.Context, viewerID, bookID string, liked bool) error {
	return runErr(f, "set_liked", func(s Store) error { return s.SetLiked(ctx, viewerID, bookID, liked) })
}

func (f *FailoverStore) GetLibraryInfo(ctx context.Context, ownerID string) (*models.LibraryInfo, error) {
	return run(f, "get_library_info", func(s Store) (*models.LibraryInfo, error) { return s.GetLibraryInfo(ctx, ownerID) })
}

func (f *FailoverStore) SaveLibraryInfo(ctx context.Context, ownerID string, patch models.LibraryInfoPatch) (*models.LibraryInfo, error) {
	return run(f, "save_library_info", func(s Store) (*models.LibraryInfo, error) { return s.SaveLibraryInfo(ctx, ownerID, patch) })
}

func (f *FailoverStore) PutRegistryEntry(ctx context.Context, entry models.LibraryRegistryEntry) error {
	return runErr(f, "put_registry_entry", func(s Store) error { return s.PutRegistryEntry(ctx, entry) })
}

func (f *FailoverStore) DeleteRegistryEntry(ctx context.Context, id string) error {
	return runErr(f, "delete_registry_entry", func(s Store) error { return s.DeleteRegistryEntry(ctx, id) })
}

func (f *FailoverStore) GetRegistryEntry(ctx context.Context, id string) (*models.LibraryRegistryEntry, error) {
	return run(f, "get_registry_entry", func(s Store) (*models.LibraryRegistryEntry, error) { return s.GetRegistryEntry(ctx, id) })
}

func (f *FailoverStore) SearchLibrariesByName(ctx context.Context, text string) ([]models.LibraryRegistryEntry, error) {
	return run(f, "search_libraries", func(s Store) ([]models.LibraryRegistryEntry, error) { return s.SearchLibrariesByName(ctx, text) })
}

func (f *FailoverStore) ComputeStats(ctx context.Context, ownerID string) (*models.Stats, error) {
	return run(f, "compute_stats", func(s Store) (*models.Stats, error) { return s.ComputeStats(ctx, ownerID) })
}

func (f *FailoverStore) GetSharedLibrary(ctx context.Context, libraryID string) (*models.SharedLibrary, error) {
	return run(f, "get_shared_library", func(s Store) (*models.SharedLibrary, error) { return s.GetSharedLibrary(ctx, libraryID) })
}

func (f *FailoverStore) PublishSnapshot(ctx context.Context, ownerID string) (*models.SharedLibrary, error) {
	return run(f, "publish_snapshot", func(s Store) (*models.SharedLibrary, error) { return s.PublishSnapshot(ctx, ownerID) })
}

// Close closes both stores and returns the first error.
func (f *FailoverStore) Close() error {
	perr := f.primary.Close()
	ferr := f.fallback.Close()
	if perr != nil {
		return perr
	}
	return ferr
}
