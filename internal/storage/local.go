// file: internal/storage/local.go
// version: 1.1.0
// guid: b39d682f-6d03-47a0-a2b3-be5987e624f2

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	ulid "github.com/oklog/ulid/v2"

	"github.com/jdfalk/libshelf/internal/kv"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/textmatch"
)

// LocalStore implements Store on a local key-value engine. Every value is
// a whole JSON document; each write is a single atomic Set.
//
// Key Schema:
// - library_books:<owner>   -> []Book JSON
// - library_info:<owner>    -> LibraryInfo JSON
// - library_likes:<viewer>  -> []string JSON (liked book ids)
// - library_settings        -> Settings JSON
// - library_id              -> anonymous library id
// - library_registry        -> []LibraryRegistryEntry JSON
// - shared_library_<id>     -> SharedLibrary JSON
type LocalStore struct {
	engine kv.Engine
	mu     sync.Mutex
	now    func() time.Time
}

const (
	keyBooks    = "library_books"
	keyInfo     = "library_info"
	keyLikes    = "library_likes"
	keySettings = "library_settings"
	keyID       = "library_id"
	keyRegistry = "library_registry"
	keyShared   = "shared_library_"
)

func booksKey(ownerID string) string  { return keyBooks + ":" + ownerID }
func infoKey(ownerID string) string   { return keyInfo + ":" + ownerID }
func likesKey(viewerID string) string { return keyLikes + ":" + viewerID }
func sharedKey(id string) string      { return keyShared + id }

// NewLocalStore wraps an open engine.
func NewLocalStore(engine kv.Engine) *LocalStore {
	return &LocalStore{engine: engine, now: func() time.Time { return time.Now().UTC() }}
}

func (l *LocalStore) Backend() string { return BackendLocal }

// Engine exposes the underlying engine name for diagnostics.
func (l *LocalStore) Engine() string { return l.engine.Name() }

func (l *LocalStore) Close() error { return l.engine.Close() }

// load decodes key into v. It reports false when the key is absent.
func (l *LocalStore) load(key string, v any) (bool, error) {
	data, err := l.engine.Get(key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (l *LocalStore) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := l.engine.Set(key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (l *LocalStore) loadBooks(ownerID string) ([]models.Book, error) {
	var books []models.Book
	if _, err := l.load(booksKey(ownerID), &books); err != nil {
		return nil, err
	}
	return books, nil
}

// LibraryID returns the anonymous library id, generating and persisting
// one on first use. The new id and its default info are written in one
// batch so the library's created_at is fixed from the start.
func (l *LocalStore) LibraryID() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.engine.Get(keyID)
	if err == nil && len(data) > 0 {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
		return "", fmt.Errorf("failed to read library id: %w", err)
	}
	id := uuid.NewString()
	info, err := json.Marshal(models.DefaultLibraryInfo(id, l.now()))
	if err != nil {
		return "", fmt.Errorf("failed to encode library info: %w", err)
	}
	err = l.engine.Apply([]kv.Op{
		{Key: keyID, Value: []byte(id)},
		{Key: infoKey(id), Value: info},
	})
	if err != nil {
		return "", fmt.Errorf("failed to persist library id: %w", err)
	}
	return id, nil
}

// Book operations

func (l *LocalStore) ListBooks(ctx context.Context, ownerID string) (_ []models.Book, err error) {
	defer observe(BackendLocal, "list_books", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}
	models.SortNewestFirst(books)
	return books, nil
}

func (l *LocalStore) GetBook(ctx context.Context, ownerID, id string) (_ *models.Book, err error) {
	defer observe(BackendLocal, "get_book", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == id {
			return &books[i], nil
		}
	}
	return nil, nil
}

func (l *LocalStore) AddBook(ctx context.Context, ownerID string, nb models.NewBook) (_ *models.Book, err error) {
	defer observe(BackendLocal, "add_book", time.Now(), &err)
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return nil, err
	}
	book := nb.Materialize(ulid.Make().String(), l.now())
	books = append(books, book)
	if err := l.save(booksKey(ownerID), books); err != nil {
		return nil, err
	}
	return &book, nil
}

func (l *LocalStore) UpdateBook(ctx context.Context, ownerID, id string, patch models.BookPatch) (_ *models.Book, err error) {
	defer observe(BackendLocal, "update_book", time.Now(), &err)
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID != id {
			continue
		}
		patch.Apply(&books[i], l.now())
		if err := l.save(booksKey(ownerID), books); err != nil {
			return nil, err
		}
		updated := books[i]
		return &updated, nil
	}
	return nil, nil
}

func (l *LocalStore) DeleteBook(ctx context.Context, ownerID, id string) (err error) {
	defer observe(BackendLocal, "delete_book", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return err
	}
	kept := books[:0]
	for _, b := range books {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(books) {
		return nil
	}
	return l.save(booksKey(ownerID), kept)
}

func (l *LocalStore) AdjustLikes(ctx context.Context, ownerID, id string, delta int) (_ int, err error) {
	defer observe(BackendLocal, "adjust_likes", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return 0, err
	}
	for i := range books {
		if books[i].ID != id {
			continue
		}
		books[i].Likes = max(0, books[i].Likes+delta)
		if err := l.save(booksKey(ownerID), books); err != nil {
			return 0, err
		}
		return books[i].Likes, nil
	}
	return 0, fmt.Errorf("book %s: %w", id, ErrNotFound)
}

// Like sets

func (l *LocalStore) GetLikeSet(ctx context.Context, viewerID string) (_ []string, err error) {
	defer observe(BackendLocal, "get_like_set", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := []string{}
	if _, err := l.load(likesKey(viewerID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (l *LocalStore) SetLiked(ctx context.Context, viewerID, bookID string, liked bool) (err error) {
	defer observe(BackendLocal, "set_liked", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []string
	if _, err := l.load(likesKey(viewerID), &ids); err != nil {
		return err
	}
	out := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id != bookID {
			out = append(out, id)
		}
	}
	if liked {
		out = append(out, bookID)
	}
	return l.save(likesKey(viewerID), out)
}

// Library metadata

func (l *LocalStore) GetLibraryInfo(ctx context.Context, ownerID string) (_ *models.LibraryInfo, err error) {
	defer observe(BackendLocal, "get_library_info", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.libraryInfo(ownerID)
}

func (l *LocalStore) libraryInfo(ownerID string) (*models.LibraryInfo, error) {
	var info models.LibraryInfo
	found, err := l.load(infoKey(ownerID), &info)
	if err != nil {
		return nil, err
	}
	if !found {
		info = models.DefaultLibraryInfo(ownerID, l.now())
	}
	info.ID = ownerID
	return &info, nil
}

func (l *LocalStore) SaveLibraryInfo(ctx context.Context, ownerID string, patch models.LibraryInfoPatch) (_ *models.LibraryInfo, err error) {
	defer observe(BackendLocal, "save_library_info", time.Now(), &err)
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.libraryInfo(ownerID)
	if err != nil {
		return nil, err
	}
	patch.Apply(info, l.now())
	if err := l.save(infoKey(ownerID), info); err != nil {
		return nil, err
	}
	return info, nil
}

// Registry

func (l *LocalStore) loadRegistry() ([]models.LibraryRegistryEntry, error) {
	var entries []models.LibraryRegistryEntry
	if _, err := l.load(keyRegistry, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *LocalStore) PutRegistryEntry(ctx context.Context, entry models.LibraryRegistryEntry) (err error) {
	defer observe(BackendLocal, "put_registry_entry", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.loadRegistry()
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return l.save(keyRegistry, entries)
}

func (l *LocalStore) DeleteRegistryEntry(ctx context.Context, id string) (err error) {
	defer observe(BackendLocal, "delete_registry_entry", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.loadRegistry()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return l.save(keyRegistry, kept)
}

func (l *LocalStore) GetRegistryEntry(ctx context.Context, id string) (_ *models.LibraryRegistryEntry, err error) {
	defer observe(BackendLocal, "get_registry_entry", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.loadRegistry()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func (l *LocalStore) SearchLibrariesByName(ctx context.Context, text string) (_ []models.LibraryRegistryEntry, err error) {
	defer observe(BackendLocal, "search_libraries", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.loadRegistry()
	if err != nil {
		return nil, err
	}
	return filterRegistry(entries, text), nil
}

// filterRegistry applies the shared registry search rule: case-insensitive
// substring on name or description, sorted by name then id.
func filterRegistry(entries []models.LibraryRegistryEntry, text string) []models.LibraryRegistryEntry {
	out := []models.LibraryRegistryEntry{}
	for _, e := range entries {
		if textmatch.ContainsAny(text, e.Name, e.Description) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Derived views

func (l *LocalStore) ComputeStats(ctx context.Context, ownerID string) (_ *models.Stats, err error) {
	defer observe(BackendLocal, "compute_stats", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return nil, err
	}
	stats := models.ComputeStats(books)
	return &stats, nil
}

func (l *LocalStore) GetSharedLibrary(ctx context.Context, libraryID string) (_ *models.SharedLibrary, err error) {
	defer observe(BackendLocal, "get_shared_library", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	var shared models.SharedLibrary
	found, err := l.load(sharedKey(libraryID), &shared)
	if err != nil || !found {
		return nil, err
	}
	if shared.Books == nil {
		shared.Books = []models.Book{}
	}
	return &shared, nil
}

func (l *LocalStore) PublishSnapshot(ctx context.Context, ownerID string) (_ *models.SharedLibrary, err error) {
	defer observe(BackendLocal, "publish_snapshot", time.Now(), &err)
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.loadBooks(ownerID)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}
	models.SortNewestFirst(books)
	info, err := l.libraryInfo(ownerID)
	if err != nil {
		return nil, err
	}
	shared := &models.SharedLibrary{LibraryInfo: *info, Books: books, CreatedAt: l.now()}
	if err := l.save(sharedKey(ownerID), shared); err != nil {
		return nil, err
	}
	return shared, nil
}

// Settings live only in the local store, whatever backend serves books.

// GetSettings returns the saved settings, or the defaults.
func (l *LocalStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	settings := models.DefaultSettings()
	if _, err := l.load(keySettings, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings validates and persists settings.
func (l *LocalStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(keySettings, settings)
}
