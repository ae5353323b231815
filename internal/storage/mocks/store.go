// file: internal/storage/mocks/store.go
// version: 1.0.0
// guid: f53f790e-1693-413d-9531-93b74fe13afc

// Package mocks provides a testify mock of storage.Store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jdfalk/libshelf/internal/models"
)

// Store is a mock storage.Store. Methods not given an expectation panic.
type Store struct {
	mock.Mock
}

// NewStore creates a mock and asserts its expectations at cleanup.
func NewStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *Store {
	m := &Store{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func ptr[T any](v any) *T {
	if v == nil {
		return nil
	}
	return v.(*T)
}

func slice[T any](v any) []T {
	if v == nil {
		return nil
	}
	return v.([]T)
}

func (m *Store) Backend() string {
	args := m.Called()
	return args.String(0)
}

func (m *Store) ListBooks(ctx context.Context, ownerID string) ([]models.Book, error) {
	args := m.Called(ctx, ownerID)
	return slice[models.Book](args.Get(0)), args.Error(1)
}

func (m *Store) GetBook(ctx context.Context, ownerID, id string) (*models.Book, error) {
	args := m.Called(ctx, ownerID, id)
	return ptr[models.Book](args.Get(0)), args.Error(1)
}

func (m *Store) AddBook(ctx context.Context, ownerID string, nb models.NewBook) (*models.Book, error) {
	args := m.Called(ctx, ownerID, nb)
	return ptr[models.Book](args.Get(0)), args.Error(1)
}

func (m *Store) UpdateBook(ctx context.Context, ownerID, id string, patch models.BookPatch) (*models.Book, error) {
	args := m.Called(ctx, ownerID, id, patch)
	return ptr[models.Book](args.Get(0)), args.Error(1)
}

func (m *Store) DeleteBook(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *Store) AdjustLikes(ctx context.Context, ownerID, id string, delta int) (int, error) {
	args := m.Called(ctx, ownerID, id, delta)
	return args.Int(0), args.Error(1)
}

func (m *Store) GetLikeSet(ctx context.Context, viewerID string) ([]string, error) {
	args := m.Called(ctx, viewerID)
	return slice[string](args.Get(0)), args.Error(1)
}

func (m *Store) SetLiked(ctx context.Context, viewerID, bookID string, liked bool) error {
	return m.Called(ctx, viewerID, bookID, liked).Error(0)
}

func (m *Store) GetLibraryInfo(ctx context.Context, ownerID string) (*models.LibraryInfo, error) {
	args := m.Called(ctx, ownerID)
	return ptr[models.LibraryInfo](args.Get(0)), args.Error(1)
}

func (m *Store) SaveLibraryInfo(ctx context.Context, ownerID string, patch models.LibraryInfoPatch) (*models.LibraryInfo, error) {
	args := m.Called(ctx, ownerID, patch)
	return ptr[models.LibraryInfo](args.Get(0)), args.Error(1)
}

func (m *Store) PutRegistryEntry(ctx context.Context, entry models.LibraryRegistryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *Store) DeleteRegistryEntry(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Store) GetRegistryEntry(ctx context.Context, id string) (*models.LibraryRegistryEntry, error) {
	args := m.Called(ctx, id)
	return ptr[models.LibraryRegistryEntry](args.Get(0)), args.Error(1)
}

func (m *Store) SearchLibrariesByName(ctx context.Context, text string) ([]models.LibraryRegistryEntry, error) {
	args := m.Called(ctx, text)
	return slice[models.LibraryRegistryEntry](args.Get(0)), args.Error(1)
}

func (m *Store) ComputeStats(ctx context.Context, ownerID string) (*models.Stats, error) {
	args := m.Called(ctx, ownerID)
	return ptr[models.Stats](args.Get(0)), args.Error(1)
}

func (m *Store) GetSharedLibrary(ctx context.Context, libraryID string) (*models.SharedLibrary, error) {
	args := m.Called(ctx, libraryID)
	return ptr[models.SharedLibrary](args.Get(0)), args.Error(1)
}

func (m *Store) PublishSnapshot(ctx context.Context, ownerID string) (*models.SharedLibrary, error) {
	args := m.Called(ctx, ownerID)
	return ptr[models.SharedLibrary](args.Get(0)), args.Error(1)
}

func (m *Store) Close() error {
	return m.Called().Error(0)
}
