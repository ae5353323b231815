// file: internal/likes/likes_test.go
// version: 1.0.0
// guid: a7bdadd2-7b73-4d42-a1aa-a237f05604bc

package likes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/kv"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/storage"
	"github.com/jdfalk/libshelf/internal/storage/mocks"
)

func localStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	e, err := kv.Open(kv.EnginePebble, t.TempDir(), false)
	require.NoError(t, err)
	s := storage.NewLocalStore(e)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestToggleTwiceRestoresLikes(t *testing.T) {
	store := localStore(t)
	hub := events.NewHub()
	var published int
	hub.Subscribe(func(*events.Event) { published++ }, events.BookLiked)
	svc := NewService(store, hub)
	ctx := context.Background()

	book, err := store.AddBook(ctx, "owner", models.NewBook{Title: "데미안", Author: "헤르만 헤세", Category: 7})
	require.NoError(t, err)

	first, err := svc.Toggle(ctx, "viewer", "owner", book.ID)
	require.NoError(t, err)
	assert.True(t, first.Added)
	assert.Equal(t, 1, first.Likes)

	liked, err := svc.IsLiked(ctx, "viewer", book.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	second, err := svc.Toggle(ctx, "viewer", "owner", book.ID)
	require.NoError(t, err)
	assert.False(t, second.Added)
	assert.Equal(t, 0, second.Likes)

	got, err := store.GetBook(ctx, "owner", book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Likes, got.Likes)
	assert.Equal(t, 2, published)

	ids, err := svc.Liked(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestToggleRemovalOnZeroStaysZero(t *testing.T) {
	store := localStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	book, err := store.AddBook(ctx, "owner", models.NewBook{Title: "t", Author: "a"})
	require.NoError(t, err)
	// skewed state: the viewer's set says liked but the count is zero
	require.NoError(t, store.SetLiked(ctx, "viewer", book.ID, true))

	res, err := svc.Toggle(ctx, "viewer", "owner", book.ID)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, 0, res.Likes)
}

func TestToggleMissingBook(t *testing.T) {
	store := mocks.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	store.On("GetBook", ctx, "owner", "gone").Return(nil, nil).Once()

	_, err := svc.Toggle(ctx, "viewer", "owner", "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	store.AssertNotCalled(t, "AdjustLikes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleAdjustFailureChangesNothing(t *testing.T) {
	store := mocks.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	boom := errors.New("write failed")

	store.On("GetBook", ctx, "owner", "b").Return(&models.Book{ID: "b"}, nil).Once()
	store.On("GetLikeSet", ctx, "viewer").Return([]string{}, nil).Once()
	store.On("AdjustLikes", ctx, "owner", "b", 1).Return(0, boom).Once()

	_, err := svc.Toggle(ctx, "viewer", "owner", "b")
	assert.ErrorIs(t, err, boom)
	store.AssertNotCalled(t, "SetLiked", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleCompensatesWhenLikeSetWriteFails(t *testing.T) {
	store := mocks.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	boom := errors.New("like set unavailable")

	store.On("GetBook", ctx, "owner", "b").Return(&models.Book{ID: "b", Likes: 3}, nil).Once()
	store.On("GetLikeSet", ctx, "viewer").Return([]string{}, nil).Once()
	store.On("AdjustLikes", ctx, "owner", "b", 1).Return(4, nil).Once()
	store.On("SetLiked", ctx, "viewer", "b", true).Return(boom).Once()
	store.On("AdjustLikes", ctx, "owner", "b", -1).Return(3, nil).Once()

	_, err := svc.Toggle(ctx, "viewer", "owner", "b")
	assert.ErrorIs(t, err, boom)
}

func TestToggleCompensationFailureIsReported(t *testing.T) {
	store := mocks.NewStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()
	boom := errors.New("like set unavailable")
	undo := errors.New("undo failed")

	store.On("GetBook", ctx, "owner", "b").Return(&models.Book{ID: "b", Likes: 1}, nil).Once()
	store.On("GetLikeSet", ctx, "viewer").Return([]string{"b"}, nil).Once()
	store.On("AdjustLikes", ctx, "owner", "b", -1).Return(0, nil).Once()
	store.On("SetLiked", ctx, "viewer", "b", false).Return(boom).Once()
	store.On("AdjustLikes", ctx, "owner", "b", 1).Return(0, undo).Once()

	_, err := svc.Toggle(ctx, "viewer", "owner", "b")
	assert.ErrorIs(t, err, boom, "the original failure is what the caller sees")
}
