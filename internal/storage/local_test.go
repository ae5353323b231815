// file: internal/storage/local_test.go
// version: 1.1.0
// guid: e41c0ab4-7700-4278-bf60-933d02568746

package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/libshelf/internal/kv"
	"github.com/jdfalk/libshelf/internal/models"
)

func openLocal(t *testing.T) *LocalStore {
	t.Helper()
	return newLocalStore(kv.EnginePebble)(t).(*LocalStore)
}

func TestLibraryIDIsStable(t *testing.T) {
	dir := t.TempDir()
	e, err := kv.Open(kv.EnginePebble, dir, false)
	require.NoError(t, err)
	s := NewLocalStore(e)

	id, err := s.LibraryID()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	again, err := s.LibraryID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
	require.NoError(t, s.Close())

	e, err = kv.Open(kv.EnginePebble, dir, false)
	require.NoError(t, err)
	reopened := NewLocalStore(e)
	defer reopened.Close()
	persisted, err := reopened.LibraryID()
	require.NoError(t, err)
	assert.Equal(t, id, persisted)
}

func TestLibraryIDSeedsInfo(t *testing.T) {
	s := openLocal(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return created }

	id, err := s.LibraryID()
	require.NoError(t, err)

	data, err := s.engine.Get(infoKey(id))
	require.NoError(t, err, "info is written with the id")
	assert.Contains(t, string(data), models.DefaultLibraryName)

	s.now = func() time.Time { return created.Add(time.Hour) }
	info, err := s.GetLibraryInfo(ctx, id)
	require.NoError(t, err)
	assert.True(t, info.CreatedAt.Equal(created), "created_at %v", info.CreatedAt)
	assert.Equal(t, models.VisibilityPublic, info.Visibility)
}

func TestSettings(t *testing.T) {
	s := openLocal(t)
	ctx := context.Background()

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, settings.Theme)

	require.NoError(t, s.SaveSettings(ctx, models.Settings{Theme: models.ThemeDark}))
	settings, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, settings.Theme)

	err = s.SaveSettings(ctx, models.Settings{Theme: "sepia"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSnapshotIsFrozen(t *testing.T) {
	s := openLocal(t)
	ctx := context.Background()

	_, err := s.AddBook(ctx, "owner", demian())
	require.NoError(t, err)
	_, err = s.PublishSnapshot(ctx, "owner")
	require.NoError(t, err)

	_, err = s.AddBook(ctx, "owner", models.NewBook{Title: "수레바퀴 아래서", Author: "헤르만 헤세"})
	require.NoError(t, err)

	shared, err := s.GetSharedLibrary(ctx, "owner")
	require.NoError(t, err)
	require.NotNil(t, shared)
	assert.Len(t, shared.Books, 1, "snapshot does not follow later writes")
}

func TestLocalUpdateMissingIsNoop(t *testing.T) {
	s := openLocal(t)
	ctx := context.Background()

	title := "x"
	got, err := s.UpdateBook(ctx, "owner", "nope", models.BookPatch{Title: &title})
	assert.NoError(t, err)
	assert.Nil(t, got)

	books, err := s.ListBooks(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestConcurrentAdjustLikes(t *testing.T) {
	s := openLocal(t)
	ctx := context.Background()
	b, err := s.AddBook(ctx, "owner", demian())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustLikes(ctx, "owner", b.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetBook(ctx, "owner", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Likes)
}
