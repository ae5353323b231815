// file: internal/models/library_test.go
// version: 1.0.0
// guid: 5a476102-97c2-424b-9d3a-11c45fb03ca2

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)

	assert.Equal(t, 0, stats.TotalBooks)
	assert.Equal(t, 0, stats.TotalLikes)
	assert.Equal(t, 0.0, stats.AvgRating)
	assert.Equal(t, 0, stats.TotalPages)
	require.NotNil(t, stats.CategoryCounts)
	assert.Empty(t, stats.CategoryCounts)
	assert.Equal(t, map[ReadingStatus]int{
		StatusNotStarted: 0,
		StatusReading:    0,
		StatusCompleted:  0,
	}, stats.ReadingStatusCounts)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category_counts":{}`)
}

func TestComputeStats(t *testing.T) {
	books := []Book{
		{Category: 7, Rating: 5, Likes: 2, Pages: 300, ReadingStatus: StatusCompleted},
		{Category: 7, Rating: 4, Likes: 1, ReadingStatus: StatusReading},
		{Category: -1, Rating: 4, Pages: 120},
	}

	stats := ComputeStats(books)

	assert.Equal(t, 3, stats.TotalBooks)
	assert.Equal(t, 1, stats.ReadBooks)
	assert.Equal(t, 3, stats.TotalLikes)
	assert.Equal(t, 420, stats.TotalPages)
	assert.Equal(t, map[int]int{7: 2, -1: 1}, stats.CategoryCounts)
	assert.Equal(t, 1, stats.ReadingStatusCounts[StatusNotStarted])
	assert.Equal(t, 1, stats.ReadingStatusCounts[StatusReading])
	assert.Equal(t, 1, stats.ReadingStatusCounts[StatusCompleted])
	assert.Equal(t, 4.3, stats.AvgRating)
}

func TestLibraryInfoPatchApply(t *testing.T) {
	now := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	info := LibraryInfo{Name: "old", Avatar: "📚", Visibility: VisibilityPublic}
	private := VisibilityPrivate
	name := " 새 이름 "

	LibraryInfoPatch{Name: &name, Visibility: &private}.Apply(&info, now)

	assert.Equal(t, "새 이름", info.Name)
	assert.Equal(t, "📚", info.Avatar)
	assert.Equal(t, VisibilityPrivate, info.Visibility)
	assert.Equal(t, now, info.CreatedAt)
	assert.Equal(t, now, info.UpdatedAt)
}

func TestLibraryInfoPatchValidate(t *testing.T) {
	empty := ""
	weird := Visibility("friends")
	assert.NoError(t, LibraryInfoPatch{}.Validate())
	assert.ErrorIs(t, LibraryInfoPatch{Name: &empty}.Validate(), ErrValidation)
	assert.ErrorIs(t, LibraryInfoPatch{Visibility: &weird}.Validate(), ErrValidation)
}

func TestDefaults(t *testing.T) {
	now := time.Now()
	info := DefaultLibraryInfo("owner", now)
	assert.Equal(t, "owner", info.ID)
	assert.Equal(t, DefaultLibraryName, info.Name)
	assert.Equal(t, DefaultLibraryAvatar, info.Avatar)
	assert.Equal(t, VisibilityPublic, info.Visibility)

	assert.Equal(t, ThemeLight, DefaultSettings().Theme)
	assert.NoError(t, Settings{Theme: ThemeDark}.Validate())
	assert.ErrorIs(t, Settings{Theme: "blue"}.Validate(), ErrValidation)
}

func TestRegistryEntryFor(t *testing.T) {
	now := time.Now()
	entry := RegistryEntryFor("lib-1", LibraryInfo{Description: "d"}, Stats{TotalBooks: 4, TotalLikes: 9}, now)

	assert.Equal(t, "lib-1", entry.ID)
	assert.Equal(t, DefaultLibraryName, entry.Name)
	assert.Equal(t, DefaultLibraryAvatar, entry.Avatar)
	assert.Equal(t, "d", entry.Description)
	assert.Equal(t, 4, entry.BookCount)
	assert.Equal(t, 9, entry.TotalLikes)
	assert.Equal(t, now, entry.UpdatedAt)
}
