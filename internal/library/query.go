// file: internal/library/query.go
// version: 1.0.0
// guid: a03274b3-a34d-4232-b199-1f152d99083b

package library

import (
	"fmt"
	"sort"

	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/textmatch"
)

// Sort orders for List.
const (
	SortLatest  = "latest"
	SortPopular = "popular"
	SortRating  = "rating"
)

// Query filters and orders a book list. Zero values mean "no filter".
type Query struct {
	Category  *int
	Search    string
	Fuzzy     bool
	Sort      string
	Status    models.ReadingStatus
	RatingMin *int
	RatingMax *int
	// Books without a page count always pass the pages filter.
	PagesMin *int
	PagesMax *int
	Limit    int
}

// Validate rejects unknown sort orders and statuses.
func (q Query) Validate() error {
	switch q.Sort {
	case "", SortLatest, SortPopular, SortRating:
	default:
		return &models.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", q.Sort)}
	}
	if q.Status != "" && !q.Status.Valid() {
		return &models.ValidationError{Field: "status", Reason: "unknown reading status"}
	}
	if q.Category != nil && !models.ValidCategory(*q.Category) {
		return &models.ValidationError{Field: "category", Reason: "must be between -1 and 8"}
	}
	return nil
}

// Apply filters books (already newest first) and sorts them. The input
// slice is not modified.
func (q Query) Apply(books []models.Book) []models.Book {
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if q.matches(b) {
			out = append(out, b)
		}
	}

	switch q.Sort {
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Likes > out[j].Likes })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (q Query) matches(b models.Book) bool {
	if q.Category != nil && b.Category != *q.Category {
		return false
	}
	if q.Status != "" {
		status := b.ReadingStatus
		if status == "" {
			status = models.StatusNotStarted
		}
		if status != q.Status {
			return false
		}
	}
	if q.RatingMin != nil && b.Rating < *q.RatingMin {
		return false
	}
	if q.RatingMax != nil && b.Rating > *q.RatingMax {
		return false
	}
	if b.Pages > 0 {
		if q.PagesMin != nil && b.Pages < *q.PagesMin {
			return false
		}
		if q.PagesMax != nil && b.Pages > *q.PagesMax {
			return false
		}
	}
	if q.Search != "" {
		fields := []string{b.Title, b.Author, b.Publisher, models.CategoryName(b.Category), b.Summary}
		if q.Fuzzy {
			return textmatch.FuzzyAny(q.Search, fields...)
		}
		return textmatch.ContainsAny(q.Search, fields...)
	}
	return true
}
