// file: internal/models/book.go
// version: 1.0.0
// guid: 16133796-de7e-49de-ad39-df8a18a2213d

package models

import (
	"sort"
	"strings"
	"time"
)

// ReadingStatus tracks how far the owner is through a book.
type ReadingStatus string

const (
	StatusNotStarted ReadingStatus = "not_started"
	StatusReading    ReadingStatus = "reading"
	StatusCompleted  ReadingStatus = "completed"
)

// ReadingStatuses lists every status in display order.
var ReadingStatuses = []ReadingStatus{StatusNotStarted, StatusReading, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusReading, StatusCompleted:
		return true
	}
	return false
}

// Book is one entry in a library.
type Book struct {
	ID               string        `json:"id" bson:"_id" yaml:"id"`
	Title            string        `json:"title" bson:"title" yaml:"title"`
	Author           string        `json:"author" bson:"author" yaml:"author"`
	Publisher        string        `json:"publisher,omitempty" bson:"publisher,omitempty" yaml:"publisher,omitempty"`
	Image            string        `json:"image,omitempty" bson:"image,omitempty" yaml:"image,omitempty"`
	Category         int           `json:"category" bson:"category" yaml:"category"`
	Rating           int           `json:"rating" bson:"rating" yaml:"rating"`
	Summary          string        `json:"summary,omitempty" bson:"summary,omitempty" yaml:"summary,omitempty"`
	TableOfContents  []string      `json:"table_of_contents" bson:"table_of_contents" yaml:"table_of_contents"`
	RelatedBooks     []string      `json:"related_books" bson:"related_books" yaml:"related_books"`
	Likes            int           `json:"likes" bson:"likes" yaml:"likes"`
	ReadingStatus    ReadingStatus `json:"reading_status" bson:"reading_status" yaml:"reading_status"`
	ReadingStartDate *time.Time    `json:"reading_start_date,omitempty" bson:"reading_start_date,omitempty" yaml:"reading_start_date,omitempty"`
	ReadingEndDate   *time.Time    `json:"reading_end_date,omitempty" bson:"reading_end_date,omitempty" yaml:"reading_end_date,omitempty"`
	Pages            int           `json:"pages,omitempty" bson:"pages,omitempty" yaml:"pages,omitempty"`
	CreatedAt        time.Time     `json:"created_at" bson:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" bson:"updated_at" yaml:"updated_at"`
}

// NewBook carries the caller-supplied fields of a book being added.
// The store assigns ID, Likes and the timestamps.
type NewBook struct {
	Title            string        `json:"title"`
	Author           string        `json:"author"`
	Publisher        string        `json:"publisher,omitempty"`
	Image            string        `json:"image,omitempty"`
	Category         int           `json:"category"`
	Rating           int           `json:"rating"`
	Summary          string        `json:"summary,omitempty"`
	TableOfContents  []string      `json:"table_of_contents,omitempty"`
	RelatedBooks     []string      `json:"related_books,omitempty"`
	ReadingStatus    ReadingStatus `json:"reading_status,omitempty"`
	ReadingStartDate *time.Time    `json:"reading_start_date,omitempty"`
	ReadingEndDate   *time.Time    `json:"reading_end_date,omitempty"`
	Pages            int           `json:"pages,omitempty"`
}

// Materialize builds the stored form of nb. Empty sequences are kept
// non-nil so both backends serialize them identically.
func (nb NewBook) Materialize(id string, now time.Time) Book {
	status := nb.ReadingStatus
	if status == "" {
		status = StatusNotStarted
	}
	return Book{
		ID:               id,
		Title:            strings.TrimSpace(nb.Title),
		Author:           strings.TrimSpace(nb.Author),
		Publisher:        strings.TrimSpace(nb.Publisher),
		Image:            nb.Image,
		Category:         nb.Category,
		Rating:           nb.Rating,
		Summary:          nb.Summary,
		TableOfContents:  cleanStrings(nb.TableOfContents),
		RelatedBooks:     cleanStrings(nb.RelatedBooks),
		Likes:            0,
		ReadingStatus:    status,
		ReadingStartDate: nb.ReadingStartDate,
		ReadingEndDate:   nb.ReadingEndDate,
		Pages:            nb.Pages,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// BookPatch is a partial update. Nil fields are left untouched.
type BookPatch struct {
	Title            *string        `json:"title,omitempty"`
	Author           *string        `json:"author,omitempty"`
	Publisher        *string        `json:"publisher,omitempty"`
	Image            *string        `json:"image,omitempty"`
	Category         *int           `json:"category,omitempty"`
	Rating           *int           `json:"rating,omitempty"`
	Summary          *string        `json:"summary,omitempty"`
	TableOfContents  *[]string      `json:"table_of_contents,omitempty"`
	RelatedBooks     *[]string      `json:"related_books,omitempty"`
	Likes            *int           `json:"likes,omitempty"`
	ReadingStatus    *ReadingStatus `json:"reading_status,omitempty"`
	ReadingStartDate *time.Time     `json:"reading_start_date,omitempty"`
	ReadingEndDate   *time.Time     `json:"reading_end_date,omitempty"`
	Pages            *int           `json:"pages,omitempty"`
}

// IsEmpty reports whether the patch changes nothing besides updated_at.
func (p BookPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply shallow-merges p into b and stamps UpdatedAt.
func (p BookPatch) Apply(b *Book, now time.Time) {
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		b.Author = strings.TrimSpace(*p.Author)
	}
	if p.Publisher != nil {
		b.Publisher = strings.TrimSpace(*p.Publisher)
	}
	if p.Image != nil {
		b.Image = *p.Image
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Rating != nil {
		b.Rating = *p.Rating
	}
	if p.Summary != nil {
		b.Summary = *p.Summary
	}
	if p.TableOfContents != nil {
		b.TableOfContents = cleanStrings(*p.TableOfContents)
	}
	if p.RelatedBooks != nil {
		b.RelatedBooks = cleanStrings(*p.RelatedBooks)
	}
	if p.Likes != nil {
		b.Likes = max(0, *p.Likes)
	}
	if p.ReadingStatus != nil {
		b.ReadingStatus = *p.ReadingStatus
	}
	if p.ReadingStartDate != nil {
		t := *p.ReadingStartDate
		b.ReadingStartDate = &t
	}
	if p.ReadingEndDate != nil {
		t := *p.ReadingEndDate
		b.ReadingEndDate = &t
	}
	if p.Pages != nil {
		b.Pages = *p.Pages
	}
	b.UpdatedAt = now
}

// Fields returns the set fields keyed by their stored (bson/json) names,
// with the same normalization Apply performs. The cloud store turns this
// into a $set document.
func (p BookPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.Title != nil {
		f["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		f["author"] = strings.TrimSpace(*p.Author)
	}
	if p.Publisher != nil {
		f["publisher"] = strings.TrimSpace(*p.Publisher)
	}
	if p.Image != nil {
		f["image"] = *p.Image
	}
	if p.Category != nil {
		f["category"] = *p.Category
	}
	if p.Rating != nil {
		f["rating"] = *p.Rating
	}
	if p.Summary != nil {
		f["summary"] = *p.Summary
	}
	if p.TableOfContents != nil {
		f["table_of_contents"] = cleanStrings(*p.TableOfContents)
	}
	if p.RelatedBooks != nil {
		f["related_books"] = cleanStrings(*p.RelatedBooks)
	}
	if p.Likes != nil {
		f["likes"] = max(0, *p.Likes)
	}
	if p.ReadingStatus != nil {
		f["reading_status"] = *p.ReadingStatus
	}
	if p.ReadingStartDate != nil {
		f["reading_start_date"] = *p.ReadingStartDate
	}
	if p.ReadingEndDate != nil {
		f["reading_end_date"] = *p.ReadingEndDate
	}
	if p.Pages != nil {
		f["pages"] = *p.Pages
	}
	return f
}

// SortNewestFirst orders books by CreatedAt descending, breaking ties by
// ID descending. Every backend returns ListBooks in this order.
func SortNewestFirst(books []Book) {
	sort.SliceStable(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID > books[j].ID
	})
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
