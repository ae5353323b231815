// file: internal/likes/likes.go
// version: 1.0.0
// guid: 7361bfe7-8dfb-40ed-b3af-b852ad5ecfe0

// Package likes toggles a viewer's like on a book. The like count on the
// book and the viewer's like set live in separate documents, so a toggle
// is two writes with a compensating undo when the second one fails.
package likes

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/storage"
)

// Service toggles likes.
type Service struct {
	store storage.Store
	hub   *events.Hub
}

// NewService creates a like service. hub may be nil.
func NewService(store storage.Store, hub *events.Hub) *Service {
	return &Service{store: store, hub: hub}
}

// Result is the outcome of a toggle.
type Result struct {
	Added bool `json:"added"`
	Likes int  `json:"likes"`
}

// Toggle likes bookID for viewerID, or unlikes it if already liked.
//
// The count is adjusted first. If recording the like set then fails the
// count is adjusted back; if that undo also fails the two are left out of
// step and the condition is logged.
func (s *Service) Toggle(ctx context.Context, viewerID, ownerID, bookID string) (Result, error) {
	book, err := s.store.GetBook(ctx, ownerID, bookID)
	if err != nil {
		metrics.IncLikeToggle("failed")
		return Result{}, fmt.Errorf("failed to read book: %w", err)
	}
	if book == nil {
		return Result{}, fmt.Errorf("book %s: %w", bookID, storage.ErrNotFound)
	}

	liked, err := s.store.GetLikeSet(ctx, viewerID)
	if err != nil {
		metrics.IncLikeToggle("failed")
		return Result{}, fmt.Errorf("failed to read like set: %w", err)
	}
	added := !slices.Contains(liked, bookID)
	delta := -1
	if added {
		delta = 1
	}

	count, err := s.store.AdjustLikes(ctx, ownerID, bookID, delta)
	if err != nil {
		metrics.IncLikeToggle("failed")
		return Result{}, fmt.Errorf("failed to adjust likes: %w", err)
	}

	if err := s.store.SetLiked(ctx, viewerID, bookID, added); err != nil {
		metrics.IncLikeToggle("compensated")
		if _, undoErr := s.store.AdjustLikes(ctx, ownerID, bookID, -delta); undoErr != nil {
			log.Printf("[ERROR] like count on book %s is off by %d for viewer %s: record failed (%v), undo failed (%v)",
				bookID, delta, viewerID, err, undoErr)
		}
		return Result{}, fmt.Errorf("failed to record like: %w", err)
	}

	if added {
		metrics.IncLikeToggle("added")
	} else {
		metrics.IncLikeToggle("removed")
	}
	if s.hub != nil {
		s.hub.Emit(events.BookLiked, ownerID, map[string]any{
			"book_id": bookID,
			"added":   added,
			"likes":   count,
		})
	}
	return Result{Added: added, Likes: count}, nil
}

// IsLiked reports whether viewerID has liked bookID.
func (s *Service) IsLiked(ctx context.Context, viewerID, bookID string) (bool, error) {
	liked, err := s.store.GetLikeSet(ctx, viewerID)
	if err != nil {
		return false, err
	}
	return slices.Contains(liked, bookID), nil
}

// Liked returns every book id viewerID has liked.
func (s *Service) Liked(ctx context.Context, viewerID string) ([]string, error) {
	return s.store.GetLikeSet(ctx, viewerID)
}
