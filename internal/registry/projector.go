// file: internal/registry/projector.go
// version: 1.0.0
// guid: 456dda7f-ca0f-40bf-81fb-7237d49921b5

// Package registry keeps the public library directory in step with each
// library's info and contents.
package registry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/storage"
)

// Projector rebuilds a library's registry entry whenever the library
// changes. Private libraries are removed from the registry.
type Projector struct {
	store   storage.Store
	timeout time.Duration
	now     func() time.Time
}

// NewProjector creates a projector over store.
func NewProjector(store storage.Store) *Projector {
	return &Projector{store: store, timeout: 10 * time.Second, now: func() time.Time { return time.Now().UTC() }}
}

// Attach subscribes the projector to every event that can change an entry.
func (p *Projector) Attach(hub *events.Hub) {
	hub.Subscribe(p.handle,
		events.LibraryInfoChanged,
		events.BookCreated,
		events.BookUpdated,
		events.BookDeleted,
		events.BookLiked,
		events.BooksImported,
	)
}

func (p *Projector) handle(e *events.Event) {
	if e.LibraryID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.Rebuild(ctx, e.LibraryID); err != nil {
		// the registry is eventually consistent; the next change retries
		log.Printf("[WARN] registry projection for %s after %s failed: %v", e.LibraryID, e.Type, err)
	}
}

// Rebuild recomputes the entry for ownerID from its info and stats.
func (p *Projector) Rebuild(ctx context.Context, ownerID string) error {
	info, err := p.store.GetLibraryInfo(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to read library info: %w", err)
	}
	if info.Visibility == models.VisibilityPrivate {
		if err := p.store.DeleteRegistryEntry(ctx, ownerID); err != nil {
			return fmt.Errorf("failed to remove private library: %w", err)
		}
		return nil
	}

	stats, err := p.store.ComputeStats(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	entry := models.RegistryEntryFor(ownerID, *info, *stats, p.now())
	if err := p.store.PutRegistryEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to write registry entry: %w", err)
	}
	return nil
}
