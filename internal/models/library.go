// file: internal/models/library.go
// version: 1.0.0
// guid: 66ab74d8-97cb-459b-af68-e1973711b279

package models

import (
	"strings"
	"time"
)

// Visibility controls whether a library is listed in the public registry.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Defaults applied when a library has never been saved.
const (
	DefaultLibraryName   = "나만의 도서관"
	DefaultLibraryAvatar = "📚"
	UnknownLibraryName   = "알 수 없는 도서관"
)

// LibraryInfo describes one owner's library.
type LibraryInfo struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty" yaml:"id,omitempty"`
	Name        string     `json:"name" bson:"name" yaml:"name"`
	Description string     `json:"description" bson:"description" yaml:"description"`
	Avatar      string     `json:"avatar" bson:"avatar" yaml:"avatar"`
	Visibility  Visibility `json:"visibility" bson:"visibility" yaml:"visibility"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at" yaml:"updated_at"`
}

// DefaultLibraryInfo is what GetLibraryInfo returns for an unknown owner.
func DefaultLibraryInfo(ownerID string, now time.Time) LibraryInfo {
	return LibraryInfo{
		ID:         ownerID,
		Name:       DefaultLibraryName,
		Avatar:     DefaultLibraryAvatar,
		Visibility: VisibilityPublic,
		CreatedAt:  now,
	}
}

// LibraryInfoPatch is a partial update of LibraryInfo.
type LibraryInfoPatch struct {
	Name        *string     `json:"name,omitempty" yaml:"name,omitempty"`
	Description *string     `json:"description,omitempty" yaml:"description,omitempty"`
	Avatar      *string     `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Visibility  *Visibility `json:"visibility,omitempty" yaml:"visibility,omitempty"`
}

// Apply merges p into info and stamps UpdatedAt. A zero CreatedAt is
// filled in so the first save of a defaulted library records its birth.
func (p LibraryInfoPatch) Apply(info *LibraryInfo, now time.Time) {
	if p.Name != nil {
		info.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		info.Description = *p.Description
	}
	if p.Avatar != nil {
		info.Avatar = *p.Avatar
	}
	if p.Visibility != nil {
		info.Visibility = *p.Visibility
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = now
	}
	info.UpdatedAt = now
}

// LibraryRegistryEntry is the public, denormalized projection of a library
// used for cross-library discovery.
type LibraryRegistryEntry struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Avatar      string    `json:"avatar" bson:"avatar"`
	BookCount   int       `json:"book_count" bson:"book_count"`
	TotalLikes  int       `json:"total_likes" bson:"total_likes"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// RegistryEntryFor projects info and stats into a registry entry.
func RegistryEntryFor(ownerID string, info LibraryInfo, stats Stats, now time.Time) LibraryRegistryEntry {
	name := info.Name
	if name == "" {
		name = DefaultLibraryName
	}
	avatar := info.Avatar
	if avatar == "" {
		avatar = DefaultLibraryAvatar
	}
	return LibraryRegistryEntry{
		ID:          ownerID,
		Name:        name,
		Description: info.Description,
		Avatar:      avatar,
		BookCount:   stats.TotalBooks,
		TotalLikes:  stats.TotalLikes,
		UpdatedAt:   now,
	}
}

// SharedLibrary is a read-only view of someone's library.
type SharedLibrary struct {
	LibraryInfo LibraryInfo `json:"library_info"`
	Books       []Book      `json:"books"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Settings holds process-wide preferences. They always live in the local
// store, whatever backend serves the library.
type Settings struct {
	Theme Theme `json:"theme"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeLight}
}
