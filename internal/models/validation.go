// file: internal/models/validation.go
// version: 1.0.0
// guid: 4726cac9-250f-48f9-b848-2030e1b3c6b3

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%s)", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks a book before it is written. Title and author are
// required; everything else must be in range when present.
func (nb NewBook) Validate() error {
	if strings.TrimSpace(nb.Title) == "" {
		return invalid("title", "required")
	}
	if strings.TrimSpace(nb.Author) == "" {
		return invalid("author", "required")
	}
	return validateRanges(&nb.Category, &nb.Rating, &nb.Pages, statusPtr(nb.ReadingStatus))
}

// Validate checks the fields a patch sets.
func (p BookPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", "cannot be empty")
	}
	if p.Author != nil && strings.TrimSpace(*p.Author) == "" {
		return invalid("author", "cannot be empty")
	}
	if p.Likes != nil && *p.Likes < 0 {
		return invalid("likes", "must not be negative")
	}
	return validateRanges(p.Category, p.Rating, p.Pages, p.ReadingStatus)
}

// Validate checks the fields an info patch sets.
func (p LibraryInfoPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("name", "cannot be empty")
	}
	if p.Visibility != nil && *p.Visibility != VisibilityPublic && *p.Visibility != VisibilityPrivate {
		return invalid("visibility", "must be public or private")
	}
	return nil
}

// Validate checks a settings value.
func (s Settings) Validate() error {
	if s.Theme != ThemeLight && s.Theme != ThemeDark {
		return invalid("theme", "must be light or dark")
	}
	return nil
}

func statusPtr(s ReadingStatus) *ReadingStatus {
	if s == "" {
		return nil
	}
	return &s
}

func validateRanges(category, rating, pages *int, status *ReadingStatus) error {
	if category != nil && !ValidCategory(*category) {
		return invalid("category", "must be between -1 and 8")
	}
	if rating != nil && (*rating < 0 || *rating > 5) {
		return invalid("rating", "must be between 0 and 5")
	}
	if pages != nil && *pages < 0 {
		return invalid("pages", "must not be negative")
	}
	if status != nil && !status.Valid() {
		return invalid("reading_status", "must be not_started, reading or completed")
	}
	return nil
}
