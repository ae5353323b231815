// file: internal/server/response_types.go
// version: 2.0.0
// guid: 7f8a9b0c-1d2e-3f4a-5b6c-7d8e9f0a1b2c

package server

import "github.com/jdfalk/libshelf/internal/models"

// ListResponse provides a consistent format for list responses
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}

// NewListResponse creates a new ListResponse
func NewListResponse(items any, count int, limit int) *ListResponse {
	return &ListResponse{
		Items: items,
		Count: count,
		Limit: limit,
	}
}

// DeleteResponse provides a consistent format for deletion responses
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// HealthResponse reports which store is serving and whether the cloud
// store has recently failed over.
type HealthResponse struct {
	Status    string `json:"status"` // "ok" or "degraded"
	Backend   string `json:"backend"`
	LibraryID string `json:"library_id"`
	Timestamp int64  `json:"timestamp"`
	Uptime    int64  `json:"uptime_seconds"`
	Error     string `json:"error,omitempty"`
}

// LikeResponse is the result of toggling a like.
type LikeResponse struct {
	BookID string `json:"book_id"`
	Liked  bool   `json:"liked"`
	Likes  int    `json:"likes"`
}

// ClassifyRequest carries one or more labels to classify.
type ClassifyRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// ClassifyResponse names the category a label maps to.
type ClassifyResponse struct {
	Category int    `json:"category"`
	Name     string `json:"name"`
}

// SharedLibraryResponse is a read-only view of someone's library.
type SharedLibraryResponse struct {
	*models.SharedLibrary
	URL string `json:"url"`
}
