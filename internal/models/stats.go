// file: internal/models/stats.go
// version: 1.0.0
// guid: f01a7708-ce49-4085-9e70-27aa6a894a85

package models

import "math"

// Stats is derived from a full scan of a library and never stored.
type Stats struct {
	TotalBooks          int                   `json:"total_books"`
	ReadBooks           int                   `json:"read_books"`
	TotalLikes          int                   `json:"total_likes"`
	CategoryCounts      map[int]int           `json:"category_counts"`
	ReadingStatusCounts map[ReadingStatus]int `json:"reading_status_counts"`
	AvgRating           float64               `json:"avg_rating"`
	TotalPages          int                   `json:"total_pages"`
}

// ComputeStats scans books. Books with no reading status count as not
// started; the average rating is rounded to one decimal.
func ComputeStats(books []Book) Stats {
	stats := Stats{
		CategoryCounts: make(map[int]int),
		ReadingStatusCounts: map[ReadingStatus]int{
			StatusNotStarted: 0,
			StatusReading:    0,
			StatusCompleted:  0,
		},
	}

	ratingSum := 0
	for _, b := range books {
		stats.TotalBooks++
		stats.TotalLikes += max(0, b.Likes)
		stats.TotalPages += max(0, b.Pages)
		stats.CategoryCounts[b.Category]++
		ratingSum += b.Rating

		status := b.ReadingStatus
		if !status.Valid() {
			status = StatusNotStarted
		}
		stats.ReadingStatusCounts[status]++
		if status == StatusCompleted {
			stats.ReadBooks++
		}
	}

	if stats.TotalBooks > 0 {
		avg := float64(ratingSum) / float64(stats.TotalBooks)
		stats.AvgRating = math.Round(avg*10) / 10
	}
	return stats
}
