// file: internal/importer/csv.go
// version: 1.0.0
// guid: fbc91e18-91a1-46f0-9129-ba3ea6cc2808

package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/jdfalk/libshelf/internal/classifier"
	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/metrics"
	"github.com/jdfalk/libshelf/internal/models"
)

// CSV columns. Only title and author are required in the header.
const (
	ColTitle         = "title"
	ColAuthor        = "author"
	ColPublisher     = "publisher"
	ColCategory      = "category"
	ColRating        = "rating"
	ColPages         = "pages"
	ColReadingStatus = "reading_status"
	ColSummary       = "summary"
)

// Adder stores one book. library.Service satisfies it.
type Adder interface {
	Add(ctx context.Context, nb models.NewBook) (*models.Book, error)
}

// RowError reports a skipped row. Line is 1-based and counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) String() string { return fmt.Sprintf("line %d: %s", e.Line, e.Reason) }

// Row is a parsed, not yet stored, CSV row.
type Row struct {
	Line int
	Book models.NewBook
}

// CSVResult summarizes an import.
type CSVResult struct {
	Imported []models.Book `json:"imported"`
	Skipped  []RowError    `json:"skipped"`
}

// CSVOptions controls ImportCSV.
type CSVOptions struct {
	// Progress draws a progress bar on stderr.
	Progress bool
	// Hub, when set, receives a books.imported event for LibraryID.
	Hub       *events.Hub
	LibraryID string
}

// ParseCSV reads a header row and then one book per row. Rows with bad
// values are returned as RowErrors instead of failing the whole file.
func ParseCSV(r io.Reader) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: CSV file is empty", ErrImportFailed)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading CSV header: %v", ErrImportFailed, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, required := range []string{ColTitle, ColAuthor} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("%w: CSV header has no %q column", ErrImportFailed, required)
		}
	}

	var rows []Row
	var skipped []RowError
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("%w: reading CSV record: %v", ErrImportFailed, err)
		}

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		nb, reason := rowBook(get)
		if reason != "" {
			skipped = append(skipped, RowError{Line: line, Reason: reason})
			continue
		}
		rows = append(rows, Row{Line: line, Book: nb})
	}
	return rows, skipped, nil
}

func rowBook(get func(string) string) (models.NewBook, string) {
	nb := models.NewBook{
		Title:     get(ColTitle),
		Author:    get(ColAuthor),
		Publisher: get(ColPublisher),
		Summary:   get(ColSummary),
		Category:  models.Unclassified,
	}
	if nb.Title == "" || nb.Author == "" {
		return nb, "title and author are required"
	}

	if raw := get(ColCategory); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			nb.Category = id
		} else {
			nb.Category = classifier.Classify(raw)
		}
	}
	if raw := get(ColRating); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nb, fmt.Sprintf("rating %q is not a number", raw)
		}
		nb.Rating = n
	}
	if raw := get(ColPages); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nb, fmt.Sprintf("pages %q is not a number", raw)
		}
		nb.Pages = n
	}
	if raw := get(ColReadingStatus); raw != "" {
		nb.ReadingStatus = models.ReadingStatus(raw)
	}

	if err := nb.Validate(); err != nil {
		return nb, err.Error()
	}
	return nb, ""
}

// ImportCSV parses r and adds every valid row through adder. Rows the
// store rejects as invalid are skipped; any other store error stops the
// import and is returned alongside what was imported so far.
func ImportCSV(ctx context.Context, adder Adder, r io.Reader, opts CSVOptions) (*CSVResult, error) {
	rows, skipped, err := ParseCSV(r)
	if err != nil {
		metrics.IncImport("csv", "failed")
		return nil, err
	}

	result := &CSVResult{Imported: []models.Book{}, Skipped: skipped}

	var bar *progressbar.ProgressBar
	if opts.Progress && len(rows) > 0 {
		bar = progressbar.Default(int64(len(rows)), "importing")
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		book, err := adder.Add(ctx, row.Book)
		if bar != nil {
			_ = bar.Add(1)
		}
		if errors.Is(err, models.ErrValidation) {
			result.Skipped = append(result.Skipped, RowError{Line: row.Line, Reason: err.Error()})
			continue
		}
		if err != nil {
			metrics.IncImport("csv", "failed")
			return result, fmt.Errorf("line %d: %w", row.Line, err)
		}
		result.Imported = append(result.Imported, *book)
	}

	for _, s := range result.Skipped {
		log.Printf("[WARN] CSV import skipped %s", s)
	}
	log.Printf("[INFO] CSV import finished: %d imported, %d skipped", len(result.Imported), len(result.Skipped))

	metrics.IncImport("csv", "ok")
	if opts.Hub != nil && len(result.Imported) > 0 {
		opts.Hub.Emit(events.BooksImported, opts.LibraryID, map[string]any{
			"source":   "csv",
			"imported": len(result.Imported),
			"skipped":  len(result.Skipped),
		})
	}
	return result, nil
}
