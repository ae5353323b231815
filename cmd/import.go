// file: cmd/import.go
// version: 1.0.0
// guid: 4e2b3e20-3e63-453c-975f-9be0e325916f

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdfalk/libshelf/internal/importer"
	"github.com/jdfalk/libshelf/internal/metrics"
)

var (
	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Import books from a product page or a CSV file",
	}

	importPageCmd = &cobra.Command{
		Use:   "page <file|->",
		Short: "Extract a book from a saved bookseller product page",
		Long: `Extract title, author, publisher, cover and category from a saved
product page. Without --save the extracted book is only printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			page, err := importer.ExtractPage(r)
			if err != nil {
				metrics.IncImport("page", "failed")
				fmt.Fprintln(cmd.ErrOrStderr(), importer.FailureHint)
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Title:     %s\n", page.Title)
			fmt.Fprintf(w, "Author:    %s\n", page.Author)
			fmt.Fprintf(w, "Publisher: %s\n", page.Publisher)
			fmt.Fprintf(w, "Image:     %s\n", page.Image)
			fmt.Fprintf(w, "Category:  %d (%s)\n", page.Category, page.CategoryLabel)

			save, _ := cmd.Flags().GetBool("save")
			if !save {
				metrics.IncImport("page", "ok")
				return nil
			}
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				book, err := svc.library.Add(ctx, page.NewBook())
				if err != nil {
					metrics.IncImport("page", "failed")
					return err
				}
				metrics.IncImport("page", "ok")
				fmt.Fprintf(w, "Added %s\n", book.ID)
				return nil
			})
		},
	}

	importCSVCmd = &cobra.Command{
		Use:   "csv <file|->",
		Short: "Add every row of a CSV file",
		Long: `Add every row of a CSV file. The header must name title and author
columns; publisher, category, rating, pages, reading_status and summary
are optional. Rows that fail validation are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			progress, _ := cmd.Flags().GetBool("progress")
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				result, err := importer.ImportCSV(ctx, svc.library, r, importer.CSVOptions{
					Progress:  progress,
					Hub:       svc.hub,
					LibraryID: svc.library.Owner(),
				})
				if result != nil {
					w := cmd.OutOrStdout()
					fmt.Fprintf(w, "Imported %d books\n", len(result.Imported))
					for _, s := range result.Skipped {
						fmt.Fprintf(w, "Skipped %s\n", s)
					}
				}
				return err
			})
		},
	}
)

func init() {
	importPageCmd.Flags().Bool("save", false, "add the extracted book to your library")
	importCSVCmd.Flags().Bool("progress", true, "show a progress bar")

	importCmd.AddCommand(importPageCmd, importCSVCmd)
	rootCmd.AddCommand(importCmd)
}

// openInput opens path, or the command's stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
