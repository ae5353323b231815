// file: cmd/books.go
// version: 1.0.0
// guid: c3474e22-25bb-4efb-bcf2-484752892c30

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdfalk/libshelf/internal/classifier"
	"github.com/jdfalk/libshelf/internal/library"
	"github.com/jdfalk/libshelf/internal/models"
)

var (
	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a book to your library",
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, err := newBookFromFlags(cmd)
			if err != nil {
				return err
			}
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				book, err := svc.library.Add(ctx, nb)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", book.ID)
				printBook(cmd.OutOrStdout(), book)
				return nil
			})
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List books, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				books, err := svc.library.List(ctx, q)
				if err != nil {
					return err
				}
				printBooks(cmd.OutOrStdout(), books)
				return nil
			})
		},
	}

	showCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				book, err := svc.library.Get(ctx, args[0])
				if err != nil {
					return err
				}
				printBookDetail(cmd.OutOrStdout(), book)
				return nil
			})
		},
	}

	updateCmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a book",
		Long:  "Change fields of a book. Only the flags given on the command line are written.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := patchFromFlags(cmd)
			if err != nil {
				return err
			}
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				book, err := svc.library.Update(ctx, args[0], patch)
				if err != nil {
					return err
				}
				printBook(cmd.OutOrStdout(), book)
				return nil
			})
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.library.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}

	likeCmd = &cobra.Command{
		Use:   "like <id>",
		Short: "Like a book, or unlike it if already liked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewer, _ := cmd.Flags().GetString("viewer")
			owner, _ := cmd.Flags().GetString("library")
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				if viewer == "" {
					viewer = svc.library.Owner()
				}
				if owner == "" {
					owner = svc.library.Owner()
				}
				res, err := svc.likes.Toggle(ctx, viewer, owner, args[0])
				if err != nil {
					return err
				}
				verb := "Unliked"
				if res.Added {
					verb = "Liked"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d likes)\n", verb, args[0], res.Likes)
				return nil
			})
		},
	}

	classifyCmd = &cobra.Command{
		Use:   "classify <text>...",
		Short: "Map a subject label to a KDC category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := classifier.Classify(strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", category, models.CategoryName(category))
			return nil
		},
	}

	categoriesCmd = &cobra.Command{
		Use:   "categories",
		Short: "List the KDC categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range models.Categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		c.Flags().String("title", "", "book title")
		c.Flags().String("author", "", "author")
		c.Flags().String("publisher", "", "publisher")
		c.Flags().String("image", "", "cover image URL")
		c.Flags().String("category", "", "KDC category number (0-8) or a subject label to classify")
		c.Flags().Int("rating", 0, "rating from 0 to 5")
		c.Flags().Int("pages", 0, "page count")
		c.Flags().String("status", "", "reading status: not_started, reading or completed")
		c.Flags().String("summary", "", "short summary")
		c.Flags().StringSlice("related", nil, "ids of related books")
	}

	listCmd.Flags().String("category", "", "only books in this KDC category")
	listCmd.Flags().String("search", "", "match title or author")
	listCmd.Flags().Bool("fuzzy", false, "tolerate typos in --search")
	listCmd.Flags().String("sort", library.SortLatest, "latest, popular or rating")
	listCmd.Flags().String("status", "", "only books with this reading status")
	listCmd.Flags().Int("limit", 0, "show at most this many books")

	likeCmd.Flags().String("viewer", "", "who is liking (default: the library owner)")
	likeCmd.Flags().String("library", "", "library the book belongs to (default: yours)")

	rootCmd.AddCommand(addCmd, listCmd, showCmd, updateCmd, deleteCmd, likeCmd, classifyCmd, categoriesCmd)
}

// parseCategory accepts a category number or a label to classify.
func parseCategory(raw string) int {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return classifier.Classify(raw)
}

func newBookFromFlags(cmd *cobra.Command) (models.NewBook, error) {
	f := cmd.Flags()
	nb := models.NewBook{Category: models.Unclassified}
	nb.Title, _ = f.GetString("title")
	nb.Author, _ = f.GetString("author")
	nb.Publisher, _ = f.GetString("publisher")
	nb.Image, _ = f.GetString("image")
	nb.Rating, _ = f.GetInt("rating")
	nb.Pages, _ = f.GetInt("pages")
	nb.Summary, _ = f.GetString("summary")
	nb.RelatedBooks, _ = f.GetStringSlice("related")
	if raw, _ := f.GetString("category"); raw != "" {
		nb.Category = parseCategory(raw)
	}
	status, _ := f.GetString("status")
	nb.ReadingStatus = models.ReadingStatus(status)
	return nb, nb.Validate()
}

func patchFromFlags(cmd *cobra.Command) (models.BookPatch, error) {
	f := cmd.Flags()
	var p models.BookPatch
	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return &v
	}
	p.Title = str("title")
	p.Author = str("author")
	p.Publisher = str("publisher")
	p.Image = str("image")
	p.Summary = str("summary")
	p.Rating = num("rating")
	p.Pages = num("pages")
	if raw := str("category"); raw != nil {
		category := parseCategory(*raw)
		p.Category = &category
	}
	if raw := str("status"); raw != nil {
		status := models.ReadingStatus(*raw)
		p.ReadingStatus = &status
	}
	if f.Changed("related") {
		related, _ := f.GetStringSlice("related")
		p.RelatedBooks = &related
	}
	if p.IsEmpty() {
		return p, fmt.Errorf("nothing to update: pass at least one field flag")
	}
	return p, p.Validate()
}

func queryFromFlags(cmd *cobra.Command) (library.Query, error) {
	f := cmd.Flags()
	var q library.Query
	if raw, _ := f.GetString("category"); raw != "" {
		category := parseCategory(raw)
		q.Category = &category
	}
	q.Search, _ = f.GetString("search")
	q.Fuzzy, _ = f.GetBool("fuzzy")
	q.Sort, _ = f.GetString("sort")
	status, _ := f.GetString("status")
	q.Status = models.ReadingStatus(status)
	q.Limit, _ = f.GetInt("limit")
	return q, q.Validate()
}

func printBook(w io.Writer, b *models.Book) {
	fmt.Fprintf(w, "%s  %s / %s  [%s]  rating %d  likes %d  %s\n",
		b.ID, b.Title, b.Author, models.CategoryName(b.Category), b.Rating, b.Likes, b.ReadingStatus)
}

func printBooks(w io.Writer, books []models.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	for i := range books {
		printBook(w, &books[i])
	}
	fmt.Fprintf(w, "%d books\n", len(books))
}

func printBookDetail(w io.Writer, b *models.Book) {
	fmt.Fprintf(w, "ID:        %s\n", b.ID)
	fmt.Fprintf(w, "Title:     %s\n", b.Title)
	fmt.Fprintf(w, "Author:    %s\n", b.Author)
	if b.Publisher != "" {
		fmt.Fprintf(w, "Publisher: %s\n", b.Publisher)
	}
	fmt.Fprintf(w, "Category:  %d %s\n", b.Category, models.CategoryName(b.Category))
	fmt.Fprintf(w, "Rating:    %d\n", b.Rating)
	fmt.Fprintf(w, "Likes:     %d\n", b.Likes)
	fmt.Fprintf(w, "Status:    %s\n", b.ReadingStatus)
	if b.Pages > 0 {
		fmt.Fprintf(w, "Pages:     %d\n", b.Pages)
	}
	if b.Summary != "" {
		fmt.Fprintf(w, "Summary:   %s\n", b.Summary)
	}
	if len(b.RelatedBooks) > 0 {
		fmt.Fprintf(w, "Related:   %s\n", strings.Join(b.RelatedBooks, ", "))
	}
	fmt.Fprintf(w, "Added:     %s\n", b.CreatedAt.Local().Format("2006-01-02 15:04"))
}
