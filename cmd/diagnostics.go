// file: cmd/diagnostics.go
// version: 2.1.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/jdfalk/libshelf/internal/config"
	"github.com/jdfalk/libshelf/internal/kv"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/registry"
)

var errStopScan = errors.New("stop scan")

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting and repairing the library store.",
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup-invalid",
		Short: "Remove books that no longer pass validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				return runCleanupInvalidBooks(ctx, cmd, svc, force, dryRun)
			})
		},
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Dump raw key/value records from the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			return runRawQuery(cmd.OutOrStdout(), limit, prefix)
		},
	}

	rebuildRegistryCmd = &cobra.Command{
		Use:   "rebuild-registry",
		Short: "Recompute this library's public registry entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				owner := svc.library.Owner()
				if err := registry.NewProjector(svc.sel.Store).Rebuild(ctx, owner); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt registry entry for %s\n", owner)
				return nil
			})
		},
	}
)

func init() {
	cleanupCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	cleanupCmd.Flags().Bool("dry-run", false, "List invalid records without deleting")

	queryCmd.Flags().Int("limit", 5, "Number of records to display")
	queryCmd.Flags().String("prefix", "", "Key prefix to inspect")

	diagnosticsCmd.AddCommand(cleanupCmd, queryCmd, rebuildRegistryCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

// invalidReason explains why a stored book would be rejected today, or
// returns "" for a valid one.
func invalidReason(b models.Book) string {
	switch {
	case strings.TrimSpace(b.Title) == "":
		return "missing title"
	case strings.TrimSpace(b.Author) == "":
		return "missing author"
	case b.Rating < 0 || b.Rating > 5:
		return fmt.Sprintf("rating %d out of range", b.Rating)
	case !models.ValidCategory(b.Category):
		return fmt.Sprintf("unknown category %d", b.Category)
	case b.ReadingStatus != "" && !b.ReadingStatus.Valid():
		return fmt.Sprintf("unknown reading status %q", b.ReadingStatus)
	}
	return ""
}

func runCleanupInvalidBooks(ctx context.Context, cmd *cobra.Command, svc *services, force, dryRun bool) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Inspecting books in library %s (%s)\n", svc.library.Owner(), svc.library.Backend())

	books, err := svc.library.All(ctx)
	if err != nil {
		return err
	}
	var invalid []models.Book
	for _, b := range books {
		if invalidReason(b) != "" {
			invalid = append(invalid, b)
		}
	}

	if len(invalid) == 0 {
		fmt.Fprintln(w, "No invalid book records detected.")
		return nil
	}

	fmt.Fprintf(w, "Found %d invalid records:\n", len(invalid))
	for i, book := range invalid {
		fmt.Fprintf(w, "%2d. ID: %s\n", i+1, book.ID)
		fmt.Fprintf(w, "    Title:  %s\n", book.Title)
		fmt.Fprintf(w, "    Reason: %s\n", invalidReason(book))
	}

	if dryRun {
		fmt.Fprintln(w, "Dry run enabled; no deletions were performed.")
		return nil
	}

	if !force {
		confirmed, err := promptYesNo(cmd.InOrStdin(), w, fmt.Sprintf("Delete %d records", len(invalid)))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(w, "Aborted. No records deleted.")
			return nil
		}
	}

	deleted := 0
	for _, book := range invalid {
		if err := svc.library.Delete(ctx, book.ID); err != nil {
			fmt.Fprintf(w, "Failed to delete %s: %v\n", book.ID, err)
			continue
		}
		deleted++
	}

	fmt.Fprintf(w, "Deleted %d invalid records.\n", deleted)
	return nil
}

// runRawQuery opens the local engine directly, so it must not run while
// a server holds the store.
func runRawQuery(w io.Writer, limit int, prefix string) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	cfg := config.AppConfig
	engine, err := kv.Open(cfg.LocalEngine, cfg.DataDir, cfg.EnableSQLite)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer engine.Close()

	count := 0
	err = engine.Scan(prefix, func(key string, value []byte) error {
		fmt.Fprintf(w, "Key: %s\n", key)
		fmt.Fprintf(w, "Value length: %d bytes\n", len(value))
		fmt.Fprintf(w, "Value preview: %s\n", truncateString(string(value), 500))
		fmt.Fprintln(w, "---")
		count++
		if count >= limit {
			return errStopScan
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return fmt.Errorf("scan error: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(w, "No keys matched the requested prefix.")
	}
	return nil
}

func promptYesNo(in io.Reader, out io.Writer, action string) (bool, error) {
	fmt.Fprintf(out, "%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

// truncateString cuts in to at most max bytes, backing off to the start of
// a rune so multi-byte text stays valid.
func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(in[cut]) {
		cut--
	}
	return in[:cut] + "..."
}
