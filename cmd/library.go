// file: cmd/library.go
// version: 1.0.0
// guid: df6b1a94-0518-4b43-ac06-94dc18c9e5c4

package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdfalk/libshelf/internal/models"
)

var (
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Summarize your library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				stats, err := svc.library.Stats(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Books:       %d\n", stats.TotalBooks)
				fmt.Fprintf(w, "Read:        %d\n", stats.ReadBooks)
				fmt.Fprintf(w, "Likes:       %d\n", stats.TotalLikes)
				fmt.Fprintf(w, "Avg rating:  %.1f\n", stats.AvgRating)
				fmt.Fprintf(w, "Pages:       %d\n", stats.TotalPages)
				ids := make([]int, 0, len(stats.CategoryCounts))
				for id := range stats.CategoryCounts {
					ids = append(ids, id)
				}
				sort.Ints(ids)
				for _, id := range ids {
					name := models.CategoryName(id)
					if name == "" {
						name = "unclassified"
					}
					fmt.Fprintf(w, "  %-12s %d\n", name, stats.CategoryCounts[id])
				}
				return nil
			})
		},
	}

	libraryCmd = &cobra.Command{
		Use:   "library",
		Short: "Show or change your library's name and visibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				info, err := svc.library.Info(ctx)
				if err != nil {
					return err
				}
				printLibraryInfo(cmd, svc.library.Owner(), info)
				return nil
			})
		},
	}

	librarySetCmd = &cobra.Command{
		Use:   "set",
		Short: "Change library info; only the flags given are written",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var patch models.LibraryInfoPatch
			str := func(name string) *string {
				if !f.Changed(name) {
					return nil
				}
				v, _ := f.GetString(name)
				return &v
			}
			patch.Name = str("name")
			patch.Description = str("description")
			patch.Avatar = str("avatar")
			if v := str("visibility"); v != nil {
				visibility := models.Visibility(strings.ToLower(*v))
				patch.Visibility = &visibility
			}
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				info, err := svc.library.SaveInfo(ctx, patch)
				if err != nil {
					return err
				}
				printLibraryInfo(cmd, svc.library.Owner(), info)
				return nil
			})
		},
	}

	shareCmd = &cobra.Command{
		Use:   "share",
		Short: "Publish a read-only snapshot and print its link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				link, err := svc.library.Share(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Shared %d books\n%s\n", len(link.Snapshot.Books), link.URL)
				return nil
			})
		},
	}

	librariesCmd = &cobra.Command{
		Use:   "libraries [query]",
		Short: "Search public libraries by name or description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				entries, err := svc.library.SearchLibraries(ctx, query)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No libraries found.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s  (%d books, %d likes)\n",
						e.Avatar, e.Name, e.ID, e.BookCount, e.TotalLikes)
				}
				return nil
			})
		},
	}

	sharedCmd = &cobra.Command{
		Use:   "shared <library-id>",
		Short: "Show someone's shared library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				shared, err := svc.library.Shared(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (shared %s)\n",
					shared.LibraryInfo.Avatar, shared.LibraryInfo.Name, shared.CreatedAt.Local().Format("2006-01-02 15:04"))
				printBooks(cmd.OutOrStdout(), shared.Books)
				return nil
			})
		},
	}

	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				settings, err := svc.sel.Local.GetSettings(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "theme: %s\n", settings.Theme)
				return nil
			})
		},
	}

	settingsSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Change preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			theme, _ := cmd.Flags().GetString("theme")
			settings := models.Settings{Theme: models.Theme(strings.ToLower(theme))}
			if err := settings.Validate(); err != nil {
				return err
			}
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				if err := svc.sel.Local.SaveSettings(ctx, settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "theme: %s\n", settings.Theme)
				return nil
			})
		},
	}
)

func init() {
	librarySetCmd.Flags().String("name", "", "library name")
	librarySetCmd.Flags().String("description", "", "library description")
	librarySetCmd.Flags().String("avatar", "", "library avatar (an emoji)")
	librarySetCmd.Flags().String("visibility", "", "public or private")
	libraryCmd.AddCommand(librarySetCmd)

	settingsSetCmd.Flags().String("theme", string(models.ThemeLight), "light or dark")
	settingsCmd.AddCommand(settingsSetCmd)

	rootCmd.AddCommand(statsCmd, libraryCmd, shareCmd, librariesCmd, sharedCmd, settingsCmd)
}

func printLibraryInfo(cmd *cobra.Command, owner string, info *models.LibraryInfo) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", info.Avatar, info.Name)
	fmt.Fprintf(w, "ID:          %s\n", owner)
	if info.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", info.Description)
	}
	fmt.Fprintf(w, "Visibility:  %s\n", info.Visibility)
}
