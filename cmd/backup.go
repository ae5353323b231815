// file: cmd/backup.go
// version: 1.0.0
// guid: 9caca1e5-a770-4498-aa67-77cffa15f35e

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jdfalk/libshelf/internal/backup"
	"github.com/jdfalk/libshelf/internal/config"
)

var (
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore library backups",
	}

	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Write the library to a compressed backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				info, err := backup.CreateBackup(ctx, svc.library, backupConfig())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d books to %s\n", info.Books, info.Path)
				fmt.Fprintf(cmd.OutOrStdout(), "sha256 %s\n", info.Checksum)
				return nil
			})
		},
	}

	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := backup.ListBackups(config.AppConfig.BackupDir)
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups found.")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d bytes\n",
					b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.Filename, b.Size)
			}
			return nil
		},
	}

	backupRestoreCmd = &cobra.Command{
		Use:   "restore <file>",
		Short: "Re-add the books in a backup to your library",
		Long: `Re-add the books in a backup to your library. Books get new ids;
likes and related-book links are kept, and the saved library info is
merged into the current one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skipVerify, _ := cmd.Flags().GetBool("skip-verify")
			path := resolveBackupPath(args[0])
			return withServices(cmd, func(ctx context.Context, svc *services) error {
				result, err := backup.RestoreBackup(ctx, svc.library, path, !skipVerify)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d books\n", result.Books)
				if result.InfoMerged {
					fmt.Fprintln(cmd.OutOrStdout(), "Library info merged")
				}
				return nil
			})
		},
	}

	backupDeleteCmd = &cobra.Command{
		Use:   "delete <file>",
		Short: "Delete a backup and its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveBackupPath(args[0])
			if err := backup.DeleteBackup(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
			return nil
		},
	}
)

func init() {
	backupRestoreCmd.Flags().Bool("skip-verify", false, "restore even if the checksum does not match")

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd, backupDeleteCmd)
	rootCmd.AddCommand(backupCmd)
}

func backupConfig() backup.BackupConfig {
	cfg := backup.DefaultBackupConfig()
	cfg.BackupDir = config.AppConfig.BackupDir
	cfg.MaxBackups = config.AppConfig.MaxBackups
	return cfg
}

// resolveBackupPath treats a bare file name as living in the backup dir.
func resolveBackupPath(name string) string {
	if filepath.Base(name) == name {
		return filepath.Join(config.AppConfig.BackupDir, name)
	}
	return name
}
