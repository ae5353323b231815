// file: internal/backup/backup.go
// version: 2.0.0
// guid: 8f9e0a1b-2c3d-4e5f-6a7b-8c9d0e1f2a3b

package backup

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jdfalk/libshelf/internal/models"
)

const (
	filePrefix     = "libshelf_"
	fileSuffix     = ".yaml.gz"
	checksumSuffix = ".sha256"
	formatVersion  = 1
)

// ErrChecksumMismatch means a backup file does not match its recorded checksum.
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9-]+`)

// BackupInfo contains information about a backup
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	LibraryID string    `json:"library_id"`
	Books     int       `json:"books,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupConfig holds backup configuration
type BackupConfig struct {
	BackupDir        string
	MaxBackups       int
	CompressionLevel int
}

// DefaultBackupConfig returns default backup configuration
func DefaultBackupConfig() BackupConfig {
	return BackupConfig{
		BackupDir:        "backups",
		MaxBackups:       10,
		CompressionLevel: gzip.BestCompression,
	}
}

// Snapshot is the document stored inside a backup file.
type Snapshot struct {
	Version   int                 `yaml:"version"`
	LibraryID string              `yaml:"library_id"`
	CreatedAt time.Time           `yaml:"created_at"`
	Info      *models.LibraryInfo `yaml:"info,omitempty"`
	Books     []models.Book       `yaml:"books"`
}

// Source is the library being backed up. library.Service satisfies it.
type Source interface {
	Owner() string
	All(ctx context.Context) ([]models.Book, error)
	Info(ctx context.Context) (*models.LibraryInfo, error)
}

// Target receives restored books. library.Service satisfies it.
type Target interface {
	Add(ctx context.Context, nb models.NewBook) (*models.Book, error)
	Update(ctx context.Context, id string, patch models.BookPatch) (*models.Book, error)
	SaveInfo(ctx context.Context, patch models.LibraryInfoPatch) (*models.LibraryInfo, error)
}

// CreateBackup writes the source library to a compressed YAML file and a
// checksum file next to it, then prunes old backups.
func CreateBackup(ctx context.Context, src Source, config BackupConfig) (*BackupInfo, error) {
	books, err := src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	info, err := src.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read library info: %w", err)
	}

	now := time.Now().UTC()
	snap := Snapshot{
		Version:   formatVersion,
		LibraryID: src.Owner(),
		CreatedAt: now,
		Info:      info,
		Books:     books,
	}

	if err := os.MkdirAll(config.BackupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Generate backup filename with timestamp
	backupFilename := fmt.Sprintf("%s%s_%s%s", filePrefix, fileLabel(src.Owner()), now.Format("20060102_150405.000"), fileSuffix)
	backupPath := filepath.Join(config.BackupDir, backupFilename)

	if err := writeSnapshot(backupPath, &snap, config.CompressionLevel); err != nil {
		os.Remove(backupPath)
		return nil, err
	}

	fileInfo, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}
	checksum, err := calculateFileChecksum(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}
	if err := os.WriteFile(backupPath+checksumSuffix, []byte(checksum+"  "+backupFilename+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to write checksum file: %w", err)
	}

	log.Printf("[INFO] Created backup %s (%d books)", backupPath, len(books))

	if err := cleanupOldBackups(config.BackupDir, config.MaxBackups); err != nil {
		log.Printf("[WARN] failed to clean up old backups: %v", err)
	}

	return &BackupInfo{
		Filename:  backupFilename,
		Path:      backupPath,
		Size:      fileInfo.Size(),
		Checksum:  checksum,
		LibraryID: snap.LibraryID,
		Books:     len(books),
		CreatedAt: now,
	}, nil
}

func writeSnapshot(path string, snap *Snapshot, level int) error {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	backupFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer backupFile.Close()

	gzipWriter, err := gzip.NewWriterLevel(backupFile, level)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	gzipWriter.Name = strings.TrimSuffix(filepath.Base(path), ".gz")

	enc := yaml.NewEncoder(gzipWriter)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	if err := backupFile.Close(); err != nil {
		return fmt.Errorf("failed to close backup file: %w", err)
	}
	return nil
}

// LoadBackup reads a backup file. With verify set, the file must match the
// checksum recorded next to it.
func LoadBackup(backupPath string, verify bool) (*Snapshot, error) {
	if verify {
		if err := verifyChecksum(backupPath); err != nil {
			return nil, err
		}
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer backupFile.Close()

	gzipReader, err := gzip.NewReader(backupFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	var snap Snapshot
	if err := yaml.NewDecoder(gzipReader).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if snap.Version > formatVersion {
		return nil, fmt.Errorf("backup format version %d is newer than supported version %d", snap.Version, formatVersion)
	}
	return &snap, nil
}

// RestoreResult reports what a restore changed.
type RestoreResult struct {
	Books      int  `json:"books"`
	InfoMerged bool `json:"info_merged"`
}

// RestoreBackup re-adds every book in the backup to target under new ids,
// keeping likes and related-book links, and merges the saved library info.
func RestoreBackup(ctx context.Context, target Target, backupPath string, verify bool) (*RestoreResult, error) {
	snap, err := LoadBackup(backupPath, verify)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	ids := make(map[string]string, len(snap.Books))
	type pending struct {
		id  string
		old models.Book
	}
	var restored []pending

	// Oldest first so the restored library keeps the same newest-first order.
	for i := len(snap.Books) - 1; i >= 0; i-- {
		old := snap.Books[i]
		added, err := target.Add(ctx, toNewBook(old))
		if err != nil {
			return result, fmt.Errorf("failed to restore book %q: %w", old.Title, err)
		}
		ids[old.ID] = added.ID
		restored = append(restored, pending{id: added.ID, old: old})
		result.Books++
	}

	for _, p := range restored {
		var patch models.BookPatch
		if p.old.Likes > 0 {
			likes := p.old.Likes
			patch.Likes = &likes
		}
		if len(p.old.RelatedBooks) > 0 {
			related := make([]string, 0, len(p.old.RelatedBooks))
			for _, id := range p.old.RelatedBooks {
				if newID, ok := ids[id]; ok {
					related = append(related, newID)
				}
			}
			patch.RelatedBooks = &related
		}
		if patch.IsEmpty() {
			continue
		}
		if _, err := target.Update(ctx, p.id, patch); err != nil {
			return result, fmt.Errorf("failed to restore links for %q: %w", p.old.Title, err)
		}
	}

	if patch, ok := infoPatch(snap.Info); ok {
		if _, err := target.SaveInfo(ctx, patch); err != nil {
			return result, fmt.Errorf("failed to merge library info: %w", err)
		}
		result.InfoMerged = true
	}

	log.Printf("[INFO] Restored %d books from %s", result.Books, backupPath)
	return result, nil
}

func toNewBook(b models.Book) models.NewBook {
	return models.NewBook{
		Title:            b.Title,
		Author:           b.Author,
		Publisher:        b.Publisher,
		Image:            b.Image,
		Category:         b.Category,
		Rating:           b.Rating,
		Summary:          b.Summary,
		TableOfContents:  b.TableOfContents,
		ReadingStatus:    b.ReadingStatus,
		ReadingStartDate: b.ReadingStartDate,
		ReadingEndDate:   b.ReadingEndDate,
		Pages:            b.Pages,
	}
}

// infoPatch keeps only the non-empty saved fields.
func infoPatch(info *models.LibraryInfo) (models.LibraryInfoPatch, bool) {
	var patch models.LibraryInfoPatch
	if info == nil {
		return patch, false
	}
	set := false
	if name := strings.TrimSpace(info.Name); name != "" {
		patch.Name = &name
		set = true
	}
	if info.Description != "" {
		desc := info.Description
		patch.Description = &desc
		set = true
	}
	if info.Avatar != "" {
		avatar := info.Avatar
		patch.Avatar = &avatar
		set = true
	}
	if info.Visibility != "" {
		vis := info.Visibility
		patch.Visibility = &vis
		set = true
	}
	return patch, set
}

// ListBackups lists all available backups
func ListBackups(backupDir string) ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil // No backups directory yet
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backupPath := filepath.Join(backupDir, name)
		checksum, _ := recordedChecksum(backupPath)

		backups = append(backups, BackupInfo{
			Filename:  name,
			Path:      backupPath,
			Size:      info.Size(),
			Checksum:  checksum,
			LibraryID: libraryFromName(name),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

// DeleteBackup deletes a backup file and its checksum.
func DeleteBackup(backupPath string) error {
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	if err := os.Remove(backupPath + checksumSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup checksum: %w", err)
	}
	return nil
}

func fileLabel(owner string) string {
	label := strings.Trim(unsafeName.ReplaceAllString(owner, "-"), "-")
	if label == "" {
		return "library"
	}
	return label
}

// libraryFromName recovers the owner label from libshelf_<owner>_<date>_<time>.yaml.gz.
func libraryFromName(name string) string {
	core := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	parts := strings.Split(core, "_")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "_")
}

// calculateFileChecksum calculates SHA256 checksum of a file
func calculateFileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

func recordedChecksum(backupPath string) (string, error) {
	data, err := os.ReadFile(backupPath + checksumSuffix)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file for %s", backupPath)
	}
	return fields[0], nil
}

func verifyChecksum(backupPath string) error {
	want, err := recordedChecksum(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read recorded checksum: %w", err)
	}
	got, err := calculateFileChecksum(backupPath)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	if got != want {
		return fmt.Errorf("%s: %w", filepath.Base(backupPath), ErrChecksumMismatch)
	}
	return nil
}

// cleanupOldBackups removes old backups exceeding the maximum count
func cleanupOldBackups(backupDir string, maxBackups int) error {
	if maxBackups <= 0 {
		return nil
	}
	backups, err := ListBackups(backupDir)
	if err != nil {
		return err
	}

	// ListBackups returns newest first.
	for _, old := range backups[min(len(backups), maxBackups):] {
		if err := DeleteBackup(old.Path); err != nil {
			log.Printf("[WARN] failed to delete old backup %s: %v", old.Filename, err)
		}
	}
	return nil
}
