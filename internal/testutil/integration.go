// file: internal/testutil/integration.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567890

package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/libshelf/internal/config"
	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/kv"
	"github.com/jdfalk/libshelf/internal/library"
	"github.com/jdfalk/libshelf/internal/likes"
	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/registry"
	"github.com/jdfalk/libshelf/internal/storage"
)

// ShareBaseURL is the share base configured by SetupIntegration.
const ShareBaseURL = "https://shelf.example/"

// IntegrationEnv holds all resources for an integration test.
type IntegrationEnv struct {
	Store   *storage.LocalStore
	Hub     *events.Hub
	Library *library.Service
	Likes   *likes.Service
	OwnerID string
	DataDir string
	T       *testing.T
}

// SetupIntegration opens a pebble-backed local store in a temp dir and
// wires the services on top of it the way the binary does. The store is
// closed when the test ends.
func SetupIntegration(t *testing.T) *IntegrationEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dataDir := t.TempDir()
	engine, err := kv.Open(kv.EnginePebble, dataDir, false)
	require.NoError(t, err)
	store := storage.NewLocalStore(engine)
	t.Cleanup(func() { _ = store.Close() })

	ownerID, err := store.LibraryID()
	require.NoError(t, err)

	hub := events.NewHub()
	registry.NewProjector(store).Attach(hub)

	config.AppConfig = config.Config{
		DataDir:      dataDir,
		LocalEngine:  kv.EnginePebble,
		ShareBaseURL: ShareBaseURL,
		BackupDir:    filepath.Join(dataDir, "backups"),
		MaxBackups:   10,
	}

	return &IntegrationEnv{
		Store:   store,
		Hub:     hub,
		Library: library.NewService(store, hub, ownerID, ShareBaseURL),
		Likes:   likes.NewService(store, hub),
		OwnerID: ownerID,
		DataDir: dataDir,
		T:       t,
	}
}

// AddBook stores nb and waits long enough that the next book sorts after it.
func (env *IntegrationEnv) AddBook(nb models.NewBook) *models.Book {
	env.T.Helper()
	book, err := env.Library.Add(context.Background(), nb)
	require.NoError(env.T, err)
	time.Sleep(2 * time.Millisecond)
	return book
}

// WriteFile writes content under the data dir and returns its path.
func (env *IntegrationEnv) WriteFile(name, content string) string {
	env.T.Helper()
	path := filepath.Join(env.DataDir, name)
	require.NoError(env.T, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(env.T, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// FindRepoRoot walks up from CWD to find go.mod.
func FindRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root (go.mod)")
		}
		dir = parent
	}
}
