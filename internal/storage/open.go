// file: internal/storage/open.go
// version: 1.0.0
// guid: 691866f1-dc82-4b4d-8c89-24b8fd645a3a

package storage

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jdfalk/libshelf/internal/kv"
)

// Options selects and configures the backends.
type Options struct {
	DataDir      string
	LocalEngine  string
	EnableSQLite bool
	Cloud        CloudOptions
	// Principal is the authenticated id to act as when the cloud is
	// usable. Empty means sign in anonymously with the local library id.
	Principal string
}

// Selection is the outcome of the startup capability probe.
type Selection struct {
	// Store serves every library operation.
	Store Store
	// Local is always open; settings and the anonymous id live here.
	Local *LocalStore
	// OwnerID is the principal whose library this process serves.
	OwnerID string
	// CloudUsable records what the probe found.
	CloudUsable bool
}

// Close releases every backend.
func (s *Selection) Close() error {
	return s.Store.Close()
}

// Open opens the local store, then probes the cloud once. The cloud is
// used only when it is configured, reachable within the connect timeout
// and accepts the principal.
func Open(ctx context.Context, opts Options) (*Selection, error) {
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	engine, err := kv.Open(opts.LocalEngine, opts.DataDir, opts.EnableSQLite)
	if err != nil {
		return nil, err
	}
	local := NewLocalStore(engine)

	libraryID, err := local.LibraryID()
	if err != nil {
		local.Close()
		return nil, err
	}

	sel := &Selection{Store: local, Local: local, OwnerID: libraryID}
	if opts.Cloud.URI == "" {
		log.Printf("[INFO] No cloud store configured, using local %s store", engine.Name())
		return sel, nil
	}

	cloud, err := NewCloudStore(ctx, opts.Cloud)
	if err != nil {
		log.Printf("[WARN] Cloud store unavailable, using local %s store: %v", engine.Name(), err)
		return sel, nil
	}

	principal := opts.Principal
	anonymous := principal == ""
	if anonymous {
		principal = libraryID
	}
	owner, err := cloud.ResolvePrincipal(ctx, principal, anonymous)
	if err != nil {
		log.Printf("[WARN] Cloud sign-in failed, using local %s store: %v", engine.Name(), err)
		_ = cloud.Close()
		return sel, nil
	}

	log.Printf("[INFO] Using cloud store (database %s) with local %s fallback", opts.Cloud.Database, engine.Name())
	sel.Store = NewFailoverStore(cloud, local)
	sel.OwnerID = owner
	sel.CloudUsable = true
	return sel, nil
}
