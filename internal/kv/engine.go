// file: internal/kv/engine.go
// version: 1.0.0
// guid: f622b09c-1597-4cba-ab43-e4e2527873d9

// Package kv provides the local key-value engines behind the offline
// library store. PebbleDB is the default; SQLite is opt-in.
package kv

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrKeyNotFound is returned by Get for a missing key.
var ErrKeyNotFound = errors.New("kv: key not found")

// Op is one write inside an atomic batch.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Engine is a flat string-keyed blob store.
type Engine interface {
	Name() string
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Scan visits every key with the given prefix in ascending order.
	Scan(prefix string, fn func(key string, value []byte) error) error
	// Apply commits ops atomically.
	Apply(ops []Op) error
	Close() error
}

const (
	EnginePebble = "pebble"
	EngineSQLite = "sqlite"
)

// Open opens the engine named by kind under dataDir.
func Open(kind, dataDir string, enableSQLite bool) (Engine, error) {
	switch kind {
	case EngineSQLite, "sqlite3":
		if !enableSQLite {
			return nil, fmt.Errorf("SQLite3 is not enabled. To use SQLite3, set 'enable_sqlite3_i_know_the_risks: true' in your config file. PebbleDB is the recommended local engine")
		}
		e, err := NewSQLiteEngine(filepath.Join(dataDir, "libshelf.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite engine: %w", err)
		}
		return e, nil
	case EnginePebble, "":
		e, err := NewPebbleEngine(filepath.Join(dataDir, "pebble"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PebbleDB engine: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported local engine: %s (supported: pebble, sqlite)", kind)
	}
}
