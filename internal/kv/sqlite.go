// file: internal/kv/sqlite.go
// version: 1.0.0
// guid: b125e0ec-5029-4cb1-9a91-4a9297d363f2

package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteEngine keeps every key in a single two-column table.
type SQLiteEngine struct {
	db *sql.DB
}

// NewSQLiteEngine opens or creates a SQLite database at path.
func NewSQLiteEngine(path string) (*SQLiteEngine, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteEngine{db: db}, nil
}

func (s *SQLiteEngine) Name() string { return EngineSQLite }

func (s *SQLiteEngine) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

const upsertSQL = `INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (s *SQLiteEngine) Set(key string, value []byte) error {
	_, err := s.db.Exec(upsertSQL, key, value)
	return err
}

func (s *SQLiteEngine) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *SQLiteEngine) Scan(prefix string, fn func(key string, value []byte) error) error {
	rows, err := s.db.Query(`SELECT key, value FROM kv WHERE key >= ? ORDER BY key`, prefix)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if !strings.HasPrefix(key, prefix) {
			break
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteEngine) Apply(ops []Op) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Delete {
			_, err = tx.Exec(`DELETE FROM kv WHERE key = ?`, op.Key)
		} else {
			_, err = tx.Exec(upsertSQL, op.Key, op.Value)
		}
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteEngine) Close() error {
	return s.db.Close()
}
