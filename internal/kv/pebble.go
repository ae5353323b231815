// file: internal/kv/pebble.go
// version: 1.0.0
// guid: 761093a9-dcf9-479a-8a50-2afefeda9bcc

package kv

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleEngine stores keys in a PebbleDB (LSM) directory.
type PebbleEngine struct {
	db *pebble.DB
}

// NewPebbleEngine opens or creates a PebbleDB at path.
func NewPebbleEngine(path string) (*PebbleEngine, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleEngine{db: db}, nil
}

func (p *PebbleEngine) Name() string { return EnginePebble }

func (p *PebbleEngine) Get(key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// value is only valid until closer is closed
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (p *PebbleEngine) Set(key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleEngine) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleEngine) Scan(prefix string, fn func(key string, value []byte) error) error {
	opts := &pebble.IterOptions{LowerBound: []byte(prefix)}
	if upper := prefixUpperBound([]byte(prefix)); upper != nil {
		opts.UpperBound = upper
	}
	iter, err := p.db.NewIter(opts)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := fn(string(iter.Key()), value); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (p *PebbleEngine) Apply(ops []Op) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	for _, op := range ops {
		var err error
		if op.Delete {
			err = batch.Delete([]byte(op.Key), nil)
		} else {
			err = batch.Set([]byte(op.Key), op.Value, nil)
		}
		if err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleEngine) Close() error {
	return p.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with
// the prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
