// Package store provides the persistence backends behind the opaque Store
// boundary: a pebble-backed store for real runs and an in-memory store for
// tests.
package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/luciancaetano/sechat/internal/logger"
)

// Pebble is a sechat.Store backed by a pebble database. Writes go in
// unsynced; Commit flushes them to stable storage, matching the engine's
// commit-after-every-chore cadence.
type Pebble struct {
	db *pebble.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("pebble_opened", "path", path)
	return &Pebble{db: db}, nil
}

// Get returns the value for key, or nil when absent.
func (p *Pebble) Get(key string) ([]byte, error) {
	val, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store get %q: %w", key, err)
	}
	out := make([]byte, len(val))
	copy(out, val)
	closer.Close()
	return out, nil
}

// Set stores value under key without syncing; Commit makes it durable.
func (p *Pebble) Set(key string, value []byte) error {
	if err := p.db.Set([]byte(key), value, pebble.NoSync); err != nil {
		return fmt.Errorf("store set %q: %w", key, err)
	}
	return nil
}

// Commit flushes pending writes to stable storage.
func (p *Pebble) Commit() error {
	if err := p.db.Flush(); err != nil {
		return fmt.Errorf("store commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	logger.Info("pebble_closed")
	return err
}
