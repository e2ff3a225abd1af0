// Package filestore implements the persistent store as one JSON file per
// key in the data directory (favorites.json, photos.json, ...).
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

var errCorrupt = errors.New("file does not contain valid JSON")

// Store implements types.Store on the filesystem.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	// keyMu serializes writers per key so two renames of the same file never
	// race; writes to different keys proceed independently.
	keyMu map[types.Key]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report swallowed read failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open creates dir if needed and returns a Store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		keyMu:  make(map[types.Key]*sync.Mutex, len(types.StandardKeys)),
	}
	for _, k := range types.StandardKeys {
		s.keyMu[k] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the file that holds key.
func (s *Store) Path(key types.Key) string {
	return filepath.Join(s.dir, key.Slug()+".json")
}

// Read implements types.Store.
func (s *Store) Read(ctx context.Context, key types.Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || !key.Valid() {
		return nil, false
	}
	if ctx.Err() != nil {
		return nil, false
	}

	data, ok, err := readJSONFile(s.Path(key))
	switch {
	case errors.Is(err, errCorrupt):
		s.logger.Warn("stored file is corrupt",
			"key", key,
			"path", s.Path(key),
			"error", types.NewStoreError(types.StoreCorruptData, key, err))
		return nil, false
	case err != nil:
		s.logger.Warn("stored file read failed",
			"key", key,
			"error", types.NewStoreError(types.StoreReadFailure, key, err))
		return nil, false
	}
	return data, ok
}

// Write implements types.Store.
func (s *Store) Write(ctx context.Context, key types.Key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrStoreClosed)
	}
	km, ok := s.keyMu[key]
	if !ok {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrKeyUnknown)
	}
	if err := ctx.Err(); err != nil {
		return types.NewStoreError(types.StoreWriteFailure, key, err)
	}

	km.Lock()
	defer km.Unlock()
	if err := writeJSONFile(s.Path(key), value); err != nil {
		return types.NewStoreError(types.StoreWriteFailure, key, err)
	}
	return nil
}

// Close implements types.Store. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
