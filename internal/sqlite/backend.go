// Package sqlite implements the persistent store on a SQLite database.
// Each store key is one row in the kv table of kennel.db inside the data
// directory.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "kennel.db"

// Backend implements types.Store using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	path     string
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used to report swallowed read failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to open the database.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens (or creates) kennel.db in config.DataDir and applies the
// schema. Creates DataDir if it does not exist.
// Returns an error if already attached or the config is invalid.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return errors.New("sqlite backend is already attached")
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)

	// busy_timeout waits on a locked database instead of failing; WAL with
	// synchronous(NORMAL) keeps writes durable across application crashes.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", filepath.Clean(dbPath))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	b.db = db
	b.path = dbPath
	b.attached = true
	return nil
}

// Detach closes the database. After Detach, reads report absent values and
// writes fail with ErrStoreClosed. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	b.path = ""
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return err
		}
	}
	return nil
}

// Close implements types.Store.
func (b *Backend) Close() error {
	return b.Detach()
}

// Path returns the database file path, or "" when detached.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Read implements types.Store. Query failures and values that are not valid
// JSON are logged and reported as absent.
func (b *Backend) Read(ctx context.Context, key types.Key) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached || !key.Valid() {
		return nil, false
	}

	var value []byte
	err := b.db.QueryRowContext(ctx, selectValue, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		b.logger.Warn("sqlite read failed",
			"key", key,
			"error", types.NewStoreError(types.StoreReadFailure, key, err))
		return nil, false
	}
	if !json.Valid(value) {
		b.logger.Warn("sqlite value is corrupt",
			"key", key,
			"error", types.NewStoreError(types.StoreCorruptData, key, nil))
		return nil, false
	}
	return value, true
}

// Write implements types.Store.
func (b *Backend) Write(ctx context.Context, key types.Key, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrStoreClosed)
	}
	if !key.Valid() {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrKeyUnknown)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := b.db.ExecContext(ctx, upsertValue, string(key), value, now); err != nil {
		return types.NewStoreError(types.StoreWriteFailure, key, err)
	}
	return nil
}

// UpdatedAt returns the time key was last written.
func (b *Backend) UpdatedAt(ctx context.Context, key types.Key) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return time.Time{}, false
	}

	var raw string
	if err := b.db.QueryRowContext(ctx, selectUpdatedAt, string(key)).Scan(&raw); err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
