// Package natskv implements the persistent store on a NATS JetStream
// key-value bucket. Each store key maps to one bucket key; the bucket keeps
// only the latest revision.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

// connectTimeout bounds the initial connection and bucket setup.
const connectTimeout = 10 * time.Second

// bucket is the subset of jetstream.KeyValue the store uses.
type bucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// Store implements types.Store on a JetStream key-value bucket.
type Store struct {
	conn   *nats.Conn
	kv     bucket
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
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

// Open connects to the NATS server in cfg and opens (or creates) the
// key-value bucket.
func Open(ctx context.Context, cfg types.NATSConfig, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, types.ErrNATSURLEmpty
	}
	bucketCfg := bucketConfig(cfg)
	bucketName := bucketCfg.Bucket

	conn, err := nats.Connect(cfg.URL, nats.Name("kennel"), nats.Timeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucketName)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, bucketCfg)
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open KV bucket %s: %w", bucketName, err)
	}

	s := newStore(kv, opts...)
	s.conn = conn
	s.logger.Info("NATS store opened", "url", cfg.URL, "bucket", bucketName)
	return s, nil
}

// bucketConfig describes the bucket created when none exists yet.
func bucketConfig(cfg types.NATSConfig) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      cfg.GetBucket(),
		Description: "Kennel application state",
		History:     1,
	}
}

func newStore(kv bucket, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read implements types.Store.
func (s *Store) Read(ctx context.Context, key types.Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || !key.Valid() {
		return nil, false
	}

	entry, err := s.kv.Get(ctx, key.Slug())
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("NATS read failed",
			"key", key,
			"error", types.NewStoreError(types.StoreReadFailure, key, err))
		return nil, false
	}

	value := entry.Value()
	if !json.Valid(value) {
		s.logger.Warn("NATS value is corrupt",
			"key", key,
			"revision", entry.Revision(),
			"error", types.NewStoreError(types.StoreCorruptData, key, nil))
		return nil, false
	}
	return value, true
}

// Write implements types.Store.
func (s *Store) Write(ctx context.Context, key types.Key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrStoreClosed)
	}
	if !key.Valid() {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrKeyUnknown)
	}

	if _, err := s.kv.Put(ctx, key.Slug(), value); err != nil {
		return types.NewStoreError(types.StoreWriteFailure, key, err)
	}
	return nil
}

// Close closes the NATS connection. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
