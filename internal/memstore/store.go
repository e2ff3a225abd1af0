// Package memstore implements the persistent store as an in-process map.
// Nothing survives the process; it backs tests and the memory backend.
package memstore

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

// WriteHook runs before a value is stored. A non-nil error fails the write
// and leaves the stored value unchanged.
type WriteHook func(ctx context.Context, key types.Key, value []byte) error

// Store implements types.Store in memory.
type Store struct {
	mu     sync.RWMutex
	values map[types.Key][]byte
	writes map[types.Key]int
	closed bool
	hook   WriteHook
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		values: make(map[types.Key][]byte),
		writes: make(map[types.Key]int),
	}
}

// SetWriteHook installs hook; nil removes it.
func (s *Store) SetWriteHook(hook WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Seed stores value for key without validation, bypassing the write hook.
func (s *Store) Seed(key types.Key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
}

// Read implements types.Store.
func (s *Store) Read(_ context.Context, key types.Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Write implements types.Store.
func (s *Store) Write(ctx context.Context, key types.Key, value []byte) error {
	s.mu.RLock()
	hook, closed := s.hook, s.closed
	s.mu.RUnlock()

	if closed {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrStoreClosed)
	}
	if !key.Valid() {
		return types.NewStoreError(types.StoreWriteFailure, key, types.ErrKeyUnknown)
	}
	// The hook runs outside the lock so it may block without stalling
	// other keys.
	if hook != nil {
		if err := hook(ctx, key, value); err != nil {
			return types.NewStoreError(types.StoreWriteFailure, key, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	s.writes[key]++
	return nil
}

// Writes returns how many successful writes key has received.
func (s *Store) Writes(key types.Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[key]
}

// Close implements types.Store. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
