package types

import (
	"context"
	"strings"
)

// Key names one of the persisted collections.
type Key string

// Store keys, one per collection. Each value is a JSON blob.
const (
	KeyBreedsCache Key = "@kennel/breeds_cache"
	KeyFavorites   Key = "@kennel/favorites"
	KeyPhotos      Key = "@kennel/photos"
	KeySettings    Key = "@kennel/settings"
)

// keyPrefix is the namespace shared by all store keys.
const keyPrefix = "@kennel/"

// StandardKeys lists all store keys for enumeration.
var StandardKeys = []Key{
	KeyBreedsCache,
	KeyFavorites,
	KeyPhotos,
	KeySettings,
}

// String returns the namespaced key.
func (k Key) String() string { return string(k) }

// Slug returns the key without its namespace, safe for file names and NATS
// key-value keys (for example "breeds_cache").
func (k Key) Slug() string {
	return strings.TrimPrefix(string(k), keyPrefix)
}

// Valid reports whether k is one of the standard keys.
func (k Key) Valid() bool {
	for _, std := range StandardKeys {
		if k == std {
			return true
		}
	}
	return false
}

// Store is a durable key-value mirror of the application state.
//
// Read never fails: a value that is missing, unreadable or corrupt is
// reported as absent (ok == false). Write is best effort and returns a
// *StoreError on failure; writes to different keys are independent.
type Store interface {
	// Read returns the last value written for key.
	Read(ctx context.Context, key Key) (value []byte, ok bool)

	// Write replaces the value stored for key.
	Write(ctx context.Context, key Key, value []byte) error

	// Close releases backend resources. Close is idempotent.
	Close() error
}
