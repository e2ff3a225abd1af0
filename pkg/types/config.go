package types

import (
	"errors"
	"strings"
	"time"
)

// Config selects the storage backend and how state is written to it.
type Config struct {
	Backend       string        `json:"backend" yaml:"backend"`
	DataDir       string        `json:"data_dir" yaml:"data_dir"`
	WriteStrategy string        `json:"write_strategy" yaml:"write_strategy"`
	BatchInterval time.Duration `json:"batch_interval" yaml:"batch_interval"`
	NATS          NATSConfig    `json:"nats" yaml:"nats"`
}

// NATSConfig locates the JetStream key-value bucket used by the nats backend.
type NATSConfig struct {
	URL    string `json:"url" yaml:"url"`
	Bucket string `json:"bucket" yaml:"bucket"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendNATS   = "nats"
	BackendMemory = "memory"
)

// Write strategies. WriteImmediate starts a write as soon as state changes;
// WriteOnClose holds writes until flush or close; WriteBatch flushes held
// writes every BatchInterval.
const (
	WriteImmediate = "immediate"
	WriteOnClose   = "on_close"
	WriteBatch     = "batch"
)

// DefaultNATSBucket is used when NATSConfig.Bucket is empty.
const DefaultNATSBucket = "kennel"

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrWriteStrategyUnknown = errors.New("unknown write strategy")
	ErrBatchIntervalInvalid = errors.New("batch interval must be positive")
	ErrNATSURLEmpty         = errors.New("nats url must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendFile:   true,
	BackendNATS:   true,
	BackendMemory: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.GetWriteStrategy() {
	case WriteImmediate, WriteOnClose:
	case WriteBatch:
		if c.BatchInterval <= 0 {
			return ErrBatchIntervalInvalid
		}
	default:
		return ErrWriteStrategyUnknown
	}
	if c.Backend == BackendNATS && strings.TrimSpace(c.NATS.URL) == "" {
		return ErrNATSURLEmpty
	}
	return nil
}

// GetWriteStrategy returns the effective write strategy, defaulting to
// WriteImmediate.
func (c Config) GetWriteStrategy() string {
	if c.WriteStrategy == "" {
		return WriteImmediate
	}
	return c.WriteStrategy
}

// GetBucket returns the effective bucket name, defaulting to
// DefaultNATSBucket.
func (c NATSConfig) GetBucket() string {
	if b := strings.TrimSpace(c.Bucket); b != "" {
		return b
	}
	return DefaultNATSBucket
}
