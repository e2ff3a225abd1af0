// Package storage opens the persistent store backend named in the
// configuration.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mesh-intelligence/kennel/internal/filestore"
	"github.com/mesh-intelligence/kennel/internal/memstore"
	"github.com/mesh-intelligence/kennel/internal/natskv"
	"github.com/mesh-intelligence/kennel/internal/sqlite"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

// Open validates cfg and opens its backend. The caller closes the returned
// store. A nil logger discards backend logs.
func Open(ctx context.Context, cfg types.Config, logger *slog.Logger) (types.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("backend", cfg.Backend)

	switch cfg.Backend {
	case types.BackendSQLite:
		b := sqlite.NewBackend(sqlite.WithLogger(logger))
		if err := b.Attach(cfg); err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Debug("store opened", "path", b.Path())
		return b, nil

	case types.BackendFile:
		s, err := filestore.Open(cfg.DataDir, filestore.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		logger.Debug("store opened", "dir", cfg.DataDir)
		return s, nil

	case types.BackendNATS:
		s, err := natskv.Open(ctx, cfg.NATS, natskv.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open nats store: %w", err)
		}
		return s, nil

	case types.BackendMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrBackendUnknown, cfg.Backend)
}
