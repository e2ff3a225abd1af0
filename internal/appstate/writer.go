package appstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/kennel/internal/metrics"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

// DefaultBatchInterval is used by the batch write strategy when no interval
// is configured.
const DefaultBatchInterval = 2 * time.Second

// writeTimeout bounds a single store write.
const writeTimeout = 5 * time.Second

// slot tracks one store key. At most one write per key is in flight; a
// snapshot scheduled meanwhile replaces any snapshot still waiting.
type slot struct {
	value   []byte
	pending bool
	running bool
}

// writer persists state snapshots to the store in the background.
type writer struct {
	store    types.Store
	logger   *slog.Logger
	recorder metrics.Recorder
	strategy string
	interval time.Duration

	mu     sync.Mutex
	slots  map[types.Key]*slot
	active int
	idle   chan struct{}
	timer  *time.Timer
	closed bool
}

func newWriter(store types.Store, strategy string, interval time.Duration, logger *slog.Logger, recorder metrics.Recorder) *writer {
	switch strategy {
	case types.WriteImmediate, types.WriteOnClose, types.WriteBatch:
	default:
		strategy = types.WriteImmediate
	}
	if interval <= 0 {
		interval = DefaultBatchInterval
	}
	return &writer{
		store:    store,
		logger:   logger,
		recorder: recorder,
		strategy: strategy,
		interval: interval,
		slots:    make(map[types.Key]*slot),
	}
}

// schedule records value as the latest snapshot for key. Callers hold the
// state lock, so snapshots reach the writer in mutation order.
func (w *writer) schedule(key types.Key, value []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Warn("state write dropped after close", "key", key)
		return
	}

	s, ok := w.slots[key]
	if !ok {
		s = &slot{}
		w.slots[key] = s
	}
	s.value, s.pending = value, true

	switch w.strategy {
	case types.WriteImmediate:
		w.startLocked(key, s)
	case types.WriteBatch:
		if w.timer == nil {
			w.timer = time.AfterFunc(w.interval, w.tick)
		}
	}
	w.reportPendingLocked()
}

// startLocked launches the drain goroutine for key unless one is running.
func (w *writer) startLocked(key types.Key, s *slot) {
	if s.running || !s.pending {
		return
	}
	s.running = true
	w.active++
	go w.drain(key, s)
}

// releaseLocked starts a write for every key holding a snapshot.
func (w *writer) releaseLocked() {
	for key, s := range w.slots {
		w.startLocked(key, s)
	}
}

// drain writes the latest snapshot of key until none is left.
func (w *writer) drain(key types.Key, s *slot) {
	for {
		w.mu.Lock()
		if !s.pending {
			s.running = false
			w.active--
			if w.active == 0 && w.idle != nil {
				close(w.idle)
				w.idle = nil
			}
			w.mu.Unlock()
			return
		}
		value := s.value
		s.value, s.pending = nil, false
		w.reportPendingLocked()
		w.mu.Unlock()

		w.persist(key, value)
	}
}

func (w *writer) persist(key types.Key, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	start := time.Now()
	err := w.store.Write(ctx, key, value)
	w.recorder.ObserveStoreWriteDuration(key.Slug(), time.Since(start))
	w.recorder.IncStoreWrite(key.Slug(), err == nil)
	if err != nil {
		w.logger.Warn("state write failed", "key", key, "error", err)
		return
	}
	w.logger.Debug("state written", "key", key, "bytes", len(value))
}

// tick fires the batch timer.
func (w *writer) tick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timer = nil
	w.releaseLocked()
}

func (w *writer) reportPendingLocked() {
	n := 0
	for _, s := range w.slots {
		if s.pending {
			n++
		}
	}
	w.recorder.SetPendingWrites(n)
}

// flush starts every held snapshot and waits until no write is in flight.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	w.releaseLocked()
	if w.active == 0 {
		w.mu.Unlock()
		return nil
	}
	if w.idle == nil {
		w.idle = make(chan struct{})
	}
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting snapshots and flushes what is held. close is
// idempotent.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.flush(ctx)
}
