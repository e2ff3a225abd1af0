package appstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kennel/internal/memstore"
	"github.com/mesh-intelligence/kennel/internal/metrics"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

// countingRecorder counts store writes by outcome.
type countingRecorder struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	success map[bool]int
	loaded  map[metrics.HydrationResult]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		success: make(map[bool]int),
		loaded:  make(map[metrics.HydrationResult]int),
	}
}

func (r *countingRecorder) IncStoreWrite(_ string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success[ok]++
}

func (r *countingRecorder) IncHydration(_ string, result metrics.HydrationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[result]++
}

func (r *countingRecorder) writes(ok bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.success[ok]
}

func (r *countingRecorder) hydrations(result metrics.HydrationResult) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[result]
}

func TestHydrationMetrics(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyFavorites, []byte(`["1"]`))
	store.Seed(types.KeyPhotos, []byte(`nope`))
	rec := newCountingRecorder()

	newState(t, store, WithRecorder(rec))

	assert.Equal(t, 1, rec.hydrations(metrics.HydrationLoaded))
	assert.Equal(t, 1, rec.hydrations(metrics.HydrationCorrupt))
	assert.Equal(t, 2, rec.hydrations(metrics.HydrationMissing))
}

func TestWriteStrategyOnClose(t *testing.T) {
	store := memstore.New()
	s := New(store, WithWriteStrategy(types.WriteOnClose, 0))
	s.Initialize(context.Background())

	for i := 0; i < 3; i++ {
		_, err := s.ToggleFavorite(i)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetDarkMode(true))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, store.Writes(types.KeyFavorites), "on_close holds writes")

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, store.Writes(types.KeyFavorites))
	assert.Equal(t, 1, store.Writes(types.KeySettings))
	assert.JSONEq(t, `["0","1","2"]`, stored(t, store, types.KeyFavorites))

	_, err := s.ToggleFavorite(9)
	require.NoError(t, err)
	assert.True(t, s.IsFavorite(9), "mutations after Close apply in memory")
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, store.Writes(types.KeyFavorites), "but are not persisted")
}

func TestWriteStrategyBatch(t *testing.T) {
	store := memstore.New()
	s := newState(t, store, WithWriteStrategy(types.WriteBatch, 20*time.Millisecond))

	for i := 0; i < 5; i++ {
		_, err := s.ToggleFavorite(i)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return store.Writes(types.KeyFavorites) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `["0","1","2","3","4"]`, stored(t, store, types.KeyFavorites))

	_, err := s.ToggleFavorite(0)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return store.Writes(types.KeyFavorites) == 2
	}, 2*time.Second, 5*time.Millisecond, "the timer re-arms for later snapshots")
}

func TestUnknownWriteStrategyWritesImmediately(t *testing.T) {
	store := memstore.New()
	s := newState(t, store, WithWriteStrategy("sometimes", 0))

	require.NoError(t, s.SetDarkMode(true))
	require.Eventually(t, func() bool {
		return store.Writes(types.KeySettings) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFlushHonorsContext(t *testing.T) {
	release := make(chan struct{})
	store := memstore.New()
	store.SetWriteHook(func(context.Context, types.Key, []byte) error {
		<-release
		return nil
	})
	s := newState(t, store)
	defer close(release)

	require.NoError(t, s.SetDarkMode(true))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)
}

func TestWriterKeepsOneWriteInFlightPerKey(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight = make(map[types.Key]int)
		maxSeen  int
	)
	store := memstore.New()
	store.SetWriteHook(func(_ context.Context, key types.Key, _ []byte) error {
		mu.Lock()
		inFlight[key]++
		if inFlight[key] > maxSeen {
			maxSeen = inFlight[key]
		}
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)

		mu.Lock()
		inFlight[key]--
		mu.Unlock()
		return nil
	})
	s := newState(t, store)

	for i := 0; i < 30; i++ {
		_, err := s.ToggleFavorite(i % 3)
		require.NoError(t, err)
		require.NoError(t, s.SetDarkMode(i%2 == 0))
	}
	flush(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen)
}
