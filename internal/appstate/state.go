// Package appstate holds the application state shared by every screen: the
// loaded breeds, the favorite set, captured photos and settings.
//
// State mirrors the persistent store. Initialize hydrates it once at
// startup; after that every mutation is applied in memory synchronously and
// written through to the store in the background. Persistence is best
// effort: a failed write is logged and the in-memory value stays
// authoritative.
package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/kennel/internal/metrics"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

// ErrEmptyID is returned when an operation receives an id that normalizes
// to the empty string.
var ErrEmptyID = errors.New("id must not be empty")

// Change describes an applied mutation.
type Change struct {
	Key types.Key
}

type subscriber struct {
	id int
	fn func(Change)
}

// State is the application state facade. It is safe for concurrent use.
type State struct {
	mu          sync.RWMutex
	initialized bool
	breeds      []types.Breed
	favorites   []string
	favSet      map[string]struct{}
	photos      []types.Photo
	settings    types.Settings

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int

	store    types.Store
	logger   *slog.Logger
	recorder metrics.Recorder
	strategy string
	interval time.Duration
	writer   *writer
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *State) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithWriteStrategy selects when snapshots reach the store. interval is only
// used by types.WriteBatch. Unknown strategies fall back to
// types.WriteImmediate.
func WithWriteStrategy(strategy string, interval time.Duration) Option {
	return func(s *State) {
		s.strategy = strategy
		s.interval = interval
	}
}

// New creates an uninitialized State backed by store.
func New(store types.Store, opts ...Option) *State {
	s := &State{
		favSet:   make(map[string]struct{}),
		settings: types.DefaultSettings(),
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: metrics.NoopRecorder{},
		strategy: types.WriteImmediate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = newWriter(store, s.strategy, s.interval, s.logger, s.recorder)
	return s
}

// Initialize loads the four store keys. Each key is decoded on its own; a
// missing or corrupt value falls back to its default without affecting the
// others. Initialize never fails. Calls after the first do nothing.
func (s *State) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}

	var (
		breeds    []types.Breed
		favorites []string
		photos    []types.Photo
		settings  = types.DefaultSettings()
	)

	var g errgroup.Group
	g.Go(func() error {
		breeds = hydrate(ctx, s, types.KeyBreedsCache, decodeBreeds, nil)
		return nil
	})
	g.Go(func() error {
		favorites = hydrate(ctx, s, types.KeyFavorites, decodeFavorites, nil)
		return nil
	})
	g.Go(func() error {
		photos = hydrate(ctx, s, types.KeyPhotos, decodePhotos, nil)
		return nil
	})
	g.Go(func() error {
		settings = hydrate(ctx, s, types.KeySettings, decodeSettings, types.DefaultSettings())
		return nil
	})
	_ = g.Wait()

	s.breeds = breeds
	s.favorites = favorites
	s.favSet = make(map[string]struct{}, len(favorites))
	for _, id := range favorites {
		s.favSet[id] = struct{}{}
	}
	s.photos = photos
	s.settings = settings
	s.initialized = true

	s.logger.Info("state initialized",
		"breeds", len(breeds),
		"favorites", len(favorites),
		"photos", len(photos),
		"dark_mode", settings.DarkMode)
}

// hydrate reads and decodes one key, returning fallback when the value is
// missing or does not decode.
func hydrate[T any](ctx context.Context, s *State, key types.Key, decode func([]byte) (T, error), fallback T) T {
	raw, ok := s.store.Read(ctx, key)
	if !ok {
		s.recorder.IncHydration(key.Slug(), metrics.HydrationMissing)
		return fallback
	}
	v, err := decode(raw)
	if err != nil {
		s.recorder.IncHydration(key.Slug(), metrics.HydrationCorrupt)
		s.logger.Warn("stored value is corrupt, using default",
			"key", key,
			"error", types.NewStoreError(types.StoreCorruptData, key, err))
		return fallback
	}
	s.recorder.IncHydration(key.Slug(), metrics.HydrationLoaded)
	return v
}

// Initialized reports whether Initialize has run.
func (s *State) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// SetBreeds replaces the breed list and writes it to the breed cache. A
// failed write does not roll back the in-memory list.
func (s *State) SetBreeds(breeds []types.Breed) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return types.ErrNotInitialized
	}
	s.breeds = slices.Clone(breeds)
	persistLocked(s, types.KeyBreedsCache, s.breeds)
	s.mu.Unlock()

	s.notify(types.KeyBreedsCache)
	return nil
}

// ToggleFavorite flips the membership of id in the favorite set and returns
// the new membership. id may be a string or a number; both normalize to the
// same favorite.
func (s *State) ToggleFavorite(id any) (bool, error) {
	key := types.NormalizeID(id)
	if key == "" {
		return false, ErrEmptyID
	}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return false, types.ErrNotInitialized
	}
	_, member := s.favSet[key]
	if member {
		delete(s.favSet, key)
		s.favorites = slices.DeleteFunc(slices.Clone(s.favorites), func(f string) bool { return f == key })
	} else {
		s.favSet[key] = struct{}{}
		s.favorites = append(slices.Clone(s.favorites), key)
	}
	persistLocked(s, types.KeyFavorites, s.favorites)
	s.mu.Unlock()

	s.notify(types.KeyFavorites)
	return !member, nil
}

// SavePhoto prepends photo to the photo list, so Photos()[0] is the newest
// capture. A photo without an id or timestamp gets them from
// types.NewPhoto. The stored photo is returned.
func (s *State) SavePhoto(photo types.Photo) (types.Photo, error) {
	if photo.ID == "" || photo.CreatedAt == 0 {
		fresh := types.NewPhoto(photo.URI, time.Now())
		if photo.ID == "" {
			photo.ID = fresh.ID
		}
		if photo.CreatedAt == 0 {
			photo.CreatedAt = fresh.CreatedAt
		}
	}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return types.Photo{}, types.ErrNotInitialized
	}
	photos := make([]types.Photo, 0, len(s.photos)+1)
	photos = append(photos, photo)
	s.photos = append(photos, s.photos...)
	persistLocked(s, types.KeyPhotos, s.photos)
	s.mu.Unlock()

	s.notify(types.KeyPhotos)
	return photo, nil
}

// UpdatePhotoNote replaces the note of the photo with the given id. It
// reports whether a photo matched; when none does nothing changes and
// nothing is written.
func (s *State) UpdatePhotoNote(id, note string) (bool, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return false, types.ErrNotInitialized
	}
	i := slices.IndexFunc(s.photos, func(p types.Photo) bool { return p.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.photos = slices.Clone(s.photos)
	s.photos[i].Note = note
	persistLocked(s, types.KeyPhotos, s.photos)
	s.mu.Unlock()

	s.notify(types.KeyPhotos)
	return true, nil
}

// SetDarkMode sets the dark mode preference.
func (s *State) SetDarkMode(on bool) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return types.ErrNotInitialized
	}
	s.settings.DarkMode = on
	s.persistSettingsLocked()
	s.mu.Unlock()

	s.notify(types.KeySettings)
	return nil
}

// persistLocked hands a snapshot of a collection to the writer. Callers
// hold s.mu, which keeps snapshots in mutation order.
func persistLocked[T any](s *State, key types.Key, items []T) {
	raw, err := encodeList(items)
	if err != nil {
		s.logger.Error("encode state snapshot", "key", key, "error", err)
		return
	}
	s.writer.schedule(key, raw)
}

func (s *State) persistSettingsLocked() {
	raw, err := json.Marshal(s.settings)
	if err != nil {
		s.logger.Error("encode state snapshot", "key", types.KeySettings, "error", err)
		return
	}
	s.writer.schedule(types.KeySettings, raw)
}

// Subscribe registers fn to receive a Change after every applied mutation.
// fn runs synchronously on the mutating goroutine after the state lock is
// released, so it may read or mutate the state. The returned function
// removes the subscription.
func (s *State) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
		})
	}
}

func (s *State) notify(key types.Key) {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(Change{Key: key})
	}
}

// Flush waits until every scheduled snapshot has been written, starting
// snapshots held by the on_close and batch strategies.
func (s *State) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Close flushes pending writes and stops the writer. Mutations after Close
// still apply in memory but are no longer persisted. Close does not close
// the store.
func (s *State) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}
