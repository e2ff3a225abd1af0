package appstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kennel/internal/memstore"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

func newState(t *testing.T, store types.Store, opts ...Option) *State {
	t.Helper()
	s := New(store, opts...)
	s.Initialize(context.Background())
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func flush(t *testing.T, s *State) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
}

func stored(t *testing.T, store types.Store, key types.Key) string {
	t.Helper()
	raw, ok := store.Read(context.Background(), key)
	require.True(t, ok, "no value stored for %s", key)
	return string(raw)
}

func TestInitializeEmptyStore(t *testing.T) {
	s := newState(t, memstore.New())

	assert.True(t, s.Initialized())
	assert.Empty(t, s.Breeds())
	assert.Empty(t, s.Favorites())
	assert.Empty(t, s.Photos())
	assert.Equal(t, types.Settings{DarkMode: false}, s.Settings())
}

func TestInitializeHydratesEveryKey(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyBreedsCache, []byte(`[{"id":1,"name":"Affenpinscher","breed_group":"Toy"}]`))
	store.Seed(types.KeyFavorites, []byte(`["1","5"]`))
	store.Seed(types.KeyPhotos, []byte(`[{"id":"p2","uri":"file:///b.jpg","note":"park","createdAt":2000},{"id":"p1","uri":"file:///a.jpg","note":"","createdAt":1000}]`))
	store.Seed(types.KeySettings, []byte(`{"darkMode":true,"fontScale":1.2}`))

	s := newState(t, store)

	require.Len(t, s.Breeds(), 1)
	assert.Equal(t, "Affenpinscher", s.Breeds()[0].Name)
	assert.Equal(t, []string{"1", "5"}, s.Favorites())
	require.Len(t, s.Photos(), 2)
	assert.Equal(t, "p2", s.Photos()[0].ID)
	assert.True(t, s.Settings().DarkMode)
}

func TestInitializeIsolatesCorruptKeys(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyFavorites, []byte(`{{not json`))
	store.Seed(types.KeyPhotos, []byte(`[{"id":"p1","uri":"file:///a.jpg","note":"hi","createdAt":1000}]`))
	store.Seed(types.KeySettings, []byte(`[true]`))
	store.Seed(types.KeyBreedsCache, []byte(`{"id":1}`))

	s := newState(t, store)

	assert.Empty(t, s.Favorites())
	require.Len(t, s.Photos(), 1)
	assert.Equal(t, "hi", s.Photos()[0].Note)
	assert.False(t, s.Settings().DarkMode)
	assert.Empty(t, s.Breeds())
}

func TestInitializeNormalizesFavorites(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyFavorites, []byte(`[42, "7", " 9 ", 42.0, null, {}, "42"]`))

	s := newState(t, store)

	assert.Equal(t, []string{"42", "7", "9"}, s.Favorites())
	assert.True(t, s.IsFavorite(42))
	assert.True(t, s.IsFavorite("9"))
}

func TestInitializeRunsOnce(t *testing.T) {
	store := memstore.New()
	s := newState(t, store)

	_, err := s.ToggleFavorite("3")
	require.NoError(t, err)
	store.Seed(types.KeyFavorites, []byte(`["8"]`))

	s.Initialize(context.Background())
	assert.Equal(t, []string{"3"}, s.Favorites())
}

func TestStoredNumericFavoriteTogglesByString(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyFavorites, []byte(`[42]`))
	s := newState(t, store)

	on, err := s.ToggleFavorite("42")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, s.Favorites())

	flush(t, s)
	assert.JSONEq(t, `[]`, stored(t, store, types.KeyFavorites))
}

func TestToggleFavoriteTwiceRestoresSet(t *testing.T) {
	tests := []struct {
		name string
		id   any
	}{
		{"string", "12"},
		{"int", 12},
		{"float", 12.0},
		{"breed id", types.BreedID("12")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			store.Seed(types.KeyFavorites, []byte(`["3"]`))
			s := newState(t, store)
			before := s.Favorites()

			on, err := s.ToggleFavorite(tt.id)
			require.NoError(t, err)
			assert.True(t, on)
			assert.True(t, s.IsFavorite("12"))
			assert.Equal(t, []string{"3", "12"}, s.Favorites())

			on, err = s.ToggleFavorite(tt.id)
			require.NoError(t, err)
			assert.False(t, on)
			assert.Equal(t, before, s.Favorites())

			flush(t, s)
			assert.JSONEq(t, `["3"]`, stored(t, store, types.KeyFavorites))
		})
	}
}

func TestToggleFavoriteRejectsEmptyID(t *testing.T) {
	s := newState(t, memstore.New())
	_, err := s.ToggleFavorite("  ")
	assert.ErrorIs(t, err, ErrEmptyID)
	_, err = s.ToggleFavorite(nil)
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestSavePhotoPrepends(t *testing.T) {
	store := memstore.New()
	s := newState(t, store)

	first, err := s.SavePhoto(types.Photo{ID: "a", URI: "file:///a.jpg", CreatedAt: 1000})
	require.NoError(t, err)
	second := types.NewPhoto("file:///b.jpg", time.UnixMilli(2000))
	second.Note = "beach"
	got, err := s.SavePhoto(second)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	photos := s.Photos()
	require.Len(t, photos, 2)
	assert.Equal(t, second, photos[0])
	assert.Equal(t, first, photos[1])

	flush(t, s)
	var persisted []types.Photo
	require.NoError(t, json.Unmarshal([]byte(stored(t, store, types.KeyPhotos)), &persisted))
	assert.Equal(t, photos, persisted)
}

func TestSavePhotoFillsIDAndTimestamp(t *testing.T) {
	s := newState(t, memstore.New())

	p, err := s.SavePhoto(types.Photo{URI: "file:///c.jpg"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.NotZero(t, p.CreatedAt)

	got, ok := s.Photo(p.ID)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestUpdatePhotoNote(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyPhotos, []byte(`[{"id":"p1","uri":"file:///a.jpg","note":"","createdAt":1000}]`))
	s := newState(t, store)

	ok, err := s.UpdatePhotoNote("p1", "first walk")
	require.NoError(t, err)
	assert.True(t, ok)
	p, _ := s.Photo("p1")
	assert.Equal(t, "first walk", p.Note)

	flush(t, s)
	assert.Equal(t, 1, store.Writes(types.KeyPhotos))
	assert.JSONEq(t, `[{"id":"p1","uri":"file:///a.jpg","note":"first walk","createdAt":1000}]`, stored(t, store, types.KeyPhotos))
}

func TestUpdatePhotoNoteUnknownIDIsNoop(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyPhotos, []byte(`[{"id":"p1","uri":"file:///a.jpg","note":"keep","createdAt":1000}]`))
	s := newState(t, store)
	before := s.Photos()

	var changes int
	s.Subscribe(func(Change) { changes++ })

	ok, err := s.UpdatePhotoNote("missing", "x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, s.Photos())

	flush(t, s)
	assert.Equal(t, 0, store.Writes(types.KeyPhotos))
	assert.Zero(t, changes)
}

func TestSetDarkMode(t *testing.T) {
	store := memstore.New()
	s := newState(t, store)

	require.NoError(t, s.SetDarkMode(true))
	assert.True(t, s.Settings().DarkMode)

	flush(t, s)
	assert.JSONEq(t, `{"darkMode":true}`, stored(t, store, types.KeySettings))
}

func TestSetBreedsWritesCache(t *testing.T) {
	store := memstore.New()
	s := newState(t, store)

	breeds := []types.Breed{{ID: "1", Name: "Affenpinscher"}, {ID: "2", Name: "Afghan Hound"}}
	require.NoError(t, s.SetBreeds(breeds))
	breeds[0].Name = "changed"
	assert.Equal(t, "Affenpinscher", s.Breeds()[0].Name, "state keeps its own copy")

	flush(t, s)
	var cached []types.Breed
	require.NoError(t, json.Unmarshal([]byte(stored(t, store, types.KeyBreedsCache)), &cached))
	assert.Len(t, cached, 2)

	require.NoError(t, s.SetBreeds(nil))
	flush(t, s)
	assert.JSONEq(t, `[]`, stored(t, store, types.KeyBreedsCache))
}

func TestMutationsBeforeInitialize(t *testing.T) {
	store := memstore.New()
	store.Seed(types.KeyFavorites, []byte(`["1"]`))
	s := New(store)
	t.Cleanup(func() { s.Close(context.Background()) })

	assert.False(t, s.Initialized())
	assert.Empty(t, s.Favorites(), "reads before Initialize see empty state")

	assert.ErrorIs(t, s.SetBreeds([]types.Breed{{ID: "1"}}), types.ErrNotInitialized)
	_, err := s.ToggleFavorite("1")
	assert.ErrorIs(t, err, types.ErrNotInitialized)
	_, err = s.SavePhoto(types.Photo{ID: "p", URI: "u", CreatedAt: 1})
	assert.ErrorIs(t, err, types.ErrNotInitialized)
	_, err = s.UpdatePhotoNote("p", "n")
	assert.ErrorIs(t, err, types.ErrNotInitialized)
	assert.ErrorIs(t, s.SetDarkMode(true), types.ErrNotInitialized)

	flush(t, s)
	for _, key := range types.StandardKeys {
		assert.Equal(t, 0, store.Writes(key))
	}
	assert.JSONEq(t, `["1"]`, stored(t, store, types.KeyFavorites))
}

func TestWriteFailureKeepsMemory(t *testing.T) {
	store := memstore.New()
	store.SetWriteHook(func(context.Context, types.Key, []byte) error {
		return fmt.Errorf("disk full")
	})
	rec := newCountingRecorder()
	s := newState(t, store, WithRecorder(rec))

	on, err := s.ToggleFavorite(7)
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, s.SetDarkMode(true))

	flush(t, s)
	assert.Equal(t, []string{"7"}, s.Favorites())
	assert.True(t, s.Settings().DarkMode)
	_, ok := store.Read(context.Background(), types.KeyFavorites)
	assert.False(t, ok)
	assert.Equal(t, 2, rec.writes(false))
}

func TestStalledKeyDoesNotBlockOtherKeys(t *testing.T) {
	store := memstore.New()
	release := make(chan struct{})
	store.SetWriteHook(func(_ context.Context, key types.Key, _ []byte) error {
		if key != types.KeyPhotos {
			return nil
		}
		<-release
		return fmt.Errorf("disk full")
	})
	s := newState(t, store)
	unblock := sync.OnceFunc(func() { close(release) })
	t.Cleanup(unblock)

	_, err := s.SavePhoto(types.Photo{ID: "a", URI: "file:///a.jpg", CreatedAt: 1000})
	require.NoError(t, err)
	_, err = s.ToggleFavorite(42)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return store.Writes(types.KeyFavorites) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `["42"]`, stored(t, store, types.KeyFavorites))
	assert.Equal(t, 0, store.Writes(types.KeyPhotos))

	unblock()
	flush(t, s)

	assert.Equal(t, 0, store.Writes(types.KeyPhotos))
	_, ok := store.Read(context.Background(), types.KeyPhotos)
	assert.False(t, ok)
	require.Len(t, s.Photos(), 1)
	assert.Equal(t, "a", s.Photos()[0].ID)
	assert.Equal(t, []string{"42"}, s.Favorites())
}

func TestRapidMutationsPersistLastSnapshot(t *testing.T) {
	store := memstore.New()
	store.SetWriteHook(func(context.Context, types.Key, []byte) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	s := newState(t, store)

	const n = 50
	for i := 0; i < n; i++ {
		_, err := s.ToggleFavorite(i)
		require.NoError(t, err)
	}
	for i := 0; i < n; i += 2 {
		_, err := s.ToggleFavorite(i)
		require.NoError(t, err)
	}

	flush(t, s)
	var persisted []string
	require.NoError(t, json.Unmarshal([]byte(stored(t, store, types.KeyFavorites)), &persisted))
	assert.Equal(t, s.Favorites(), persisted)
	assert.Len(t, persisted, n/2)
	assert.Less(t, store.Writes(types.KeyFavorites), n, "queued snapshots coalesce")
}

func TestConcurrentMutations(t *testing.T) {
	store := memstore.New()
	s := newState(t, store)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := s.ToggleFavorite(fmt.Sprintf("%d-%d", g, i))
				assert.NoError(t, err)
				_, err = s.SavePhoto(types.Photo{URI: fmt.Sprintf("file:///%d-%d.jpg", g, i)})
				assert.NoError(t, err)
				_ = s.Favorites()
			}
		}(g)
	}
	wg.Wait()

	flush(t, s)
	assert.Len(t, s.Favorites(), 200)
	assert.Len(t, s.Photos(), 200)

	var favorites []string
	require.NoError(t, json.Unmarshal([]byte(stored(t, store, types.KeyFavorites)), &favorites))
	assert.Equal(t, s.Favorites(), favorites)
}

func TestSubscribe(t *testing.T) {
	s := newState(t, memstore.New())

	var got []types.Key
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c.Key) })

	_, err := s.ToggleFavorite("1")
	require.NoError(t, err)
	_, err = s.SavePhoto(types.Photo{ID: "p", URI: "u", CreatedAt: 1})
	require.NoError(t, err)
	require.NoError(t, s.SetDarkMode(true))
	require.NoError(t, s.SetBreeds(nil))

	assert.Equal(t, []types.Key{types.KeyFavorites, types.KeyPhotos, types.KeySettings, types.KeyBreedsCache}, got)

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.SetDarkMode(false))
	assert.Len(t, got, 4)
}

func TestSubscriberMaySeeNewState(t *testing.T) {
	s := newState(t, memstore.New())

	var seen bool
	s.Subscribe(func(c Change) {
		if c.Key == types.KeyFavorites {
			seen = s.IsFavorite("5")
		}
	})
	_, err := s.ToggleFavorite(5)
	require.NoError(t, err)
	assert.True(t, seen)
}
