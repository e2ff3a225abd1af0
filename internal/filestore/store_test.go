package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreReadWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file reads as absent", func(t *testing.T) {
		s := openStore(t)
		_, ok := s.Read(ctx, types.KeyPhotos)
		assert.False(t, ok)
	})

	t.Run("written value reads back", func(t *testing.T) {
		s := openStore(t)
		require.NoError(t, s.Write(ctx, types.KeyPhotos, []byte(`[{"id":"1","uri":"a","note":"","createdAt":1}]`)))
		v, ok := s.Read(ctx, types.KeyPhotos)
		require.True(t, ok)
		assert.JSONEq(t, `[{"id":"1","uri":"a","note":"","createdAt":1}]`, string(v))
	})

	t.Run("each key has its own file", func(t *testing.T) {
		s := openStore(t)
		require.NoError(t, s.Write(ctx, types.KeyFavorites, []byte(`["1"]`)))
		require.NoError(t, s.Write(ctx, types.KeySettings, []byte(`{"darkMode":true}`)))
		assert.FileExists(t, filepath.Join(s.dir, "favorites.json"))
		assert.FileExists(t, filepath.Join(s.dir, "settings.json"))
	})

	t.Run("corrupt file reads as absent without affecting others", func(t *testing.T) {
		s := openStore(t)
		require.NoError(t, os.WriteFile(s.Path(types.KeyFavorites), []byte("not json"), 0o644))
		require.NoError(t, s.Write(ctx, types.KeyPhotos, []byte(`[]`)))

		_, ok := s.Read(ctx, types.KeyFavorites)
		assert.False(t, ok)
		_, ok = s.Read(ctx, types.KeyPhotos)
		assert.True(t, ok)
	})

	t.Run("write leaves no temp files behind", func(t *testing.T) {
		s := openStore(t)
		require.NoError(t, s.Write(ctx, types.KeyBreedsCache, []byte(`[]`)))
		entries, err := os.ReadDir(s.dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		s := openStore(t)
		err := s.Write(ctx, types.Key("@kennel/nope"), []byte(`1`))
		assert.ErrorIs(t, err, types.ErrKeyUnknown)
	})

	t.Run("closed store rejects writes", func(t *testing.T) {
		s := openStore(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		err := s.Write(ctx, types.KeyPhotos, []byte(`[]`))
		assert.ErrorIs(t, err, types.ErrWriteFailure)
		assert.ErrorIs(t, err, types.ErrStoreClosed)
	})

	t.Run("write into a removed directory fails", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		s, err := Open(dir)
		require.NoError(t, err)
		require.NoError(t, os.RemoveAll(dir))
		err = s.Write(ctx, types.KeyPhotos, []byte(`[]`))
		assert.ErrorIs(t, err, types.ErrWriteFailure)
	})
}
