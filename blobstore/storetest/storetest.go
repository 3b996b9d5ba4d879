// Package storetest holds the behavior every blobstore.BlobStore must share.
package storetest

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/hupe1980/artlens/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a store created by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) blobstore.BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutOpenRead", func(t *testing.T) {
		s := newStore(t)
		data := []byte("hello world, this is a test blob")
		require.NoError(t, s.Put(ctx, "models/a.snap", data))

		b, err := s.Open(ctx, "models/a.snap")
		require.NoError(t, err)
		defer func() { _ = b.Close() }()
		assert.Equal(t, int64(len(data)), b.Size())

		buf := make([]byte, 5)
		n, err := b.ReadAt(ctx, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, "world", string(buf[:n]))

		tail := make([]byte, 10)
		n, err = b.ReadAt(ctx, tail, int64(len(data))-4)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "blob", string(tail[:n]))

		_, err = b.ReadAt(ctx, buf, int64(len(data))+10)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("ReadAll", func(t *testing.T) {
		s := newStore(t)
		data := bytes.Repeat([]byte("0123456789"), 1000)
		require.NoError(t, s.Put(ctx, "big", data))

		got, err := blobstore.ReadAll(ctx, s, "big")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "CURRENT", []byte("models/one.snap")))
		require.NoError(t, s.Put(ctx, "CURRENT", []byte("models/two.snap")))

		got, err := blobstore.ReadAll(ctx, s, "CURRENT")
		require.NoError(t, err)
		assert.Equal(t, "models/two.snap", string(got))
	})

	t.Run("PutCopiesInput", func(t *testing.T) {
		s := newStore(t)
		data := []byte("abc")
		require.NoError(t, s.Put(ctx, "x", data))
		data[0] = 'z'

		got, err := blobstore.ReadAll(ctx, s, "x")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Open(ctx, "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "gone", []byte("x")))
		require.NoError(t, s.Delete(ctx, "gone"))
		_, err := s.Open(ctx, "gone")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)

		assert.NoError(t, s.Delete(ctx, "never-existed"))
	})

	t.Run("List", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"models/b.snap", "CURRENT", "models/a.snap"} {
			require.NoError(t, s.Put(ctx, name, []byte(name)))
		}

		names, err := s.List(ctx, "models/")
		require.NoError(t, err)
		assert.Equal(t, []string{"models/a.snap", "models/b.snap"}, names)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"CURRENT", "models/a.snap", "models/b.snap"}, all)
	})

	t.Run("EmptyBlob", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "empty", nil))
		got, err := blobstore.ReadAll(ctx, s, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
