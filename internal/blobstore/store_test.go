package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		prefix, key string
		want        string
		wantErr     bool
	}{
		{"", "owner/p1.png", "owner/p1.png", false},
		{"cards/", "owner/p1.png", "cards/owner/p1.png", false},
		{"/", "a.png", "/a.png", false},
		{"", "", "", true},
		{"", "/abs.png", "", true},
		{"", "owner/../escape.png", "", true},
		{"", "owner//p1.png", "", true},
		{"", "./p1.png", "", true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.prefix, tt.key)
		if tt.wantErr {
			assert.Error(t, err, "key %q", tt.key)
			continue
		}
		require.NoError(t, err, "key %q", tt.key)
		assert.Equal(t, tt.want, got)
	}
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "u-1/p-9.png", ImageKey("u-1", "p-9"))
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	key := ImageKey("owner", "p1")

	_, err := s.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	require.NoError(t, s.Put(ctx, key, []byte("first"), "image/png"))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	// Overwrites replace the content.
	require.NoError(t, s.Put(ctx, key, []byte("second"), "image/png"))
	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, s.Delete(ctx, key))
	assert.True(t, errors.Is(s.Delete(ctx, key), ErrNotFound))
	_, err = s.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, s.Put(ctx, "../escape.png", []byte("x"), ""))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFSStoreOnMemMapFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	exerciseStore(t, NewFS(fs, "/images"))

	// Nothing leaks outside the base directory and no partial files remain.
	require.NoError(t, NewFS(fs, "/images").Put(context.Background(), "o/k.png", []byte("z"), ""))
	ok, err := afero.Exists(fs, "/images/o/k.png")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := afero.ReadDir(fs, "/images/o")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), "file://"+dir+"?Sync=true")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestOpenRejects(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{
		"ftp://host/path",
		"file://",
		"file:///tmp/x?Bogus=1",
		"://bad",
	} {
		_, err := Open(ctx, raw)
		assert.Error(t, err, raw)
	}
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), "mem://")
	require.NoError(t, err)
	exerciseStore(t, s)
}
