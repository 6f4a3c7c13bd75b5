package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kettleby/slate/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDirect_ListWalksRecursively(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "top.png", "aa")
	b := writeFile(t, dir, "nested/deep/frame_0001.exr", "bbbb")

	adapter, err := storage.NewDirect(dir)
	require.NoError(t, err)

	entries, err := adapter.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byPath := make(map[string]storage.Entry)
	for _, e := range entries {
		byPath[e.Path] = e
	}

	require.Contains(t, byPath, a)
	require.Contains(t, byPath, b)
	assert.Equal(t, int64(2), byPath[a].Size)
	assert.Equal(t, ".png", byPath[a].Ext)
	assert.Equal(t, "frame_0001.exr", byPath[b].Name)
	assert.False(t, byPath[b].Modified.IsZero())
}

func TestDirect_ScopeReturnsPathUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "asset.blend", "scene")

	adapter, err := storage.NewDirect(dir)
	require.NoError(t, err)

	local, release, err := adapter.Scope(context.Background(), path)
	require.NoError(t, err)
	defer release()

	assert.Equal(t, path, local)

	// Release must not remove the original file.
	release()
	assert.True(t, adapter.Exists(context.Background(), path))
}

func TestDirect_ScopeMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	adapter, err := storage.NewDirect(dir)
	require.NoError(t, err)

	_, _, err = adapter.Scope(context.Background(), filepath.Join(dir, "gone.png"))
	assert.Error(t, err)
}

func TestDirect_UploadIsANoop(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "thumb.jpg", "jpeg")

	adapter, err := storage.NewDirect(dir)
	require.NoError(t, err)

	assert.Equal(t, path, adapter.Upload(context.Background(), path, "image", "thumb.jpg"))
}

func TestNewDirect_RejectsMissingAndNonDirectoryPaths(t *testing.T) {
	_, err := storage.NewDirect("/definitely/not/a/real/path")
	assert.Error(t, err)

	dir := t.TempDir()
	file := writeFile(t, dir, "file.txt", "x")
	_, err = storage.NewDirect(file)
	assert.Error(t, err)
}

func TestNew_UnknownModeIsAnError(t *testing.T) {
	_, err := storage.New(storage.Config{Mode: "ftp"})
	assert.Error(t, err)
}
