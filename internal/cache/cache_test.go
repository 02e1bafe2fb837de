package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSum = "63139d9a1833e237ddcc1ae585c1d3a25cce9505f8c83803ad4c3c70d2c2cdb7"

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	c, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c
}

func TestNew(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "home")

	c, err := New(root)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, root, c.Root())
	assert.FileExists(t, filepath.Join(root, DefaultDBName))

	_, err = New("")
	assert.Error(t, err)
}

func TestCache_StoreAndGetArchive(t *testing.T) {
	c := newTestCache(t)

	entry, err := c.GetArchive(testSum)
	require.NoError(t, err)
	assert.Nil(t, entry, "empty cache should miss")

	src := filepath.Join(t.TempDir(), "0.5.0.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("archive bytes"), 0o644))

	stored, err := c.StoreArchive(testSum, "https://github.com/esphen/wsta/archive/0.5.0.tar.gz", src)
	require.NoError(t, err)
	assert.Equal(t, int64(len("archive bytes")), stored.Size)
	assert.Equal(t, filepath.Join(c.Root(), "archives", testSum, "0.5.0.tar.gz"), stored.Path)

	got, err := c.GetArchive(testSum)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored.URL, got.URL)
	assert.Equal(t, stored.Path, got.Path)

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))
}

func TestCache_GetArchive_FileGone(t *testing.T) {
	c := newTestCache(t)

	src := filepath.Join(t.TempDir(), "a.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	stored, err := c.StoreArchive(testSum, "u", src)
	require.NoError(t, err)
	require.NoError(t, os.Remove(stored.Path))

	got, err := c.GetArchive(testSum)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_RemoveArchive(t *testing.T) {
	c := newTestCache(t)

	src := filepath.Join(t.TempDir(), "a.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	_, err := c.StoreArchive(testSum, "u", src)
	require.NoError(t, err)

	require.NoError(t, c.RemoveArchive(testSum))

	got, err := c.GetArchive(testSum)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoDirExists(t, filepath.Join(c.Root(), "archives", testSum))
}

func TestCache_Receipts(t *testing.T) {
	c := newTestCache(t)

	r, err := c.GetReceipt("wsta")
	require.NoError(t, err)
	assert.Nil(t, r)

	first := &Receipt{
		ID:          "1",
		Name:        "wsta",
		Version:     "0.4.0",
		SHA256:      testSum,
		Files:       []InstalledFile{{Path: "/opt/bin/wsta", SHA256: "aa"}},
		RuntimeDeps: []string{"openssl"},
		BuildDeps:   []string{"rust"},
		InstalledAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, c.PutReceipt(first))
	require.NoError(t, c.PutReceipt(&Receipt{ID: "2", Name: "aaa", Version: "1.0.0"}))

	got, err := c.GetReceipt("wsta")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.Files, got.Files)
	assert.Equal(t, first.RuntimeDeps, got.RuntimeDeps)
	assert.True(t, first.InstalledAt.Equal(got.InstalledAt))

	// a reinstall replaces the receipt instead of adding a second one
	second := *first
	second.ID = "3"
	second.Version = "0.5.0"
	require.NoError(t, c.PutReceipt(&second))

	all, err := c.Receipts()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "aaa", all[0].Name)
	assert.Equal(t, "0.5.0", all[1].Version)
}

func TestCache_ClearKeepsReceipts(t *testing.T) {
	c := newTestCache(t)

	src := filepath.Join(t.TempDir(), "a.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("12345"), 0o644))

	_, err := c.StoreArchive(testSum, "u", src)
	require.NoError(t, err)
	require.NoError(t, c.PutReceipt(&Receipt{Name: "wsta"}))

	count, size, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(5), size)

	require.NoError(t, c.Clear())

	count, size, err = c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), size)

	r, err := c.GetReceipt("wsta")
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	sum, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCopyArtifact(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	src := filepath.Join(srcDir, "wsta")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	dst := filepath.Join(dstDir, "bin", "wsta")
	require.NoError(t, CopyArtifact(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// overwriting leaves exactly one file with the new content
	require.NoError(t, os.WriteFile(src, []byte("v2"), 0o755))
	require.NoError(t, CopyArtifact(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, CopyArtifact(filepath.Join(srcDir, "missing"), dst))
	assert.Error(t, CopyArtifact(srcDir, filepath.Join(dstDir, "dir")))
}
