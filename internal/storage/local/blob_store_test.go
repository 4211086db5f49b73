package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scam-intel-crawler/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "snapshots", "nested")
		store, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "probe file must be removed")
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsAFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := local.New(local.Config{BaseDir: file})
		assert.ErrorContains(t, err, "not a directory")
	})
}

func TestPutObject(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("WritesNestedPath", func(t *testing.T) {
		uri, err := store.PutObject(ctx, "scam.test/abc.txt", "text/plain", strings.NewReader("call +1 555 123 4567"))
		require.NoError(t, err)

		full := filepath.Join(dir, "scam.test", "abc.txt")
		assert.Equal(t, "file://"+filepath.ToSlash(full), uri)

		// #nosec G304 -- test reads from its own temp directory.
		got, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Equal(t, "call +1 555 123 4567", string(got))
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		_, err := store.PutObject(ctx, "scam.test/same.txt", "", strings.NewReader("v1"))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "scam.test/same.txt", "", strings.NewReader("v2"))
		require.NoError(t, err)

		// #nosec G304 -- test reads from its own temp directory.
		got, err := os.ReadFile(filepath.Join(dir, "scam.test", "same.txt"))
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "  ", "text/plain", strings.NewReader("x"))
		assert.Error(t, err)
	})

	t.Run("RejectsTraversal", func(t *testing.T) {
		_, err := store.PutObject(ctx, "../escape.txt", "text/plain", strings.NewReader("x"))
		assert.ErrorContains(t, err, "escapes base dir")
	})

	t.Run("ReaderFailureLeavesNoFile", func(t *testing.T) {
		_, err := store.PutObject(ctx, "broken/page.txt", "", failingReader{})
		require.Error(t, err)

		entries, err := os.ReadDir(filepath.Join(dir, "broken"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.PutObject(cctx, "scam.test/late.txt", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }
