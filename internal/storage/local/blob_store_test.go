package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("ValidConfig", func(t *testing.T) {
		t.Parallel()
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "exports", "nested")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		require.DirExists(t, dir)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		t.Parallel()
		_, err := local.New(local.Config{})
		require.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		require.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("NestedPath", func(t *testing.T) {
		path := "exports/job-1.json"
		uri, err := store.PutObject(ctx, path, "application/json", []byte(`{"a":1}`))
		require.NoError(t, err)
		require.Equal(t, "file://"+filepath.Join(tempDir, path), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		got, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		require.Equal(t, `{"a":1}`, string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		_, err := store.PutObject(ctx, "same.txt", "text/plain", []byte("first"))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "same.txt", "text/plain", []byte("second"))
		require.NoError(t, err)
		// #nosec G304 -- test reads from the controlled temp directory.
		got, err := os.ReadFile(filepath.Join(tempDir, "same.txt"))
		require.NoError(t, err)
		require.Equal(t, "second", string(got))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/plain", []byte("data"))
		require.Error(t, err)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(ctx, "../escape.txt", "text/plain", []byte("data"))
		require.Error(t, err)
	})
}
