package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/integrateisp/ops-api/internal/config"
	"github.com/integrateisp/ops-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "archive")

	ls, err := storage.NewLocalStorage(basePath)
	require.NoError(t, err)
	assert.NotNil(t, ls)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "quotations/abc/v1.html"
	html := "<h1>Fibre 500</h1>"

	size, err := ls.Put(ctx, key, "text/html", strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, int64(len(html)), size)

	rc, err := ls.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, html, string(data))

	// Put replaces an existing object
	_, err = ls.Put(ctx, key, "text/html", bytes.NewBufferString("v2"))
	require.NoError(t, err)
	rc, err = ls.Get(ctx, key)
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "v2", string(data))

	require.NoError(t, ls.Delete(ctx, key))
	_, err = ls.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, ls.Delete(ctx, key))
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", ".", "..", "../outside.html", "/etc/passwd", "a/../../b"} {
		t.Run(key, func(t *testing.T) {
			_, err := ls.Put(ctx, key, "text/plain", strings.NewReader("x"))
			assert.ErrorIs(t, err, storage.ErrInvalidKey)

			_, err = ls.Get(ctx, key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
		})
	}
}

func TestNewStorage(t *testing.T) {
	logger := zap.NewNop()

	s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, logger)
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, logger)
	assert.Error(t, err)
}
