package service

import (
	"context"
	"learner_dashboard/internal/config"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewLocalFileStore(t.TempDir())

	url, err := store.Put(ctx, "certificates/4/LD-1.txt", strings.NewReader("bravo"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/certificates/4/LD-1.txt", url)

	body, err := os.ReadFile(filepath.Join(store.Root, "certificates", "4", "LD-1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(body))

	// 没有残留的临时文件
	entries, err := os.ReadDir(filepath.Join(store.Root, "certificates", "4"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, store.Remove(ctx, "certificates/4/LD-1.txt"))
	assert.NoError(t, store.Remove(ctx, "certificates/4/LD-1.txt"), "removing twice is fine")
}

func TestLocalFileStoreRejectsEscapingKeys(t *testing.T) {
	store := NewLocalFileStore(t.TempDir())
	for _, key := range []string{"", "../etc/passwd", "certificates/../../x", "a//b"} {
		_, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, "text/plain")
		assert.Error(t, err, key)
	}
}

func TestNewStorageServiceDefaultsToLocal(t *testing.T) {
	dir := t.TempDir()
	s := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: dir}})

	local, ok := s.Files.(*LocalFileStore)
	require.True(t, ok)
	assert.Equal(t, dir, local.Root)
}

func TestRemoteFileStoreURL(t *testing.T) {
	m := &MinioFileStore{Bucket: "certificates", PublicURL: "https://files.example.com/certificates"}
	assert.Equal(t, "https://files.example.com/certificates/certificates/1/LD-2.txt", m.URL("certificates/1/LD-2.txt"))

	o := &OSSFileStore{PublicURL: "https://bucket.oss-cn-hangzhou.aliyuncs.com"}
	assert.Equal(t, "https://bucket.oss-cn-hangzhou.aliyuncs.com/a.txt", o.URL("/a.txt"))
}
