package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notes-bin/gallery/internal/api"
	"github.com/notes-bin/gallery/internal/auth"
	"github.com/notes-bin/gallery/internal/config"
	"github.com/notes-bin/gallery/internal/metrics"
	"github.com/notes-bin/gallery/internal/repository"
	"github.com/notes-bin/gallery/internal/storage"
)

func newServer(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		UploadDir:         t.TempDir(),
		MaxUploadSize:     5 * 1024 * 1024,
		AllowedTypes:      config.DefaultAllowedTypes,
		AllowedExtensions: config.DefaultAllowedExtensions,
		CORS:              config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	cfg.RateLimit.Requests = 1000
	cfg.RateLimit.Duration = 1
	files, err := storage.NewStorage(cfg.UploadDir)
	require.NoError(t, err)
	srv := httptest.NewServer(api.SetupRouter(cfg, api.Deps{
		Repo:    repository.NewMemoryRepository(),
		Storage: files,
		Metrics: metrics.New(),
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeImage(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x89}, size), 0o644))
	return path
}

func TestUploadListShowDownloadDelete(t *testing.T) {
	server := newServer(t)

	out, stderr, err := runCLI(t, "", "--server", server, "upload", writeImage(t, "cat.png", 2048), writeImage(t, "dog.jpg", 10))
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "uploads/image-")
	assert.Contains(t, stderr, "[success] Image added")

	out, _, err = runCLI(t, "", "-s", server, "list", "--filter", "CAT")
	require.NoError(t, err)
	assert.Contains(t, out, "cat.png")
	assert.NotContains(t, out, "dog.jpg")
	assert.Contains(t, out, "2 images (1 shown)")

	out, _, err = runCLI(t, "", "-s", server, "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "cat.png")
	assert.Contains(t, out, "2.0 KB")

	dir := t.TempDir()
	out, _, err = runCLI(t, "", "-s", server, "download", "1", "-o", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cat.png"), strings.TrimSpace(out))
	assert.FileExists(t, filepath.Join(dir, "cat.png"))

	out, _, err = runCLI(t, "n\n", "-s", server, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	_, stderr, err = runCLI(t, "", "-s", server, "delete", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[success] Image deleted")

	out, _, err = runCLI(t, "", "-s", server, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 image (1 shown)")
}

func TestUploadRejectedFile(t *testing.T) {
	server := newServer(t)
	_, stderr, err := runCLI(t, "", "-s", server, "upload", writeImage(t, "notes.txt", 5))
	assert.Error(t, err)
	assert.Contains(t, stderr, "[error] Only images are allowed")
}

func TestToken(t *testing.T) {
	out, _, err := runCLI(t, "", "token", "--secret", "s3cret", "--subject", "ci")
	require.NoError(t, err)

	subject, err := auth.NewAuth("s3cret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci", subject)

	_, _, err = runCLI(t, "", "token", "--secret", "")
	assert.Error(t, err)
}

func TestUsageErrors(t *testing.T) {
	_, _, err := runCLI(t, "")
	assert.Error(t, err)
	_, _, err = runCLI(t, "", "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
	_, _, err = runCLI(t, "", "show", "abc")
	assert.ErrorContains(t, err, "invalid image id")
	_, _, err = runCLI(t, "", "list", "--sort", "random")
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "2.0 KB", formatSize(2048))
	assert.Equal(t, "5.0 MB", formatSize(5*1024*1024))
}
