package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notes-bin/gallery/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "gallery.log")
	logger, closer, err := New(config.LogConfig{Level: "info", File: file, MaxSize: 1})
	require.NoError(t, err)

	logger.Info("image uploaded", "id", 1)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"image uploaded"`)
	assert.Contains(t, string(data), `"id":1`)
}
