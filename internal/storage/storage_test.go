package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	s, err := NewStorage(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, dir, s.Dir())
}

func TestSaveAndDeleteFile(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x89}, 2048)
	n, err := s.SaveFile(bytes.NewReader(payload), "image-1.png", 4096)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), n)

	data, err := os.ReadFile(s.GetFilePath("image-1.png"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	files, err := s.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "image-1.png", files[0].Name)

	require.NoError(t, s.DeleteFile("image-1.png"))
	assert.NoFileExists(t, s.GetFilePath("image-1.png"))

	err = s.DeleteFile("image-1.png")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSaveFileRejectsOversizedStream(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.SaveFile(strings.NewReader(strings.Repeat("x", 11)), "big.png", 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.NoFileExists(t, s.GetFilePath("big.png"))

	n, err := s.SaveFile(strings.NewReader(strings.Repeat("x", 10)), "exact.png", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestSaveFileRefusesOverwrite(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.SaveFile(strings.NewReader("one"), "same.png", 10)
	require.NoError(t, err)
	_, err = s.SaveFile(strings.NewReader("two"), "same.png", 10)
	assert.Error(t, err)
}

func TestGetFilePathStaysInDir(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "passwd"), s.GetFilePath("../../etc/passwd"))
}
