package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrTooLarge is returned by SaveFile when the stream exceeds the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// FileInfo describes one file of the content directory.
type FileInfo struct {
	Name    string
	ModTime time.Time
}

type Storage struct {
	uploadDir string
}

func NewStorage(uploadDir string) (*Storage, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, err
	}
	return &Storage{uploadDir: uploadDir}, nil
}

func (s *Storage) Dir() string {
	return s.uploadDir
}

// SaveFile writes at most limit bytes from file under filename and returns
// the byte count. A stream longer than limit leaves no file behind.
func (s *Storage) SaveFile(file io.Reader, filename string, limit int64) (int64, error) {
	// 目录可能在运行期间被删除
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return 0, err
	}
	path := s.GetFilePath(filename)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		slog.Error("Failed to create file", "path", path, "error", err)
		return 0, err
	}

	written, err := io.Copy(out, io.LimitReader(file, limit+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > limit {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	if err != nil {
		if !errors.Is(err, ErrTooLarge) {
			slog.Error("Failed to save file", "path", path, "error", err)
		}
		os.Remove(path)
		return 0, err
	}
	return written, nil
}

// DeleteFile removes filename. A file that is already gone is reported as
// an error wrapping os.ErrNotExist.
func (s *Storage) DeleteFile(filename string) error {
	return os.Remove(s.GetFilePath(filename))
}

func (s *Storage) GetFilePath(filename string) string {
	return filepath.Join(s.uploadDir, filepath.Base(filename))
}

// ListFiles returns the regular files of the content directory.
func (s *Storage) ListFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}
