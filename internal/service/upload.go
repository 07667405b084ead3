package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notes-bin/gallery/internal/metrics"
	"github.com/notes-bin/gallery/internal/model"
	"github.com/notes-bin/gallery/internal/repository"
	"github.com/notes-bin/gallery/internal/storage"
)

// Files is the content directory as seen by the services.
type Files interface {
	SaveFile(r io.Reader, filename string, limit int64) (int64, error)
	DeleteFile(filename string) error
}

// UploadOptions configures the upload pipeline.
type UploadOptions struct {
	// ContentDir receives the uploaded files; created when absent.
	ContentDir string
	// PublicPrefix is prepended to stored names to build Image.Path.
	PublicPrefix string

	MaxFileBytes      int64
	AllowedTypes      []string
	AllowedExtensions []string
}

type UploadInput struct {
	Name     string
	MimeType string
	// Size is the declared length; -1 when unknown.
	Size int64
	Body io.Reader
}

type Uploader struct {
	opts       UploadOptions
	types      map[string]struct{}
	extensions map[string]struct{}
	files      Files
	repo       repository.Repository
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewUploader(opts UploadOptions, repo repository.Repository, m *metrics.Metrics) (*Uploader, error) {
	files, err := storage.NewStorage(opts.ContentDir)
	if err != nil {
		return nil, err
	}
	u := &Uploader{
		opts:       opts,
		types:      make(map[string]struct{}, len(opts.AllowedTypes)),
		extensions: make(map[string]struct{}, len(opts.AllowedExtensions)),
		files:      files,
		repo:       repo,
		metrics:    m,
		now:        time.Now,
	}
	for _, t := range opts.AllowedTypes {
		u.types[strings.ToLower(t)] = struct{}{}
	}
	for _, ext := range opts.AllowedExtensions {
		u.extensions[strings.ToLower(ext)] = struct{}{}
	}
	return u, nil
}

// Upload validates the input, writes the file and then inserts the record.
// Validation failures have no side effects.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (*model.Image, error) {
	img, err := u.upload(ctx, in)
	switch {
	case err == nil:
		u.metrics.RecordUpload("success", img.Size)
	case errors.Is(err, ErrInvalidInput):
		u.metrics.RecordUpload("invalid", 0)
	case errors.Is(err, ErrPayloadTooLarge):
		u.metrics.RecordUpload("too_large", 0)
	default:
		u.metrics.RecordUpload("error", 0)
	}
	return img, err
}

func (u *Uploader) upload(ctx context.Context, in UploadInput) (*model.Image, error) {
	if in.Body == nil || in.Name == "" {
		return nil, invalidInput("No image provided")
	}
	if !u.allowed(in.MimeType, in.Name) {
		return nil, invalidInput(fmt.Sprintf("Only images are allowed (%s)", u.allowedList()))
	}
	if in.Size > u.opts.MaxFileBytes {
		return nil, u.tooLarge()
	}

	now := u.now().UTC()
	filename := storedName(now, in.Name)
	size, err := u.files.SaveFile(in.Body, filename, u.opts.MaxFileBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, u.tooLarge()
	}
	if err != nil {
		return nil, storageError("Failed to save file", err)
	}

	img, err := u.repo.Insert(ctx, &model.Image{
		Filename:     filename,
		OriginalName: in.Name,
		Path:         path.Join(u.opts.PublicPrefix, filename),
		Size:         size,
		MimeType:     in.MimeType,
		UploadedAt:   now,
	})
	if err != nil {
		if rmErr := u.files.DeleteFile(filename); rmErr != nil {
			slog.Error("Failed to remove file after insert failure", "filename", filename, "error", rmErr)
		}
		return nil, storageError("Failed to save metadata", err)
	}

	slog.Info("Image uploaded", "image_id", img.ID, "filename", filename, "size", size)
	return img, nil
}

// allowed requires both the declared type and the extension to be listed.
func (u *Uploader) allowed(mimeType, name string) bool {
	if _, ok := u.types[strings.ToLower(mimeType)]; !ok {
		return false
	}
	_, ok := u.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (u *Uploader) allowedList() string {
	names := make([]string, 0, len(u.opts.AllowedExtensions))
	for _, ext := range u.opts.AllowedExtensions {
		names = append(names, strings.ToUpper(strings.TrimPrefix(ext, ".")))
	}
	return strings.Join(names, ", ")
}

func (u *Uploader) tooLarge() error {
	return PayloadTooLarge(u.opts.MaxFileBytes)
}

// storedName builds image-<unix millis>-<random><original extension>.
func storedName(now time.Time, original string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("image-%d-%s%s", now.UnixMilli(), suffix, filepath.Ext(original))
}

func formatMiB(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
