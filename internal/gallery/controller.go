package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/notes-bin/gallery/internal/model"
)

var (
	// ErrBusy is returned when the same kind of request is still in flight.
	ErrBusy = errors.New("request already in progress")
	// ErrUnknownImage means the id is not part of the loaded list.
	ErrUnknownImage = errors.New("image not in gallery")
	// ErrCancelled is returned by Delete when confirmation was refused.
	ErrCancelled = errors.New("deletion cancelled")
)

// API is the server surface the controller talks to.
type API interface {
	List(ctx context.Context) ([]model.Image, error)
	Upload(ctx context.Context, name, mimeType string, body io.Reader) (*model.Image, error)
	Delete(ctx context.Context, id int64) error
	// Fetch opens the public path of an image.
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

// Controller keeps the canonical image list and the view state. The list
// is refetched wholesale after every mutation.
type Controller struct {
	api      API
	notifier *Notifier

	mu       sync.Mutex
	images   []model.Image
	search   string
	sortMode SortMode
	detail   *model.Image

	uploading atomic.Bool
	deleting  atomic.Bool
}

func NewController(api API, notifier *Notifier) *Controller {
	if notifier == nil {
		notifier = NewNotifier(DefaultNoticeTTL, nil)
	}
	return &Controller{api: api, notifier: notifier, sortMode: SortNewest}
}

func (c *Controller) Notifier() *Notifier {
	return c.notifier
}

// Refresh replaces the canonical list with the server's.
func (c *Controller) Refresh(ctx context.Context) error {
	images, err := c.api.List(ctx)
	if err != nil {
		c.notifier.Error("Failed to load images")
		return err
	}
	c.mu.Lock()
	c.images = images
	if c.detail != nil && indexOf(images, c.detail.ID) < 0 {
		c.detail = nil
	}
	c.mu.Unlock()
	return nil
}

// Images returns a copy of the canonical list in server order.
func (c *Controller) Images() []model.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Image, len(c.images))
	copy(out, c.images)
	return out
}

func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

func (c *Controller) SetFilter(substr string) {
	c.mu.Lock()
	c.search = substr
	c.mu.Unlock()
}

func (c *Controller) SetSort(mode SortMode) {
	c.mu.Lock()
	c.sortMode = mode
	c.mu.Unlock()
}

// Visible is the filtered, sorted copy to render.
func (c *Controller) Visible() []model.Image {
	c.mu.Lock()
	images, search, mode := c.images, c.search, c.sortMode
	c.mu.Unlock()

	if search != "" {
		images = Filter(images, search)
	}
	return Sort(images, mode)
}

// OpenDetail focuses one image, replacing any open detail view.
func (c *Controller) OpenDetail(id int64) (model.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.images, id)
	if i < 0 {
		return model.Image{}, ErrUnknownImage
	}
	img := c.images[i]
	c.detail = &img
	return img, nil
}

func (c *Controller) CloseDetail() {
	c.mu.Lock()
	c.detail = nil
	c.mu.Unlock()
}

func (c *Controller) Detail() (model.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return model.Image{}, false
	}
	return *c.detail, true
}

func (c *Controller) Upload(ctx context.Context, name, mimeType string, body io.Reader) (*model.Image, error) {
	if !c.uploading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.uploading.Store(false)

	img, err := c.api.Upload(ctx, name, mimeType, body)
	if err != nil {
		c.notifier.Error(messageOf(err, "Upload failed"))
		return nil, err
	}
	c.notifier.Success("Image added")
	if err := c.Refresh(ctx); err != nil {
		return img, err
	}
	return img, nil
}

// Delete asks confirm first; a refusal returns ErrCancelled without any
// request. On success the detail view is closed and the list refreshed.
func (c *Controller) Delete(ctx context.Context, id int64, confirm func(model.Image) bool) error {
	c.mu.Lock()
	i := indexOf(c.images, id)
	var img model.Image
	if i >= 0 {
		img = c.images[i]
	}
	c.mu.Unlock()
	if i < 0 {
		return ErrUnknownImage
	}
	if confirm != nil && !confirm(img) {
		return ErrCancelled
	}

	if !c.deleting.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.deleting.Store(false)

	if err := c.api.Delete(ctx, id); err != nil {
		c.notifier.Error(messageOf(err, "Delete failed"))
		return err
	}
	c.notifier.Success("Image deleted")
	c.CloseDetail()
	return c.Refresh(ctx)
}

// Download saves the image bytes into dir under the original file name and
// returns the written path.
func (c *Controller) Download(ctx context.Context, id int64, dir string) (string, error) {
	c.mu.Lock()
	i := indexOf(c.images, id)
	var img model.Image
	if i >= 0 {
		img = c.images[i]
	}
	c.mu.Unlock()
	if i < 0 {
		return "", ErrUnknownImage
	}

	body, err := c.api.Fetch(ctx, img.Path)
	if err != nil {
		c.notifier.Error("Download failed")
		return "", err
	}
	defer body.Close()

	target := filepath.Join(dir, filepath.Base(img.OriginalName))
	out, err := os.Create(target)
	if err != nil {
		c.notifier.Error("Download failed")
		return "", err
	}
	_, err = io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.notifier.Error("Download failed")
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	c.notifier.Success("Download started")
	return target, nil
}

func indexOf(images []model.Image, id int64) int {
	for i := range images {
		if images[i].ID == id {
			return i
		}
	}
	return -1
}

// messageOf prefers the server-provided message when the API error has one.
func messageOf(err error, fallback string) string {
	var m interface{ UserMessage() string }
	if errors.As(err, &m) && m.UserMessage() != "" {
		return m.UserMessage()
	}
	return fallback
}
