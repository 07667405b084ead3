// Package gallery is the client side of the image gallery: the list
// view-model (filter, sort, detail overlay), transient notices and a
// controller that drives the HTTP API.
package gallery

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/notes-bin/gallery/internal/model"
)

type SortMode string

const (
	SortNewest SortMode = "newest"
	SortOldest SortMode = "oldest"
	SortName   SortMode = "name"
	SortSize   SortMode = "size"
)

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortName, SortSize:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q (want newest, oldest, name or size)", s)
	}
}

// Filter keeps the images whose original name contains substr, ignoring
// case. The input slice is left untouched.
func Filter(images []model.Image, substr string) []model.Image {
	needle := strings.ToLower(substr)
	out := make([]model.Image, 0, len(images))
	for _, img := range images {
		if strings.Contains(strings.ToLower(img.OriginalName), needle) {
			out = append(out, img)
		}
	}
	return out
}

// Sort returns a reordered copy of images. Unknown modes keep the input
// order.
func Sort(images []model.Image, mode SortMode) []model.Image {
	out := make([]model.Image, len(images))
	copy(out, images)

	switch mode {
	case SortNewest:
		// 与服务端一致: 时间相同按 id 排
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
				return out[i].UploadedAt.After(out[j].UploadedAt)
			}
			return out[i].ID > out[j].ID
		})
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
				return out[i].UploadedAt.Before(out[j].UploadedAt)
			}
			return out[i].ID < out[j].ID
		})
	case SortName:
		// Collator 不是并发安全的
		col := collate.New(language.Und)
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].OriginalName, out[j].OriginalName) < 0
		})
	case SortSize:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Size > out[j].Size })
	}
	return out
}
