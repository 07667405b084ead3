package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/notes-bin/gallery/internal/model"
	"github.com/notes-bin/gallery/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	nextIDKey      = "images:next_id"
	byTimeKey      = "images:by_time"
	imageKeyFormat = "image:%d"
)

// Client is a Redis-backed repository.Repository. Records live as JSON at
// image:<id>; the sorted set images:by_time orders them by upload time.
type Client struct {
	*redis.Client
}

var _ repository.Repository = (*Client)(nil)

func NewClient(addr, password string, db, poolSize int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to Redis", "addr", addr)
	return &Client{client}, nil
}

func imageKey(id int64) string {
	return fmt.Sprintf(imageKeyFormat, id)
}

func (c *Client) Insert(ctx context.Context, img *model.Image) (*model.Image, error) {
	id, err := c.Incr(ctx, nextIDKey).Result()
	if err != nil {
		return nil, err
	}
	stored := *img
	stored.ID = id

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, err
	}

	// 元数据与排序索引一起写入
	_, err = c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, imageKey(id), data, 0)
		pipe.ZAdd(ctx, byTimeKey, redis.Z{
			Score:  float64(stored.UploadedAt.UnixMicro()),
			Member: strconv.FormatInt(id, 10),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (c *Client) List(ctx context.Context) ([]model.Image, error) {
	ids, err := c.ZRevRange(ctx, byTimeKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	images := make([]model.Image, 0, len(ids))
	if len(ids) == 0 {
		return images, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "image:" + id
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// 索引残留, 记录已被删除
			slog.Warn("Dangling index entry", "image_id", ids[i])
			continue
		}
		var img model.Image
		if err := json.Unmarshal([]byte(raw), &img); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	repository.SortNewestFirst(images)
	return images, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*model.Image, error) {
	data, err := c.Client.Get(ctx, imageKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var img model.Image
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Delete trusts the DEL reply: only the caller that actually removed the
// key succeeds.
func (c *Client) Delete(ctx context.Context, id int64) error {
	removed, err := c.Del(ctx, imageKey(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return repository.ErrNotFound
	}
	if err := c.ZRem(ctx, byTimeKey, strconv.FormatInt(id, 10)).Err(); err != nil {
		slog.Error("Failed to remove index entry", "image_id", id, "error", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
