package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sales-dashboard/internal/models"
)

const keyPrefix = "salesdash:dataset:"

// Redis stores datasets as JSON with a TTL that is refreshed on every read.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Put(ctx context.Context, ds models.Dataset) error {
	raw, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+ds.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (models.Dataset, error) {
	raw, err := r.client.GetEx(ctx, keyPrefix+id, r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Dataset{}, ErrNotFound
	}
	if err != nil {
		return models.Dataset{}, fmt.Errorf("redis get: %w", err)
	}

	var ds models.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return models.Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}
	return ds, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
