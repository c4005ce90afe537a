package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"biorempp/internal/pipeline/models"
	"biorempp/pkg/platform/sentinel"
)

// Redis key prefix for cached results
const resultKeyPrefix = "bpp:result:"

// Redis is the distributed ResultCache for deployments where multiple
// instances share computed results. Expiry is delegated to Redis TTLs, so
// the FIFO capacity bound of the memory cache does not apply here.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (*models.MergeResult, error) {
	payload, err := r.client.Get(ctx, resultKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("result %s: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get cached result: %w", err)
	}
	var result models.MergeResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode cached result %s: %w", key, err)
	}
	return &result, nil
}

func (r *Redis) Set(ctx context.Context, key string, result *models.MergeResult, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", key, err)
	}
	return r.client.Set(ctx, resultKeyPrefix+key, payload, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, resultKeyPrefix+key).Err()
}

// Clear removes every cached result via SCAN so large keyspaces are not
// blocked the way KEYS would.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, resultKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("clear cached results: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached results: %w", err)
	}
	return nil
}

func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, resultKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check cached result: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Size(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, resultKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan cached results: %w", err)
	}
	return count, nil
}
