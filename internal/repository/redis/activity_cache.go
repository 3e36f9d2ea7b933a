package redis

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/acme/inbound-call-desk/internal/domain"
	"github.com/acme/inbound-call-desk/internal/repository"
)

// ActivityCache stores the freshest presence value per worker in Redis.
type ActivityCache struct {
	client *redis.Client
}

// NewActivityCache creates a cache backed by the given client.
func NewActivityCache(client *redis.Client) *ActivityCache {
	return &ActivityCache{client: client}
}

// Set writes the activity for a worker. No TTL: presence is current-state
// only and the key is overwritten on every transition.
func (c *ActivityCache) Set(ctx context.Context, workerSID string, activity domain.Activity) error {
	if err := c.client.Set(ctx, c.key(workerSID), string(activity), 0).Err(); err != nil {
		return fmt.Errorf("activity cache: set: %w", err)
	}
	return nil
}

// Get reads the cached activity for a worker.
func (c *ActivityCache) Get(ctx context.Context, workerSID string) (domain.Activity, error) {
	raw, err := c.client.Get(ctx, c.key(workerSID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("activity cache: get: %w", err)
	}
	return domain.Activity(raw), nil
}

func (c *ActivityCache) key(workerSID string) string {
	return fmt.Sprintf("calldesk:worker:%s:activity", workerSID)
}
