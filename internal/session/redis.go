package session

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// guardTTL bounds how long a fired-logout marker lives; one day covers the
// daily cutoff cycle.
const guardTTL = 24 * time.Hour

// RedisGuard implements the cross-instance one-shot logout guard with SETNX.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard builds a guard backed by the given client.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

// FireOnce returns true for the first caller per session.
func (g *RedisGuard) FireOnce(ctx context.Context, sessionID string) (bool, error) {
	key := fmt.Sprintf("calldesk:session:%s:expired", sessionID)
	first, err := g.client.SetNX(ctx, key, "1", guardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("session guard: setnx: %w", err)
	}
	return first, nil
}

// RedisInvalidator revokes a session by deleting its record from the shared
// session cache the auth gateway reads.
type RedisInvalidator struct {
	client *redis.Client
}

// NewRedisInvalidator builds an invalidator backed by the given client.
func NewRedisInvalidator(client *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

// Invalidate deletes the session record. Deleting an already-gone session is
// a no-op.
func (i *RedisInvalidator) Invalidate(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf("calldesk:session:%s:record", sessionID)
	if err := i.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("session invalidator: del: %w", err)
	}
	return nil
}
