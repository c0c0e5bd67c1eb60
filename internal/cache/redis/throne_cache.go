package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

const (
	throneKey = "throne:current"
	throneTTL = 30 * time.Second
)

// ThroneCache implements domain.ThroneCache using a single JSON-serialized
// Redis key with a short TTL. The quote path reads it to avoid hitting the
// database on every bid initiation; settlement invalidates it after every
// coronation, and the TTL bounds staleness either way. The settlement engine
// never consults the cache.
type ThroneCache struct {
	rdb *redis.Client
}

// NewThroneCache creates a ThroneCache backed by the given Client.
func NewThroneCache(c *Client) *ThroneCache {
	return &ThroneCache{rdb: c.Underlying()}
}

// Set stores the throne in the cache.
func (tc *ThroneCache) Set(ctx context.Context, t domain.Throne) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: marshal throne: %w", err)
	}
	if err := tc.rdb.Set(ctx, throneKey, data, throneTTL).Err(); err != nil {
		return fmt.Errorf("redis: set throne: %w", err)
	}
	return nil
}

// Get retrieves the cached throne. It returns domain.ErrNotFound on a miss.
func (tc *ThroneCache) Get(ctx context.Context) (domain.Throne, error) {
	data, err := tc.rdb.Get(ctx, throneKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Throne{}, domain.ErrNotFound
		}
		return domain.Throne{}, fmt.Errorf("redis: get throne: %w", err)
	}

	var t domain.Throne
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.Throne{}, fmt.Errorf("redis: unmarshal throne: %w", err)
	}
	return t, nil
}

// Invalidate drops the cached throne so the next read repopulates from the
// store.
func (tc *ThroneCache) Invalidate(ctx context.Context) error {
	if err := tc.rdb.Del(ctx, throneKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate throne: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ThroneCache = (*ThroneCache)(nil)
