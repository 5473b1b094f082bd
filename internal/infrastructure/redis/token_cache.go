package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores provider OAuth tokens in Redis so that every API
// instance shares one token per credential set instead of each fetching
// its own.
type TokenCache struct {
	client *redis.Client
}

// NewTokenCache creates a TokenCache backed by the given Redis client.
func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

// Get returns the cached token, or "" when the key is absent or expired.
func (c *TokenCache) Get(ctx context.Context, key string) (string, error) {
	token, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Set stores the token with the given TTL.
func (c *TokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return c.client.Set(ctx, key, token, ttl).Err()
}

// Delete drops the token, forcing the next call to re-authenticate.
func (c *TokenCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
