package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrUserNotCached is returned when no snapshot exists for the user.
	ErrUserNotCached = errors.New("user not cached")
)

// UserCache stores user snapshots in Redis.
type UserCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewUserCache returns a cache writing keys under prefix with the given TTL.
func NewUserCache(client redis.UniversalClient, prefix string, ttl time.Duration) *UserCache {
	return &UserCache{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *UserCache) key(userID string) string {
	return c.prefix + ":user:" + userID
}

// Put writes u, refreshing its TTL.
func (c *UserCache) Put(ctx context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return errors.New("user snapshot requires an id")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(u.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the snapshot for userID.
func (c *UserCache) Get(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrUserNotCached
	}
	data, err := c.redis.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotCached
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user snapshot: %w", err)
	}
	return &u, nil
}

// Delete removes the snapshot for userID. Deleting a missing key is not an error.
func (c *UserCache) Delete(ctx context.Context, userID string) error {
	if err := c.redis.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
