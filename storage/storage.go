package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get for a missing or expired key.
	ErrNotFound = errors.New("storage key not found")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("storage unavailable")
)

// Event describes one change to a key.
type Event struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

// Storage is a durable string store with change notifications.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	// Set writes value. A ttl <= 0 keeps the key until deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Subscribe delivers every change until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

type originContextKey struct{}

// WithOrigin tags writes made with ctx as coming from origin.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

// OriginFromContext returns the origin set by WithOrigin.
func OriginFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	origin, _ := ctx.Value(originContextKey{}).(string)
	return origin
}
