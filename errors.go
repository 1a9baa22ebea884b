package goSession

import "errors"

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRefresherRequired is returned by Build without a refresher.
	ErrRefresherRequired = errors.New("refresher required")
	// ErrRedisRequired is returned by Build when a Redis-backed feature is enabled without a client.
	ErrRedisRequired = errors.New("redis client required")
	// ErrUserCacheDisabled is returned by Gate.User when no user cache is configured.
	ErrUserCacheDisabled = errors.New("user cache disabled")
	// ErrNoSubject is returned by Gate.User when the access token names no user.
	ErrNoSubject = errors.New("access token has no subject")
)
