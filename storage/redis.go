package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Storage backed by Redis strings, with change notifications
// published on a per-namespace channel.
type Redis struct {
	redis     redis.UniversalClient
	prefix    string
	namespace string
}

// NewRedis returns a store whose keys live under prefix:namespace. Clients that
// should see each other's writes share the same namespace.
func NewRedis(client redis.UniversalClient, prefix, namespace string) *Redis {
	return &Redis{
		redis:     client,
		prefix:    prefix,
		namespace: namespace,
	}
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + r.namespace + ":" + key
}

func (r *Redis) channel() string {
	return r.prefix + ":" + r.namespace + ":events"
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	payload, err := json.Marshal(Event{Key: key, Value: value, Origin: OriginFromContext(ctx)})
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), value, ttl)
		pipe.Publish(ctx, r.channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	origin := OriginFromContext(ctx)

	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			payload, err := json.Marshal(Event{Key: key, Deleted: true, Origin: origin})
			if err != nil {
				return err
			}
			pipe.Del(ctx, r.key(key))
			pipe.Publish(ctx, r.channel(), payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by the server, so writes
// made after it returns are always delivered.
func (r *Redis) Subscribe(ctx context.Context) (<-chan Event, error) {
	ps := r.redis.Subscribe(ctx, r.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make(chan Event, subscriberBuffer)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
