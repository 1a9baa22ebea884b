package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, cfg), mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestAllowWithinBudget(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{Enabled: true, MaxAttempts: 2, Window: time.Minute})
	defer done()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, "abc"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "abc"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if ttl := mr.TTL("sg:rf:abc"); ttl != time.Minute {
		t.Fatalf("expected window ttl 1m, got %v", ttl)
	}

	n, err := l.Attempts(ctx, "abc")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 attempts, got %d (%v)", n, err)
	}
}

func TestAllowWindowResets(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{Enabled: true, MaxAttempts: 1, Window: time.Minute})
	defer done()
	ctx := context.Background()

	_ = l.Allow(ctx, "abc")
	if err := l.Allow(ctx, "abc"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limit, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.Allow(ctx, "abc"); err != nil {
		t.Fatalf("expected new window, got %v", err)
	}
}

func TestAllowDisabledOrEmpty(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{Enabled: false, MaxAttempts: 0, Window: time.Minute})
	defer done()

	if err := l.Allow(context.Background(), "abc"); err != nil {
		t.Fatalf("disabled limiter returned %v", err)
	}
	if mr.Exists("sg:rf:abc") {
		t.Fatal("disabled limiter touched redis")
	}

	var nilLimiter *Limiter
	if err := nilLimiter.Allow(context.Background(), "abc"); err != nil {
		t.Fatalf("nil limiter returned %v", err)
	}
}

func TestResetClearsCounter(t *testing.T) {
	l, _, done := newLimiterTest(t, Config{Enabled: true, MaxAttempts: 1, Window: time.Minute})
	defer done()
	ctx := context.Background()

	_ = l.Allow(ctx, "abc")
	if err := l.Reset(ctx, "abc"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.Attempts(ctx, "abc"); n != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", n)
	}
}

func TestAllowRedisDown(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{Enabled: true, MaxAttempts: 1, Window: time.Minute})
	defer done()
	mr.Close()

	if err := l.Allow(context.Background(), "abc"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
