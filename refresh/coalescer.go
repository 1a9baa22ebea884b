package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultGrace is how long a successful result stays available to requests
// still holding the superseded refresh token.
const DefaultGrace = 15 * time.Second

var errRefreshFailed = errors.New("refresh failed")

// Source tells where a [Coalescer] result came from.
type Source int

const (
	// SourceUpstream means this call performed the upstream refresh.
	SourceUpstream Source = iota
	// SourceShared means this call joined an in-flight refresh of the same token.
	SourceShared
	// SourceGrace means the result was served from the grace window.
	SourceGrace
)

// CoalescerConfig tunes a [Coalescer].
type CoalescerConfig struct {
	Grace       time.Duration
	MaxEntries  int64
	NumCounters int64
	// Observe, when set, is called once per successful Refresh.
	Observe func(Source)
}

// Coalescer deduplicates refreshes of the same token.
type Coalescer struct {
	next    Refresher
	group   singleflight.Group
	cache   *ristretto.Cache[string, *Result]
	grace   time.Duration
	observe func(Source)
}

// NewCoalescer wraps next.
func NewCoalescer(next Refresher, cfg CoalescerConfig) (*Coalescer, error) {
	if next == nil {
		return nil, errors.New("refresh: nil refresher")
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = cfg.MaxEntries * 10
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *Result]{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &Coalescer{
		next:    next,
		cache:   cache,
		grace:   cfg.Grace,
		observe: cfg.Observe,
	}, nil
}

// Refresh returns a remembered result for refreshToken, joins an in-flight
// refresh of it, or performs one.
func (c *Coalescer) Refresh(ctx context.Context, refreshToken string) (*Result, bool) {
	if refreshToken == "" {
		return nil, false
	}
	key := tokenKey(refreshToken)

	if res, ok := c.cache.Get(key); ok && res != nil {
		c.note(SourceGrace)
		return res.clone(), true
	}

	var leader atomic.Bool
	ch := c.group.DoChan(key, func() (any, error) {
		leader.Store(true)
		// The shared call must not die with whichever caller arrived first.
		res, ok := c.next.Refresh(context.WithoutCancel(ctx), refreshToken)
		if !ok {
			return nil, errRefreshFailed
		}
		c.cache.SetWithTTL(key, res, 1, c.grace)
		c.cache.Wait()
		return res, nil
	})

	var out singleflight.Result
	select {
	case out = <-ch:
	case <-ctx.Done():
		return nil, false
	}
	if out.Err != nil {
		return nil, false
	}

	if leader.Load() {
		c.note(SourceUpstream)
	} else {
		c.note(SourceShared)
	}
	return out.Val.(*Result).clone(), true
}

// Close releases the grace cache.
func (c *Coalescer) Close() {
	c.cache.Close()
}

func (c *Coalescer) note(s Source) {
	if c.observe != nil {
		c.observe(s)
	}
}
