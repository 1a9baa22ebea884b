package goSession

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

// Builder assembles a [Gate].
//
// Builder instances are intended to be configured during initialization and used once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	refresher refresh.Refresher
	auditSink AuditSink
	log       zerolog.Logger
	now       func() time.Time

	built bool
}

// New returns a builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		log:    zerolog.Nop(),
		now:    time.Now,
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the refresh throttle and the user cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefresher sets the upstream refresher. Required.
func (b *Builder) WithRefresher(r refresh.Refresher) *Builder {
	b.refresher = r
	return b
}

// WithAuditSink sets where audit events go when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the gate logger.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.log = l
	return b
}

// WithClock overrides the time source used for expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns the gate.
//
// Build fails when the builder was already used, no refresher was set, the
// configuration is invalid, or a Redis-backed feature is enabled without
// [Builder.WithRedis].
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.refresher == nil {
		return nil, ErrRefresherRequired
	}
	if b.redis == nil {
		if cfg.Throttle.Enabled {
			return nil, fmt.Errorf("%w: Throttle requires redis", ErrRedisRequired)
		}
		if cfg.Users.Enabled {
			return nil, fmt.Errorf("%w: Users requires redis", ErrRedisRequired)
		}
	}

	g := &Gate{
		config:  cfg,
		policy:  cfg.cookiePolicy(),
		metrics: NewMetrics(cfg.Metrics),
		log:     b.log.With().Str("component", "gate").Logger(),
		now:     b.now,
	}

	// -------- REFRESH PIPELINE --------
	g.refresher = b.refresher
	if cfg.Refresh.Coalesce {
		c, err := refresh.NewCoalescer(b.refresher, refresh.CoalescerConfig{
			Grace:      cfg.Refresh.Grace,
			MaxEntries: cfg.Refresh.CacheEntries,
			Observe:    g.observeRefreshSource,
		})
		if err != nil {
			return nil, err
		}
		g.coalescer = c
		g.refresher = c
	}

	// -------- REDIS-BACKED FEATURES --------
	if cfg.Throttle.Enabled {
		g.limiter = rate.New(b.redis, rate.Config{
			Enabled:     true,
			Prefix:      cfg.Throttle.RedisPrefix,
			MaxAttempts: cfg.Throttle.MaxAttempts,
			Window:      cfg.Throttle.Window,
		})
	}
	if cfg.Users.Enabled {
		g.users = session.NewUserCache(b.redis, cfg.Users.RedisPrefix, cfg.Users.TTL)
	}

	g.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return g, nil
}
