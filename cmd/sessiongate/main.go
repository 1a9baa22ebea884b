// Command sessiongate is an edge gateway that enforces goSession in front of an
// upstream web application: it refreshes expiring sessions, redirects
// signed-out visitors to login and applies the onboarding flow before proxying.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/kyc"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/refresh"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sessiongate").Logger()
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("sessiongate stopped")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log = log.Level(cfg.Level())

	refresher, err := refresh.NewClient(cfg.RefreshEndpoint, cfg.RefreshAPIKey,
		refresh.WithTimeout(cfg.Timeout()),
		refresh.WithLogger(log),
	)
	if err != nil {
		return err
	}

	gateCfg := cfg.Gate()
	for _, w := range gateCfg.Lint() {
		log.Warn().Str("code", w.Code).Msg(w.Message)
	}

	b := goSession.New().
		WithConfig(gateCfg).
		WithRefresher(refresher).
		WithLogger(log).
		WithAuditSink(goSession.NewLoggerSink(log))

	if cfg.RedisAddr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable at startup")
		}
		b = b.WithRedis(rdb)
	}

	gate, err := b.Build()
	if err != nil {
		return err
	}
	defer gate.Close()

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return err
	}
	proxy := newProxy(upstream, gate, log)

	flow := kyc.DefaultFlow()
	flow.Landing = cfg.LandingPath
	flow.Login = cfg.LoginPath
	if err := flow.Validate(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(gate, flow, proxy, promexport.NewPrometheusExporter(gate).Handler(), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("upstream", cfg.UpstreamURL).Msg("sessiongate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(ctx)
}
