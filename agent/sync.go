package agent

import (
	"context"
	"encoding/json"
	"errors"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// SyncOnLoad reconciles the store, durable storage and the jar. The newest pair
// is written to every copy that lacks it; when no copy holds a session the
// store is cleared.
func (a *Agent) SyncOnLoad(ctx context.Context) (session.Session, error) {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	return a.reconcileLocked(ctx)
}

func (a *Agent) reconcileLocked(ctx context.Context) (session.Session, error) {
	a.metrics.Inc(goSession.MetricSyncPass)

	stored, err := a.readStorage(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("storage read failed, syncing from jar")
		a.degraded.Store(true)
	}
	jarPair := a.cfg.Jar.Tokens()
	cur := a.store.Current()

	best := newest(stored, cur.TokenPair, jarPair)
	if best.AccessToken == "" {
		if best.RefreshToken == "" {
			a.store.Clear()
			return a.store.Current(), nil
		}
		// Only a refresh token survives: keep it in the copies that lack it so
		// the next guarded request can refresh.
		if stored.RefreshToken != best.RefreshToken {
			a.writeStorageRefresh(ctx, best.RefreshToken)
		}
		if jarPair.RefreshToken != best.RefreshToken {
			a.writeJar(best)
		}
		return a.store.Current(), nil
	}

	user := a.readUser(ctx)
	s, err := a.store.Replace(best, user)
	if err != nil && !errors.Is(err, session.ErrStalePair) {
		return s, err
	}

	ok := true
	if stored != s.TokenPair {
		ok = a.writeStorage(ctx, s.TokenPair)
	}
	if jarPair != s.TokenPair {
		if !a.writeJar(s.TokenPair) {
			ok = false
		}
	}
	if ok && err == nil {
		a.degraded.Store(false)
	}
	return s, nil
}

// Run follows storage events from other agents until ctx is done. A deleted
// token key means the session was logged out elsewhere; any other change
// triggers a reconciliation pass.
func (a *Agent) Run(ctx context.Context) error {
	events, err := a.cfg.Storage.Subscribe(ctx)
	if err != nil {
		return err
	}
	a.follow(ctx, events)
	return nil
}

func (a *Agent) follow(ctx context.Context, events <-chan storage.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handleEvent(ctx, ev)
		}
	}
}

func (a *Agent) handleEvent(ctx context.Context, ev storage.Event) {
	if ev.Origin == a.origin {
		return
	}

	switch ev.Key {
	case session.AccessTokenKey, session.RefreshTokenKey:
	case session.UserKey:
		if !ev.Deleted {
			a.syncMu.Lock()
			if u := decodeUser(ev.Value); u != nil {
				if cur := a.store.Current(); cur.AccessToken != "" {
					_, _ = a.store.Replace(cur.TokenPair, u)
				}
			}
			a.syncMu.Unlock()
		}
		return
	default:
		return
	}

	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if ev.Deleted {
		if a.store.Current().Authenticated() || !a.cfg.Jar.Tokens().Empty() {
			a.log.Info().Str("from", ev.Origin).Msg("session removed by another agent")
		}
		a.store.Clear()
		a.cfg.Jar.Clear()
		return
	}

	if _, err := a.reconcileLocked(ctx); err != nil {
		a.log.Warn().Err(err).Msg("sync after storage event failed")
	}
}

func (a *Agent) readStorage(ctx context.Context) (session.TokenPair, error) {
	var pair session.TokenPair
	var errs []error

	for key, dst := range map[string]*string{
		session.AccessTokenKey:  &pair.AccessToken,
		session.RefreshTokenKey: &pair.RefreshToken,
	} {
		v, err := a.cfg.Storage.Get(ctx, key)
		switch {
		case err == nil:
			*dst = v
		case errors.Is(err, storage.ErrNotFound):
		default:
			errs = append(errs, err)
		}
	}
	return pair, errors.Join(errs...)
}

func (a *Agent) readUser(ctx context.Context) *session.User {
	raw, err := a.cfg.Storage.Get(ctx, session.UserKey)
	if err != nil {
		return nil
	}
	return decodeUser(raw)
}

func (a *Agent) writeStorageRefresh(ctx context.Context, token string) {
	if err := a.cfg.Storage.Set(a.originCtx(ctx), session.RefreshTokenKey, token, a.cfg.StorageTTL); err != nil {
		a.writeFailed("storage", err)
	}
}

func decodeUser(raw string) *session.User {
	if raw == "" {
		return nil
	}
	var u session.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		return nil
	}
	return &u
}
