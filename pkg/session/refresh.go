package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/naveenspark/portal/internal/metrics"
	"github.com/naveenspark/portal/pkg/domain"
)

const refreshKey = "refresh"

// Refresh exchanges the held refresh token for a new pair. stale is the access
// token the caller sent when it received a 401.
//
// If the held access token no longer equals stale, another caller already
// rotated it and the held token is returned without a network call. Otherwise
// all concurrent callers share a single POST /auth/refresh and observe the same
// outcome. The shared call is detached from any one caller's context; a caller
// whose ctx ends stops waiting but the refresh still completes.
//
// Failure clears the session completely: ErrNoRefreshToken when none is held,
// ErrRefreshRejected otherwise.
func (m *Manager) Refresh(ctx context.Context, stale string) (*oauth2.Token, error) {
	m.mu.RLock()
	closed := m.closed
	cur := cloneToken(m.token)
	m.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if cur != nil && stale != "" && cur.AccessToken != stale {
		return cur, nil
	}

	ch := m.refreshGroup.DoChan(refreshKey, func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx), stale)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneToken(res.Val.(*oauth2.Token)), nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, stale string) (*oauth2.Token, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	tok := m.token
	if tok != nil && stale != "" && tok.AccessToken != stale {
		// Rotated between the caller's check and this flight starting.
		cur := cloneToken(tok)
		m.mu.Unlock()
		return cur, nil
	}
	if tok == nil || tok.RefreshToken == "" {
		changed := m.clearLocked(domain.ErrNoRefreshToken)
		m.mu.Unlock()
		m.flushStore()
		metrics.Refreshes.WithLabelValues("no_token").Inc()
		if changed {
			m.log.Warn().Msg("refresh needed but no refresh token held")
			m.emit(Event{Kind: EventExpired, Err: domain.ErrNoRefreshToken})
		}
		return nil, domain.ErrNoRefreshToken
	}
	gen := m.gen
	refreshToken := tok.RefreshToken
	m.state = StateRefreshing
	m.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	resp, err := m.api.Refresh(rctx, refreshToken)
	cancel()

	m.mu.Lock()
	if m.closed || m.gen != gen {
		m.mu.Unlock()
		m.log.Debug().Msg("discarding superseded refresh result")
		return nil, ErrSuperseded
	}
	if err == nil && resp.Token == "" {
		err = errors.New("server returned an empty access token")
	}
	if err != nil {
		if !errors.Is(err, domain.ErrRefreshRejected) {
			err = fmt.Errorf("%w: %w", domain.ErrRefreshRejected, err)
		}
		m.clearLocked(err)
		m.mu.Unlock()
		m.flushStore()
		metrics.Refreshes.WithLabelValues("rejected").Inc()
		m.log.Warn().Err(err).Msg("token refresh failed, session cleared")
		m.emit(Event{Kind: EventExpired, Err: err})
		return nil, err
	}

	next := resp.RefreshToken
	if next == "" {
		// Server did not rotate the refresh token.
		next = refreshToken
	}
	m.token = newToken(resp.Token, next)
	m.state = StateAuthenticated
	m.saveLocked()
	fresh := cloneToken(m.token)
	m.mu.Unlock()
	m.flushStore()

	metrics.Refreshes.WithLabelValues("success").Inc()
	m.log.Debug().Msg("token refreshed")
	m.emit(Event{Kind: EventRefreshed})
	return fresh, nil
}
