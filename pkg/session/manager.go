package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/naveenspark/portal/pkg/credstore"
	"github.com/naveenspark/portal/pkg/domain"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultRestoreTimeout = 10 * time.Second
	subscriberBuffer      = 16
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l.With().Str("component", "session").Logger() }
}

// WithRequestTimeout bounds refresh, logout and store calls that are detached
// from any caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.requestTimeout = d
		}
	}
}

// WithRestoreTimeout bounds the identity check made by Restore.
func WithRestoreTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.restoreTimeout = d
		}
	}
}

// Manager holds the session and drives its state machine. A single Manager is
// shared by the request gateway and the UI for the life of the process.
type Manager struct {
	store credstore.Store
	api   AuthAPI
	log   zerolog.Logger

	requestTimeout time.Duration
	restoreTimeout time.Duration

	mu      sync.RWMutex
	state   State
	token   *oauth2.Token
	user    *domain.User
	lastErr error
	// gen increments on every transition that invalidates in-flight work.
	// Results carrying an older generation are discarded.
	gen    uint64
	closed bool

	refreshGroup singleflight.Group

	// pending is the latest store update decided under mu and not yet
	// applied. storeMu serializes applying it, outside mu.
	pending *storeWrite
	storeMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	bg sync.WaitGroup
}

// NewManager returns an anonymous Manager. Call Restore once at startup to
// pick up a persisted pair.
func NewManager(store credstore.Store, api AuthAPI, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		api:            api,
		log:            zerolog.Nop(),
		requestTimeout: defaultRequestTimeout,
		restoreTimeout: defaultRestoreTimeout,
		subs:           make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a consistent copy of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		State:           m.state,
		Status:          m.state.Status(),
		IsAuthenticated: m.authenticatedLocked(),
	}
	if m.token != nil {
		s.AccessToken = m.token.AccessToken
		s.RefreshToken = m.token.RefreshToken
		s.AccessExpiry = m.token.Expiry
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Token returns the held token pair, or nil when anonymous. The gateway calls
// this at send time so a rotation by a concurrent refresh is picked up.
func (m *Manager) Token() *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneToken(m.token)
}

// IsAuthenticated reports whether an access token is held and usable.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked()
}

func (m *Manager) authenticatedLocked() bool {
	if m.token == nil || m.token.AccessToken == "" {
		return false
	}
	return m.state == StateAuthenticated || m.state == StateRefreshing
}

// Login signs in with email and password. On success the pair is persisted
// and the session is Authenticated. Failures leave the session in Error with
// the message recorded; nothing is persisted.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	req := domain.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.authenticate(ctx, "login", func(ctx context.Context) (*domain.AuthResponse, error) {
		return m.api.Login(ctx, req)
	})
}

// Register provisions a new account and signs in with it. Same contract as Login.
func (m *Manager) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	req := domain.RegisterRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.authenticate(ctx, "register", func(ctx context.Context) (*domain.AuthResponse, error) {
		return m.api.Register(ctx, req)
	})
}

func (m *Manager) authenticate(ctx context.Context, op string, call func(context.Context) (*domain.AuthResponse, error)) (*domain.User, error) {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return nil, ErrClosed
	case m.state == StateAuthenticating:
		m.mu.Unlock()
		return nil, ErrBusy
	case m.authenticatedLocked():
		m.mu.Unlock()
		return nil, ErrSignedIn
	}
	m.gen++
	gen := m.gen
	m.state = StateAuthenticating
	m.lastErr = nil
	m.mu.Unlock()

	resp, err := call(ctx)

	m.mu.Lock()
	if m.closed || m.gen != gen {
		m.mu.Unlock()
		m.log.Debug().Str("op", op).Msg("discarding superseded result")
		return nil, ErrSuperseded
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.state = StateAnonymous
		} else {
			m.state = StateError
			m.lastErr = err
		}
		m.mu.Unlock()
		m.log.Warn().Str("op", op).Err(err).Msg("sign-in failed")
		return nil, err
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		err := errors.New("server returned an incomplete token pair")
		m.state = StateError
		m.lastErr = err
		m.mu.Unlock()
		m.log.Error().Str("op", op).Msg("incomplete token pair in auth response")
		return nil, err
	}

	user := resp.User
	m.token = newToken(resp.Token, resp.RefreshToken)
	m.user = &user
	m.state = StateAuthenticated
	m.saveLocked()
	m.mu.Unlock()
	m.flushStore()

	m.log.Info().Str("op", op).Str("user_id", user.ID).Msg("signed in")
	m.emit(Event{Kind: EventSignedIn})
	u := user
	return &u, nil
}

// Logout clears the session in memory and in the store. It never fails and
// is safe to call repeatedly. The server is told on a best-effort basis in
// the background; its answer does not affect the local outcome.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	tok := m.token
	changed := m.clearLocked(nil)
	notify := tok != nil && !m.closed
	if notify {
		m.bg.Add(1)
	}
	m.mu.Unlock()
	m.flushStore()

	if changed {
		m.log.Info().Msg("signed out")
		m.emit(Event{Kind: EventSignedOut})
	}
	if !notify {
		return
	}

	go func() {
		defer m.bg.Done()
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.requestTimeout)
		defer cancel()
		if err := m.api.Logout(lctx, tok.AccessToken); err != nil {
			m.log.Debug().Err(err).Msg("server-side logout failed")
		}
	}()
}

// ClearError moves an Error session back to Anonymous.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateError {
		m.state = StateAnonymous
		m.lastErr = nil
	}
}

// Expire clears the session because accessToken can no longer be used, and
// notifies subscribers so navigation can return to the login entry point.
// When accessToken is non-empty and no longer the held token the call is a
// no-op: another request already rotated it. An empty accessToken always clears.
func (m *Manager) Expire(accessToken string, reason error) {
	m.mu.Lock()
	if accessToken != "" && (m.token == nil || m.token.AccessToken != accessToken) {
		m.mu.Unlock()
		return
	}
	changed := m.clearLocked(reason)
	m.mu.Unlock()
	m.flushStore()
	if changed {
		m.log.Warn().Err(reason).Msg("session expired")
		m.emit(Event{Kind: EventExpired, Err: reason})
	}
}

// Restore reads the persisted pair once at startup. With an access token the
// session is optimistically Authenticated while the identity is checked in
// the background through fetcher. The returned channel yields exactly one
// terminal state, Authenticated or Anonymous, and is then closed.
func (m *Manager) Restore(ctx context.Context, fetcher IdentityFetcher) <-chan State {
	out := make(chan State, 1)

	tok, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("could not read stored credentials")
		tok = nil
	}

	m.mu.Lock()
	if m.closed || tok == nil {
		m.mu.Unlock()
		out <- StateAnonymous
		close(out)
		return out
	}
	m.gen++
	gen := m.gen
	m.token = newToken(tok.AccessToken, tok.RefreshToken)
	m.user = nil
	m.state = StateAuthenticated
	m.lastErr = nil
	if fetcher != nil {
		m.bg.Add(1)
	}
	m.mu.Unlock()

	if fetcher == nil {
		out <- StateAuthenticated
		close(out)
		return out
	}

	go func() {
		defer m.bg.Done()
		defer close(out)

		vctx, cancel := context.WithTimeout(ctx, m.restoreTimeout)
		defer cancel()
		user, err := fetcher.Me(vctx)
		if err == nil && user == nil {
			err = errors.New("identity check returned no user")
		}

		m.mu.Lock()
		if m.closed || m.gen != gen {
			state := StateAnonymous
			if m.authenticatedLocked() {
				state = StateAuthenticated
			}
			m.mu.Unlock()
			out <- state
			return
		}
		if err != nil {
			m.clearLocked(nil)
			m.mu.Unlock()
			m.flushStore()
			m.log.Info().Err(err).Msg("stored session is no longer valid")
			m.emit(Event{Kind: EventExpired, Err: err})
			out <- StateAnonymous
			return
		}
		m.user = user
		m.mu.Unlock()

		m.log.Info().Str("user_id", user.ID).Msg("session restored")
		m.emit(Event{Kind: EventSignedIn})
		out <- StateAuthenticated
	}()
	return out
}

// Subscribe returns a channel of session events and a function to stop
// receiving them. Events are dropped for a subscriber whose buffer is full.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if m.subs == nil {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if c, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(c)
			}
		})
	}
}

// Close tears the manager down. In-flight results that arrive later are
// discarded, subscriber channels are closed and background calls are awaited.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.gen++
	m.mu.Unlock()

	m.subMu.Lock()
	for id, c := range m.subs {
		close(c)
		delete(m.subs, id)
	}
	m.subs = nil
	m.subMu.Unlock()

	m.bg.Wait()
}

func (m *Manager) emit(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, c := range m.subs {
		select {
		case c <- ev:
		default:
			m.log.Warn().Stringer("event", ev.Kind).Msg("subscriber buffer full, dropping event")
		}
	}
}

// storeWrite is a store update: a pair to save, or a clear when tok is nil.
type storeWrite struct {
	tok *oauth2.Token
}

// clearLocked wipes the session in memory, queues a store clear and
// invalidates in-flight work. It reports whether anything observable
// changed. Caller holds m.mu and calls flushStore after releasing it.
func (m *Manager) clearLocked(reason error) bool {
	changed := m.token != nil || m.user != nil || m.state != StateAnonymous
	m.token = nil
	m.user = nil
	m.state = StateAnonymous
	m.lastErr = reason
	m.gen++
	m.pending = &storeWrite{}
	return changed
}

// saveLocked queues the held pair for persisting. Caller holds m.mu and
// calls flushStore after releasing it.
func (m *Manager) saveLocked() {
	m.pending = &storeWrite{tok: cloneToken(m.token)}
}

// flushStore applies the latest queued store update. Writes run outside m.mu
// so token readers never wait on store I/O. When it returns, the store holds
// the caller's decision or a later one. A failed write is logged and the
// in-memory session stays usable.
func (m *Manager) flushStore() {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	w := m.pending
	m.pending = nil
	m.mu.Unlock()
	if w == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
	defer cancel()
	if w.tok == nil {
		if err := m.store.Clear(ctx); err != nil {
			m.log.Error().Err(err).Msg("could not clear stored credentials")
		}
		return
	}
	if err := m.store.Save(ctx, w.tok); err != nil {
		m.log.Error().Err(err).Msg("could not persist credentials")
	}
}
