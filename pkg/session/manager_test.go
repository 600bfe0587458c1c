package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/naveenspark/portal/pkg/credstore"
	"github.com/naveenspark/portal/pkg/domain"
)

func newTestManager(t *testing.T) (*Manager, *credstore.MemoryStore, *fakeAPI) {
	t.Helper()
	store := credstore.NewMemoryStore()
	api := newFakeAPI()
	m := NewManager(store, api)
	t.Cleanup(m.Close)
	return m, store, api
}

func signIn(t *testing.T, m *Manager) {
	t.Helper()
	_, err := m.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
		return Event{}
	}
}

func TestLogin_PersistsPair(t *testing.T) {
	m, store, _ := newTestManager(t)

	user, err := m.Login(context.Background(), " ada@example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "T1", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)
	assert.Equal(t, 1, store.Writes())

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, "T1", snap.AccessToken)
	require.NotNil(t, snap.User)
	assert.Equal(t, "ada@example.com", snap.User.Email)
}

func TestLogin_ValidationNeverReachesServer(t *testing.T) {
	m, store, api := newTestManager(t)

	_, err := m.Login(context.Background(), "not-an-email", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Field("email"))
	assert.NotEmpty(t, verr.Field("password"))

	assert.Zero(t, api.loginCalls.Load())
	assert.Zero(t, store.Writes())
	assert.Equal(t, StateAnonymous, m.Snapshot().State)
}

func TestLogin_FailureEntersError(t *testing.T) {
	m, store, api := newTestManager(t)
	api.authErr = domain.ErrInvalidCredentials

	_, err := m.Login(context.Background(), "ada@example.com", "wrongpw")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	snap := m.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, StatusError, snap.Status)
	assert.False(t, snap.IsAuthenticated)
	assert.NotEmpty(t, snap.LastError)
	assert.Zero(t, store.Writes())

	m.ClearError()
	snap = m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Empty(t, snap.LastError)

	// Error is not terminal: a later attempt can still succeed.
	api.authErr = nil
	signIn(t, m)
	assert.True(t, m.IsAuthenticated())
}

func TestLogin_RejectedWhileSignedIn(t *testing.T) {
	m, store, _ := newTestManager(t)
	signIn(t, m)

	_, err := m.Login(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrSignedIn)
	assert.Equal(t, 1, store.Writes())
}

func TestLogin_IncompletePairIsAnError(t *testing.T) {
	m, store, api := newTestManager(t)
	api.authResp.RefreshToken = ""

	_, err := m.Login(context.Background(), "ada@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, StateError, m.Snapshot().State)
	assert.Zero(t, store.Writes())
}

func TestRegister_SignsIn(t *testing.T) {
	m, store, _ := newTestManager(t)

	_, err := m.Register(context.Background(), "Ada", "ada@example.com", "12345")
	require.ErrorIs(t, err, domain.ErrValidation)

	user, err := m.Register(context.Background(), "Ada", "ada@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, 1, store.Writes())
}

func TestLogout_ThenRestoreIsAnonymous(t *testing.T) {
	store := credstore.NewMemoryStore()
	api := newFakeAPI()
	m := NewManager(store, api)
	signIn(t, m)

	m.Logout(context.Background())
	m.Logout(context.Background())

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.AccessToken)
	assert.Empty(t, snap.RefreshToken)
	assert.Nil(t, snap.User)

	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tok)

	m.Close()
	assert.Equal(t, int32(1), api.logoutCalls.Load())
	assert.Equal(t, []string{"T1"}, api.loggedOut)

	// A fresh process sees nothing to restore.
	m2 := NewManager(store, api)
	defer m2.Close()
	state := <-m2.Restore(context.Background(), fakeFetcher{err: errors.New("must not be called")})
	assert.Equal(t, StateAnonymous, state)
	assert.False(t, m2.IsAuthenticated())
}

func TestLogout_SupersedesInFlightLogin(t *testing.T) {
	m, store, api := newTestManager(t)
	api.authGate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), "ada@example.com", "secret1")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return m.Snapshot().State == StateAuthenticating
	}, time.Second, 5*time.Millisecond)

	_, err := m.Login(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrBusy)

	m.Logout(context.Background())
	close(api.authGate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, m.IsAuthenticated())
	assert.Zero(t, store.Writes())
}

func TestRestore_ValidIdentity(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{AccessToken: "T1", RefreshToken: "R1"}))
	m := NewManager(store, newFakeAPI())
	defer m.Close()
	events, stop := m.Subscribe()
	defer stop()

	user := &domain.User{ID: "u1", Email: "ada@example.com"}
	state := <-m.Restore(context.Background(), fakeFetcher{user: user})
	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, EventSignedIn, nextEvent(t, events).Kind)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "T1", snap.AccessToken)
	require.NotNil(t, snap.User)
	assert.Equal(t, "u1", snap.User.ID)
}

func TestRestore_ValidationFailureClearsEverything(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{AccessToken: "T1", RefreshToken: "R1"}))
	m := NewManager(store, newFakeAPI())
	defer m.Close()
	events, stop := m.Subscribe()
	defer stop()

	ch := m.Restore(context.Background(), fakeFetcher{err: domain.ErrUnauthenticated})
	assert.Equal(t, StateAnonymous, <-ch)
	_, open := <-ch
	assert.False(t, open, "restore channel must close after one state")

	ev := nextEvent(t, events)
	assert.Equal(t, EventExpired, ev.Kind)

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.AccessToken)
	assert.Nil(t, snap.User)
	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestRestore_HangingFetcherTimesOut(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{AccessToken: "T1", RefreshToken: "R1"}))
	m := NewManager(store, newFakeAPI(), WithRestoreTimeout(50*time.Millisecond))
	defer m.Close()
	events, stop := m.Subscribe()
	defer stop()

	ch := m.Restore(context.Background(), hangingFetcher{})
	assert.True(t, m.IsAuthenticated(), "restore is optimistic while the check runs")
	select {
	case state := <-ch:
		assert.Equal(t, StateAnonymous, state)
	case <-time.After(2 * time.Second):
		t.Fatal("restore did not reach a terminal state")
	}

	ev := nextEvent(t, events)
	assert.Equal(t, EventExpired, ev.Kind)
	assert.ErrorIs(t, ev.Err, context.DeadlineExceeded)
	assert.False(t, m.IsAuthenticated())
	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestRestore_NilUserClearsSession(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{AccessToken: "T1", RefreshToken: "R1"}))
	m := NewManager(store, newFakeAPI())
	defer m.Close()
	events, stop := m.Subscribe()
	defer stop()

	assert.Equal(t, StateAnonymous, <-m.Restore(context.Background(), fakeFetcher{}))
	assert.Equal(t, EventExpired, nextEvent(t, events).Kind)
	assert.False(t, m.IsAuthenticated())
	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestStoreWriteDoesNotBlockReaders(t *testing.T) {
	store := newSlowStore()
	m := NewManager(store, newFakeAPI())
	defer m.Close()

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), "ada@example.com", "secret1")
		done <- err
	}()
	<-store.entered

	// The login is decided; only the store write is outstanding.
	read := make(chan Snapshot, 1)
	go func() { read <- m.Snapshot() }()
	select {
	case snap := <-read:
		assert.True(t, snap.IsAuthenticated)
		assert.Equal(t, "T1", m.Token().AccessToken)
	case <-time.After(2 * time.Second):
		t.Fatal("Snapshot blocked on a store write")
	}

	close(store.release)
	require.NoError(t, <-done)
	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "T1", tok.AccessToken)
}

func TestLogoutDuringSaveLeavesStoreCleared(t *testing.T) {
	store := newSlowStore()
	m := NewManager(store, newFakeAPI())
	defer m.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Login(context.Background(), "ada@example.com", "secret1")
	}()
	<-store.entered

	logoutDone := make(chan struct{})
	go func() {
		defer close(logoutDone)
		m.Logout(context.Background())
	}()
	assert.Eventually(t, func() bool { return !m.IsAuthenticated() }, 2*time.Second, 5*time.Millisecond)

	close(store.release)
	<-done
	<-logoutDone
	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestRestore_WithoutFetcherIsOptimistic(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &oauth2.Token{AccessToken: "T1", RefreshToken: "R1"}))
	m := NewManager(store, newFakeAPI())
	defer m.Close()

	assert.Equal(t, StateAuthenticated, <-m.Restore(context.Background(), nil))
	assert.True(t, m.IsAuthenticated())
	assert.Nil(t, m.Snapshot().User)
}

func TestExpire_IgnoresRotatedToken(t *testing.T) {
	m, _, _ := newTestManager(t)
	signIn(t, m)

	m.Expire("T0", domain.ErrTerminalAuthFailure)
	assert.True(t, m.IsAuthenticated())

	m.Expire("T1", domain.ErrTerminalAuthFailure)
	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, domain.ErrTerminalAuthFailure.Error(), snap.LastError)
}

func TestSubscribe_Events(t *testing.T) {
	m, _, _ := newTestManager(t)
	events, stop := m.Subscribe()

	signIn(t, m)
	assert.Equal(t, EventSignedIn, nextEvent(t, events).Kind)

	m.Logout(context.Background())
	assert.Equal(t, EventSignedOut, nextEvent(t, events).Kind)

	stop()
	stop()
	_, open := <-events
	assert.False(t, open)
}

func TestClose_ClosesSubscribers(t *testing.T) {
	m, _, _ := newTestManager(t)
	events, _ := m.Subscribe()

	m.Close()
	_, open := <-events
	assert.False(t, open)

	late, _ := m.Subscribe()
	_, open = <-late
	assert.False(t, open)

	_, err := m.Login(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewToken_ReadsJWTExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	tok := newToken(signed, "R1")
	assert.True(t, tok.Expiry.Equal(exp))
	assert.Equal(t, "Bearer", tok.TokenType)

	assert.True(t, newToken("opaque", "R1").Expiry.IsZero())
}

func TestStateStatus(t *testing.T) {
	tests := []struct {
		state State
		want  Status
	}{
		{StateAnonymous, StatusIdle},
		{StateAuthenticating, StatusLoading},
		{StateAuthenticated, StatusIdle},
		{StateRefreshing, StatusLoading},
		{StateError, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Status())
		})
	}
}
