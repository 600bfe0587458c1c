package session

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"

	"github.com/naveenspark/portal/pkg/credstore"
	"github.com/naveenspark/portal/pkg/domain"
)

// fakeAPI is a scripted AuthAPI. A non-nil gate blocks the matching call
// until it is closed; entered is signalled once per call before blocking.
type fakeAPI struct {
	mu sync.Mutex

	authResp *domain.AuthResponse
	authErr  error
	authGate chan struct{}

	refreshResp    *domain.RefreshResponse
	refreshErr     error
	refreshGate    chan struct{}
	refreshEntered chan struct{}

	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	loggedOut    []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		authResp: &domain.AuthResponse{
			User:         domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleUser},
			Token:        "T1",
			RefreshToken: "R1",
		},
		refreshResp:    &domain.RefreshResponse{Token: "T2", RefreshToken: "R2"},
		refreshEntered: make(chan struct{}, 64),
	}
}

func (f *fakeAPI) Login(ctx context.Context, _ domain.LoginRequest) (*domain.AuthResponse, error) {
	f.loginCalls.Add(1)
	return f.auth(ctx)
}

func (f *fakeAPI) Register(ctx context.Context, _ domain.RegisterRequest) (*domain.AuthResponse, error) {
	f.loginCalls.Add(1)
	return f.auth(ctx)
}

func (f *fakeAPI) auth(ctx context.Context) (*domain.AuthResponse, error) {
	f.mu.Lock()
	gate, resp, err := f.authGate, f.authResp, f.authErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	r := *resp
	return &r, nil
}

func (f *fakeAPI) Refresh(_ context.Context, _ string) (*domain.RefreshResponse, error) {
	f.refreshCalls.Add(1)
	f.refreshEntered <- struct{}{}
	f.mu.Lock()
	gate, resp, err := f.refreshGate, f.refreshResp, f.refreshErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	r := *resp
	return &r, nil
}

func (f *fakeAPI) Logout(_ context.Context, accessToken string) error {
	f.logoutCalls.Add(1)
	f.mu.Lock()
	f.loggedOut = append(f.loggedOut, accessToken)
	f.mu.Unlock()
	return nil
}

type fakeFetcher struct {
	user *domain.User
	err  error
}

func (f fakeFetcher) Me(context.Context) (*domain.User, error) {
	return f.user, f.err
}

// hangingFetcher answers only when its ctx ends.
type hangingFetcher struct{}

func (hangingFetcher) Me(ctx context.Context) (*domain.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// slowStore delays every write until release is closed.
type slowStore struct {
	*credstore.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func newSlowStore() *slowStore {
	return &slowStore{
		MemoryStore: credstore.NewMemoryStore(),
		entered:     make(chan struct{}, 8),
		release:     make(chan struct{}),
	}
}

func (s *slowStore) Save(ctx context.Context, tok *oauth2.Token) error {
	s.entered <- struct{}{}
	<-s.release
	return s.MemoryStore.Save(ctx, tok)
}

func (s *slowStore) Clear(ctx context.Context) error {
	s.entered <- struct{}{}
	<-s.release
	return s.MemoryStore.Clear(ctx)
}
