package tui

import (
	"context"
	"sync"

	"github.com/naveenspark/portal/pkg/domain"
	"github.com/naveenspark/portal/pkg/session"
)

type fakeSession struct {
	mu          sync.Mutex
	snap        session.Snapshot
	authErr     error
	loginCalls  int
	logoutCalls int
	clearCalls  int
}

func anonymousSession() *fakeSession {
	return &fakeSession{snap: session.Snapshot{State: session.StateAnonymous, Status: session.StatusIdle}}
}

func authenticatedSession() *fakeSession {
	s := anonymousSession()
	s.signIn()
	return s
}

func (f *fakeSession) signIn() {
	f.snap = session.Snapshot{
		State:           session.StateAuthenticated,
		Status:          session.StatusIdle,
		AccessToken:     "T1",
		RefreshToken:    "R1",
		IsAuthenticated: true,
		User:            &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin},
	}
}

func (f *fakeSession) signOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = session.Snapshot{State: session.StateAnonymous, Status: session.StatusIdle}
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Login(_ context.Context, _, _ string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	f.signIn()
	u := *f.snap.User
	return &u, nil
}

func (f *fakeSession) Register(ctx context.Context, _, email, password string) (*domain.User, error) {
	return f.Login(ctx, email, password)
}

func (f *fakeSession) Logout(context.Context) {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	f.signOut()
}

func (f *fakeSession) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
}

type fakeUserAPI struct {
	mu      sync.Mutex
	users   []domain.User
	total   int
	pages   []int
	deleted []string
	created []domain.UserCreateRequest
	updated map[string]domain.UserUpdateRequest
	err     error
}

func newFakeUserAPI(users ...domain.User) *fakeUserAPI {
	return &fakeUserAPI{users: users, total: len(users), updated: make(map[string]domain.UserUpdateRequest)}
}

func (f *fakeUserAPI) Me(context.Context) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin}, nil
}

func (f *fakeUserAPI) ListUsers(_ context.Context, page, limit int) (*domain.Page[domain.User], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	if f.err != nil {
		return nil, f.err
	}
	totalPages := (f.total + limit - 1) / limit
	return &domain.Page[domain.User]{
		Data:       f.users,
		Pagination: domain.Pagination{Page: page, Limit: limit, Total: f.total, TotalPages: totalPages},
	}, nil
}

func (f *fakeUserAPI) CreateUser(_ context.Context, req domain.UserCreateRequest) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return &domain.User{ID: "new", Name: req.Name, Email: req.Email, Role: domain.RoleUser}, nil
}

func (f *fakeUserAPI) UpdateUser(_ context.Context, id string, req domain.UserUpdateRequest) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = req
	return &domain.User{ID: id}, nil
}

func (f *fakeUserAPI) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}
