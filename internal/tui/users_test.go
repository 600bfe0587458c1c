package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portal/pkg/domain"
)

func testUsers() []domain.User {
	return []domain.User{
		{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin},
		{ID: "u2", Name: "Grace", Email: "grace@example.com", Role: domain.RoleUser},
	}
}

func loadedUsersModel(api *fakeUserAPI) usersModel {
	m := newUsersModel(api)
	msg := m.Init()()
	m, _ = m.Update(msg)
	return m
}

func key(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func TestUsersRendersList(t *testing.T) {
	m := loadedUsersModel(newFakeUserAPI(testUsers()...))
	view := m.View()
	for _, want := range []string{"Ada", "grace@example.com", "[admin]", "page 1/1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestUsersCursorBounds(t *testing.T) {
	m := loadedUsersModel(newFakeUserAPI(testUsers()...))
	m, _ = m.Update(key("k"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
}

func TestUsersPagination(t *testing.T) {
	api := newFakeUserAPI(testUsers()...)
	api.total = 25
	m := loadedUsersModel(api)

	m, cmd := m.Update(key("p"))
	if cmd != nil {
		t.Error("p on first page should not load")
	}
	m, cmd = m.Update(key("n"))
	if cmd == nil {
		t.Fatal("n with more pages should load")
	}
	m, _ = m.Update(cmd())
	if m.page != 2 || m.pagination.Page != 2 {
		t.Errorf("page = %d/%d, want 2", m.page, m.pagination.Page)
	}
	if got := api.pages; len(got) != 2 || got[1] != 2 {
		t.Errorf("requested pages = %v, want [1 2]", got)
	}
}

func TestUsersDeleteNeedsConfirmation(t *testing.T) {
	api := newFakeUserAPI(testUsers()...)
	m := loadedUsersModel(api)
	m, _ = m.Update(key("j"))

	m, _ = m.Update(key("d"))
	if !m.confirmDelete || !strings.Contains(m.View(), "delete grace@example.com?") {
		t.Fatal("expected delete confirmation prompt")
	}
	m, cmd := m.Update(key("n"))
	if cmd != nil || len(api.deleted) != 0 {
		t.Fatal("anything but y must cancel")
	}

	m, _ = m.Update(key("d"))
	m, cmd = m.Update(key("y"))
	if cmd == nil {
		t.Fatal("expected delete command")
	}
	m, reload := m.Update(cmd())
	if len(api.deleted) != 1 || api.deleted[0] != "u2" {
		t.Errorf("deleted = %v, want [u2]", api.deleted)
	}
	if reload == nil {
		t.Error("expected reload after delete")
	}
	if m.statusMsg != "user deleted" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestUsersCopyEmail(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	defer func() { copyToClipboard = orig }()

	m := loadedUsersModel(newFakeUserAPI(testUsers()...))
	m, cmd := m.Update(key("c"))
	if cmd == nil {
		t.Fatal("expected copy command")
	}
	m, _ = m.Update(cmd())
	if copied != "ada@example.com" {
		t.Errorf("copied = %q", copied)
	}
	if m.statusMsg != "email copied" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestUsersLoadError(t *testing.T) {
	api := newFakeUserAPI()
	api.err = domain.ErrNetwork
	m := loadedUsersModel(api)
	if !strings.Contains(m.View(), "Could not reach the server") {
		t.Errorf("view missing error:\n%s", m.View())
	}
}

func TestUserFormEditSendsOnlyChanges(t *testing.T) {
	api := newFakeUserAPI()
	u := testUsers()[1]
	m := newUserFormModel(api, &u)

	// Move to role, cycle to admin, submit.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(key("q"))
	if got := m.form.value("role"); got != string(domain.RoleUser) {
		t.Fatalf("typing on role changed it to %q", got)
	}
	m, _ = m.Update(key("l"))
	if got := m.form.value("role"); got != string(domain.RoleAdmin) {
		t.Fatalf("role = %q, want admin", got)
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("expected update command")
	}
	m, _ = m.Update(cmd())
	if !m.done {
		t.Error("form not done after save")
	}

	req := api.updated["u2"]
	if req.Name != nil || req.Email != nil {
		t.Errorf("unchanged fields sent: %+v", req)
	}
	if req.Role == nil || *req.Role != domain.RoleAdmin {
		t.Errorf("role = %v, want admin", req.Role)
	}
}

func TestUserFormCreateValidates(t *testing.T) {
	api := newFakeUserAPI()
	m := newUserFormModel(api, nil)
	m, _ = m.Update(key("Linus"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil {
		t.Fatal("invalid create must not submit")
	}
	if m.form.fieldErr("email") == "" || m.form.fieldErr("password") == "" {
		t.Errorf("expected email and password errors, got %+v", m.form.fields)
	}
}

func TestFormSetErrorFromServer(t *testing.T) {
	f := newForm(formField{key: "email", label: "email"})
	v := &domain.ValidationError{Message: "Validation failed"}
	v.Add("email", "Email already registered")
	f.setError(v)
	if f.fieldErr("email") != "Email already registered" {
		t.Errorf("email error = %q", f.fieldErr("email"))
	}
	if f.status != "Validation failed" {
		t.Errorf("status = %q", f.status)
	}

	f.setError(errors.New("boom"))
	if f.fieldErr("email") != "" || f.status != "boom" {
		t.Errorf("plain error: field=%q status=%q", f.fieldErr("email"), f.status)
	}
}
