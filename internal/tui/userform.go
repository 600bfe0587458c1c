package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portal/pkg/domain"
)

var roles = []domain.Role{domain.RoleUser, domain.RoleAdmin}

type userSavedMsg struct {
	user *domain.User
	err  error
}

// userFormModel creates a user, or edits one when editing is non-nil.
type userFormModel struct {
	api     UserAPI
	editing *domain.User
	form    form
	done    bool
}

func newUserFormModel(api UserAPI, u *domain.User) userFormModel {
	m := userFormModel{api: api, editing: u}
	if u == nil {
		m.form = newForm(
			formField{key: "name", label: "name"},
			formField{key: "email", label: "email"},
			formField{key: "password", label: "password", secret: true},
		)
		return m
	}
	m.form = newForm(
		formField{key: "name", label: "name", value: u.Name},
		formField{key: "email", label: "email", value: u.Email},
		formField{key: "role", label: "role", value: string(domain.RoleUser), hint: "(h/l to cycle)"},
	)
	if domain.ValidRole(u.Role) {
		m.form.setValue("role", string(u.Role))
	}
	return m
}

func (m userFormModel) roleFocused() bool {
	return m.editing != nil && m.form.fields[m.form.focus].key == "role"
}

func (m userFormModel) Update(msg tea.Msg) (userFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case userSavedMsg:
		m.form.pending = false
		if msg.err != nil {
			m.form.setError(msg.err)
			return m, nil
		}
		m.done = true
	case tea.KeyMsg:
		if m.roleFocused() && !m.form.pending {
			switch msg.String() {
			case "h", "l", "left", "right", " ":
				forward := msg.String() == "l" || msg.String() == "right" || msg.String() == " "
				m.form.setValue("role", string(cycleRole(domain.Role(m.form.value("role")), forward)))
				return m, nil
			case "tab", "down", "shift+tab", "up", "enter", "ctrl+s":
			default:
				return m, nil
			}
		}
		var submit bool
		m.form, submit = m.form.update(msg)
		if submit {
			return m.submit()
		}
	}
	return m, nil
}

func cycleRole(current domain.Role, forward bool) domain.Role {
	idx := 0
	for i, r := range roles {
		if r == current {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(roles)
	} else {
		idx = (idx - 1 + len(roles)) % len(roles)
	}
	return roles[idx]
}

func (m userFormModel) submit() (userFormModel, tea.Cmd) {
	api := m.api
	name := strings.TrimSpace(m.form.value("name"))
	email := strings.TrimSpace(m.form.value("email"))

	if m.editing == nil {
		req := domain.UserCreateRequest{Name: name, Email: email, Password: m.form.value("password")}
		if err := req.Validate(); err != nil {
			m.form.setError(err)
			return m, nil
		}
		m.form.clearErrors()
		m.form.pending = true
		return m, func() tea.Msg {
			u, err := api.CreateUser(context.Background(), req)
			return userSavedMsg{user: u, err: err}
		}
	}

	req := domain.UserUpdateRequest{}
	if name != m.editing.Name {
		req.Name = &name
	}
	if email != m.editing.Email {
		req.Email = &email
	}
	if role := domain.Role(m.form.value("role")); role != m.editing.Role {
		req.Role = &role
	}
	if req.Name == nil && req.Email == nil && req.Role == nil {
		m.done = true
		return m, nil
	}
	if err := req.Validate(); err != nil {
		m.form.setError(err)
		return m, nil
	}
	m.form.clearErrors()
	m.form.pending = true
	id := m.editing.ID
	return m, func() tea.Msg {
		u, err := api.UpdateUser(context.Background(), id, req)
		return userSavedMsg{user: u, err: err}
	}
}

func (m userFormModel) View() string {
	var b strings.Builder
	title := "New user"
	if m.editing != nil {
		title = "Edit " + m.editing.Email
	}
	b.WriteString("\n  " + sectionHeaderStyle.Render(title) + "\n\n")

	b.WriteString(m.form.View())
	return b.String()
}
