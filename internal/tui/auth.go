package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portal/pkg/domain"
)

// submitTimeout bounds a sign-in started from a form.
const submitTimeout = 30 * time.Second

// authResultMsg carries the outcome of a login or registration. register
// names the form that submitted it, which need not be the one on screen.
type authResultMsg struct {
	user     *domain.User
	err      error
	register bool
}

type loginModel struct {
	sess Session
	form form
}

func newLoginModel(s Session) loginModel {
	return loginModel{
		sess: s,
		form: newForm(
			formField{key: "email", label: "email"},
			formField{key: "password", label: "password", secret: true},
		),
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		m.form.pending = false
		if msg.err != nil {
			m.form.setError(msg.err)
			m.form.setValue("password", "")
			return m, nil
		}
		m.form.reset()
	case tea.KeyMsg:
		var submit bool
		m.form, submit = m.form.update(msg)
		if submit {
			return m.submit()
		}
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	req := domain.LoginRequest{
		Email:    strings.TrimSpace(m.form.value("email")),
		Password: m.form.value("password"),
	}
	if err := req.Validate(); err != nil {
		m.form.setError(err)
		return m, nil
	}
	m.form.clearErrors()
	m.form.pending = true
	sess := m.sess
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		user, err := sess.Login(ctx, req.Email, req.Password)
		return authResultMsg{user: user, err: err}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + sectionHeaderStyle.Render("Sign in") + "\n\n")
	b.WriteString(m.form.View())
	return b.String()
}

type registerModel struct {
	sess Session
	form form
}

func newRegisterModel(s Session) registerModel {
	return registerModel{
		sess: s,
		form: newForm(
			formField{key: "name", label: "name"},
			formField{key: "email", label: "email"},
			formField{key: "password", label: "password", secret: true},
			formField{key: "confirm", label: "confirm", secret: true},
		),
	}
}

func (m registerModel) Update(msg tea.Msg) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		m.form.pending = false
		if msg.err != nil {
			m.form.setError(msg.err)
			return m, nil
		}
		m.form.reset()
	case tea.KeyMsg:
		var submit bool
		m.form, submit = m.form.update(msg)
		if submit {
			return m.submit()
		}
	}
	return m, nil
}

func (m registerModel) submit() (registerModel, tea.Cmd) {
	req := domain.RegisterRequest{
		Name:     strings.TrimSpace(m.form.value("name")),
		Email:    strings.TrimSpace(m.form.value("email")),
		Password: m.form.value("password"),
	}
	verr := &domain.ValidationError{}
	if err := req.Validate(); err != nil && !errors.As(err, &verr) {
		m.form.setError(err)
		return m, nil
	}
	if m.form.value("confirm") != req.Password {
		verr.Add("confirm", "passwords do not match")
	}
	if err := verr.OrNil(); err != nil {
		m.form.setError(err)
		return m, nil
	}

	m.form.clearErrors()
	m.form.pending = true
	sess := m.sess
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		user, err := sess.Register(ctx, req.Name, req.Email, req.Password)
		return authResultMsg{user: user, err: err, register: true}
	}
}

func (m registerModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + sectionHeaderStyle.Render("Create an account") + "\n\n")
	b.WriteString(m.form.View())
	return b.String()
}
