package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portal/pkg/domain"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

type usersLoadedMsg struct {
	page *domain.Page[domain.User]
	err  error
}

type userDeletedMsg struct {
	id  string
	err error
}

type copyResultMsg struct {
	err error
}

// editUserMsg asks the app to open the user form. A nil user means create.
type editUserMsg struct {
	user *domain.User
}

type usersModel struct {
	api           UserAPI
	users         []domain.User
	pagination    domain.Pagination
	page          int
	cursor        int
	loading       bool
	confirmDelete bool
	err           error
	statusMsg     string
	height        int
}

func newUsersModel(api UserAPI) usersModel {
	return usersModel{api: api, page: 1}
}

func (m usersModel) Init() tea.Cmd {
	return m.load()
}

func (m usersModel) load() tea.Cmd {
	api, page := m.api, m.page
	return func() tea.Msg {
		p, err := api.ListUsers(context.Background(), page, pageSize)
		return usersLoadedMsg{page: p, err: err}
	}
}

func (m usersModel) selected() (domain.User, bool) {
	if m.cursor < 0 || m.cursor >= len(m.users) {
		return domain.User{}, false
	}
	return m.users[m.cursor], true
}

func (m usersModel) Update(msg tea.Msg) (usersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case usersLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil && msg.page != nil {
			m.users = msg.page.Data
			m.pagination = msg.page.Pagination
			if m.cursor >= len(m.users) {
				m.cursor = max(len(m.users)-1, 0)
			}
		}
	case userDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = "user deleted"
		m.loading = true
		return m, m.load()
	case copyResultMsg:
		if msg.err != nil {
			m.statusMsg = "copy failed: " + msg.err.Error()
		} else {
			m.statusMsg = "email copied"
		}
	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m usersModel) updateKeys(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	key := msg.String()
	if m.confirmDelete {
		m.confirmDelete = false
		u, ok := m.selected()
		if key != "y" || !ok {
			m.statusMsg = "delete cancelled"
			return m, nil
		}
		api := m.api
		return m, func() tea.Msg {
			err := api.DeleteUser(context.Background(), u.ID)
			return userDeletedMsg{id: u.ID, err: err}
		}
	}

	m.statusMsg = ""
	switch key {
	case "j", "down":
		if m.cursor < len(m.users)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n", "right":
		if m.pagination.HasNext() {
			m.page++
			m.cursor = 0
			m.loading = true
			return m, m.load()
		}
	case "p", "left":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			m.loading = true
			return m, m.load()
		}
	case "r":
		m.loading = true
		return m, m.load()
	case "d":
		if _, ok := m.selected(); ok {
			m.confirmDelete = true
		}
	case "c":
		if u, ok := m.selected(); ok {
			email := u.Email
			return m, func() tea.Msg {
				return copyResultMsg{err: copyToClipboard(email)}
			}
		}
	case "a":
		return m, func() tea.Msg { return editUserMsg{} }
	case "e", "enter":
		if u, ok := m.selected(); ok {
			return m, func() tea.Msg { return editUserMsg{user: &u} }
		}
	}
	return m, nil
}

func (m usersModel) View() string {
	var b strings.Builder
	title := "Users"
	if m.pagination.TotalPages > 0 {
		title += fmt.Sprintf("  page %d/%d . %d total", m.pagination.Page, m.pagination.TotalPages, m.pagination.Total)
	}
	b.WriteString("\n  " + sectionHeaderStyle.Render(title) + "\n\n")

	switch {
	case m.loading && len(m.users) == 0:
		b.WriteString(dimStyle.Render("  loading...") + "\n")
	case m.err != nil && len(m.users) == 0:
		b.WriteString("  " + errorStyle.Render(errorText(m.err)) + "\n")
	case len(m.users) == 0:
		b.WriteString(dimStyle.Render("  no users") + "\n")
	}

	for i, u := range m.users {
		line := fmt.Sprintf("%-24s %-32s %s",
			truncStr(u.Name, 24), truncStr(u.Email, 32), RoleBadge(u.Role))
		if i == m.cursor {
			b.WriteString(selectedRowBg.Render(accentStyle.Render("> ") + selectedStyle.Render(line)))
		} else {
			b.WriteString("  " + normalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.confirmDelete:
		if u, ok := m.selected(); ok {
			b.WriteString("  " + warnStyle.Render(fmt.Sprintf("delete %s? (y to confirm)", u.Email)))
		}
	case m.err != nil && len(m.users) > 0:
		b.WriteString("  " + errorStyle.Render(errorText(m.err)))
	case m.statusMsg != "":
		b.WriteString("  " + okStyle.Render(m.statusMsg))
	}
	return b.String()
}
