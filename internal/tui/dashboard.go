package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/portal/pkg/domain"
)

// meLoadedMsg carries the result of Me.
type meLoadedMsg struct {
	me  *domain.User
	err error
}

type dashboardModel struct {
	sess    Session
	api     UserAPI
	me      *domain.User
	loading bool
	err     error
}

func newDashboardModel(s Session, api UserAPI) dashboardModel {
	return dashboardModel{sess: s, api: api}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadMe(m.api)
}

func loadMe(api UserAPI) tea.Cmd {
	return func() tea.Msg {
		me, err := api.Me(context.Background())
		return meLoadedMsg{me: me, err: err}
	}
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case meLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil && msg.me != nil {
			m.me = msg.me
		}
	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, loadMe(m.api)
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	snap := m.sess.Snapshot()
	me := m.me
	if me == nil {
		me = snap.User
	}

	var b strings.Builder
	b.WriteString("\n  " + sectionHeaderStyle.Render("Dashboard") + "\n\n")

	if me == nil {
		if m.loading {
			b.WriteString(dimStyle.Render("  loading profile...") + "\n")
		} else {
			b.WriteString(dimStyle.Render("  profile not loaded (r to retry)") + "\n")
		}
	} else {
		card := fmt.Sprintf("%s %s\n%s\n%s",
			selectedStyle.Render(me.Name), RoleBadge(me.Role),
			normalStyle.Render(me.Email),
			metaStyle.Render("member since "+formatTime(me.CreatedAt)))
		b.WriteString(indent(cardStyle.Render(card), 2) + "\n")
	}

	b.WriteString("\n  " + sectionHeaderStyle.Render("Session") + "\n")
	fmt.Fprintf(&b, "  %s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", "state")), normalStyle.Render(snap.State.String()))
	fmt.Fprintf(&b, "  %s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", "status")), statusStyle(snap.Status).Render(string(snap.Status)))
	if !snap.AccessExpiry.IsZero() {
		fmt.Fprintf(&b, "  %s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", "token")), dimStyle.Render("expires "+formatUntil(snap.AccessExpiry)))
	}

	if m.err != nil {
		b.WriteString("\n  " + errorStyle.Render(errorText(m.err)) + "\n")
	}
	return b.String()
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
