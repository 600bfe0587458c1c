package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/portal/pkg/domain"
	"github.com/naveenspark/portal/pkg/session"
)

// Session is the part of the session manager the UI drives.
type Session interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Logout(ctx context.Context)
	ClearError()
}

// UserAPI is the set of protected endpoints the UI calls.
type UserAPI interface {
	Me(ctx context.Context) (*domain.User, error)
	ListUsers(ctx context.Context, page, limit int) (*domain.Page[domain.User], error)
	CreateUser(ctx context.Context, req domain.UserCreateRequest) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type view int

const (
	viewLogin view = iota
	viewRegister
	viewDashboard
	viewUsers
	viewUserForm
)

// protected reports whether v requires a signed-in session.
func (v view) protected() bool {
	return v >= viewDashboard
}

// sessionEventMsg wraps a notification from the session manager.
type sessionEventMsg struct {
	ev session.Event
}

type eventsClosedMsg struct{}

func waitForEvent(ch <-chan session.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return sessionEventMsg{ev: ev}
	}
}

// App is the root Bubbletea model.
type App struct {
	sess      Session
	api       UserAPI
	events    <-chan session.Event
	view      view
	login     loginModel
	register  registerModel
	dashboard dashboardModel
	users     usersModel
	userForm  userFormModel
	helpOpen  bool
	notice    string
	width     int
	height    int
	frame     int // logo shimmer animation frame
}

// NewApp creates the TUI. events is the manager's subscription channel; an
// expired or signed-out session sends the user back to the login view.
func NewApp(s Session, api UserAPI, events <-chan session.Event) App {
	a := App{
		sess:      s,
		api:       api,
		events:    events,
		view:      viewLogin,
		login:     newLoginModel(s),
		register:  newRegisterModel(s),
		dashboard: newDashboardModel(s, api),
		users:     newUsersModel(api),
	}
	if s.Snapshot().IsAuthenticated {
		a.view = viewDashboard
	}
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{shimmerTickCmd(), waitForEvent(a.events)}
	if a.view == viewDashboard {
		cmds = append(cmds, a.dashboard.Init())
	}
	return tea.Batch(cmds...)
}

// switchTo changes view, falling back to login for protected views when
// the session is not authenticated.
func (a App) switchTo(v view) (App, tea.Cmd) {
	if v.protected() && !a.sess.Snapshot().IsAuthenticated {
		v = viewLogin
	}
	if v == a.view {
		return a, nil
	}
	a.view = v
	a.helpOpen = false
	switch v {
	case viewDashboard:
		a.dashboard.loading = true
		return a, a.dashboard.Init()
	case viewUsers:
		a.users.loading = true
		return a, a.users.Init()
	}
	return a, nil
}

// signedOut resets per-user state and returns to login.
func (a App) signedOut(notice string) App {
	a.view = viewLogin
	a.helpOpen = false
	a.notice = notice
	a.login = newLoginModel(a.sess)
	a.register = newRegisterModel(a.sess)
	a.dashboard = newDashboardModel(a.sess, a.api)
	a.users = newUsersModel(a.api)
	return a
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + notice(1) + help(1) = 5 lines
		a.users, _ = a.users.Update(tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 5})
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case sessionEventMsg:
		return a.handleEvent(msg.ev)

	case eventsClosedMsg:
		return a, nil

	case authResultMsg:
		var cmd tea.Cmd
		if msg.register {
			a.register, cmd = a.register.Update(msg)
		} else {
			a.login, cmd = a.login.Update(msg)
		}
		if msg.err != nil {
			return a, cmd
		}
		a.notice = ""
		a.dashboard.me = msg.user
		var next tea.Cmd
		a, next = a.switchTo(viewDashboard)
		return a, tea.Batch(cmd, next)

	case meLoadedMsg:
		a.dashboard, _ = a.dashboard.Update(msg)
		return a, nil

	case usersLoadedMsg, userDeletedMsg, copyResultMsg:
		var cmd tea.Cmd
		a.users, cmd = a.users.Update(msg)
		return a, cmd

	case editUserMsg:
		a.userForm = newUserFormModel(a.api, msg.user)
		return a.switchTo(viewUserForm)

	case userSavedMsg:
		var cmd tea.Cmd
		a.userForm, cmd = a.userForm.Update(msg)
		if a.userForm.done {
			a.users.statusMsg = "user saved"
			return a.switchTo(viewUsers)
		}
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleEvent(ev session.Event) (tea.Model, tea.Cmd) {
	next := waitForEvent(a.events)
	switch ev.Kind {
	case session.EventExpired:
		if a.view.protected() {
			a = a.signedOut("Your session has expired, please sign in again")
		}
	case session.EventSignedOut:
		a = a.signedOut("Signed out")
	case session.EventSignedIn:
		if !a.view.protected() {
			a.notice = ""
			var cmd tea.Cmd
			a, cmd = a.switchTo(viewDashboard)
			return a, tea.Batch(next, cmd)
		}
	}
	return a, next
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.helpOpen {
		switch key {
		case "h", "esc", "?":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		}
		return a, nil
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.notice = ""
		switch key {
		case "esc":
			return a, tea.Quit
		case "ctrl+n":
			a.sess.ClearError()
			a.view = viewRegister
			return a, nil
		}
		a.login, cmd = a.login.Update(msg)
		return a, cmd

	case viewRegister:
		if key == "esc" {
			a.sess.ClearError()
			a.view = viewLogin
			return a, nil
		}
		a.register, cmd = a.register.Update(msg)
		return a, cmd

	case viewUserForm:
		if key == "esc" {
			return a.switchTo(viewUsers)
		}
		a.userForm, cmd = a.userForm.Update(msg)
		if a.userForm.done {
			return a.switchTo(viewUsers)
		}
		return a, cmd
	}

	// Navigation keys for the signed-in views.
	if !a.users.confirmDelete {
		switch key {
		case "q":
			return a, tea.Quit
		case "h", "?":
			a.helpOpen = true
			return a, nil
		case "1":
			return a.switchTo(viewDashboard)
		case "2":
			return a.switchTo(viewUsers)
		case "x":
			sess := a.sess
			return a, func() tea.Msg {
				sess.Logout(context.Background())
				return nil
			}
		case "esc":
			if a.view == viewUsers {
				return a.switchTo(viewDashboard)
			}
			return a, nil
		}
	}

	switch a.view {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case viewUsers:
		a.users, cmd = a.users.Update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	snap := a.sess.Snapshot()

	identity := ""
	if snap.IsAuthenticated && snap.User != nil {
		identity = metaStyle.Render(snap.User.Email) + " " + RoleBadge(snap.User.Role)
	}
	header := center(logo, a.width) + "\n" + center(identity, a.width)

	var tabs string
	if a.view.protected() {
		type tabEntry struct {
			key  string
			name string
			v    view
		}
		var parts []string
		for _, t := range []tabEntry{{"1", "Dashboard", viewDashboard}, {"2", "Users", viewUsers}} {
			active := t.v == a.view || (t.v == viewUsers && a.view == viewUserForm)
			if active {
				parts = append(parts, accentStyle.Render(t.key)+" "+selectedStyle.Underline(true).Render(t.name))
			} else {
				parts = append(parts, metaStyle.Render(t.key)+" "+dimStyle.Render(t.name))
			}
		}
		tabs = center(strings.Join(parts, "    "), a.width)
	}

	var body, help string
	switch a.view {
	case viewLogin:
		body = a.login.View()
		help = helpBar("tab", "next", "enter", "sign in", "ctrl+n", "register", "esc", "quit")
	case viewRegister:
		body = a.register.View()
		help = helpBar("tab", "next", "enter", "create", "esc", "back")
	case viewDashboard:
		body = a.dashboard.View()
		help = helpBar("1-2", "tabs", "r", "reload", "x", "sign out", "h", "help", "q", "quit")
	case viewUsers:
		body = a.users.View()
		help = helpBar("1-2", "tabs", "j/k", "nav", "n/p", "page", "a", "add", "e", "edit", "d", "delete", "c", "copy email", "q", "quit")
	case viewUserForm:
		body = a.userForm.View()
		help = helpBar("tab", "next", "ctrl+s", "save", "esc", "cancel")
	}

	if a.helpOpen {
		body = helpView()
		help = helpBar("esc", "close")
	}

	notice := ""
	if a.notice != "" {
		notice = " " + warnStyle.Render(a.notice)
	}

	chrome := 5
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, tabs, body, notice, help)
}

func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
