package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/forge-sparks/internal/keys"
	"github.com/nhle/forge-sparks/internal/model"
	appsync "github.com/nhle/forge-sparks/internal/sync"
	"github.com/nhle/forge-sparks/internal/ui"
	"github.com/nhle/forge-sparks/internal/ui/accounts"
	helpview "github.com/nhle/forge-sparks/internal/ui/help"
	"github.com/nhle/forge-sparks/internal/ui/notifications"
)

// Engine is the polling engine as seen by the UI.
type Engine interface {
	List() *model.NotificationList
	Reload()
	Resolve(ctx context.Context, id string) (bool, error)
	ResolveAll(ctx context.Context) error
	WaitForNextResult() tea.Cmd
}

// OpenFunc opens a notification and marks it read.
type OpenFunc func(ctx context.Context, id, url string) error

// ViewState is the active view.
type ViewState int

const (
	ViewList ViewState = iota
	ViewAccounts
	ViewHelp
)

// resolvedMsg is sent when a mark-as-read request finished.
type resolvedMsg struct {
	id  string
	ok  bool
	err error
}

// resolvedAllMsg is sent when mark-all-as-read finished.
type resolvedAllMsg struct {
	err error
}

// openedMsg is sent when a notification was opened.
type openedMsg struct {
	id  string
	err error
}

// activateMsg brings the list view to the front.
type activateMsg struct{}

// Model is the root Bubble Tea model. It routes between the notification
// list, the accounts view and help, and reports list visibility and
// terminal focus to Presence.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	engine       Engine
	manager      accounts.Manager
	open         OpenFunc
	presence     *ui.Presence

	list         notifications.Model
	accountsView accounts.Model
	helpView     helpview.Model

	state    appsync.State
	statuses []appsync.AccountStatus
	status   string
	ready    bool
}

// NewModel creates the root model.
func NewModel(
	engine Engine,
	manager accounts.Manager,
	open OpenFunc,
	presence *ui.Presence,
	k *keys.KeyMap,
) Model {
	m := Model{
		keys:         k,
		engine:       engine,
		manager:      manager,
		open:         open,
		presence:     presence,
		list:         notifications.New(engine.List(), k, 80, 24),
		accountsView: accounts.New(manager, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		state:        appsync.AwaitingAccounts,
	}
	if len(manager.List()) > 0 {
		m.state = appsync.Polling
	}
	m.applyState()
	return m
}

// Init starts listening for list changes and cycle results.
func (m Model) Init() tea.Cmd {
	m.presence.SetVisible(true)
	return tea.Batch(
		m.list.Init(),
		m.engine.WaitForNextResult(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.Width = msg.Width
		m.layout.Height = msg.Height
		m.ready = true
		m.resize()
		return m.updateActiveView(msg)

	case tea.FocusMsg:
		m.presence.SetFocused(true)
		return m, nil

	case tea.BlurMsg:
		m.presence.SetFocused(false)
		return m, nil

	case appsync.CycleResultMsg:
		m.state = msg.State
		m.statuses = msg.Statuses
		m.applyState()
		return m, m.engine.WaitForNextResult()

	case notifications.ChangedMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case notifications.OpenMsg:
		return m, m.openNotification(msg.Notification)

	case notifications.ResolveMsg:
		m.list.SetPending(msg.ID, true)
		return m, m.resolve(msg.ID)

	case openedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Could not open notification: %v", msg.err)
		}
		return m, nil

	case resolvedMsg:
		m.list.SetPending(msg.id, false)
		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("Could not mark as read: %v", msg.err)
		case !msg.ok:
			m.status = "The forge did not confirm the change"
		default:
			m.status = ""
		}
		return m, nil

	case resolvedAllMsg:
		m.status = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("Some accounts failed: %v", msg.err)
		}
		return m, nil

	case activateMsg:
		m.setView(ViewList)
		return m, nil

	case accounts.DoneMsg:
		m.setView(ViewList)
		m.applyState()
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewAccounts && m.accountsView.Mode() != accounts.ModeList {
			break
		}

		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.setView(m.previousView)
				return m, nil
			}
			m.setView(ViewHelp)
			return m, nil

		case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
			m.setView(m.previousView)
			return m, nil

		case m.currentView != ViewList:

		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Reload):
			m.engine.Reload()
			return m, nil

		case key.Matches(msg, m.keys.MarkAll):
			return m, m.resolveAll()

		case key.Matches(msg, m.keys.Accounts):
			m.setView(ViewAccounts)
			return m, m.accountsView.Init()
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewAccounts:
		m.accountsView, cmd = m.accountsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// setView switches views and reports whether the list is on screen.
func (m *Model) setView(v ViewState) {
	if v != m.currentView {
		m.previousView = m.currentView
	}
	m.currentView = v
	m.presence.SetVisible(v == ViewList)
}

// applyState derives the banner, row layout and empty text from the last
// cycle.
func (m *Model) applyState() {
	var failed []string
	for _, s := range m.statuses {
		if s.AuthFailed {
			failed = append(failed, s.Name)
		}
	}
	m.layout.Banner = ""
	if len(failed) > 0 {
		m.layout.Banner = "Authentication failed: " + strings.Join(failed, ", ") + " (press a to update)"
	}

	m.list.SetShowAccount(len(m.manager.List()) > 1)

	switch m.state {
	case appsync.AwaitingAccounts:
		m.list.SetEmptyText("No accounts yet.\n\nPress a to add one.")
	case appsync.Polling:
		m.list.SetEmptyText("Loading notifications...")
	default:
		m.list.SetEmptyText("No notifications.\n\nYou're all caught up.")
	}

	if m.ready {
		m.resize()
	}
}

func (m *Model) resize() {
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.list.SetSize(w, h)
	m.accountsView.SetSize(w, h)
	m.helpView.SetSize(w, h)
}

func (m Model) openNotification(n model.Notification) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		return openedMsg{id: n.ID, err: open(context.Background(), n.ID, n.URL)}
	}
}

func (m Model) resolve(id string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ok, err := engine.Resolve(context.Background(), id)
		return resolvedMsg{id: id, ok: ok, err: err}
	}
}

func (m Model) resolveAll() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		return resolvedAllMsg{err: engine.ResolveAll(context.Background())}
	}
}

// View renders the full terminal UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Forge Sparks"
	if n := m.list.Len(); n > 0 {
		title = fmt.Sprintf("Forge Sparks [%d]", n)
	}

	header := m.layout.RenderHeader(title, m.state.String())
	return m.layout.Render(header, m.renderContent(), m.layout.RenderStatusBar(m.keyHints()))
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewAccounts:
		return m.accountsView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.list.View()
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.status != "" && m.currentView == ViewList {
		return m.status
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewAccounts:
		return "n add | e edit | d remove | esc back"
	default:
		return "enter open | m mark read | M mark all | r reload | a accounts | ? help | q quit"
	}
}
