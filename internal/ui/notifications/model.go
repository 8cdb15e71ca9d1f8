package notifications

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/forge-sparks/internal/keys"
	"github.com/nhle/forge-sparks/internal/model"
	"github.com/nhle/forge-sparks/internal/theme"
)

// ChangedMsg is sent when the notification list changed.
type ChangedMsg struct{}

// OpenMsg asks to open a notification in the browser.
type OpenMsg struct {
	Notification model.Notification
}

// ResolveMsg asks to mark a notification as read.
type ResolveMsg struct {
	ID string
}

// Model renders the shared notification list and follows its changes.
type Model struct {
	list    list.Model
	source  *model.NotificationList
	keys    *keys.KeyMap
	changes chan struct{}
	cancel  func()
	pending map[string]bool
	empty   string
	width   int
	height  int
}

// New creates a list view over source.
func New(source *model.NotificationList, k *keys.KeyMap, width, height int) Model {
	l := list.New(nil, Delegate{Now: time.Now}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	changes := make(chan struct{}, 1)
	cancel := source.Subscribe(func(model.Change) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	m := Model{
		list:    l,
		source:  source,
		keys:    k,
		changes: changes,
		cancel:  cancel,
		pending: make(map[string]bool),
		empty:   "No notifications.",
		width:   width,
		height:  height,
	}
	m.refresh()
	return m
}

// Init starts following list changes.
func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

// Close stops following list changes.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// waitForChange returns a tea.Cmd that blocks until the list changes.
// Bursts of changes collapse into one message.
func (m Model) waitForChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		<-ch
		return ChangedMsg{}
	}
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		m.refresh()
		return m, m.waitForChange()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Open):
			n, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return OpenMsg{Notification: n} }

		case key.Matches(msg, m.keys.MarkRead):
			n, ok := m.Selected()
			if !ok || m.pending[n.ID] {
				return m, nil
			}
			return m, func() tea.Msg { return ResolveMsg{ID: n.ID} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// refresh rebuilds the rows from the shared list, keeping the cursor on
// the same notification when it is still present.
func (m *Model) refresh() {
	selected, _ := m.Selected()

	snapshot := m.source.Items()
	items := make([]list.Item, len(snapshot))
	cursor := 0
	for i, n := range snapshot {
		items[i] = Item{Notification: n, Pending: m.pending[n.ID]}
		if n.ID == selected.ID {
			cursor = i
		}
	}

	for id := range m.pending {
		if _, ok := m.source.Get(id); !ok {
			delete(m.pending, id)
		}
	}

	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(min(cursor, len(items)-1))
	}
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Len returns the number of rows.
func (m Model) Len() int {
	return len(m.list.Items())
}

// SetPending marks a notification as being resolved.
func (m *Model) SetPending(id string, pending bool) {
	if pending {
		m.pending[id] = true
	} else {
		delete(m.pending, id)
	}
	m.refresh()
}

// SetShowAccount toggles the account name on rows, used when more than
// one account is configured.
func (m *Model) SetShowAccount(show bool) {
	m.list.SetDelegate(Delegate{ShowAccount: show, Now: time.Now})
}

// SetEmptyText sets the text shown when there is nothing to list.
func (m *Model) SetEmptyText(text string) {
	m.empty = text
}

// View renders the list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(m.empty)
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
