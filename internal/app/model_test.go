package app

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/keys"
	"github.com/nhle/forge-sparks/internal/model"
	appsync "github.com/nhle/forge-sparks/internal/sync"
	"github.com/nhle/forge-sparks/internal/ui"
	"github.com/nhle/forge-sparks/internal/ui/notifications"
)

type fakeEngine struct {
	list       *model.NotificationList
	reloads    int
	resolved   []string
	resolveOK  bool
	resolveErr error
	allErr     error
}

func newFakeEngine() *fakeEngine {
	l := model.NewNotificationList()
	l.Replace([]model.Notification{
		{ID: "acct-1", Title: "Fix the build", Repository: "o/r", URL: "https://example.com/1", Unread: true},
	})
	return &fakeEngine{list: l, resolveOK: true}
}

func (e *fakeEngine) List() *model.NotificationList { return e.list }
func (e *fakeEngine) Reload()                       { e.reloads++ }

func (e *fakeEngine) Resolve(_ context.Context, id string) (bool, error) {
	e.resolved = append(e.resolved, id)
	return e.resolveOK, e.resolveErr
}

func (e *fakeEngine) ResolveAll(context.Context) error {
	if e.allErr == nil {
		e.list.Clear()
	}
	return e.allErr
}

func (e *fakeEngine) WaitForNextResult() tea.Cmd {
	return func() tea.Msg { return nil }
}

type fakeManager struct {
	accounts []model.Account
}

func (m *fakeManager) List() []model.Account { return m.accounts }

func (m *fakeManager) Add(context.Context, forge.Kind, string, string) (model.Account, error) {
	return model.Account{}, nil
}

func (m *fakeManager) Update(context.Context, string, string, string) (model.Account, error) {
	return model.Account{}, nil
}

func (m *fakeManager) Remove(context.Context, string) error { return nil }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(engine *fakeEngine, open OpenFunc) (Model, *ui.Presence) {
	presence := ui.NewPresence(true)
	if open == nil {
		open = func(context.Context, string, string) error { return nil }
	}
	m := NewModel(engine, &fakeManager{}, open, presence, keys.DefaultKeyMap())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), presence
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModelReportsPresence(t *testing.T) {
	m, presence := newTestModel(newFakeEngine(), nil)
	require.True(t, presence.Focused())

	m, _ = update(t, m, tea.BlurMsg{})
	require.False(t, presence.Focused())
	require.True(t, presence.Visible())

	m, _ = update(t, m, tea.FocusMsg{})
	require.True(t, presence.Focused())

	m, _ = update(t, m, runes("a"))
	require.Equal(t, ViewAccounts, m.currentView)
	require.False(t, presence.Visible())
	require.False(t, presence.Focused())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	require.Equal(t, ViewList, m.currentView)
	require.True(t, presence.Visible())
}

func TestModelResolveFlow(t *testing.T) {
	engine := newFakeEngine()
	m, _ := newTestModel(engine, nil)

	m, cmd := update(t, m, runes("m"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.Equal(t, notifications.ResolveMsg{ID: "acct-1"}, msg)

	m, cmd = update(t, m, msg)
	require.NotNil(t, cmd)

	engine.resolveOK = false
	m, _ = update(t, m, cmd())
	require.Equal(t, []string{"acct-1"}, engine.resolved)
	assert.Equal(t, "The forge did not confirm the change", m.status)

	engine.resolveErr = errors.New("boom")
	_, cmd = update(t, m, notifications.ResolveMsg{ID: "acct-1"})
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.status, "Could not mark as read: boom")
}

func TestModelOpenUsesOpener(t *testing.T) {
	var opened []string
	open := func(_ context.Context, id, url string) error {
		opened = append(opened, id, url)
		return nil
	}
	m, _ := newTestModel(newFakeEngine(), open)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, cmd = update(t, m, cmd())
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	require.Equal(t, []string{"acct-1", "https://example.com/1"}, opened)
	require.Empty(t, m.status)
}

func TestModelReloadAndMarkAll(t *testing.T) {
	engine := newFakeEngine()
	m, _ := newTestModel(engine, nil)

	m, _ = update(t, m, runes("r"))
	require.Equal(t, 1, engine.reloads)

	engine.allErr = errors.New("account x: timeout")
	m, cmd := update(t, m, runes("M"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.status, "Some accounts failed")
}

func TestModelCycleResultBanner(t *testing.T) {
	m, _ := newTestModel(newFakeEngine(), nil)

	m, cmd := update(t, m, appsync.CycleResultMsg{
		State: appsync.Idle,
		Count: 1,
		Statuses: []appsync.AccountStatus{
			{AccountID: "a", Name: "octo@github.com"},
			{AccountID: "b", Name: "tanuki@gitlab.com", AuthFailed: true},
		},
	})
	require.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "Authentication failed: tanuki@gitlab.com")
	assert.Contains(t, view, "Forge Sparks [1]")
	assert.Contains(t, view, "idle")
}

func TestModelStartsLoadingWithAccounts(t *testing.T) {
	l := model.NewNotificationList()
	engine := &fakeEngine{list: l}
	manager := &fakeManager{accounts: []model.Account{{ID: "a", Forge: "github", URL: "github.com", Username: "octo"}}}

	m := NewModel(engine, manager, nil, ui.NewPresence(true), keys.DefaultKeyMap())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Loading notifications...")
	assert.NotContains(t, view, "No accounts yet")

	m, _ = update(t, m, appsync.CycleResultMsg{State: appsync.Idle})
	assert.Contains(t, m.View(), "all caught up")
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(newFakeEngine(), nil)

	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
