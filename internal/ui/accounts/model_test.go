package accounts

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/keys"
	"github.com/nhle/forge-sparks/internal/model"
)

type fakeManager struct {
	accounts []model.Account
	added    []Fields
	updated  []string
	removed  []string
	addErr   error
}

func (f *fakeManager) List() []model.Account {
	return append([]model.Account(nil), f.accounts...)
}

func (f *fakeManager) Add(_ context.Context, kind forge.Kind, url, token string) (model.Account, error) {
	f.added = append(f.added, Fields{Kind: string(kind), URL: url, Token: token})
	if f.addErr != nil {
		return model.Account{}, f.addErr
	}
	acct := model.Account{ID: "new", Forge: string(kind), URL: "gitlab.example.com", Username: "octo"}
	f.accounts = append(f.accounts, acct)
	return acct, nil
}

func (f *fakeManager) Update(_ context.Context, id, _, _ string) (model.Account, error) {
	f.updated = append(f.updated, id)
	return model.Account{ID: id}, nil
}

func (f *fakeManager) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	for i, a := range f.accounts {
		if a.ID == id {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			break
		}
	}
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAccountsViewLists(t *testing.T) {
	mgr := &fakeManager{accounts: []model.Account{
		{ID: "a", Forge: "github", URL: "github.com", Username: "octo"},
		{ID: "b", Forge: "gitlab", URL: "gitlab.com", Username: "tanuki", AuthFailed: true},
	}}
	m := New(mgr, keys.DefaultKeyMap(), 100, 30)
	m.Init()

	view := m.View()
	assert.Contains(t, view, "octo@github.com")
	assert.Contains(t, view, "tanuki@gitlab.com")
	assert.Contains(t, view, "authentication failed")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, DoneMsg{}, cmd())
	assert.Equal(t, ModeList, m.Mode())
}

func TestAccountsViewSave(t *testing.T) {
	mgr := &fakeManager{}
	m := New(mgr, keys.DefaultKeyMap(), 100, 30)
	m.Init()

	m, _ = m.Update(runes("n"))
	require.Equal(t, ModeForm, m.Mode())

	msg := m.save(Fields{Kind: "gitlab", URL: "gitlab.example.com", Token: "glpat"}, "")()
	m, _ = m.Update(msg)
	require.Equal(t, ModeResult, m.Mode())
	assert.Contains(t, m.View(), "Signed in as octo@gitlab.example.com")
	require.Equal(t, []Fields{{Kind: "gitlab", URL: "gitlab.example.com", Token: "glpat"}}, mgr.added)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ModeList, m.Mode())
	assert.Contains(t, m.View(), "octo@gitlab.example.com")
}

func TestAccountsViewSaveFailure(t *testing.T) {
	mgr := &fakeManager{addErr: fmt.Errorf("authenticating: %w", forge.ErrFailedForgeAuth)}
	m := New(mgr, keys.DefaultKeyMap(), 100, 30)
	m.Init()

	m, _ = m.Update(m.save(Fields{Kind: "github", Token: "bad"}, "")())
	view := m.View()
	assert.Contains(t, view, "Could not save account")
	assert.Contains(t, view, "The access token was rejected")
}

func TestAccountsViewEditAndRemove(t *testing.T) {
	mgr := &fakeManager{accounts: []model.Account{
		{ID: "a", Forge: "gitea", URL: "codeberg.org", Username: "c"},
	}}
	m := New(mgr, keys.DefaultKeyMap(), 100, 30)
	m.Init()

	m, _ = m.Update(runes("e"))
	require.Equal(t, ModeForm, m.Mode())
	require.Equal(t, "a", m.editingID)
	require.Equal(t, &Fields{Kind: "gitea", URL: "codeberg.org"}, m.fields)

	m.save(*m.fields, m.editingID)()
	require.Equal(t, []string{"a"}, mgr.updated)

	m, _ = m.Update(m.remove("a")())
	require.Equal(t, ModeList, m.Mode())
	require.Equal(t, []string{"a"}, mgr.removed)
	assert.Contains(t, m.View(), "Account removed")
	assert.Contains(t, m.View(), "No accounts configured.")
}

func TestTokenHelp(t *testing.T) {
	f := &Fields{Kind: "gitlab", URL: "https://gitlab.example.com"}
	assert.Equal(t,
		"Create one at https://gitlab.example.com/-/user_settings/personal_access_tokens?name=Forge+Sparks&scopes=read_api,api with scopes: read_api",
		f.TokenHelp(),
	)

	f = &Fields{Kind: "github", URL: "ignored.example.com"}
	assert.Contains(t, f.TokenHelp(), "https://github.com/settings/tokens/new")

	assert.Empty(t, (&Fields{Kind: "svn"}).TokenHelp())
}
