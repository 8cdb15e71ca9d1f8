package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/keys"
	"github.com/nhle/forge-sparks/internal/model"
	"github.com/nhle/forge-sparks/internal/theme"
)

// Manager is the account registry as seen by the accounts view.
type Manager interface {
	List() []model.Account
	Add(ctx context.Context, kind forge.Kind, url, token string) (model.Account, error)
	Update(ctx context.Context, id, url, token string) (model.Account, error)
	Remove(ctx context.Context, id string) error
}

// Mode is the current state of the accounts view.
type Mode int

const (
	ModeList          Mode = iota // List configured accounts
	ModeForm                      // Add or edit form
	ModeValidating                // Authenticating the token
	ModeResult                    // Show the authentication result
	ModeConfirmDelete             // Confirm account removal
)

// DoneMsg signals the accounts view should close.
type DoneMsg struct{}

// savedMsg is sent after an account was added or updated.
type savedMsg struct {
	account model.Account
	err     error
}

// removedMsg is sent after an account was removed.
type removedMsg struct {
	err error
}

// Model is the Bubble Tea model for managing accounts.
type Model struct {
	mode     Mode
	manager  Manager
	accounts []model.Account
	selected int

	form      *huh.Form
	fields    *Fields
	editingID string

	confirm       *huh.Form
	confirmDelete *bool

	spinner   spinner.Model
	result    *savedMsg
	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates the accounts view.
func New(manager Manager, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		manager:       manager,
		keys:          k,
		spinner:       sp,
		fields:        &Fields{},
		confirmDelete: new(bool),
		width:         width,
		height:        height,
	}
}

// Init reloads the account list.
func (m *Model) Init() tea.Cmd {
	m.mode = ModeList
	m.statusMsg = ""
	m.reload()
	return nil
}

// StartAdd opens the form for a new account.
func (m *Model) StartAdd() tea.Cmd {
	*m.fields = Fields{Kind: string(forge.KindGitHub)}
	m.editingID = ""
	m.form = NewForm(m.fields, false).WithWidth(m.formWidth())
	m.mode = ModeForm
	return m.form.Init()
}

func (m *Model) reload() {
	m.accounts = m.manager.List()
	if m.selected >= len(m.accounts) {
		m.selected = max(len(m.accounts)-1, 0)
	}
}

// Mode returns the current mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Update handles messages and dispatches based on the current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		m.result = &msg
		m.mode = ModeResult
		m.reload()
		return m, nil

	case removedMsg:
		m.mode = ModeList
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error removing account: %v", msg.err)
		} else {
			m.statusMsg = "Account removed"
		}
		m.reload()
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			return m.handleListKeys(msg)
		case ModeResult:
			if msg.String() == "enter" || key.Matches(msg, m.keys.Back) {
				m.mode = ModeList
				m.result = nil
			}
			return m, nil
		case ModeValidating:
			return m, nil
		}
	}

	switch m.mode {
	case ModeForm:
		return m.updateForm(msg)
	case ModeConfirmDelete:
		return m.updateConfirmDelete(msg)
	}
	return m, nil
}

// handleListKeys processes key events in list mode.
func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case key.Matches(msg, m.keys.Add):
		cmd := m.StartAdd()
		return m, cmd

	case key.Matches(msg, m.keys.Edit):
		if len(m.accounts) == 0 {
			return m, nil
		}
		acct := m.accounts[m.selected]
		*m.fields = Fields{Kind: acct.Forge, URL: acct.URL}
		m.editingID = acct.ID
		m.form = NewForm(m.fields, true).WithWidth(m.formWidth())
		m.mode = ModeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if len(m.accounts) == 0 {
			return m, nil
		}
		*m.confirmDelete = false
		m.confirm = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Remove %s?", m.accounts[m.selected].DisplayName())).
					Description("The account and its access token are deleted.").
					Affirmative("Yes, remove").
					Negative("Cancel").
					Value(m.confirmDelete),
			),
		).WithWidth(m.formWidth())
		m.mode = ModeConfirmDelete
		return m, m.confirm.Init()

	case key.Matches(msg, m.keys.Down):
		if len(m.accounts) > 0 {
			m.selected = (m.selected + 1) % len(m.accounts)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.accounts) > 0 {
			m.selected--
			if m.selected < 0 {
				m.selected = len(m.accounts) - 1
			}
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.save(*m.fields, m.editingID))
	case huh.StateAborted:
		m.mode = ModeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		if *m.confirmDelete && m.selected < len(m.accounts) {
			return m, m.remove(m.accounts[m.selected].ID)
		}
		m.mode = ModeList
		return m, nil
	case huh.StateAborted:
		m.mode = ModeList
		return m, nil
	}
	return m, cmd
}

// save authenticates and persists the form values.
func (m Model) save(f Fields, editingID string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx := context.Background()
		if editingID != "" {
			acct, err := mgr.Update(ctx, editingID, f.URL, f.Token)
			return savedMsg{account: acct, err: err}
		}
		acct, err := mgr.Add(ctx, forge.Kind(f.Kind), f.URL, f.Token)
		return savedMsg{account: acct, err: err}
	}
}

func (m Model) remove(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		return removedMsg{err: mgr.Remove(context.Background(), id)}
	}
}

// View renders the accounts view based on the current mode.
func (m Model) View() string {
	frame := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeForm:
		return frame.Render(m.form.View())
	case ModeConfirmDelete:
		return frame.Render(m.confirm.View())
	case ModeValidating:
		return frame.Render(m.spinner.View() + " Checking access token...")
	case ModeResult:
		return frame.Render(m.viewResult())
	default:
		return frame.Render(m.viewList())
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("Accounts"))
	b.WriteString("\n\n")

	if len(m.accounts) == 0 {
		b.WriteString(theme.HelpStyle.Render("No accounts configured.\nPress 'n' to add one."))
	}
	for i, acct := range m.accounts {
		b.WriteString(m.renderAccount(i, acct))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(m.statusMsg))
	}
	return b.String()
}

func (m Model) renderAccount(idx int, acct model.Account) string {
	label := theme.ForgeLabelStyle(acct.Forge).Render(forge.Kind(acct.Forge).String())
	line := fmt.Sprintf("%s %s", label, acct.DisplayName())
	if acct.AuthFailed {
		line += lipgloss.NewStyle().Foreground(theme.ColorRed).Render("  authentication failed")
	}

	if idx == m.selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (m Model) viewResult() string {
	hint := theme.HelpStyle.Render("enter/esc back")
	if m.result == nil {
		return hint
	}

	if err := m.result.err; err != nil {
		return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed).Render("Could not save account") +
			"\n\n" + describeError(err) + "\n\n" + hint
	}
	return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen).Render("Account saved") +
		"\n\n" + fmt.Sprintf("Signed in as %s", m.result.account.DisplayName()) + "\n\n" + hint
}

// describeError turns forge error kinds into advice.
func describeError(err error) string {
	switch {
	case errors.Is(err, forge.ErrFailedForgeAuth):
		return "The access token was rejected. Check that it is correct and not expired."
	case errors.Is(err, forge.ErrFailedTokenScopes):
		return "The access token is missing required scopes."
	default:
		return err.Error()
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}
