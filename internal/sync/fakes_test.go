package sync

import (
	"context"
	gosync "sync"

	"github.com/nhle/forge-sparks/internal/account"
	"github.com/nhle/forge-sparks/internal/desktop"
	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/model"
)

type fakeAccounts struct {
	mu       gosync.Mutex
	accounts []model.Account
	userIDs  map[string]int64
	subs     []func(account.Event)
}

func newFakeAccounts(ids ...string) *fakeAccounts {
	a := &fakeAccounts{userIDs: make(map[string]int64)}
	for _, id := range ids {
		a.accounts = append(a.accounts, model.Account{
			ID:       id,
			Forge:    "github",
			URL:      "github.com",
			Username: id,
			UserID:   1,
		})
	}
	return a
}

func (a *fakeAccounts) List() []model.Account {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Account(nil), a.accounts...)
}

func (a *fakeAccounts) Token(_ context.Context, id string) (string, error) {
	return "token-" + id, nil
}

func (a *fakeAccounts) SetAuthFailed(id string, failed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.accounts {
		if a.accounts[i].ID == id {
			a.accounts[i].AuthFailed = failed
		}
	}
}

func (a *fakeAccounts) SetUserID(_ context.Context, id string, userID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userIDs[id] = userID
	for i := range a.accounts {
		if a.accounts[i].ID == id {
			a.accounts[i].UserID = userID
		}
	}
	return nil
}

func (a *fakeAccounts) Subscribe(fn func(account.Event)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
	return func() {}
}

func (a *fakeAccounts) add(acct model.Account) {
	a.mu.Lock()
	a.accounts = append(a.accounts, acct)
	subs := append([]func(account.Event){}, a.subs...)
	a.mu.Unlock()
	for _, fn := range subs {
		fn(account.Event{Kind: account.Added, AccountID: acct.ID})
	}
}

func (a *fakeAccounts) update(acct model.Account) {
	a.mu.Lock()
	for i := range a.accounts {
		if a.accounts[i].ID == acct.ID {
			a.accounts[i] = acct
		}
	}
	subs := append([]func(account.Event){}, a.subs...)
	a.mu.Unlock()
	for _, fn := range subs {
		fn(account.Event{Kind: account.Updated, AccountID: acct.ID})
	}
}

func (a *fakeAccounts) remove(id string) {
	a.mu.Lock()
	for i := range a.accounts {
		if a.accounts[i].ID == id {
			a.accounts = append(a.accounts[:i], a.accounts[i+1:]...)
			break
		}
	}
	subs := append([]func(account.Event){}, a.subs...)
	a.mu.Unlock()
	for _, fn := range subs {
		fn(account.Event{Kind: account.Removed, AccountID: id})
	}
}

func (a *fakeAccounts) authFailed(id string) bool {
	for _, acct := range a.List() {
		if acct.ID == id {
			return acct.AuthFailed
		}
	}
	return false
}

// fakeForge serves scripted results. list returns the notifications for
// the current call; nil list means no notifications.
type fakeForge struct {
	mu           gosync.Mutex
	accountID    string
	list         func() ([]model.Notification, error)
	markRead     func(nativeID string) (bool, error)
	markAll      func() (bool, error)
	user         forge.User
	authCalls    int
	markedNative []string
}

func (f *fakeForge) Kind() forge.Kind { return forge.KindGitHub }

func (f *fakeForge) Authenticate(context.Context) (forge.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.user, nil
}

func (f *fakeForge) ListNotifications(context.Context) ([]model.Notification, error) {
	if f.list == nil {
		return nil, nil
	}
	return f.list()
}

func (f *fakeForge) MarkAsRead(_ context.Context, nativeID string) (bool, error) {
	f.mu.Lock()
	f.markedNative = append(f.markedNative, nativeID)
	f.mu.Unlock()
	if f.markRead == nil {
		return true, nil
	}
	return f.markRead(nativeID)
}

func (f *fakeForge) MarkAllAsRead(context.Context) (bool, error) {
	if f.markAll == nil {
		return true, nil
	}
	return f.markAll()
}

// factory hands out the registered fake per account and counts how often
// each account's client was built.
type factory struct {
	mu      gosync.Mutex
	forges  map[string]*fakeForge
	builds  map[string]int
	userIDs map[string][]int64
	urls    map[string][]string

	// onBuild runs after each build, outside the lock.
	onBuild func(acct model.Account)
}

func newFactory() *factory {
	return &factory{
		forges:  make(map[string]*fakeForge),
		builds:  make(map[string]int),
		userIDs: make(map[string][]int64),
		urls:    make(map[string][]string),
	}
}

func (f *factory) set(accountID string, ff *fakeForge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ff.accountID = accountID
	f.forges[accountID] = ff
}

func (f *factory) build(_ context.Context, acct model.Account, _ string) (forge.Forge, error) {
	f.mu.Lock()
	f.builds[acct.ID]++
	f.userIDs[acct.ID] = append(f.userIDs[acct.ID], acct.UserID)
	f.urls[acct.ID] = append(f.urls[acct.ID], acct.URL)
	ff, ok := f.forges[acct.ID]
	if !ok {
		ff = &fakeForge{accountID: acct.ID}
		f.forges[acct.ID] = ff
	}
	hook := f.onBuild
	f.mu.Unlock()

	if hook != nil {
		hook(acct)
	}
	return ff, nil
}

func (f *factory) builtURLs(accountID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.urls[accountID]...)
}

func (f *factory) buildCount(accountID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds[accountID]
}

type fakeNotifier struct {
	mu        gosync.Mutex
	sent      []desktop.Notification
	withdrawn []string
}

func (n *fakeNotifier) Send(_ context.Context, note desktop.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

func (n *fakeNotifier) Withdraw(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.withdrawn = append(n.withdrawn, id)
}

func (n *fakeNotifier) sentIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		ids = append(ids, s.ID)
	}
	return ids
}

func (n *fakeNotifier) withdrawnIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.withdrawn...)
}

type fakePresence struct {
	visible, focused bool
}

func (p fakePresence) Visible() bool { return p.visible }
func (p fakePresence) Focused() bool { return p.focused }

func note(accountID, nativeID, updatedAt string) model.Notification {
	return model.Notification{
		ID:         forge.FormatID(accountID, nativeID),
		AccountID:  accountID,
		NativeID:   nativeID,
		Type:       model.SubjectIssue,
		Unread:     true,
		UpdatedAt:  updatedAt,
		Title:      "Title " + nativeID,
		Repository: "o/r",
		URL:        "https://github.com/o/r/issues/" + nativeID,
	}
}

func returns(items ...model.Notification) func() ([]model.Notification, error) {
	return func() ([]model.Notification, error) {
		return items, nil
	}
}

func fails(err error) func() ([]model.Notification, error) {
	return func() ([]model.Notification, error) {
		return nil, err
	}
}
