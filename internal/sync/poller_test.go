package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/nhle/forge-sparks/internal/desktop"
	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/model"
)

const (
	t1 = "2024-01-01T00:00:00Z"
	t2 = "2024-01-02T00:00:00Z"
	t3 = "2024-01-03T00:00:00Z"
)

func ids(items []model.Notification) []string {
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.ID)
	}
	return out
}

func authError() error {
	return forge.NewError(forge.ErrFailedForgeAuth, forge.KindGitHub, 401, "GET /notifications")
}

func TestAccountFailureIsolation(t *testing.T) {
	accounts := newFakeAccounts("acct1", "acct2", "acct3")
	f := newFactory()
	f.set("acct1", &fakeForge{list: returns(note("acct1", "1", t1))})
	f.set("acct2", &fakeForge{list: fails(authError())})
	f.set("acct3", &fakeForge{list: returns(note("acct3", "3", t3))})
	notifier := &fakeNotifier{}

	p := New(accounts, f.build, notifier)
	require.True(t, p.Poll(context.Background()))

	require.ElementsMatch(t, []string{"acct1-1", "acct3-3"}, ids(p.List().Items()))
	require.True(t, accounts.authFailed("acct2"))
	require.Contains(t, notifier.sentIDs(), "auth-failed-acct2")

	require.True(t, p.Poll(context.Background()))

	require.Equal(t, 1, f.buildCount("acct1"))
	require.Equal(t, 2, f.buildCount("acct2"), "evicted client is rebuilt")
	require.Equal(t, 1, f.buildCount("acct3"))

	authNotices := 0
	for _, id := range notifier.sentIDs() {
		if id == "auth-failed-acct2" {
			authNotices++
		}
	}
	require.Equal(t, 1, authNotices, "one notification per failure episode")
}

func TestAuthFailureEpisodeEndsOnSuccess(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	failing := true
	f := newFactory()
	f.set("acct1", &fakeForge{list: func() ([]model.Notification, error) {
		if failing {
			return nil, authError()
		}
		return nil, nil
	}})
	notifier := &fakeNotifier{}

	p := New(accounts, f.build, notifier)
	p.Poll(context.Background())
	require.True(t, accounts.authFailed("acct1"))

	failing = false
	p.Poll(context.Background())
	require.False(t, accounts.authFailed("acct1"))
	require.Contains(t, notifier.withdrawnIDs(), "auth-failed-acct1")

	failing = true
	p.Poll(context.Background())
	require.Equal(t, []string{"auth-failed-acct1", "auth-failed-acct1"}, notifier.sentIDs())
}

func TestOtherErrorsKeepClient(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	f := newFactory()
	f.set("acct1", &fakeForge{list: fails(errors.New("dial tcp: connection refused"))})
	notifier := &fakeNotifier{}

	p := New(accounts, f.build, notifier)
	p.Poll(context.Background())
	p.Poll(context.Background())

	require.Equal(t, 1, f.buildCount("acct1"))
	require.False(t, accounts.authFailed("acct1"))
	require.Empty(t, notifier.sentIDs())

	statuses := p.Statuses()
	require.Len(t, statuses, 1)
	require.Error(t, statuses[0].Error)
}

func TestCycleReplacesListWholesale(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	current := []model.Notification{note("acct1", "1", t1), note("acct1", "2", t2)}
	f := newFactory()
	f.set("acct1", &fakeForge{list: func() ([]model.Notification, error) {
		return current, nil
	}})

	p := New(accounts, f.build, &fakeNotifier{})
	p.Poll(context.Background())
	require.Equal(t, []string{"acct1-2", "acct1-1"}, ids(p.List().Items()), "newest first")

	current = []model.Notification{note("acct1", "2", t2)}
	p.Poll(context.Background())
	require.Equal(t, []string{"acct1-2"}, ids(p.List().Items()))
	require.Equal(t, Idle, p.State())
}

func TestNotifyAtMostOncePerUpdate(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	f := newFactory()
	notifier := &fakeNotifier{}
	p := New(accounts, f.build, notifier)

	p.List().Replace([]model.Notification{note("acct1", "1", t1)})
	p.notifyChanged(context.Background(), false)
	p.notifyChanged(context.Background(), false)
	require.Equal(t, []string{"acct1-1"}, notifier.sentIDs())

	p.List().Replace([]model.Notification{note("acct1", "1", t2)})
	p.notifyChanged(context.Background(), false)
	require.Equal(t, []string{"acct1-1", "acct1-1"}, notifier.sentIDs())
}

func TestNotifySkipsReadAndFocused(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	notifier := &fakeNotifier{}
	presence := &fakePresence{focused: true}
	p := New(accounts, newFactory().build, notifier, WithPresence(presence))

	read := note("acct1", "2", t1)
	read.Unread = false
	p.List().Replace([]model.Notification{note("acct1", "1", t1), read})

	p.notifyChanged(context.Background(), false)
	require.Empty(t, notifier.sentIDs())

	presence.focused = false
	p.notifyChanged(context.Background(), false)
	require.Equal(t, []string{"acct1-1"}, notifier.sentIDs())
}

func TestDesktopNotificationShape(t *testing.T) {
	n := note("acct1", "1", t1)
	n.AccountName = "octo@github.com"

	got := desktopNotification(n, true, false)
	require.Equal(t, "acct1-1", got.ID)
	require.Equal(t, "octo@github.com: o/r", got.Body)
	require.Equal(t, "issue-symbolic", got.Icon)
	require.Equal(t, desktop.Action{Name: desktop.ActionOpen, Target: []string{"acct1-1", n.URL}}, got.Default)
	require.Len(t, got.Buttons, 2)
	require.Equal(t, desktop.ActionMarkRead, got.Buttons[0].Action.Name)
	require.Equal(t, desktop.ActionActivate, got.Buttons[1].Action.Name)

	got = desktopNotification(n, false, true)
	require.Equal(t, "o/r", got.Body)
	require.Len(t, got.Buttons, 1)
}

func TestResolveRemovesOnlyOnConfirmation(t *testing.T) {
	accounts := newFakeAccounts("0f8fad5b-d9cb-469f")
	acct := "0f8fad5b-d9cb-469f"
	outcome := func(string) (bool, error) { return false, nil }
	ff := &fakeForge{
		list:     returns(note(acct, "10", t1), note(acct, "11", t2)),
		markRead: func(id string) (bool, error) { return outcome(id) },
	}
	f := newFactory()
	f.set(acct, ff)
	notifier := &fakeNotifier{}

	p := New(accounts, f.build, notifier)
	p.Poll(context.Background())

	ok, err := p.Resolve(context.Background(), acct+"-10")
	require.NoError(t, err)
	require.False(t, ok)
	_, present := p.List().Get(acct + "-10")
	require.True(t, present)

	outcome = func(string) (bool, error) { return false, errors.New("connection reset") }
	_, err = p.Resolve(context.Background(), acct+"-10")
	require.Error(t, err)
	_, present = p.List().Get(acct + "-10")
	require.True(t, present)

	outcome = func(string) (bool, error) { return true, nil }
	ok, err = p.Resolve(context.Background(), acct+"-10")
	require.NoError(t, err)
	require.True(t, ok)
	_, present = p.List().Get(acct + "-10")
	require.False(t, present)

	require.Equal(t, []string{"10", "10", "10"}, ff.markedNative)
	require.Contains(t, notifier.withdrawnIDs(), acct+"-10")

	_, err = p.Resolve(context.Background(), "stranger-1")
	require.ErrorIs(t, err, ErrUnknownNotification)
}

func TestResolveAllClearsEvenOnFailure(t *testing.T) {
	accounts := newFakeAccounts("acct1", "acct2")
	f := newFactory()
	f.set("acct1", &fakeForge{
		list:    returns(note("acct1", "1", t1)),
		markAll: func() (bool, error) { return true, nil },
	})
	f.set("acct2", &fakeForge{
		list:    returns(note("acct2", "2", t2)),
		markAll: func() (bool, error) { return false, errors.New("timeout") },
	})

	p := New(accounts, f.build, &fakeNotifier{})
	p.Poll(context.Background())
	require.Equal(t, 2, p.List().Len())

	err := p.ResolveAll(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.Zero(t, p.List().Len())
}

func TestReloadDuringCycleIsCoalesced(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFactory()
	f.set("acct1", &fakeForge{list: func() ([]model.Notification, error) {
		entered <- struct{}{}
		<-release
		return nil, nil
	}})

	p := New(accounts, f.build, &fakeNotifier{})

	done := make(chan bool)
	go func() { done <- p.Poll(context.Background()) }()
	<-entered

	require.Equal(t, Polling, p.State())
	require.False(t, p.Poll(context.Background()), "a second cycle never overlaps")
	p.Reload()
	p.Reload()

	close(release)
	require.True(t, <-done)

	require.True(t, p.takeReload())
	require.False(t, p.takeReload(), "reloads collapse into one")
	require.Equal(t, Idle, p.State())
}

func TestAwaitingAccountsResumesOnAdd(t *testing.T) {
	accounts := newFakeAccounts()
	f := newFactory()
	f.set("acct1", &fakeForge{list: returns(note("acct1", "1", t1))})

	p := New(accounts, f.build, &fakeNotifier{}, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error)
	go func() { runDone <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		return p.State() == AwaitingAccounts
	}, time.Second, 5*time.Millisecond)

	accounts.add(model.Account{ID: "acct1", Forge: "github", URL: "github.com", Username: "a", UserID: 1})

	require.Eventually(t, func() bool {
		return p.List().Len() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-runDone)
}

func TestUserIDBackfill(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	accounts.accounts[0].UserID = 0
	f := newFactory()
	ff := &fakeForge{user: forge.User{ID: 1001, Username: "acct1"}}
	f.set("acct1", ff)

	p := New(accounts, f.build, &fakeNotifier{})
	p.Poll(context.Background())

	require.Equal(t, 1, ff.authCalls)
	require.Equal(t, int64(1001), accounts.userIDs["acct1"])
	require.Equal(t, []int64{0, 1001}, f.userIDs["acct1"])

	p.Poll(context.Background())
	require.Equal(t, 1, ff.authCalls)
}

func TestAccountUpdatedWhileBuildingIsNotCached(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	f := newFactory()
	var once gosync.Once
	f.onBuild = func(acct model.Account) {
		once.Do(func() {
			acct.URL = "new.example"
			accounts.update(acct)
		})
	}

	p := New(accounts, f.build, &fakeNotifier{})
	p.Poll(context.Background())
	p.Poll(context.Background())
	p.Poll(context.Background())

	require.Equal(t, []string{"github.com", "new.example"}, f.builtURLs("acct1"))
}

func TestResolveDuringCycleIsNotUndone(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	f := newFactory()
	f.set("acct1", &fakeForge{list: func() ([]model.Notification, error) {
		calls++
		if calls == 2 {
			entered <- struct{}{}
			<-release
		}
		return []model.Notification{note("acct1", "1", t1), note("acct1", "2", t2)}, nil
	}})

	p := New(accounts, f.build, &fakeNotifier{})
	p.Poll(context.Background())

	done := make(chan bool)
	go func() { done <- p.Poll(context.Background()) }()
	<-entered

	ok, err := p.Resolve(context.Background(), "acct1-1")
	require.NoError(t, err)
	require.True(t, ok)

	close(release)
	require.True(t, <-done)
	require.Equal(t, []string{"acct1-2"}, ids(p.List().Items()))

	p.Poll(context.Background())
	require.Len(t, p.List().Items(), 2, "later cycles trust the forge again")
}

func TestCycleAnnouncesPolling(t *testing.T) {
	accounts := newFakeAccounts("acct1")
	p := New(accounts, newFactory().build, &fakeNotifier{})
	p.Poll(context.Background())

	first := p.WaitForNextResult()().(CycleResultMsg)
	require.Equal(t, Polling, first.State)
	second := p.WaitForNextResult()().(CycleResultMsg)
	require.Equal(t, Idle, second.State)
}

func TestRemovedAccountDropsItems(t *testing.T) {
	accounts := newFakeAccounts("acct1", "acct2")
	f := newFactory()
	f.set("acct1", &fakeForge{list: returns(note("acct1", "1", t1))})
	f.set("acct2", &fakeForge{list: returns(note("acct2", "2", t2))})

	p := New(accounts, f.build, &fakeNotifier{})
	p.Poll(context.Background())
	require.Equal(t, 2, p.List().Len())

	accounts.remove("acct1")
	require.Equal(t, []string{"acct2-2"}, ids(p.List().Items()))

	_, err := p.Resolve(context.Background(), "acct1-1")
	require.ErrorIs(t, err, ErrUnknownNotification)
}

func TestNoAccountsMeansAwaiting(t *testing.T) {
	p := New(newFakeAccounts(), newFactory().build, &fakeNotifier{})
	require.True(t, p.Poll(context.Background()))
	require.Equal(t, AwaitingAccounts, p.State())

	msg := p.WaitForNextResult()()
	require.Equal(t, CycleResultMsg{State: AwaitingAccounts}, msg)
}
