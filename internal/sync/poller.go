package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nhle/forge-sparks/internal/account"
	"github.com/nhle/forge-sparks/internal/desktop"
	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/metrics"
	"github.com/nhle/forge-sparks/internal/model"
)

// DefaultInterval is the delay between two polling cycles.
const DefaultInterval = 60 * time.Second

// ErrUnknownNotification is returned by Resolve when the id does not
// belong to any account with a live client.
var ErrUnknownNotification = errors.New("unknown notification")

// State is the state of the polling loop.
type State int

const (
	// AwaitingAccounts means no account is configured; the loop sleeps
	// until the account set changes.
	AwaitingAccounts State = iota
	// Polling means a cycle is in flight.
	Polling
	// Idle means the loop waits for the next tick.
	Idle
)

func (s State) String() string {
	switch s {
	case AwaitingAccounts:
		return "awaiting accounts"
	case Polling:
		return "polling"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// Accounts is the account registry as seen by the poller.
type Accounts interface {
	List() []model.Account
	Token(ctx context.Context, id string) (string, error)
	SetAuthFailed(id string, failed bool)
	SetUserID(ctx context.Context, id string, userID int64) error
	Subscribe(fn func(account.Event)) func()
}

// Factory builds a forge client for an account.
type Factory func(ctx context.Context, acct model.Account, token string) (forge.Forge, error)

// Presence reports whether the user is looking at the notification list.
type Presence interface {
	// Visible reports whether the list is shown at all.
	Visible() bool
	// Focused reports whether the list has the user's focus.
	Focused() bool
}

type absent struct{}

func (absent) Visible() bool { return false }
func (absent) Focused() bool { return false }

// AccountStatus is the outcome of the last poll of one account.
type AccountStatus struct {
	AccountID  string
	Name       string
	LastSync   time.Time
	Error      error
	AuthFailed bool
}

// CycleResultMsg is a tea.Msg sent when a polling cycle completes.
type CycleResultMsg struct {
	State    State
	Count    int
	Statuses []AccountStatus
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the delay between cycles.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

// WithPresence sets the presence source used to suppress desktop
// notifications while the list is focused.
func WithPresence(presence Presence) Option {
	return func(p *Poller) {
		if presence != nil {
			p.presence = presence
		}
	}
}

// WithList sets the notification list the poller maintains.
func WithList(list *model.NotificationList) Option {
	return func(p *Poller) {
		if list != nil {
			p.list = list
		}
	}
}

// Poller is the polling and reconciliation engine. One cycle runs at a
// time: accounts are polled in registry order, their notifications
// replace the list wholesale, and desktop notifications fire for items
// that are new or changed since they were last notified.
type Poller struct {
	accounts Accounts
	factory  Factory
	notifier desktop.Notifier
	presence Presence
	list     *model.NotificationList
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu            gosync.Mutex
	state         State
	inFlight      bool
	reloadPending bool
	forges        map[string]forge.Forge
	statuses      map[string]*AccountStatus

	// generations counts account updates and removals. A client built
	// while the count changed was built from stale settings and is not
	// cached.
	generations map[string]uint64

	// replaceMu orders list replacement against resolutions. resolved
	// holds the ids confirmed read while a cycle is in flight; that
	// cycle's fetch predates them.
	replaceMu gosync.Mutex
	resolved  map[string]bool

	// notified maps composite ids to the updatedAt they were last
	// notified with. Only the cycle writes to it.
	notified map[string]string

	wakeCh      chan struct{}
	resultCh    chan CycleResultMsg
	unsubscribe func()
}

// New creates a Poller and subscribes it to account changes.
func New(
	accounts Accounts,
	factory Factory,
	notifier desktop.Notifier,
	opts ...Option,
) *Poller {
	p := &Poller{
		accounts: accounts,
		factory:  factory,
		notifier: notifier,
		presence: absent{},
		list:     model.NewNotificationList(),
		interval: DefaultInterval,
		log:      zap.NewNop(),
		now:      time.Now,
		state:    AwaitingAccounts,
		forges:   make(map[string]forge.Forge),
		statuses: make(map[string]*AccountStatus),
		notified: make(map[string]string),

		generations: make(map[string]uint64),
		wakeCh:   make(chan struct{}, 1),
		resultCh: make(chan CycleResultMsg, 16),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.unsubscribe = accounts.Subscribe(p.onAccountEvent)
	return p
}

// List returns the notification list the poller maintains.
func (p *Poller) List() *model.NotificationList {
	return p.list
}

// State returns the current loop state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Statuses returns the per-account outcome of the last cycle in registry
// order.
func (p *Poller) Statuses() []AccountStatus {
	accounts := p.accounts.List()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]AccountStatus, 0, len(accounts))
	for _, acct := range accounts {
		status := AccountStatus{AccountID: acct.ID, Name: acct.DisplayName()}
		if s, ok := p.statuses[acct.ID]; ok {
			status = *s
			status.Name = acct.DisplayName()
		}
		status.AuthFailed = acct.AuthFailed
		out = append(out, status)
	}
	return out
}

// Close detaches the poller from the account registry.
func (p *Poller) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// Run polls until ctx is cancelled. It polls immediately, then after every
// interval, immediately again when a reload was requested during a cycle,
// and sleeps without a timer while no account is configured.
func (p *Poller) Run(ctx context.Context) error {
	for {
		p.Poll(ctx)
		if p.takeReload() {
			continue
		}

		var timer *time.Timer
		var tick <-chan time.Time
		if p.State() != AwaitingAccounts {
			timer = time.NewTimer(p.interval)
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-tick:
		case <-p.wakeCh:
			if timer != nil {
				timer.Stop()
			}
		}
	}
}

// Reload requests an immediate cycle. A request made while a cycle is in
// flight is coalesced into a single follow-up cycle.
func (p *Poller) Reload() {
	p.mu.Lock()
	if p.inFlight {
		p.reloadPending = true
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.wake()
}

func (p *Poller) wake() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

func (p *Poller) takeReload() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pending := p.reloadPending
	p.reloadPending = false
	return pending
}

// Poll runs one cycle. It returns false without doing anything when a
// cycle is already in flight; the call then counts as a reload request.
func (p *Poller) Poll(ctx context.Context) bool {
	p.mu.Lock()
	if p.inFlight {
		p.reloadPending = true
		p.mu.Unlock()
		return false
	}

	accounts := p.accounts.List()
	if len(accounts) == 0 {
		p.state = AwaitingAccounts
		p.mu.Unlock()
		p.sendResult(CycleResultMsg{State: AwaitingAccounts})
		return true
	}

	p.inFlight = true
	p.state = Polling
	p.mu.Unlock()

	p.replaceMu.Lock()
	p.resolved = make(map[string]bool)
	p.replaceMu.Unlock()

	p.sendResult(CycleResultMsg{State: Polling, Statuses: p.Statuses()})

	start := p.now()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		if p.state == Polling {
			p.state = Idle
		}
		p.mu.Unlock()
		metrics.PollDuration.Observe(p.now().Sub(start).Seconds())
	}()

	var collected []model.Notification
	for _, acct := range accounts {
		items, err := p.pollAccount(ctx, acct)
		if err != nil {
			p.handleAccountError(ctx, acct, err)
			continue
		}

		collected = append(collected, items...)
		p.setStatus(acct.ID, nil)
		if acct.AuthFailed {
			p.accounts.SetAuthFailed(acct.ID, false)
			p.notifier.Withdraw(authFailedID(acct.ID))
		}
	}

	collected = p.dropRemoved(collected)
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Timestamp() > collected[j].Timestamp()
	})

	p.replaceMu.Lock()
	kept := collected[:0]
	for _, n := range collected {
		if !p.resolved[n.ID] {
			kept = append(kept, n)
		}
	}
	collected = kept
	p.resolved = nil
	p.list.Replace(collected)
	p.replaceMu.Unlock()

	p.notifyChanged(ctx, len(accounts) > 1)

	metrics.PollCycles.Inc()
	metrics.Notifications.Set(float64(p.list.Len()))
	p.log.Debug("poll cycle finished",
		zap.Int("accounts", len(accounts)),
		zap.Int("notifications", len(collected)),
		zap.Duration("took", p.now().Sub(start)),
	)

	p.sendResult(CycleResultMsg{
		State:    Idle,
		Count:    len(collected),
		Statuses: p.Statuses(),
	})
	return true
}

// pollAccount lists the notifications of one account, constructing and
// caching its client first when needed.
func (p *Poller) pollAccount(ctx context.Context, acct model.Account) ([]model.Notification, error) {
	f, err := p.client(ctx, acct)
	if err != nil {
		return nil, err
	}
	return f.ListNotifications(ctx)
}

func (p *Poller) client(ctx context.Context, acct model.Account) (forge.Forge, error) {
	p.mu.Lock()
	f, ok := p.forges[acct.ID]
	generation := p.generations[acct.ID]
	p.mu.Unlock()
	if ok {
		return f, nil
	}

	token, err := p.accounts.Token(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up token: %w", err)
	}

	f, err = p.factory(ctx, acct, token)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	if acct.UserID == 0 {
		user, err := f.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		if err := p.accounts.SetUserID(ctx, acct.ID, user.ID); err != nil {
			p.log.Warn("caching user id", zap.String("account", acct.ID), zap.Error(err))
		}
		acct.UserID = user.ID
		f, err = p.factory(ctx, acct, token)
		if err != nil {
			return nil, fmt.Errorf("creating client: %w", err)
		}
	}

	p.mu.Lock()
	if p.generations[acct.ID] == generation {
		p.forges[acct.ID] = f
	} else {
		p.log.Debug("account changed while building its client", zap.String("account", acct.ID))
	}
	p.mu.Unlock()
	return f, nil
}

func (p *Poller) evict(accountID string) {
	p.mu.Lock()
	delete(p.forges, accountID)
	p.mu.Unlock()
}

func (p *Poller) handleAccountError(ctx context.Context, acct model.Account, err error) {
	p.setStatus(acct.ID, err)
	metrics.AccountErrors.WithLabelValues(acct.Forge, errorKind(err)).Inc()

	log := p.log.With(
		zap.String("account", acct.ID),
		zap.String("name", acct.DisplayName()),
		zap.Error(err),
	)

	if !forge.IsAuthError(err) {
		log.Warn("polling account failed")
		return
	}

	p.evict(acct.ID)
	p.accounts.SetAuthFailed(acct.ID, true)
	if acct.AuthFailed {
		log.Debug("account still failing authentication")
		return
	}

	log.Warn("account authentication failed")
	note := desktop.Notification{
		ID:    authFailedID(acct.ID),
		Title: "Authentication failed",
		Body:  fmt.Sprintf("The access token for %s was rejected. Update the account to resume notifications.", acct.DisplayName()),
		Icon:  "dialog-error-symbolic",
		Default: desktop.Action{
			Name: desktop.ActionActivate,
		},
	}
	if err := p.notifier.Send(ctx, note); err != nil {
		metrics.DesktopNotifications.WithLabelValues("failed").Inc()
		log.Warn("sending auth failure notification", zap.NamedError("send_error", err))
		return
	}
	metrics.DesktopNotifications.WithLabelValues("sent").Inc()
}

func errorKind(err error) string {
	var fe *forge.Error
	switch {
	case forge.IsAuthError(err):
		return "auth"
	case forge.IsScopesError(err):
		return "scopes"
	case errors.As(err, &fe):
		return "unexpected"
	default:
		return "transport"
	}
}

func (p *Poller) setStatus(accountID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[accountID]
	if !ok {
		status = &AccountStatus{AccountID: accountID}
		p.statuses[accountID] = status
	}
	status.Error = err
	if err == nil {
		status.LastSync = p.now()
	}
}

// dropRemoved filters out notifications of accounts removed while the
// cycle was running, and forgets their clients.
func (p *Poller) dropRemoved(items []model.Notification) []model.Notification {
	current := make(map[string]bool)
	for _, acct := range p.accounts.List() {
		current[acct.ID] = true
	}

	p.mu.Lock()
	for id := range p.forges {
		if !current[id] {
			delete(p.forges, id)
		}
	}
	p.mu.Unlock()

	kept := items[:0]
	for _, n := range items {
		if current[n.AccountID] {
			kept = append(kept, n)
		}
	}
	return kept
}

// notifyChanged fires a desktop notification for every unread item whose
// updatedAt differs from the one it was last notified with, unless the
// list currently has the user's focus.
func (p *Poller) notifyChanged(ctx context.Context, multipleAccounts bool) {
	if p.presence.Focused() {
		return
	}
	visible := p.presence.Visible()

	for _, n := range p.list.Items() {
		if !n.Unread || p.notified[n.ID] == n.UpdatedAt {
			continue
		}
		if err := p.notifier.Send(ctx, desktopNotification(n, multipleAccounts, visible)); err != nil {
			metrics.DesktopNotifications.WithLabelValues("failed").Inc()
			p.log.Warn("sending notification", zap.String("id", n.ID), zap.Error(err))
			continue
		}
		metrics.DesktopNotifications.WithLabelValues("sent").Inc()
		p.notified[n.ID] = n.UpdatedAt
	}
}

func desktopNotification(n model.Notification, multipleAccounts, visible bool) desktop.Notification {
	body := n.Repository
	if multipleAccounts && n.AccountName != "" {
		body = n.AccountName + ": " + n.Repository
	}

	buttons := []desktop.Button{{
		Label: "Mark as Read",
		Action: desktop.Action{
			Name:   desktop.ActionMarkRead,
			Target: []string{n.ID},
		},
	}}
	if !visible {
		buttons = append(buttons, desktop.Button{
			Label:  "Show Forge Sparks",
			Action: desktop.Action{Name: desktop.ActionActivate},
		})
	}

	return desktop.Notification{
		ID:    n.ID,
		Title: n.Title,
		Body:  body,
		Icon:  n.IconName(),
		Default: desktop.Action{
			Name:   desktop.ActionOpen,
			Target: []string{n.ID, n.URL},
		},
		Buttons: buttons,
	}
}

func authFailedID(accountID string) string {
	return "auth-failed-" + accountID
}

// Resolve marks a single notification as read on its forge. The item is
// removed from the list only when the forge confirms; otherwise it stays
// so the next cycle can show it again.
func (p *Poller) Resolve(ctx context.Context, id string) (bool, error) {
	p.notifier.Withdraw(id)

	p.mu.Lock()
	ids := make([]string, 0, len(p.forges))
	for accountID := range p.forges {
		ids = append(ids, accountID)
	}
	accountID, nativeID, ok := forge.SplitID(id, ids)
	var f forge.Forge
	if ok {
		f = p.forges[accountID]
	}
	p.mu.Unlock()

	if !ok {
		metrics.Resolutions.WithLabelValues("error").Inc()
		return false, fmt.Errorf("resolving %s: %w", id, ErrUnknownNotification)
	}

	done, err := f.MarkAsRead(ctx, nativeID)
	if err != nil {
		metrics.Resolutions.WithLabelValues("error").Inc()
		return false, fmt.Errorf("resolving %s: %w", id, err)
	}
	if !done {
		metrics.Resolutions.WithLabelValues("rejected").Inc()
		p.log.Info("forge did not confirm mark as read", zap.String("id", id))
		return false, nil
	}

	metrics.Resolutions.WithLabelValues("confirmed").Inc()
	p.replaceMu.Lock()
	if p.resolved != nil {
		p.resolved[id] = true
	}
	p.list.RemoveByID(id)
	p.replaceMu.Unlock()
	metrics.Notifications.Set(float64(p.list.Len()))
	return true, nil
}

// ResolveAll marks everything read on every account with a live client
// and clears the list. The list is cleared even when some accounts fail;
// their failures are returned combined.
func (p *Poller) ResolveAll(ctx context.Context) error {
	p.mu.Lock()
	forges := make(map[string]forge.Forge, len(p.forges))
	for id, f := range p.forges {
		forges[id] = f
	}
	p.mu.Unlock()

	var errs error
	for accountID, f := range forges {
		done, err := f.MarkAllAsRead(ctx)
		switch {
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("account %s: %w", accountID, err))
		case !done:
			errs = multierr.Append(errs, fmt.Errorf("account %s: mark all as read was not confirmed", accountID))
		}
	}

	p.replaceMu.Lock()
	items := p.list.Items()
	for _, n := range items {
		if p.resolved != nil {
			p.resolved[n.ID] = true
		}
	}
	p.list.Clear()
	p.replaceMu.Unlock()

	for _, n := range items {
		p.notifier.Withdraw(n.ID)
	}
	metrics.Notifications.Set(0)

	if errs != nil {
		p.log.Warn("mark all as read failed for some accounts", zap.Error(errs))
	}
	return errs
}

// onAccountEvent keeps caches in line with the account set and requests a
// cycle when an account was added or changed.
func (p *Poller) onAccountEvent(ev account.Event) {
	switch ev.Kind {
	case account.Removed:
		p.mu.Lock()
		p.generations[ev.AccountID]++
		delete(p.forges, ev.AccountID)
		delete(p.statuses, ev.AccountID)
		p.mu.Unlock()

		p.list.RemoveWhere(func(n model.Notification) bool {
			return n.AccountID == ev.AccountID
		})
		p.notifier.Withdraw(authFailedID(ev.AccountID))

	case account.Updated:
		p.mu.Lock()
		p.generations[ev.AccountID]++
		delete(p.forges, ev.AccountID)
		p.mu.Unlock()
		p.notifier.Withdraw(authFailedID(ev.AccountID))
	}

	p.log.Debug("accounts changed",
		zap.Stringer("event", ev.Kind),
		zap.String("account", ev.AccountID),
	)

	if ev.Kind != account.Removed {
		p.Reload()
	}
}

// sendResult sends a CycleResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg CycleResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next cycle
// result. Call it again after handling a CycleResultMsg to keep
// listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
