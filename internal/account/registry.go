package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/model"
	"github.com/nhle/forge-sparks/internal/store"
)

// ErrUnknownAccount is returned for operations on an id that is not
// registered.
var ErrUnknownAccount = errors.New("unknown account")

// EventKind tells what happened to the account set.
type EventKind int

const (
	Added EventKind = iota
	Updated
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers whenever the account set changes.
type Event struct {
	Kind      EventKind
	AccountID string
}

// Secrets is the token store used by the registry.
type Secrets interface {
	Store(ctx context.Context, accountID, token string) error
	Lookup(ctx context.Context, accountID string) (string, error)
	Clear(ctx context.Context, accountID string) error
}

// Authenticator validates a token against a forge before an account is
// saved. The account passed in carries the forge kind and URL; its ID is
// empty for new accounts.
type Authenticator func(ctx context.Context, acct model.Account, token string) (forge.User, error)

// Registry owns the configured accounts. It keeps an in-memory copy in
// the order accounts were added, persists rows through a store.Store and
// tokens through Secrets.
type Registry struct {
	store   store.Store
	secrets Secrets
	auth    Authenticator
	log     *zap.Logger

	mu       sync.RWMutex
	accounts []model.Account
	subs     map[int]func(Event)
	nextSub  int
}

// NewRegistry loads the persisted accounts.
func NewRegistry(
	ctx context.Context,
	st store.Store,
	secrets Secrets,
	auth Authenticator,
	log *zap.Logger,
) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}

	accounts, err := st.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}

	return &Registry{
		store:    st,
		secrets:  secrets,
		auth:     auth,
		log:      log,
		accounts: accounts,
		subs:     make(map[int]func(Event)),
	}, nil
}

// List returns a snapshot of the accounts in registry order.
func (r *Registry) List() []model.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Account(nil), r.accounts...)
}

// Len returns the number of accounts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// Multiple reports whether more than one account is configured.
func (r *Registry) Multiple() bool {
	return r.Len() > 1
}

// Get returns the account with the given id.
func (r *Registry) Get(id string) (model.Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.accounts[i], true
	}
	return model.Account{}, false
}

// Token fetches the access token of an account from the secret store.
func (r *Registry) Token(ctx context.Context, id string) (string, error) {
	return r.secrets.Lookup(ctx, id)
}

// SetAuthFailed flags or clears the authentication failure of an account.
func (r *Registry) SetAuthFailed(id string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		r.accounts[i].AuthFailed = failed
	}
}

// SetUserID persists a backfilled forge user id.
func (r *Registry) SetUserID(ctx context.Context, id string, userID int64) error {
	if err := r.store.SetAccountUserID(ctx, id, userID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		r.accounts[i].UserID = userID
	}
	return nil
}

// Subscribe registers fn for account set changes. The returned function
// removes the subscription.
func (r *Registry) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Add authenticates the token and saves a new account. The URL defaults
// to the forge's default host and is ignored for forges without
// self-hosted instances.
func (r *Registry) Add(
	ctx context.Context,
	kind forge.Kind,
	url string,
	token string,
) (model.Account, error) {
	info := kind.Info()
	if info.Kind == "" {
		return model.Account{}, fmt.Errorf("adding account: unsupported forge %q", kind)
	}
	if strings.TrimSpace(token) == "" {
		return model.Account{}, fmt.Errorf("adding account: empty token")
	}

	acct := model.Account{
		Forge: string(kind),
		URL:   normalizeURL(info, url),
	}

	user, err := r.auth(ctx, acct, token)
	if err != nil {
		return model.Account{}, fmt.Errorf("authenticating %s: %w", acct.URL, err)
	}
	acct.ID = uuid.New().String()
	acct.Username = user.Username
	acct.UserID = user.ID

	if err := r.secrets.Store(ctx, acct.ID, token); err != nil {
		return model.Account{}, err
	}
	if _, err := r.store.UpsertAccount(ctx, acct); err != nil {
		if clearErr := r.secrets.Clear(ctx, acct.ID); clearErr != nil {
			r.log.Warn("dropping orphaned token", zap.String("account", acct.ID), zap.Error(clearErr))
		}
		return model.Account{}, err
	}

	saved, err := r.store.GetAccount(ctx, acct.ID)
	if err != nil {
		return model.Account{}, err
	}

	r.mu.Lock()
	r.accounts = append(r.accounts, *saved)
	r.mu.Unlock()

	r.log.Info("account added",
		zap.String("account", saved.ID),
		zap.String("forge", saved.Forge),
		zap.String("name", saved.DisplayName()),
	)
	r.emit(Event{Kind: Added, AccountID: saved.ID})
	return *saved, nil
}

// Update changes the URL and/or token of an account. An empty token keeps
// the stored one. The token is re-authenticated before anything is saved.
func (r *Registry) Update(
	ctx context.Context,
	id string,
	url string,
	token string,
) (model.Account, error) {
	current, ok := r.Get(id)
	if !ok {
		return model.Account{}, fmt.Errorf("updating %s: %w", id, ErrUnknownAccount)
	}

	kind, err := forge.ParseKind(current.Forge)
	if err != nil {
		return model.Account{}, err
	}

	if token == "" {
		token, err = r.secrets.Lookup(ctx, id)
		if err != nil {
			return model.Account{}, err
		}
	}

	next := current
	next.URL = normalizeURL(kind.Info(), url)

	user, err := r.auth(ctx, next, token)
	if err != nil {
		return model.Account{}, fmt.Errorf("authenticating %s: %w", next.URL, err)
	}
	next.Username = user.Username
	next.UserID = user.ID
	next.AuthFailed = false

	if err := r.secrets.Store(ctx, id, token); err != nil {
		return model.Account{}, err
	}
	if _, err := r.store.UpsertAccount(ctx, next); err != nil {
		return model.Account{}, err
	}

	r.mu.Lock()
	if i := r.indexOf(id); i >= 0 {
		r.accounts[i] = next
	}
	r.mu.Unlock()

	r.log.Info("account updated", zap.String("account", id))
	r.emit(Event{Kind: Updated, AccountID: id})
	return next, nil
}

// Remove deletes an account and its token.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if _, ok := r.Get(id); !ok {
		return fmt.Errorf("removing %s: %w", id, ErrUnknownAccount)
	}

	if err := r.secrets.Clear(ctx, id); err != nil {
		return err
	}
	if err := r.store.DeleteAccount(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	if i := r.indexOf(id); i >= 0 {
		r.accounts = append(r.accounts[:i], r.accounts[i+1:]...)
	}
	r.mu.Unlock()

	r.log.Info("account removed", zap.String("account", id))
	r.emit(Event{Kind: Removed, AccountID: id})
	return nil
}

func (r *Registry) emit(ev Event) {
	r.mu.RLock()
	subs := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// indexOf must be called with the lock held.
func (r *Registry) indexOf(id string) int {
	for i := range r.accounts {
		if r.accounts[i].ID == id {
			return i
		}
	}
	return -1
}

// normalizeURL strips the scheme and trailing slashes, and applies the
// forge default.
func normalizeURL(info forge.Info, url string) string {
	if !info.AllowInstances {
		return info.DefaultURL
	}
	url = strings.TrimSpace(url)
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimRight(url, "/")
	if url == "" {
		return info.DefaultURL
	}
	return url
}
