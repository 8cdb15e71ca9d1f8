package store

import (
	"context"
	"errors"

	"github.com/nhle/forge-sparks/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for configured accounts.
// Access tokens are not stored here; see the credential package.
type Store interface {
	// UpsertAccount inserts or replaces an account. An account without
	// an ID gets a new UUID, which is returned.
	UpsertAccount(ctx context.Context, acct model.Account) (string, error)

	// GetAccounts returns every account in creation order.
	GetAccounts(ctx context.Context) ([]model.Account, error)

	// GetAccount returns a single account or ErrNotFound.
	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// SetAccountUserID caches the forge user id of an account.
	SetAccountUserID(ctx context.Context, id string, userID int64) error

	// DeleteAccount removes an account. Deleting a missing account is
	// not an error.
	DeleteAccount(ctx context.Context, id string) error

	Close() error
}
