package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "forge-sparks"

// ErrSecret is wrapped by every failed secret operation.
var ErrSecret = errors.New("secret operation failed")

// ErrNoToken is returned by Lookup when no token is stored for the account.
var ErrNoToken = errors.New("no token stored")

// Config selects the keyring backends.
type Config struct {
	// Backends lists backend names in preference order ("keychain",
	// "secret-service", "wincred", "pass", "file"). Empty means all.
	Backends []string

	// FileDir is where the encrypted file backend keeps its items.
	FileDir string
}

var defaultBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.SecretServiceBackend,
	keyring.WinCredBackend,
	keyring.PassBackend,
	keyring.FileBackend,
}

// Keyring stores account access tokens keyed by account id.
type Keyring struct {
	ring keyring.Keyring
}

// Open returns a Keyring backed by the first available system backend.
func Open(cfg Config) (*Keyring, error) {
	backends := defaultBackends
	if len(cfg.Backends) > 0 {
		backends = make([]keyring.BackendType, 0, len(cfg.Backends))
		for _, b := range cfg.Backends {
			backends = append(backends, keyring.BackendType(b))
		}
	}

	fileDir := cfg.FileDir
	if fileDir == "" {
		fileDir = "~/.local/share/forge-sparks/keyring"
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		AllowedBackends:          backends,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("forge-sparks-file-key"),
		KeychainTrustApplication: true,
		LibSecretCollectionName:  "login",
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w: %w", ErrSecret, err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring, such as keyring.NewArrayKeyring in
// tests.
func New(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// Store saves the token for an account, replacing any previous one.
func (k *Keyring) Store(ctx context.Context, accountID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := k.ring.Set(keyring.Item{
		Key:         accountID,
		Data:        []byte(token),
		Label:       "Forge Sparks token",
		Description: "Access token for account " + accountID,
	})
	if err != nil {
		return fmt.Errorf("storing token for %s: %w: %w", accountID, ErrSecret, err)
	}
	return nil
}

// Lookup returns the token stored for an account.
func (k *Keyring) Lookup(ctx context.Context, accountID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	item, err := k.ring.Get(accountID)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("looking up token for %s: %w", accountID, ErrNoToken)
	}
	if err != nil {
		return "", fmt.Errorf("looking up token for %s: %w: %w", accountID, ErrSecret, err)
	}
	return string(item.Data), nil
}

// Clear removes the token of an account. Clearing a missing token
// succeeds.
func (k *Keyring) Clear(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := k.ring.Remove(accountID)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("clearing token for %s: %w: %w", accountID, ErrSecret, err)
	}
	return nil
}
