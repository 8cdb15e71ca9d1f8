package model

import "time"

// Account is a configured forge account. The access token is never part
// of the account row; it lives in the secret store keyed by ID.
type Account struct {
	ID string `db:"id" json:"id"`

	// Forge is the forge kind name (github, gitlab, gitea, forgejo).
	Forge string `db:"forge" json:"forge"`

	// URL is the forge host without scheme.
	URL string `db:"url" json:"url"`

	Username string `db:"username" json:"username"`

	// UserID is the numeric user id on the forge, zero until known.
	UserID int64 `db:"user_id" json:"user_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// AuthFailed is set while the forge keeps rejecting the token. It is
	// runtime state and is not persisted.
	AuthFailed bool `db:"-" json:"auth_failed"`
}

// DisplayName renders the account as "username@url".
func (a Account) DisplayName() string {
	return a.Username + "@" + a.URL
}
