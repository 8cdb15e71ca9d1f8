package forge

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds a forge operation can fail with. Use errors.Is against
// these sentinels to branch on the kind of a returned *Error.
var (
	ErrFailedForgeAuth   = errors.New("forge rejected the access token")
	ErrFailedTokenScopes = errors.New("access token lacks required scopes")
	ErrUnexpected        = errors.New("unexpected forge response")
)

// Error is returned by adapters for every failure that is not a transport
// error. Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Forge   Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf(
			"%s (%s, status %d): %s",
			e.Kind, e.Forge, e.Status, e.Message,
		)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Forge, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// IsAuthError reports whether err (or any error in its chain) is an
// authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrFailedForgeAuth)
}

// IsScopesError reports whether err signals missing token scopes.
func IsScopesError(err error) bool {
	return errors.Is(err, ErrFailedTokenScopes)
}

// NewError builds an *Error of the given kind.
func NewError(kind error, forge Kind, status int, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Forge:   forge,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusError maps an HTTP status that is not the expected success status
// into an *Error. 401 is an authentication failure, 403 a scopes failure
// and everything else is unexpected.
func StatusError(forge Kind, status int, method, url string) *Error {
	switch status {
	case http.StatusUnauthorized:
		return NewError(ErrFailedForgeAuth, forge, status, "%s %s", method, url)
	case http.StatusForbidden:
		return NewError(ErrFailedTokenScopes, forge, status, "%s %s", method, url)
	default:
		return NewError(ErrUnexpected, forge, status, "%s %s", method, url)
	}
}
