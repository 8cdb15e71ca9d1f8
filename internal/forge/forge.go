package forge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/forge-sparks/internal/model"
)

// Kind identifies a forge variant. The set of kinds is closed; adding a
// forge means adding a constant here, an Info entry and an adapter.
type Kind string

const (
	KindGitHub  Kind = "github"
	KindGitLab  Kind = "gitlab"
	KindGitea   Kind = "gitea"
	KindForgejo Kind = "forgejo"
)

// Kinds lists every supported forge in display order.
var Kinds = []Kind{KindGitHub, KindGitLab, KindGitea, KindForgejo}

// ParseKind converts a stored or user-supplied name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown forge %q", s)
}

// Info is the static metadata of a forge variant.
type Info struct {
	Kind Kind

	// PrettyName is the human readable forge name.
	PrettyName string

	// DefaultURL is the host used when an account does not name one.
	DefaultURL string

	// AllowInstances reports whether self-hosted instances are supported.
	AllowInstances bool

	// Scopes are the token scopes an account needs.
	Scopes []string

	// TokenPage is the path, relative to the instance, where a user can
	// create an access token.
	TokenPage string
}

var infos = map[Kind]Info{
	KindGitHub: {
		Kind:       KindGitHub,
		PrettyName: "GitHub",
		DefaultURL: "github.com",
		Scopes:     []string{"notifications", "read:user"},
		TokenPage:  "/settings/tokens/new?scopes=notifications,read:user&description=Forge+Sparks",
	},
	KindGitLab: {
		Kind:           KindGitLab,
		PrettyName:     "GitLab",
		DefaultURL:     "gitlab.com",
		AllowInstances: true,
		Scopes:         []string{"read_api"},
		TokenPage:      "/-/user_settings/personal_access_tokens?name=Forge+Sparks&scopes=read_api,api",
	},
	KindGitea: {
		Kind:           KindGitea,
		PrettyName:     "Gitea",
		DefaultURL:     "codeberg.org",
		AllowInstances: true,
		Scopes:         []string{"read:notification", "write:notification", "read:user"},
		TokenPage:      "/user/settings/applications",
	},
	KindForgejo: {
		Kind:           KindForgejo,
		PrettyName:     "Forgejo",
		DefaultURL:     "codeberg.org",
		AllowInstances: true,
		Scopes:         []string{"read:notification", "write:notification", "read:user"},
		TokenPage:      "/user/settings/applications",
	},
}

// Info returns the static metadata for k. Unknown kinds yield a zero Info.
func (k Kind) Info() Info {
	return infos[k]
}

// String returns the pretty name when known.
func (k Kind) String() string {
	if info, ok := infos[k]; ok {
		return info.PrettyName
	}
	return string(k)
}

// User is the identity behind an access token.
type User struct {
	ID       int64
	Username string
}

// Config carries everything needed to construct an adapter for one
// account.
type Config struct {
	// AccountID prefixes every notification id the adapter produces.
	AccountID string

	// AccountName is attached to notifications for display.
	AccountName string

	// URL is the forge host as configured on the account, without scheme.
	URL string

	// Token is the access token used for every request.
	Token string

	// UserID is the cached numeric user id, zero when unknown.
	UserID int64

	// APIBase overrides the computed API host. Used by tests to point an
	// adapter at an httptest server.
	APIBase string

	HTTPClient *http.Client
	Logger     *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Clock returns the configured time source.
func (c Config) Clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

// Log returns the configured logger or a no-op logger.
func (c Config) Log() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// Forge is the contract every forge adapter implements.
type Forge interface {
	// Kind returns the forge variant.
	Kind() Kind

	// Authenticate validates the token and returns the user behind it.
	// It fails with ErrFailedForgeAuth when the token is rejected and
	// with ErrFailedTokenScopes when the token lacks a required scope.
	Authenticate(ctx context.Context) (User, error)

	// ListNotifications returns the current notifications of the
	// account, mapped into the unified model.
	ListNotifications(ctx context.Context) ([]model.Notification, error)

	// MarkAsRead marks a single notification, identified by its native
	// id, as read. It reports whether the forge confirmed the change.
	MarkAsRead(ctx context.Context, nativeID string) (bool, error)

	// MarkAllAsRead marks every notification of the account as read.
	MarkAllAsRead(ctx context.Context) (bool, error)
}
