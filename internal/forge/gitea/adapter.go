package gitea

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/forge/github"
	"github.com/nhle/forge-sparks/internal/model"
)

const apiPrefix = "/api/v1/"

// Adapter implements forge.Forge for Gitea and Forgejo. The two share the
// same API; only the reported Kind differs.
type Adapter struct {
	kind   forge.Kind
	cfg    forge.Config
	client *forge.Client
	host   string
	now    func() time.Time
}

// New creates a Gitea adapter.
func New(cfg forge.Config) *Adapter {
	return newAdapter(forge.KindGitea, cfg)
}

// NewForgejo creates a Forgejo adapter.
func NewForgejo(cfg forge.Config) *Adapter {
	return newAdapter(forge.KindForgejo, cfg)
}

func newAdapter(kind forge.Kind, cfg forge.Config) *Adapter {
	host := cfg.APIBase
	if host == "" {
		host = cfg.URL
	}
	if host == "" {
		host = kind.Info().DefaultURL
	}
	return &Adapter{
		kind:   kind,
		cfg:    cfg,
		client: forge.NewClient(kind, cfg.Token, "token", cfg.HTTPClient),
		host:   host,
		now:    cfg.Clock(),
	}
}

// Kind implements forge.Forge.
func (a *Adapter) Kind() forge.Kind {
	return a.kind
}

func (a *Adapter) uri(path string, query url.Values) string {
	return forge.BuildURI(a.host, apiPrefix+strings.TrimLeft(path, "/"), query)
}

// Authenticate implements forge.Forge.
func (a *Adapter) Authenticate(ctx context.Context) (forge.User, error) {
	return github.Identify(ctx, a.client, a.uri("user", nil), a.uri("notifications", nil))
}

// ListNotifications implements forge.Forge. The Gitea payload already
// carries the subject state and web URLs, so no enrichment calls are made.
func (a *Adapter) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	endpoint := a.uri("notifications", nil)
	resp, err := a.client.Do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, forge.StatusError(a.kind, resp.StatusCode, http.MethodGet, endpoint)
	}

	var threads []thread
	if err := resp.Decode(a.kind, &threads); err != nil {
		return nil, err
	}

	out := make([]model.Notification, 0, len(threads))
	for _, t := range threads {
		out = append(out, a.toNotification(t))
	}
	return out, nil
}

func (a *Adapter) toNotification(t thread) model.Notification {
	nativeID := strconv.FormatInt(t.ID, 10)
	subjectType := normalizeType(t.Subject.Type)

	link := t.Subject.LatestCommentHTMLURL
	if link == "" {
		link = t.Subject.HTMLURL
	}
	if link == "" {
		link = t.Repository.HTMLURL
	}

	return model.Notification{
		ID:          forge.FormatID(a.cfg.AccountID, nativeID),
		AccountID:   a.cfg.AccountID,
		NativeID:    nativeID,
		Type:        subjectType,
		Unread:      t.Unread,
		UpdatedAt:   t.UpdatedAt,
		State:       normalizeState(subjectType, t.Subject.State),
		Title:       t.Subject.Title,
		Repository:  t.Repository.FullName,
		URL:         link,
		AccountName: a.cfg.AccountName,
	}
}

// normalizeType maps Gitea subject types onto the shared names.
func normalizeType(raw string) model.SubjectType {
	switch raw {
	case "Pull":
		return model.SubjectPullRequest
	default:
		return model.SubjectType(raw)
	}
}

// normalizeState maps pull request states onto the GitHub convention,
// where "closed" means merged and "denied" means closed without merge.
func normalizeState(subjectType model.SubjectType, raw string) string {
	if subjectType != model.SubjectPullRequest {
		return raw
	}
	switch raw {
	case model.StateMerged:
		return model.StateClosed
	case model.StateClosed:
		return model.StateDenied
	default:
		return raw
	}
}

// MarkAsRead implements forge.Forge. Gitea confirms with 205.
func (a *Adapter) MarkAsRead(ctx context.Context, nativeID string) (bool, error) {
	if strings.TrimSpace(nativeID) == "" {
		return false, fmt.Errorf("mark as read: empty thread id")
	}
	endpoint := a.uri("notifications/threads/"+url.PathEscape(nativeID), nil)
	resp, err := a.client.Do(ctx, http.MethodPatch, endpoint, nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusResetContent, nil
}

// MarkAllAsRead implements forge.Forge.
func (a *Adapter) MarkAllAsRead(ctx context.Context) (bool, error) {
	endpoint := a.uri("notifications", url.Values{
		"last_read_at": {a.now().UTC().Format(time.RFC3339)},
		"all":          {"true"},
	})
	resp, err := a.client.Do(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusResetContent, nil
}
