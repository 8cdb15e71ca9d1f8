package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/model"
)

const (
	apiPrefix = "/api/v4/"

	statePending = "pending"
)

// Adapter implements forge.Forge for GitLab using the to-do list API.
type Adapter struct {
	cfg    forge.Config
	client *forge.Client
	host   string
}

// New creates a GitLab adapter. GitLab expects a Bearer authorization
// header rather than GitHub's "token" scheme.
func New(cfg forge.Config) *Adapter {
	host := cfg.APIBase
	if host == "" {
		host = cfg.URL
	}
	if host == "" {
		host = forge.KindGitLab.Info().DefaultURL
	}
	return &Adapter{
		cfg:    cfg,
		client: forge.NewClient(forge.KindGitLab, cfg.Token, "Bearer", cfg.HTTPClient),
		host:   host,
	}
}

// Kind implements forge.Forge.
func (a *Adapter) Kind() forge.Kind {
	return forge.KindGitLab
}

func (a *Adapter) uri(path string) string {
	return forge.BuildURI(a.host, apiPrefix+strings.TrimLeft(path, "/"), nil)
}

// Authenticate implements forge.Forge.
func (a *Adapter) Authenticate(ctx context.Context) (forge.User, error) {
	endpoint := a.uri("user")
	resp, err := a.client.Do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return forge.User{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return forge.User{}, forge.StatusError(forge.KindGitLab, resp.StatusCode, http.MethodGet, endpoint)
	}

	var payload userPayload
	if err := resp.Decode(forge.KindGitLab, &payload); err != nil {
		return forge.User{}, err
	}
	if payload.ID == nil || payload.Username == nil || *payload.Username == "" {
		return forge.User{}, forge.NewError(
			forge.ErrUnexpected, forge.KindGitLab, resp.StatusCode,
			"user payload is missing id or username",
		)
	}

	return forge.User{ID: *payload.ID, Username: *payload.Username}, nil
}

// ListNotifications implements forge.Forge. To-do items are complete, so
// they map directly without enrichment.
func (a *Adapter) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	endpoint := a.uri("todos")
	resp, err := a.client.Do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, forge.StatusError(forge.KindGitLab, resp.StatusCode, http.MethodGet, endpoint)
	}

	var todos []todo
	if err := resp.Decode(forge.KindGitLab, &todos); err != nil {
		return nil, err
	}

	out := make([]model.Notification, 0, len(todos))
	for _, t := range todos {
		out = append(out, a.toNotification(t))
	}
	return out, nil
}

func (a *Adapter) toNotification(t todo) model.Notification {
	nativeID := strconv.FormatInt(t.ID, 10)

	var repo string
	if t.Project != nil {
		repo = t.Project.PathWithNamespace
	}

	return model.Notification{
		ID:          forge.FormatID(a.cfg.AccountID, nativeID),
		AccountID:   a.cfg.AccountID,
		NativeID:    nativeID,
		Type:        normalizeType(t.TargetType),
		Unread:      t.State == statePending,
		UpdatedAt:   t.UpdatedAt,
		State:       t.Target.State,
		Title:       t.Target.Title,
		Repository:  repo,
		URL:         t.TargetURL,
		AccountName: a.cfg.AccountName,
	}
}

func normalizeType(raw string) model.SubjectType {
	if raw == "MergeRequest" {
		return model.SubjectPullRequest
	}
	return model.SubjectType(raw)
}

// MarkAsRead implements forge.Forge. GitLab confirms with 200.
func (a *Adapter) MarkAsRead(ctx context.Context, nativeID string) (bool, error) {
	if strings.TrimSpace(nativeID) == "" {
		return false, fmt.Errorf("mark as done: empty todo id")
	}
	endpoint := a.uri("todos/" + url.PathEscape(nativeID) + "/mark_as_done")
	resp, err := a.client.Do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

// MarkAllAsRead implements forge.Forge. GitLab confirms with 204.
func (a *Adapter) MarkAllAsRead(ctx context.Context) (bool, error) {
	endpoint := a.uri("todos/mark_as_done")
	resp, err := a.client.Do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusNoContent, nil
}
