package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/model"
)

const (
	apiVersion = "2022-11-28"

	// defaultConcurrency bounds the per-notification enrichment calls
	// issued in parallel for one account.
	defaultConcurrency = 8
)

// Adapter implements forge.Forge for GitHub.
type Adapter struct {
	cfg         forge.Config
	client      *forge.Client
	host        string
	referrer    ReferrerStrategy
	concurrency int
	log         *zap.Logger
	now         func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithReferrerStrategy selects the referrer id encoding.
func WithReferrerStrategy(s ReferrerStrategy) Option {
	return func(a *Adapter) {
		a.referrer = s
	}
}

// WithConcurrency bounds parallel enrichment calls.
func WithConcurrency(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates a GitHub adapter. The API host is "api." + cfg.URL unless
// cfg.APIBase overrides it.
func New(cfg forge.Config, opts ...Option) *Adapter {
	host := cfg.APIBase
	if host == "" {
		instance := cfg.URL
		if instance == "" {
			instance = forge.KindGitHub.Info().DefaultURL
		}
		host = "api." + instance
	}

	client := forge.NewClient(forge.KindGitHub, cfg.Token, "token", cfg.HTTPClient)
	client.SetHeader("Accept", "application/vnd.github+json")
	client.SetHeader("X-GitHub-Api-Version", apiVersion)
	client.SetHeader("Time-Zone", "Etc/UTC")

	a := &Adapter{
		cfg:         cfg,
		client:      client,
		host:        host,
		referrer:    ReferrerThread,
		concurrency: defaultConcurrency,
		log:         cfg.Log().With(zap.String("forge", string(forge.KindGitHub))),
		now:         cfg.Clock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind implements forge.Forge.
func (a *Adapter) Kind() forge.Kind {
	return forge.KindGitHub
}

func (a *Adapter) uri(path string, query url.Values) string {
	return forge.BuildURI(a.host, path, query)
}

// Authenticate implements forge.Forge.
func (a *Adapter) Authenticate(ctx context.Context) (forge.User, error) {
	return Identify(ctx, a.client, a.uri("user", nil), a.uri("notifications", nil))
}

// ListNotifications fetches the notification threads and enriches each one
// with the subject state and a browsable URL. Enrichment calls run in
// parallel; the returned order follows the forge's order.
func (a *Adapter) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	endpoint := a.uri("notifications", nil)
	resp, err := a.client.Do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, forge.StatusError(forge.KindGitHub, resp.StatusCode, http.MethodGet, endpoint)
	}

	var threads []thread
	if err := resp.Decode(forge.KindGitHub, &threads); err != nil {
		return nil, err
	}

	out := make([]model.Notification, len(threads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, t := range threads {
		g.Go(func() error {
			info, err := a.resolveSubject(gctx, t)
			if err != nil {
				return err
			}
			out[i] = a.toNotification(t, info)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

type subjectInfo struct {
	State string
	URL   string
}

// fallbackURL returns the page for subjects GitHub does not expose through
// a fetchable API URL. ok is false when the subject must be fetched.
func fallbackURL(t thread) (string, bool) {
	repo := t.Repository.HTMLURL
	switch model.SubjectType(t.Subject.Type) {
	case model.SubjectRepositoryInvitation:
		return repo + "/invitations", true
	case model.SubjectVulnerabilityAlert:
		return repo + "/network/dependencies", true
	case model.SubjectDependabotAlertsThread:
		return repo + "/security/dependabot", true
	case model.SubjectCheckSuite:
		return repo + "/actions", true
	case model.SubjectDiscussion:
		return repo + "/discussions", true
	}
	if t.Subject.URL == "" {
		return repo, true
	}
	return "", false
}

// repositoryURL links the repository section matching the subject kind.
func repositoryURL(t thread) string {
	switch model.SubjectType(t.Subject.Type) {
	case model.SubjectPullRequest:
		return t.Repository.HTMLURL + "/pulls"
	case model.SubjectIssue:
		return t.Repository.HTMLURL + "/issues"
	default:
		return t.Repository.HTMLURL
	}
}

func (a *Adapter) resolveSubject(ctx context.Context, t thread) (subjectInfo, error) {
	if link, ok := fallbackURL(t); ok {
		return subjectInfo{URL: link}, nil
	}

	resp, err := a.client.Do(ctx, http.MethodGet, t.Subject.URL, nil)
	if err != nil {
		return subjectInfo{}, err
	}
	if resp.StatusCode != http.StatusOK {
		a.log.Debug("subject not available, linking repository",
			zap.String("thread", t.ID),
			zap.Int("status", resp.StatusCode),
		)
		return subjectInfo{URL: repositoryURL(t)}, nil
	}

	var detail subjectDetail
	if err := resp.Decode(forge.KindGitHub, &detail); err != nil {
		return subjectInfo{}, err
	}

	info := subjectInfo{State: detail.State, URL: detail.HTMLURL}
	if info.URL == "" {
		info.URL = repositoryURL(t)
	}

	subjectType := model.SubjectType(t.Subject.Type)
	if subjectType == model.SubjectPullRequest {
		switch {
		case detail.Draft:
			info.State = model.StateDraft
		case detail.State == model.StateClosed && detail.MergedAt == nil:
			info.State = model.StateDenied
		}
	}

	wantsComment := subjectType == model.SubjectIssue ||
		subjectType == model.SubjectPullRequest
	if wantsComment && t.Reason != "subscribed" && t.Subject.LatestCommentURL != "" {
		if link := a.latestComment(ctx, t); link != "" {
			info.URL = link
		}
	}

	return info, nil
}

// latestComment returns the web URL of the latest comment, or "" when it
// cannot be resolved. A missing comment only costs the deep link, so
// failures are logged and swallowed.
func (a *Adapter) latestComment(ctx context.Context, t thread) string {
	resp, err := a.client.Do(ctx, http.MethodGet, t.Subject.LatestCommentURL, nil)
	if err != nil {
		a.log.Debug("fetching latest comment", zap.String("thread", t.ID), zap.Error(err))
		return ""
	}
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	var c commentPayload
	if err := resp.Decode(forge.KindGitHub, &c); err != nil {
		return ""
	}
	return c.HTMLURL
}

func (a *Adapter) toNotification(t thread, info subjectInfo) model.Notification {
	link := info.URL
	if id, ok := a.referrer.Encode(t.ID, a.cfg.UserID); ok && link != "" {
		withRef, err := forge.WithQuery(link, ReferrerParam, id)
		if err == nil {
			link = withRef
		}
	}

	return model.Notification{
		ID:          forge.FormatID(a.cfg.AccountID, t.ID),
		AccountID:   a.cfg.AccountID,
		NativeID:    t.ID,
		Type:        model.SubjectType(t.Subject.Type),
		Unread:      t.Unread,
		UpdatedAt:   t.UpdatedAt,
		State:       info.State,
		Title:       t.Subject.Title,
		Repository:  t.Repository.FullName,
		URL:         link,
		AccountName: a.cfg.AccountName,
	}
}

// MarkAsRead implements forge.Forge. GitHub confirms with 205.
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

// MarkAllAsRead implements forge.Forge. GitHub answers 202 when the
// request is queued and 205 when it is applied immediately.
func (a *Adapter) MarkAllAsRead(ctx context.Context) (bool, error) {
	endpoint := a.uri("notifications", nil)
	body := markAllRequest{
		LastReadAt: a.now().UTC().Format(time.RFC3339),
		Read:       true,
	}
	resp, err := a.client.Do(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusAccepted ||
		resp.StatusCode == http.StatusResetContent, nil
}
