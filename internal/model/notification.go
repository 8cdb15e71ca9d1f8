package model

import "time"

// SubjectType is the kind of thing a notification is about.
type SubjectType string

const (
	SubjectIssue                  SubjectType = "Issue"
	SubjectPullRequest            SubjectType = "PullRequest"
	SubjectDiscussion             SubjectType = "Discussion"
	SubjectCommit                 SubjectType = "Commit"
	SubjectRelease                SubjectType = "Release"
	SubjectCheckSuite             SubjectType = "CheckSuite"
	SubjectRepositoryInvitation   SubjectType = "RepositoryInvitation"
	SubjectVulnerabilityAlert     SubjectType = "RepositoryVulnerabilityAlert"
	SubjectDependabotAlertsThread SubjectType = "RepositoryDependabotAlertsThread"
)

// Normalized subject states. Forges that expose a richer state (for
// example GitLab's "opened") pass it through unchanged.
const (
	StateOpen   = "open"
	StateOpened = "opened"
	StateClosed = "closed"
	StateDraft  = "draft"
	StateDenied = "denied"
	StateMerged = "merged"
)

// Notification is the unified representation of a forge notification.
type Notification struct {
	// ID is the composite id "<accountID>-<nativeID>".
	ID string `json:"id"`

	// AccountID identifies the account the notification was fetched for.
	AccountID string `json:"account_id"`

	// NativeID is the forge's own notification id.
	NativeID string `json:"native_id"`

	Type SubjectType `json:"type"`

	Unread bool `json:"unread"`

	// UpdatedAt is the ISO-8601 timestamp reported by the forge. It is
	// kept verbatim because it doubles as the change marker for desktop
	// notification de-duplication.
	UpdatedAt string `json:"updated_at"`

	// State is the subject state, empty when unknown.
	State string `json:"state,omitempty"`

	Title      string `json:"title"`
	Repository string `json:"repository"`

	// URL is the web page the notification opens.
	URL string `json:"url"`

	// AccountName is the display name of the owning account.
	AccountName string `json:"account_name"`
}

// Time parses UpdatedAt. An unparseable timestamp yields the zero time.
func (n Notification) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, n.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Timestamp is UpdatedAt as Unix seconds, or zero when unparseable.
func (n Notification) Timestamp() int64 {
	t := n.Time()
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// IconName returns the symbolic icon name used for the subject kind and
// state.
func (n Notification) IconName() string {
	switch n.Type {
	case SubjectIssue:
		if n.State == StateClosed {
			return "issue-done-symbolic"
		}
		return "issue-symbolic"
	case SubjectPullRequest:
		switch n.State {
		case StateClosed, StateMerged:
			return "merge-merged-symbolic"
		case StateDraft:
			return "merge-draft-symbolic"
		case StateDenied:
			return "merge-denied-symbolic"
		default:
			return "merge-symbolic"
		}
	case SubjectDiscussion:
		return "discussion-symbolic"
	default:
		return "preferences-system-details-symbolic"
	}
}
