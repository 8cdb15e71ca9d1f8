package notifications

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/forge-sparks/internal/model"
	"github.com/nhle/forge-sparks/internal/theme"
)

// Item wraps a notification for the bubbles list.
type Item struct {
	Notification model.Notification

	// Pending is set while the notification is being marked as read.
	Pending bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Title returns the notification title.
func (i Item) Title() string { return i.Notification.Title }

// Description returns the repository.
func (i Item) Description() string { return i.Notification.Repository }

// glyphs maps icon names to terminal glyphs.
var glyphs = map[string]string{
	"issue-symbolic":        "◯",
	"issue-done-symbolic":   "◉",
	"merge-symbolic":        "⇅",
	"merge-draft-symbolic":  "⇅",
	"merge-denied-symbolic": "⇅",
	"merge-merged-symbolic": "⇅",
	"discussion-symbolic":   "◇",
}

func glyph(n model.Notification) string {
	if g, ok := glyphs[n.IconName()]; ok {
		return g
	}
	return "•"
}

// Delegate renders notification rows on two lines.
type Delegate struct {
	// ShowAccount adds the account name to the second line.
	ShowAccount bool

	// Now is the clock used for relative dates.
	Now func() time.Time
}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d Delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

// Render draws a single notification.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	icon := theme.StateStyle(n.State).Render(glyph(n))
	title := n.Title
	if !n.Unread {
		title = theme.DimmedStyle.Render(title)
	}
	if it.Pending {
		title += theme.DimmedStyle.Render("  …")
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	meta := []string{n.Repository}
	if d.ShowAccount && n.AccountName != "" {
		meta = append(meta, n.AccountName)
	}
	if t := n.Time(); !t.IsZero() {
		meta = append(meta, relativeDate(t, now()))
	}

	line := fmt.Sprintf("%s %s\n  %s",
		icon, title,
		theme.DimmedStyle.Render(strings.Join(meta, " · ")),
	)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, lipgloss.NewStyle().MaxWidth(m.Width()).Render(line))
}

// relativeDate renders t relative to now. Dates in the future render as
// "now".
func relativeDate(t, now time.Time) string {
	diff := now.Sub(t)
	if diff <= 0 {
		return "now"
	}

	minutes := int(math.Round(diff.Minutes()))
	switch {
	case minutes < 1:
		return "now"
	case minutes < 60:
		return plural(minutes, "%d minute ago", "%d minutes ago")
	case minutes < 1440:
		hours := int(math.Round(float64(minutes) / 60))
		return plural(hours, "%d hour ago", "%d hours ago")
	case minutes < 10080:
		days := int(math.Round(float64(minutes) / 1440))
		return plural(days, "yesterday", "%d days ago")
	case minutes < 40320:
		weeks := int(math.Round(float64(minutes) / 10080))
		return plural(weeks, "%d week ago", "%d weeks ago")
	case now.Year() == t.Year():
		return "on " + t.Format("Jan 02")
	default:
		return "on " + t.Format("02 Jan, 2006")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		if strings.Contains(one, "%d") {
			return fmt.Sprintf(one, n)
		}
		return one
	}
	return fmt.Sprintf(many, n)
}
