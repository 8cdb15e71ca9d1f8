package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/forge-sparks/internal/theme"
)

// Layout splits the terminal into a title bar, an optional banner, the
// content area and a status bar.
type Layout struct {
	Width  int
	Height int

	// Banner is shown under the title bar when non-empty.
	Banner string
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left for the content area.
func (l Layout) ContentHeight() int {
	h := l.Height - 2
	if l.Banner != "" {
		h--
	}
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the title bar with a right aligned status.
func (l Layout) RenderHeader(title, status string) string {
	return l.fill(theme.HeaderStyle, theme.HeaderStyle.Render(title), theme.HeaderStyle.Render(status))
}

// RenderStatusBar renders the bottom bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints), "")
}

// Render composes the full terminal view.
func (l Layout) Render(header, content, statusBar string) string {
	parts := []string{header}
	if l.Banner != "" {
		parts = append(parts, theme.BannerStyle.Width(l.Width).Render(l.Banner))
	}
	parts = append(parts, content, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// fill pads the space between left and right with the bar background.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}
