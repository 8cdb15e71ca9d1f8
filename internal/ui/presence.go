package ui

import "sync/atomic"

// Presence tracks whether the notification list is on screen and whether
// the terminal has focus. It is written by the Bubble Tea program and read
// by the poller from another goroutine.
type Presence struct {
	visible atomic.Bool
	focused atomic.Bool
	pinned  bool
}

// NewPresence returns a Presence. A visible list starts focused; terminals
// that do not report focus changes then count as always focused.
func NewPresence(visible bool) *Presence {
	p := &Presence{}
	p.visible.Store(visible)
	p.focused.Store(visible)
	return p
}

// NewHiddenPresence returns a Presence that stays hidden whatever the
// program reports.
func NewHiddenPresence() *Presence {
	return &Presence{pinned: true}
}

// Visible reports whether the list is shown.
func (p *Presence) Visible() bool {
	return p.visible.Load()
}

// Focused reports whether the list is shown and the terminal has focus.
func (p *Presence) Focused() bool {
	return p.visible.Load() && p.focused.Load()
}

// SetVisible records whether the list is shown.
func (p *Presence) SetVisible(v bool) {
	if p.pinned {
		return
	}
	p.visible.Store(v)
}

// SetFocused records a terminal focus change.
func (p *Presence) SetFocused(f bool) {
	p.focused.Store(f)
}
