package desktop

import "context"

// Action names a desktop notification action. Target carries the action
// parameters.
type Action struct {
	Name   string
	Target []string
}

// Action names.
const (
	// ActionOpen opens a notification; Target is [id, url].
	ActionOpen = "open-notification"

	// ActionMarkRead marks a notification as read; Target is [id].
	ActionMarkRead = "mark-read"

	// ActionActivate brings the application to the foreground.
	ActionActivate = "activate"
)

// Button is an extra action shown on a notification.
type Button struct {
	Label  string
	Action Action
}

// Notification is a desktop notification. ID is a stable correlation id:
// sending a notification with an ID that is already shown replaces it.
type Notification struct {
	ID      string
	Title   string
	Body    string
	Icon    string
	Default Action
	Buttons []Button
}

// Notifier sends and withdraws desktop notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	Withdraw(id string)
}

// ActionHandler receives activated notification actions.
type ActionHandler func(Action)
