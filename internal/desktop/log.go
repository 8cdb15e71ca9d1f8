package desktop

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log. It is used when no
// notification service is reachable or desktop notifications are off.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a LogNotifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

// Send implements Notifier.
func (l *LogNotifier) Send(_ context.Context, n Notification) error {
	l.log.Info("notification",
		zap.String("id", n.ID),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)
	return nil
}

// Withdraw implements Notifier.
func (l *LogNotifier) Withdraw(id string) {
	l.log.Debug("notification withdrawn", zap.String("id", id))
}
