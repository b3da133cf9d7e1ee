package notify

import (
	"context"
	"log/slog"
)

// LogMailer writes notifications to the log instead of delivering them.
// Default sink when SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, n Notification) error {
	m.logger.Info("notification",
		"kind", string(n.Kind),
		"recipient", n.Recipient,
		"params", n.Params,
	)
	return nil
}
