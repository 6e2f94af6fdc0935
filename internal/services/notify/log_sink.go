package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSink writes notifications to a structured logger in place of real mail
// delivery.
type LogSink struct {
	logger *slog.Logger
}

var _ Sink = (*LogSink)(nil)

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification sent",
		"messageId", uuid.NewString(),
		"kind", n.Kind,
		"recipient", n.Recipient,
		"subject", n.Subject,
	)
	s.logger.DebugContext(ctx, "notification payload", "kind", n.Kind, "payload", n.Payload)

	return nil
}
