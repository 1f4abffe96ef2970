// Package notifier delivers outbound mail for the recovery and lifecycle
// flows. Delivery is always fire-and-forget relative to the operation that
// triggered it; nothing in here may run inside a store transaction.
package notifier

import (
	"context"
	"log/slog"
)

//go:generate mockgen -source=notifier.go -destination=mock/notifier.go -package=mock

// Notifier sends one message to one recipient address.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}

// LogNotifier writes deliveries to the log instead of an SMTP relay. It is
// the default when no mail transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, _ string) error {
	n.logger.InfoContext(ctx, "outbound mail",
		"recipient", recipient,
		"subject", subject,
	)
	return nil
}

// NoopNotifier discards every message. Used in test environments where even
// log noise is unwanted.
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, string, string, string) error { return nil }
