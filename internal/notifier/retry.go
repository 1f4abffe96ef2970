package notifier

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultAttempts = 3
	defaultBaseWait = 500 * time.Millisecond
)

// RetryNotifier wraps a delegate with bounded retries and exponential backoff.
// The wait doubles after each failed attempt.
type RetryNotifier struct {
	delegate Notifier
	attempts int
	baseWait time.Duration
}

func WithRetry(delegate Notifier) *RetryNotifier {
	return &RetryNotifier{delegate: delegate, attempts: defaultAttempts, baseWait: defaultBaseWait}
}

func (n *RetryNotifier) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	wait := n.baseWait
	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		lastErr = n.delegate.Send(ctx, recipient, subject, htmlBody)
		if lastErr == nil {
			return nil
		}
		if attempt == n.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("send failed after %d attempts: %w", n.attempts, lastErr)
}
