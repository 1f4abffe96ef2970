package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sayit/internal/platform/kafka"
)

// KafkaSink publishes events to the audit topic. Records are keyed by entity
// ID so all events for one complaint land in one partition, in order.
type KafkaSink struct {
	client *kafka.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaSink(client *kafka.Client, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{client: client, topic: topic, logger: logger}
}

func (s *KafkaSink) Record(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	s.client.Produce(ctx, s.topic, []byte(e.EntityID), payload, func(err error) {
		s.logger.Warn("audit event delivery failed", "error", err, "action", e.Action)
	})
	return nil
}
