package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"sayit/internal/platform/config"
)

// Client wraps a franz-go producer used by the audit pipeline. Returns nil if
// no brokers are configured (audit events then stay on the in-memory sink).
type Client struct {
	kgo *kgo.Client
}

// New dials the configured brokers and ensures the audit topic exists.
func New(cfg config.KafkaConfig) (*Client, error) {
	if cfg.Brokers == "" {
		return nil, nil
	}

	kc, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(cfg.Brokers, ",")...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := ensureTopic(ctx, kc, cfg.AuditTopic); err != nil {
		kc.Close()
		return nil, err
	}

	return &Client{kgo: kc}, nil
}

// Produce sends one record fire-and-forget. Delivery failures surface through
// the callback into the caller's logger; they never block request handling.
func (c *Client) Produce(ctx context.Context, topic string, key, value []byte, onErr func(error)) {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	c.kgo.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && onErr != nil {
			onErr(err)
		}
	})
}

// Close flushes outstanding records and releases the connection.
func (c *Client) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.kgo.Flush(ctx)
	c.kgo.Close()
}

func ensureTopic(ctx context.Context, kc *kgo.Client, topic string) error {
	adm := kadm.NewClient(kc)

	topics, err := adm.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}

	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil {
			return fmt.Errorf("create topic %s: %w", topic, r.Err)
		}
	}
	return nil
}
