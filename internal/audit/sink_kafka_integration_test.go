//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"sayit/internal/audit"
	"sayit/internal/platform/config"
	"sayit/internal/platform/kafka"
	"sayit/pkg/testutil/containers"
)

func TestKafkaSinkDelivers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rp := containers.NewRedpandaContainer(t)
	const topic = "sayit.audit.test"

	client, err := kafka.New(config.KafkaConfig{Brokers: rp.Brokers, AuditTopic: topic})
	require.NoError(t, err)
	defer client.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := audit.NewKafkaSink(client, topic, logger)

	ctx := context.Background()
	event := audit.NewEvent(audit.ActionComplaintCreated, "complaint", "c-42",
		time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
	event.Metadata = map[string]string{"tracking_id": "SAY-2024-00042"}
	require.NoError(t, sink.Record(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "c-42", string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event.ID, got.ID)
	require.Equal(t, audit.ActionComplaintCreated, got.Action)
	require.Equal(t, "SAY-2024-00042", got.Metadata["tracking_id"])
}
