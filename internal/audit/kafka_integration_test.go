//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "hrgate/pkg/domain"
	"hrgate/pkg/testutil/containers"
)

func TestKafkaSinkPublishesEvents(t *testing.T) {
	ctx := context.Background()
	rp := containers.NewRedpandaContainer(t)

	const topic = "hrgate.audit.test"
	sink, err := NewKafkaSink(ctx, rp.Brokers, topic)
	require.NoError(t, err)
	t.Cleanup(sink.Close)

	userID := id.NewUserID()
	event := Event{
		Category:  CategoryAttendance,
		Action:    ActionCheckInRecorded,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Subject:   "record-1",
		Decision:  "allowed",
		RequestID: "req-1",
	}
	require.NoError(t, sink.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, userID.String(), string(records[0].Key))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &payload))
	require.Equal(t, "attendance", payload["category"])
	require.Equal(t, "check_in_recorded", payload["action"])
	require.Equal(t, "allowed", payload["decision"])
}

func TestKafkaSinkToleratesExistingTopic(t *testing.T) {
	ctx := context.Background()
	rp := containers.NewRedpandaContainer(t)

	const topic = "hrgate.audit.existing"
	first, err := NewKafkaSink(ctx, rp.Brokers, topic)
	require.NoError(t, err)
	first.Close()

	second, err := NewKafkaSink(ctx, rp.Brokers, topic)
	require.NoError(t, err)
	second.Close()
}
