package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes audit events to a Kafka topic so downstream HR and
// SIEM consumers can subscribe without touching the database.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// kafkaPayload is the JSON structure published to the topic.
type kafkaPayload struct {
	ID                string `json:"id"`
	Category          string `json:"category"`
	Action            string `json:"action"`
	UserID            string `json:"user_id,omitempty"`
	Subject           string `json:"subject,omitempty"`
	Decision          string `json:"decision,omitempty"`
	Reason            string `json:"reason,omitempty"`
	RequestID         string `json:"request_id,omitempty"`
	Device            string `json:"device,omitempty"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	ClientIP          string `json:"client_ip,omitempty"`
	OccurredAt        string `json:"occurred_at"`
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create audit topic %s: %w", res.Topic, res.Err)
		}
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

// Publish produces one record keyed by user ID so per-user ordering holds.
func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		ID:                uuid.NewString(),
		Category:          string(event.Category),
		Action:            string(event.Action),
		Subject:           event.Subject,
		Decision:          event.Decision,
		Reason:            event.Reason,
		RequestID:         event.RequestID,
		Device:            event.Device,
		DeviceFingerprint: event.DeviceFingerprint,
		ClientIP:          event.ClientIP,
		OccurredAt:        event.Timestamp.Format(time.RFC3339Nano),
	}
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(payload.UserID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
