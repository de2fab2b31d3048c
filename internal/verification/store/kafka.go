package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"docverify/internal/verification/models"
)

// DefaultTopic carries one record per sealed trail, keyed by verification id.
const DefaultTopic = "docverify.verification-trails"

// Producer is the part of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher publishes sealed trails for downstream consumers.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Append(ctx context.Context, trail *models.AuditTrail) error {
	if err := checkSealed(trail); err != nil {
		return err
	}
	value, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(trail.VerificationID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "document_class", Value: []byte(trail.DocumentClass)},
			{Key: "outcome", Value: []byte(trailOutcome(trail))},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish audit trail: %w", err)
	}
	return nil
}

// EnsureTopic creates topic when it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicas int16) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, replicas, nil, topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

func trailOutcome(trail *models.AuditTrail) string {
	for _, st := range trail.Steps {
		if st.Status == models.StepFailed {
			return "failed"
		}
	}
	return "completed"
}
