// Package event publishes buy request lifecycle events after commit.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeCreated   = "buy_request.created"
	TypeAccepted  = "buy_request.accepted"
	TypeRejected  = "buy_request.rejected"
	TypeCollected = "buy_request.collected"
	TypeDelivered = "buy_request.delivered"
)

// Event is the JSON payload written to the topic. OTPs are never included.
type Event struct {
	Type           string     `json:"type"`
	RequestID      uuid.UUID  `json:"request_id"`
	DonationID     uuid.UUID  `json:"donation_id"`
	RequesterID    uuid.UUID  `json:"requester_id"`
	ActorID        uuid.UUID  `json:"actor_id"`
	Status         string     `json:"status"`
	DeliveryStatus string     `json:"delivery_status"`
	CollectorID    *uuid.UUID `json:"collector_id,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// KafkaPublisher writes events keyed by donation id so that all events of one
// donation land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           5 * time.Second,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	msgs, err := Messages(events...)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Messages encodes events as kafka messages
func Messages(events ...Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.DonationID.String()),
			Value: value,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(e.Type)},
			},
		})
	}
	return msgs, nil
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...Event) error { return nil }
func (NoopPublisher) Close() error                            { return nil }
