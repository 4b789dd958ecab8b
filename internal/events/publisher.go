// Package events publishes compensation lifecycle events to Kafka. Publishing
// is best-effort: the record store is the source of truth and callers log
// publish failures instead of failing the request.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

// Event types.
const (
	TypeIssued   = "compensation.issued"
	TypeApproved = "compensation.approved"
	TypeRejected = "compensation.rejected"
	TypeApplied  = "compensation.applied"
)

// Event is the wire payload. The discount code is deliberately absent; it is
// a bearer token and stays in the record store.
type Event struct {
	Type              string                    `json:"type"`
	RecordID          string                    `json:"recordId"`
	BookingID         string                    `json:"bookingId"`
	UserID            string                    `json:"userId"`
	Status            domain.CompensationStatus `json:"status"`
	CompensationType  domain.CompensationKind   `json:"compensationType"`
	CompensationValue float64                   `json:"compensationValue"`
	DiscountAmount    *float64                  `json:"discountAmount,omitempty"`
	CodeExpiry        *time.Time                `json:"codeExpiry,omitempty"`
	Actor             string                    `json:"actor"`
	OccurredAt        time.Time                 `json:"occurredAt"`
}

// FromRecord builds an event of the given type describing rec.
func FromRecord(typ string, rec *domain.CompensationRecord, actor string, at time.Time) Event {
	return Event{
		Type:              typ,
		RecordID:          rec.ID,
		BookingID:         rec.BookingID,
		UserID:            rec.UserID,
		Status:            rec.Status,
		CompensationType:  rec.CompensationType,
		CompensationValue: rec.CompensationValue,
		DiscountAmount:    rec.DiscountAmount,
		CodeExpiry:        rec.CodeExpiry,
		Actor:             actor,
		OccurredAt:        at.UTC(),
	}
}

// Publisher sends lifecycle events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// KafkaPublisher writes events to a single topic, keyed by booking id so all
// events of one booking land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is empty")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
	}, nil
}

// Publish implements Publisher.
func (k *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// Message encodes ev as a Kafka message.
func Message(ev Event) (kafka.Message, error) {
	v, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.BookingID),
		Value: v,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}, nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
