package events

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

func sampleRecord() *domain.CompensationRecord {
	code := "DLY-SECRET01"
	amt := 12.5
	exp := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	return &domain.CompensationRecord{
		ID:                "r1",
		BookingID:         "b1",
		UserID:            "u1",
		CompensationType:  domain.KindPercentage,
		CompensationValue: 10,
		DiscountCode:      &code,
		DiscountAmount:    &amt,
		CodeExpiry:        &exp,
		Status:            domain.StatusPending,
	}
}

func TestMessage_KeyHeadersAndPayload(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := FromRecord(TypeIssued, sampleRecord(), "system", at)

	msg, err := Message(ev)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if string(msg.Key) != "b1" {
		t.Fatalf("key = %q; want booking id", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != TypeIssued {
		t.Fatalf("headers = %+v", msg.Headers)
	}
	if !msg.Time.Equal(at) {
		t.Fatalf("time = %v", msg.Time)
	}
	if strings.Contains(string(msg.Value), "DLY-SECRET01") {
		t.Fatalf("discount code must not be published: %s", msg.Value)
	}

	var got Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RecordID != "r1" || got.Status != domain.StatusPending || got.Actor != "system" || *got.DiscountAmount != 12.5 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "t"); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected error without topic")
	}
}

func TestKafkaPublisher_UnreachableBrokerErrors(t *testing.T) {
	p, err := NewKafkaPublisher([]string{"127.0.0.1:1"}, "compensation.events")
	if err != nil {
		t.Fatalf("NewKafkaPublisher: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := p.Publish(ctx, FromRecord(TypeIssued, sampleRecord(), "system", time.Now())); err == nil {
		t.Fatalf("expected publish error for unreachable broker")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nop close: %v", err)
	}
}
