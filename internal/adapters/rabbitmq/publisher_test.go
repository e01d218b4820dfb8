package rabbitmq

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/actilink/actilink-api/internal/ports/out/eventpub"
)

func TestNewPublishing_EncodesEvent(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 5, 10, 8, 30, 0, 0, time.UTC)
	msg, err := newPublishing(eventpub.ActivityJoined, eventpub.ActivityEvent{ActivityID: "a1", ActorID: "u7", OccurredAt: at})
	if err != nil {
		t.Fatalf("newPublishing() err=%v", err)
	}
	if msg.ContentType != "application/json" || msg.Type != eventpub.ActivityJoined || msg.MessageId == "" {
		t.Fatalf("unexpected publishing: %+v", msg)
	}
	if msg.DeliveryMode != amqp.Persistent || !msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected delivery mode or timestamp: %+v", msg)
	}

	var got map[string]any
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got["activity_id"] != "a1" || got["actor_id"] != "u7" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestNewPublishing_RejectsMissingFields(t *testing.T) {
	t.Parallel()

	if _, err := newPublishing("", eventpub.ActivityEvent{ActivityID: "a1"}); err == nil {
		t.Fatalf("expected error for missing routing key")
	}
	if _, err := newPublishing(eventpub.ActivityCreated, eventpub.ActivityEvent{}); err == nil {
		t.Fatalf("expected error for missing activity id")
	}
}

func TestPublisher_PublishToBroker(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set")
	}

	p, err := NewPublisher(url, "actilink.events.test")
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, eventpub.ActivityCreated, eventpub.ActivityEvent{ActivityID: "a1", ActorID: "u1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
