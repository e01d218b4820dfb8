package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/actilink/actilink-api/internal/ports/out/eventpub"
)

const (
	DefaultExchange = "actilink.events"

	// Wait window for Return / Confirm
	publishWait = 150 * time.Millisecond
)

// Publisher publishes activity events to a durable topic exchange with
// publisher confirms enabled. It implements eventpub.Publisher.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

var _ eventpub.Publisher = (*Publisher)(nil)

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		url:      url,
		exchange: exchange,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// Publish sends ev as JSON under routingKey. An unroutable message is not an
// error: nobody may be subscribed to the key yet.
func (p *Publisher) Publish(ctx context.Context, routingKey string, ev eventpub.ActivityEvent) error {
	msg, err := newPublishing(routingKey, ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return errors.New("publisher channel not ready")
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, msg); err != nil {
		return err
	}

	select {
	case <-p.returnCh:
		// NO_ROUTE; still wait for the confirm that follows a return.
		select {
		case conf := <-p.confirmCh:
			if !conf.Ack {
				return errors.New("publish nack")
			}
		case <-time.After(publishWait):
		}
		return nil
	case conf := <-p.confirmCh:
		if !conf.Ack {
			return errors.New("publish nack")
		}
		return nil
	case <-time.After(publishWait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newPublishing(routingKey string, ev eventpub.ActivityEvent) (amqp.Publishing, error) {
	if routingKey == "" {
		return amqp.Publishing{}, errors.New("missing routingKey")
	}
	if ev.ActivityID == "" {
		return amqp.Publishing{}, errors.New("missing activity id")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		MessageId:    uuid.NewString(),
		Type:         routingKey,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt.UTC(),
		Body:         body,
	}, nil
}
