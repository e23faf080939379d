package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes events to a durable topic exchange.  The connection
// is opened lazily and dropped on any publish failure so the next call
// redials.  It is safe for concurrent use.
type Publisher struct {
	url      string
	exchange string
	log      *log.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url, exchange string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{url: url, exchange: exchange, log: logger}
}

// Notify publishes one event.  Messages are marked as persistent.  Errors
// are logged and returned so the caller can choose to ignore them.
func (p *Publisher) Notify(ctx context.Context, event string, payload interface{}) error {
	body, err := Encode(event, payload, time.Now())
	if err != nil {
		p.log.Printf("rabbitmq: marshal %s failed: %v", event, err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Printf("rabbitmq: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, event, false, false, pub); err != nil {
		p.log.Printf("rabbitmq: publish %s failed: %v", event, err)
		p.reset()
		return err
	}
	return nil
}

// channel returns an open channel, dialing and declaring the exchange when
// needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open failed: %w", err)
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	if name == "" {
		return errors.New("exchange name is empty")
	}
	// Durable so bindings survive broker restarts.
	if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
