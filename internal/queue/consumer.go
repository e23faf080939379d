package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerConfig names the broker objects and the file the log consumer
// writes to.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	LogPath  string
}

// StartLogConsumer binds a durable queue to every routing key of the
// exchange and appends each event to cfg.LogPath, one line per event.  It
// runs a reconnect loop with exponential backoff and returns only when ctx
// is cancelled.  Messages that cannot be handled are rejected without
// requeue so the loop keeps going.
func StartLogConsumer(ctx context.Context, cfg ConsumerConfig, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			logger.Printf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Printf("event-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, logger *log.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Printf("event-consumer: set QoS failed: %v", err)
	}
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, "#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := appendEvent(cfg.LogPath, d.Body); err != nil {
				logger.Printf("event-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func appendEvent(path string, body []byte) error {
	line, err := FormatLine(body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an encoded envelope as a single log line.
func FormatLine(body []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	if env.Event == "" {
		return "", errors.New("event name missing")
	}
	switch env.Event {
	case EventReservationCreated, EventReservationApproved, EventReservationRejected, EventReservationExpired:
		var ev ReservationEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal payload: %w", err)
		}
		line := fmt.Sprintf("[%s] %s | reservation_id=%d | client_id=%d | table_id=%d | at=%s %s | party=%d",
			env.OccurredAt, env.Event, ev.ReservationID, ev.ClientID, ev.TableID, ev.Date, ev.Time, ev.PartySize)
		if ev.Reason != "" {
			line += fmt.Sprintf(" | reason=%q", ev.Reason)
		}
		return line + "\n", nil
	case EventWalkInJoined:
		var ev WalkInEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal payload: %w", err)
		}
		return fmt.Sprintf("[%s] %s | entry_id=%d | client_id=%d | party=%d | priority=%d\n",
			env.OccurredAt, env.Event, ev.EntryID, ev.ClientID, ev.PartySize, ev.Priority), nil
	case EventTableAssigned:
		var ev TableAssignedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal payload: %w", err)
		}
		return fmt.Sprintf("[%s] %s | entry_id=%d | client_id=%d | table=%d\n",
			env.OccurredAt, env.Event, ev.EntryID, ev.ClientID, ev.TableNumber), nil
	}
	return fmt.Sprintf("[%s] %s | %s\n", env.OccurredAt, env.Event, string(env.Payload)), nil
}
