package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the subset of *amqp.Channel the Forwarder uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Forwarder relays every event to a durable topic exchange, routed by Kind.
// Delivery is best effort: failures are logged and never fail the request
// that produced the event.
type Forwarder struct {
	mu       sync.Mutex
	ch       publisher
	exchange string
	log      *slog.Logger
}

// DialForwarder connects to the broker at url and declares exchange.
// The returned close func shuts down the channel and connection.
func DialForwarder(url, exchange string, log *slog.Logger) (*Forwarder, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("events.DialForwarder: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("events.DialForwarder: channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("events.DialForwarder: exchange declare: %w", err)
	}

	closeFn := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return NewForwarder(ch, exchange, log), closeFn, nil
}

// NewForwarder wraps an already opened channel.
func NewForwarder(ch publisher, exchange string, log *slog.Logger) *Forwarder {
	return &Forwarder{ch: ch, exchange: exchange, log: log}
}

// Handle implements Handler. It always returns nil.
func (f *Forwarder) Handle(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		f.log.ErrorContext(ctx, "event forward: marshal failed", "kind", e.Kind, "error", err)
		return nil
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ch.PublishWithContext(ctx, f.exchange, string(e.Kind), false, false, msg); err != nil {
		f.log.ErrorContext(ctx, "event forward: publish failed",
			"kind", e.Kind,
			"reservation_id", e.ReservationID,
			"error", err,
		)
	}
	return nil
}
