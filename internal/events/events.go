// Package events carries domain events between the services of the API.
// The Bus delivers synchronously inside the request, so a subscriber's error
// reaches the publisher; the Forwarder relays events to RabbitMQ for
// consumers outside the process.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names an event. It doubles as the AMQP routing key.
type Kind string

const (
	TicketOpened Kind = "ticket.opened"
	TicketClosed Kind = "ticket.closed"

	ReservationCreated   Kind = "reservation.created"
	ReservationCancelled Kind = "reservation.cancelled"
	ReservationActivated Kind = "reservation.activated"
	ReservationCompleted Kind = "reservation.completed"
)

// Event is a fact that already happened. Fields that do not apply to Kind
// are left zero.
type Event struct {
	Kind          Kind      `json:"kind"`
	ReservationID uuid.UUID `json:"reservation_id"`
	TicketID      uuid.UUID `json:"ticket_id,omitempty"`
	Plate         string    `json:"plate,omitempty"`
	OperatorEmail string    `json:"operator_email,omitempty"`
	EndFuel       *float64  `json:"end_fuel,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, e Event) error

// Bus is an in-process, synchronous event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus returns a Bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h. Handlers run in subscription order.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers e to every subscriber and stops at the first error.
// Handlers may publish further events.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			return fmt.Errorf("events.Bus.Publish %s: %w", e.Kind, err)
		}
	}
	return nil
}
