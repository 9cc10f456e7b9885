package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcare/maintenance-booking/internal/events"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestForwarder_PublishesJSONRoutedByKind(t *testing.T) {
	ch := &fakeChannel{}
	f := events.NewForwarder(ch, "maintenance", slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	resID := uuid.New()

	err := f.Handle(context.Background(), events.Event{Kind: events.TicketClosed, ReservationID: resID})

	require.NoError(t, err)
	assert.Equal(t, "maintenance", ch.exchange)
	assert.Equal(t, "ticket.closed", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var got events.Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, resID, got.ReservationID)
}

func TestForwarder_PublishFailureIsLoggedNotReturned(t *testing.T) {
	var logs bytes.Buffer
	ch := &fakeChannel{err: errors.New("channel closed")}
	f := events.NewForwarder(ch, "maintenance", slog.New(slog.NewJSONHandler(&logs, nil)))

	err := f.Handle(context.Background(), events.Event{Kind: events.ReservationCreated})

	assert.NoError(t, err)
	assert.Contains(t, logs.String(), "channel closed")
}
