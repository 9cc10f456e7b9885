package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetcare/maintenance-booking/internal/domain"
	"github.com/fleetcare/maintenance-booking/internal/events"
	"github.com/fleetcare/maintenance-booking/internal/repo"
)

// TicketService manages the service tickets of maintenance reservations.
// It never writes reservation status itself: opening and closing a ticket
// publish events that the reservation lifecycle reacts to.
type TicketService struct {
	tickets repo.TicketRepo
	events  Publisher
	clock   Clock
	loc     *time.Location
}

// NewTicketService constructs a TicketService. Ticket dates are recorded and
// returned in loc.
func NewTicketService(tickets repo.TicketRepo, pub Publisher, clock Clock, loc *time.Location) *TicketService {
	return &TicketService{tickets: tickets, events: pub, clock: clock, loc: loc}
}

// Open starts work on a reservation. The ticket is stored first and the
// reservation activated second; when activation is refused (missing,
// cancelled or completed reservation, or a plate that is not the reserved
// car) the stored ticket is deleted again, so either both writes stand or
// neither does.
func (s *TicketService) Open(ctx context.Context, plate string, reservationID uuid.UUID) (domain.ServiceTicket, error) {
	const op = "service.TicketService.Open"

	plate = strings.TrimSpace(plate)
	if plate == "" || reservationID == uuid.Nil {
		return domain.ServiceTicket{}, fmt.Errorf("%w: plate and reservation id are required", domain.ErrValidation)
	}

	created, err := s.tickets.Create(ctx, domain.ServiceTicket{
		ID:            uuid.New(),
		Plate:         plate,
		ReservationID: reservationID,
		UserEmail:     "",
		StartDate:     s.clock.Now().In(s.loc),
		Tasks:         []string{},
	})
	if err != nil {
		return domain.ServiceTicket{}, wrap(op, err)
	}
	if created.ID == uuid.Nil {
		return domain.ServiceTicket{}, fmt.Errorf("%s: %w: no identifier returned", op, domain.ErrStorage)
	}

	err = s.events.Publish(ctx, events.Event{
		Kind:          events.TicketOpened,
		ReservationID: reservationID,
		TicketID:      created.ID,
		Plate:         plate,
		OccurredAt:    created.StartDate.UTC(),
	})
	if err != nil {
		return domain.ServiceTicket{}, s.rollback(ctx, op, err, func(ctx context.Context) error {
			return s.tickets.Delete(ctx, created.ID)
		})
	}
	return s.localize(created), nil
}

// Close finishes a ticket with the completed tasks and completes its
// reservation. The ticket is closed first; when completion is refused the
// ticket is reopened. Returns domain.ErrNotFound for an unknown ticket,
// domain.ErrValidation when no task is given and domain.ErrTicketClosed when
// the ticket was already closed.
func (s *TicketService) Close(ctx context.Context, id uuid.UUID, closure domain.TicketClosure) (domain.ServiceTicket, error) {
	const op = "service.TicketService.Close"

	if id == uuid.Nil {
		return domain.ServiceTicket{}, fmt.Errorf("%w: ticket id is required", domain.ErrValidation)
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return domain.ServiceTicket{}, wrap(op, err)
	}

	tasks := cleanTasks(closure.Tasks)
	if len(tasks) == 0 {
		return domain.ServiceTicket{}, fmt.Errorf("%w: at least one task is required", domain.ErrValidation)
	}
	if ticket.Closed() {
		return domain.ServiceTicket{}, fmt.Errorf("%s: %w", op, domain.ErrTicketClosed)
	}

	userEmail := strings.TrimSpace(closure.UserEmail)
	endDate := s.clock.Now().In(s.loc)
	n, err := s.tickets.Close(ctx, id, tasks, userEmail, endDate)
	if err != nil {
		return domain.ServiceTicket{}, wrap(op, err)
	}
	if n == 0 {
		return domain.ServiceTicket{}, s.explainNoEffect(ctx, op, id)
	}

	err = s.events.Publish(ctx, events.Event{
		Kind:          events.TicketClosed,
		ReservationID: ticket.ReservationID,
		TicketID:      ticket.ID,
		Plate:         ticket.Plate,
		OperatorEmail: userEmail,
		EndFuel:       closure.EndFuel,
		OccurredAt:    endDate.UTC(),
	})
	if err != nil {
		return domain.ServiceTicket{}, s.rollback(ctx, op, err, func(ctx context.Context) error {
			n, err := s.tickets.Reopen(ctx, ticket)
			if err == nil && n == 0 {
				err = errors.New("ticket was not closed")
			}
			return err
		})
	}

	closed := ticket
	closed.Tasks = tasks
	closed.EndDate = &endDate
	if userEmail != "" {
		closed.UserEmail = userEmail
	}
	return s.localize(closed), nil
}

// rollback undoes a ticket write after the reservation refused to follow it
// and reports cause. The undo runs even when ctx is already cancelled. If it
// fails, ticket and reservation disagree and the result is domain.ErrStorage.
func (s *TicketService) rollback(ctx context.Context, op string, cause error, undo func(context.Context) error) error {
	if err := undo(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("%s: %w: rollback failed: %v (after: %v)", op, domain.ErrStorage, err, cause)
	}
	return wrap(op, cause)
}

// GetByID returns a single ticket.
func (s *TicketService) GetByID(ctx context.Context, id uuid.UUID) (domain.ServiceTicket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return domain.ServiceTicket{}, wrap("service.TicketService.GetByID", err)
	}
	return s.localize(t), nil
}

// GetByPlateAndReservation returns the latest ticket for the pair.
func (s *TicketService) GetByPlateAndReservation(ctx context.Context, plate string, reservationID uuid.UUID) (domain.ServiceTicket, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" || reservationID == uuid.Nil {
		return domain.ServiceTicket{}, fmt.Errorf("%w: plate and reservation id are required", domain.ErrValidation)
	}
	t, err := s.tickets.GetByPlateAndReservation(ctx, plate, reservationID)
	if err != nil {
		return domain.ServiceTicket{}, wrap("service.TicketService.GetByPlateAndReservation", err)
	}
	return s.localize(t), nil
}

// explainNoEffect tells a lost race against another close apart from a
// storage failure.
func (s *TicketService) explainNoEffect(ctx context.Context, op string, id uuid.UUID) error {
	t, err := s.tickets.GetByID(ctx, id)
	if err == nil && t.Closed() {
		return fmt.Errorf("%s: %w", op, domain.ErrTicketClosed)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return wrap(op, err)
	}
	return fmt.Errorf("%s: %w: update had no effect", op, domain.ErrStorage)
}

func (s *TicketService) localize(t domain.ServiceTicket) domain.ServiceTicket {
	t.StartDate = t.StartDate.In(s.loc)
	if t.EndDate != nil {
		ed := t.EndDate.In(s.loc)
		t.EndDate = &ed
	}
	return t
}

// cleanTasks trims every task and drops blank ones.
func cleanTasks(in []string) []string {
	out := make([]string, 0, len(in))
	for _, task := range in {
		if t := strings.TrimSpace(task); t != "" {
			out = append(out, t)
		}
	}
	return out
}
