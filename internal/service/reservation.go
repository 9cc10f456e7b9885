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
	"github.com/fleetcare/maintenance-booking/internal/lock"
	"github.com/fleetcare/maintenance-booking/internal/repo"
)

// slotLayouts are the accepted "day time" formats of a booking request.
var slotLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05"}

// ReservationService is the reservation lifecycle manager. It is the only
// writer of reservation status: creation and cancellation come from callers,
// activation and completion from ticket events (see HandleTicketEvent).
type ReservationService struct {
	reservations repo.ReservationRepo
	users        repo.UserRepo
	locks        lock.Locker
	events       Publisher
	clock        Clock
	loc          *time.Location
}

// NewReservationService constructs a ReservationService.
// loc is the reference timezone: booking days and times are read in it and
// "same day" is decided in it. Stored instants are always UTC.
func NewReservationService(
	reservations repo.ReservationRepo,
	users repo.UserRepo,
	locks lock.Locker,
	pub Publisher,
	clock Clock,
	loc *time.Location,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		users:        users,
		locks:        locks,
		events:       pub,
		clock:        clock,
		loc:          loc,
	}
}

// Create books a one-hour slot starting at day+timeOfDay (reference timezone)
// for the operator and car.
// Returns domain.ErrValidation for missing or malformed input,
// domain.ErrOperatorNotFound when the operator is unknown,
// domain.ErrOperatorBusy / domain.ErrCarBusy on overlap (operator first),
// and domain.ErrStorage when persistence fails.
func (s *ReservationService) Create(ctx context.Context, car domain.CarSnapshot, operatorEmail, day, timeOfDay string) (domain.Reservation, error) {
	const op = "service.ReservationService.Create"

	car.Plate = strings.TrimSpace(car.Plate)
	operatorEmail = strings.TrimSpace(operatorEmail)
	day, timeOfDay = strings.TrimSpace(day), strings.TrimSpace(timeOfDay)
	if car.Plate == "" || operatorEmail == "" || day == "" || timeOfDay == "" {
		return domain.Reservation{}, fmt.Errorf("%w: car, operator email, day and time are required", domain.ErrValidation)
	}

	if _, err := s.users.GetByEmail(ctx, operatorEmail); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s: %w", op, domain.ErrOperatorNotFound)
		}
		return domain.Reservation{}, wrap(op, err)
	}

	start, err := parseSlotStart(day, timeOfDay, s.loc)
	if err != nil {
		return domain.Reservation{}, err
	}
	slot := domain.NewSlot(start)

	release, err := s.locks.Acquire(ctx, bookingLockKeys(operatorEmail, car.Plate, slot.Day(s.loc))...)
	if err != nil {
		return domain.Reservation{}, wrap(op, err)
	}
	defer release()

	operatorHistory, err := s.reservations.ListByOperator(ctx, operatorEmail)
	if err != nil {
		return domain.Reservation{}, wrap(op, err)
	}
	if domain.HasConflict(slot, operatorHistory, s.loc) {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, domain.ErrOperatorBusy)
	}

	carHistory, err := s.reservations.ListByPlate(ctx, car.Plate)
	if err != nil {
		return domain.Reservation{}, wrap(op, err)
	}
	if domain.HasConflict(slot, carHistory, s.loc) {
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, domain.ErrCarBusy)
	}

	created, err := s.reservations.Create(ctx, domain.Reservation{
		Status:        domain.StatusReserved,
		StartTime:     slot.Start,
		EndTime:       slot.End,
		Car:           car,
		OperatorEmail: operatorEmail,
		BillingStatus: domain.BillingOnHold,
		FuelStart:     0.0,
		BookingType:   domain.BookingMaintenance,
		CreatedAt:     s.clock.Now().UTC(),
	})
	if err != nil {
		return domain.Reservation{}, wrap(op, err)
	}
	if created.ID == uuid.Nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w: no identifier returned", op, domain.ErrStorage)
	}

	s.notify(ctx, events.ReservationCreated, created)
	return created, nil
}

// Cancel moves a future RESERVED reservation to CANCELLED.
// Guards run in order: active, completed, already cancelled, already started.
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "service.ReservationService.Cancel"

	if id == uuid.Nil {
		return false, fmt.Errorf("%w: reservation id is required", domain.ErrValidation)
	}

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return false, wrap(op, err)
	}

	switch res.Status {
	case domain.StatusActive:
		return false, fmt.Errorf("%s: %w", op, domain.ErrCannotCancelActive)
	case domain.StatusComplete:
		return false, fmt.Errorf("%s: %w", op, domain.ErrCannotCancelCompleted)
	case domain.StatusCancelled:
		return false, fmt.Errorf("%s: %w", op, domain.ErrAlreadyCancelled)
	}
	if s.clock.Now().After(res.StartTime) {
		return false, fmt.Errorf("%s: %w", op, domain.ErrCannotCancelPast)
	}

	if err := s.transition(ctx, op, res, domain.StatusCancelled); err != nil {
		return false, err
	}

	res.Status = domain.StatusCancelled
	s.notify(ctx, events.ReservationCancelled, res)
	return true, nil
}

// Activate moves a RESERVED reservation to ACTIVE. Activating an ACTIVE
// reservation is a no-op, so a redelivered "ticket opened" event is harmless.
func (s *ReservationService) Activate(ctx context.Context, id uuid.UUID) error {
	return s.activate(ctx, id, "")
}

// activate is Activate for a ticket opened on plate. A non-empty plate must
// be the reserved car's.
func (s *ReservationService) activate(ctx context.Context, id uuid.UUID, plate string) error {
	const op = "service.ReservationService.Activate"

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return wrap(op, err)
	}
	if plate != "" && plate != res.Car.Plate {
		return fmt.Errorf("%s: %w", op, domain.ErrPlateMismatch)
	}
	if res.Status == domain.StatusActive {
		return nil
	}
	if !res.Status.CanTransitionTo(domain.StatusActive) {
		return fmt.Errorf("%s: %w: cannot activate %s reservation", op, domain.ErrInvalidState, strings.ToLower(string(res.Status)))
	}

	if err := s.transition(ctx, op, res, domain.StatusActive); err != nil {
		return err
	}

	res.Status = domain.StatusActive
	s.notify(ctx, events.ReservationActivated, res)
	return nil
}

// Complete moves an ACTIVE reservation to COMPLETE, recording endFuel when
// provided. Completing a COMPLETE reservation is a no-op.
func (s *ReservationService) Complete(ctx context.Context, id uuid.UUID, endFuel *float64) error {
	const op = "service.ReservationService.Complete"

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return wrap(op, err)
	}
	if res.Status == domain.StatusComplete {
		return nil
	}
	if !res.Status.CanTransitionTo(domain.StatusComplete) {
		return fmt.Errorf("%s: %w: cannot complete %s reservation", op, domain.ErrInvalidState, strings.ToLower(string(res.Status)))
	}

	n, err := s.reservations.Complete(ctx, id, endFuel)
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: update had no effect", op, domain.ErrStorage)
	}

	res.Status = domain.StatusComplete
	res.EndFuel = endFuel
	s.notify(ctx, events.ReservationCompleted, res)
	return nil
}

// HandleTicketEvent is the bus subscription that ties the ticket workflow to
// the reservation state machine.
func (s *ReservationService) HandleTicketEvent(ctx context.Context, e events.Event) error {
	switch e.Kind {
	case events.TicketOpened:
		return s.activate(ctx, e.ReservationID, e.Plate)
	case events.TicketClosed:
		return s.Complete(ctx, e.ReservationID, e.EndFuel)
	}
	return nil
}

// GetByID returns a single reservation.
// Returns domain.ErrNotFound if it does not exist.
func (s *ReservationService) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, wrap("service.ReservationService.GetByID", err)
	}
	return res, nil
}

// List returns every reservation.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ReservationService) List(ctx context.Context) ([]domain.Reservation, error) {
	list, err := s.reservations.List(ctx)
	if err != nil {
		return nil, wrap("service.ReservationService.List", err)
	}
	if list == nil {
		return []domain.Reservation{}, nil
	}
	return list, nil
}

// ListPaged returns one page of reservations and the total count.
func (s *ReservationService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	list, total, err := s.reservations.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, wrap("service.ReservationService.ListPaged", err)
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	return list, total, nil
}

// ListTodayForOperator returns the operator's worklist: maintenance
// reservations starting today (reference timezone) that are RESERVED or ACTIVE.
func (s *ReservationService) ListTodayForOperator(ctx context.Context, email string) ([]domain.Reservation, error) {
	const op = "service.ReservationService.ListTodayForOperator"

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: operator email is required", domain.ErrValidation)
	}

	all, err := s.reservations.ListByOperator(ctx, email)
	if err != nil {
		return nil, wrap(op, err)
	}

	now := s.clock.Now()
	today := []domain.Reservation{}
	for _, r := range all {
		if !domain.SameDay(now, r.StartTime, s.loc) || r.BookingType != domain.BookingMaintenance {
			continue
		}
		if r.Status == domain.StatusReserved || r.Status == domain.StatusActive {
			today = append(today, r)
		}
	}
	return today, nil
}

// transition writes res.Status → to as a compare-and-set, so a concurrent
// writer that moved the reservation first makes this call fail.
func (s *ReservationService) transition(ctx context.Context, op string, res domain.Reservation, to domain.ReservationStatus) error {
	n, err := s.reservations.UpdateStatus(ctx, res.ID, res.Status, to)
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: update had no effect", op, domain.ErrStorage)
	}
	return nil
}

// notify publishes a reservation notification. The write it reports has
// already happened, so a delivery error does not change the outcome.
func (s *ReservationService) notify(ctx context.Context, kind events.Kind, res domain.Reservation) {
	_ = s.events.Publish(ctx, events.Event{
		Kind:          kind,
		ReservationID: res.ID,
		Plate:         res.Car.Plate,
		OperatorEmail: res.OperatorEmail,
		EndFuel:       res.EndFuel,
		OccurredAt:    s.clock.Now().UTC(),
	})
}

// bookingLockKeys names the locks a booking holds while it checks and
// inserts. Email and plate are used verbatim, matching the exact-match
// history lookups and exclusion constraints they guard.
func bookingLockKeys(operatorEmail, plate string, day time.Time) []string {
	d := day.Format(time.DateOnly)
	return []string{"operator:" + operatorEmail + ":" + d, "car:" + plate + ":" + d}
}

// parseSlotStart reads day ("2006-01-02") and timeOfDay ("15:04" or
// "15:04:05") as a wall-clock time in loc.
func parseSlotStart(day, timeOfDay string, loc *time.Location) (time.Time, error) {
	for _, layout := range slotLayouts {
		if t, err := time.ParseInLocation(layout, day+" "+timeOfDay, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: day must be YYYY-MM-DD and time HH:MM", domain.ErrValidation)
}
