package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetcare/maintenance-booking/internal/domain"
	"github.com/fleetcare/maintenance-booking/internal/events"
	"github.com/fleetcare/maintenance-booking/internal/lock"
	"github.com/fleetcare/maintenance-booking/internal/repo"
	"github.com/fleetcare/maintenance-booking/internal/service"
)

// ---- fake reservation repo --------------------------------------------------

// memReservationRepo is an in-memory repo.ReservationRepo. Individual methods
// can be overridden through the function fields to inject failures.
type memReservationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Reservation

	create       func(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	updateStatus func(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (int64, error)
	listByPlate  func(ctx context.Context, plate string) ([]domain.Reservation, error)
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{rows: map[uuid.UUID]domain.Reservation{}}
}

func (m *memReservationRepo) put(r domain.Reservation) domain.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.rows[r.ID] = r
	return r
}

func (m *memReservationRepo) Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	if m.create != nil {
		return m.create(ctx, r)
	}
	return m.put(r), nil
}

func (m *memReservationRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memReservationRepo) filter(keep func(domain.Reservation) bool) []domain.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Reservation{}
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memReservationRepo) List(context.Context) ([]domain.Reservation, error) {
	return m.filter(func(domain.Reservation) bool { return true }), nil
}

func (m *memReservationRepo) ListPaged(_ context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	all := m.filter(func(domain.Reservation) bool { return true })
	total := int64(len(all))
	if p.Offset() >= len(all) {
		return []domain.Reservation{}, total, nil
	}
	end := min(p.Offset()+p.Limit, len(all))
	return all[p.Offset():end], total, nil
}

func (m *memReservationRepo) ListByOperator(_ context.Context, email string) ([]domain.Reservation, error) {
	return m.filter(func(r domain.Reservation) bool { return r.OperatorEmail == email }), nil
}

func (m *memReservationRepo) ListByPlate(ctx context.Context, plate string) ([]domain.Reservation, error) {
	if m.listByPlate != nil {
		return m.listByPlate(ctx, plate)
	}
	return m.filter(func(r domain.Reservation) bool { return r.Car.Plate == plate }), nil
}

func (m *memReservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (int64, error) {
	if m.updateStatus != nil {
		return m.updateStatus(ctx, id, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return 0, nil
	}
	r.Status = to
	m.rows[id] = r
	return 1, nil
}

func (m *memReservationRepo) Complete(_ context.Context, id uuid.UUID, endFuel *float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != domain.StatusActive {
		return 0, nil
	}
	r.Status = domain.StatusComplete
	if endFuel != nil {
		r.EndFuel = endFuel
	}
	m.rows[id] = r
	return 1, nil
}

// compile-time check: memReservationRepo must satisfy repo.ReservationRepo.
var _ repo.ReservationRepo = (*memReservationRepo)(nil)

// ---- fake user repo ---------------------------------------------------------

type mockUserRepo struct {
	getByEmail func(ctx context.Context, email string) (domain.User, error)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return m.getByEmail(ctx, email)
}

var _ repo.UserRepo = (*mockUserRepo)(nil)

// knownUsers returns a user directory containing exactly the given emails.
func knownUsers(emails ...string) *mockUserRepo {
	return &mockUserRepo{
		getByEmail: func(_ context.Context, email string) (domain.User, error) {
			for _, e := range emails {
				if e == email {
					return domain.User{Email: e}, nil
				}
			}
			return domain.User{}, domain.ErrNotFound
		},
	}
}

// ---- fake ticket repo -------------------------------------------------------

type memTicketRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.ServiceTicket

	create func(ctx context.Context, t domain.ServiceTicket) (domain.ServiceTicket, error)
	close  func(ctx context.Context, id uuid.UUID, tasks []string, userEmail string, endDate time.Time) (int64, error)
	delete func(ctx context.Context, id uuid.UUID) error
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{rows: map[uuid.UUID]domain.ServiceTicket{}}
}

func (m *memTicketRepo) Create(ctx context.Context, t domain.ServiceTicket) (domain.ServiceTicket, error) {
	if m.create != nil {
		return m.create(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.rows[t.ID] = t
	return t, nil
}

func (m *memTicketRepo) GetByID(_ context.Context, id uuid.UUID) (domain.ServiceTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return domain.ServiceTicket{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memTicketRepo) GetByPlateAndReservation(_ context.Context, plate string, reservationID uuid.UUID) (domain.ServiceTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Plate == plate && t.ReservationID == reservationID {
			return t, nil
		}
	}
	return domain.ServiceTicket{}, domain.ErrNotFound
}

func (m *memTicketRepo) List(context.Context) ([]domain.ServiceTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ServiceTicket{}
	for _, t := range m.rows {
		out = append(out, t)
	}
	return out, nil
}

func (m *memTicketRepo) Close(ctx context.Context, id uuid.UUID, tasks []string, userEmail string, endDate time.Time) (int64, error) {
	if m.close != nil {
		return m.close(ctx, id, tasks, userEmail, endDate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || t.EndDate != nil {
		return 0, nil
	}
	t.Tasks = tasks
	t.EndDate = &endDate
	if userEmail != "" {
		t.UserEmail = userEmail
	}
	m.rows[id] = t
	return 1, nil
}

func (m *memTicketRepo) Reopen(_ context.Context, prev domain.ServiceTicket) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[prev.ID]
	if !ok || t.EndDate == nil {
		return 0, nil
	}
	t.Tasks, t.UserEmail, t.EndDate = prev.Tasks, prev.UserEmail, nil
	m.rows[prev.ID] = t
	return 1, nil
}

func (m *memTicketRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.delete != nil {
		return m.delete(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

var _ repo.TicketRepo = (*memTicketRepo)(nil)

// sortedTickets lists tickets ordered by start date, like the Postgres repo.
type sortedTickets struct {
	*memTicketRepo
	err error
}

func (s *sortedTickets) List(ctx context.Context) ([]domain.ServiceTicket, error) {
	if s.err != nil {
		return nil, s.err
	}
	list, _ := s.memTicketRepo.List(ctx)
	sort.Slice(list, func(i, j int) bool { return list[i].StartDate.Before(list[j].StartDate) })
	return list, nil
}

// ---- fake car repo ----------------------------------------------------------

type mockCarRepo struct {
	list func(ctx context.Context) ([]domain.Car, error)
}

func (m *mockCarRepo) List(ctx context.Context) ([]domain.Car, error) {
	return m.list(ctx)
}

var _ repo.CarRepo = (*mockCarRepo)(nil)

// ---- locker -----------------------------------------------------------------

// recordingLocker remembers the keys of every Acquire and delegates locking.
type recordingLocker struct {
	lock.Locker
	mu   sync.Mutex
	keys [][]string
}

func (l *recordingLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, keys)
	l.mu.Unlock()
	return l.Locker.Acquire(ctx, keys...)
}

// ---- clock ------------------------------------------------------------------

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var _ service.Clock = fixedClock{}

// ---- wiring -----------------------------------------------------------------

// argentina is the reference timezone used across the service tests.
var argentina = mustLoadLocation("America/Argentina/Buenos_Aires")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// fixture bundles a fully wired lifecycle manager and ticket manager sharing
// one event bus, the way cmd/api wires them.
type fixture struct {
	reservations *memReservationRepo
	tickets      *memTicketRepo
	bus          *events.Bus
	lifecycle    *service.ReservationService
	ticketSvc    *service.TicketService
	published    []events.Event
}

func newFixture(now time.Time, users ...string) *fixture {
	f := &fixture{
		reservations: newMemReservationRepo(),
		tickets:      newMemTicketRepo(),
		bus:          events.NewBus(),
	}
	clock := fixedClock{now: now}
	f.lifecycle = service.NewReservationService(f.reservations, knownUsers(users...), lock.NewLocal(), f.bus, clock, argentina)
	f.ticketSvc = service.NewTicketService(f.tickets, f.bus, clock, argentina)

	f.bus.Subscribe(f.lifecycle.HandleTicketEvent)
	f.bus.Subscribe(func(_ context.Context, e events.Event) error {
		f.published = append(f.published, e)
		return nil
	})
	return f
}

func (f *fixture) kinds() []events.Kind {
	out := make([]events.Kind, len(f.published))
	for i, e := range f.published {
		out[i] = e.Kind
	}
	return out
}
