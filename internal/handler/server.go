// Package handler implements the HTTP handlers for the maintenance booking API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, reservation.go, ticket.go, etc.) but all share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetcare/maintenance-booking/internal/domain"
)

// ReservationServicer defines the reservation operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type ReservationServicer interface {
	Create(ctx context.Context, car domain.CarSnapshot, operatorEmail, day, timeOfDay string) (domain.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error)
	ListTodayForOperator(ctx context.Context, email string) ([]domain.Reservation, error)
}

// TicketServicer defines the service-ticket operations the handlers depend on.
type TicketServicer interface {
	Open(ctx context.Context, plate string, reservationID uuid.UUID) (domain.ServiceTicket, error)
	Close(ctx context.Context, id uuid.UUID, closure domain.TicketClosure) (domain.ServiceTicket, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ServiceTicket, error)
	GetByPlateAndReservation(ctx context.Context, plate string, reservationID uuid.UUID) (domain.ServiceTicket, error)
}

// CarServicer defines the car registry operations the handlers depend on.
type CarServicer interface {
	List(ctx context.Context) ([]domain.Car, error)
	Open(ctx context.Context, plate string) (bool, error)
	Close(ctx context.Context, plate string) (bool, error)
}

// ExportServicer defines the export operation the handler depends on.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Server holds the dependencies of every API endpoint.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	reservations ReservationServicer
	tickets      TicketServicer
	cars         CarServicer
	export       ExportServicer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(reservations ReservationServicer, tickets TicketServicer, cars CarServicer, export ExportServicer) *Server {
	return &Server{reservations: reservations, tickets: tickets, cars: cars, export: export}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes registers every endpoint on r. main.go mounts it behind the
// middleware stack; tests call Handler for a bare router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.GetHealth)

	r.Route("/reservations", func(r chi.Router) {
		r.Get("/", s.ListReservations)
		r.Post("/", s.CreateReservation)
		r.Get("/{id}", s.GetReservation)
		r.Delete("/{id}", s.CancelReservation)
	})
	r.Get("/operators/{email}/reservations/today", s.ListTodayReservations)

	r.Route("/services", func(r chi.Router) {
		r.Post("/", s.OpenTicket)
		r.Get("/plate/{plate}/reservation/{reservationId}", s.GetTicketByPlateAndReservation)
		r.Get("/{id}", s.GetTicket)
		r.Patch("/{id}", s.CloseTicket)
	})

	r.Route("/cars", func(r chi.Router) {
		r.Get("/", s.ListCars)
		r.Post("/{plate}/open", s.OpenCar)
		r.Post("/{plate}/close", s.CloseCar)
	})

	r.Get("/export", s.GetExport)
}

// Handler returns a chi router with every endpoint registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}
