package handler

import (
	"net/http"

	"github.com/fleetcare/maintenance-booking/internal/domain"
)

// CreateReservationRequest is the body of POST /reservations.
// reservationDay is YYYY-MM-DD and reservationTime HH:MM, both in the
// reference timezone.
type CreateReservationRequest struct {
	Car             *domain.CarSnapshot `json:"car"`
	EmployeeMail    string              `json:"employeeMail"`
	ReservationDay  string              `json:"reservationDay"`
	ReservationTime string              `json:"reservationTime"`
}

// Pagination describes the page returned by a paged list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ReservationPage is the body of GET /reservations.
type ReservationPage struct {
	Data       []domain.Reservation `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

// CancelResponse is the body of a successful DELETE /reservations/{id}.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// CreateReservation handles POST /reservations.
func (s *Server) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var body CreateReservationRequest
	if !decodeBody(w, r, &body, "request body must be a JSON object") {
		return
	}
	var car domain.CarSnapshot
	if body.Car != nil {
		car = *body.Car
	}

	created, err := s.reservations.Create(r.Context(), car, body.EmployeeMail, body.ReservationDay, body.ReservationTime)
	if err != nil {
		writeError(w, r, err, "reservation not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListReservations handles GET /reservations.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListReservations(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		badRequest(w, "page must be an integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, "limit must be an integer")
		return
	}

	params := domain.NewPaginationParams(page, limit)
	list, total, err := s.reservations.ListPaged(r.Context(), params)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, ReservationPage{
		Data: list,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
			Pages: params.Pages(total),
		},
	})
}

// GetReservation handles GET /reservations/{id}.
func (s *Server) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, "id must be a UUID")
		return
	}

	res, err := s.reservations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelReservation handles DELETE /reservations/{id}.
func (s *Server) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, "id must be a UUID")
		return
	}

	ok, err := s.reservations.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, CancelResponse{Cancelled: ok})
}

// ListTodayReservations handles GET /operators/{email}/reservations/today.
// It returns the operator's RESERVED and ACTIVE maintenance bookings for today.
func (s *Server) ListTodayReservations(w http.ResponseWriter, r *http.Request) {
	email, err := pathString(r, "email")
	if err != nil {
		badRequest(w, "malformed operator email")
		return
	}

	list, err := s.reservations.ListTodayForOperator(r.Context(), email)
	if err != nil {
		writeError(w, r, err, "operator not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
