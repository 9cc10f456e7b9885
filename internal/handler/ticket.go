package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fleetcare/maintenance-booking/internal/domain"
)

// OpenTicketRequest is the body of POST /services.
type OpenTicketRequest struct {
	Plate         string `json:"plate"`
	ReservationID string `json:"reservationId"`
}

// CloseTicketRequest is the body of PATCH /services/{id}.
type CloseTicketRequest struct {
	Tasks     []string `json:"tasks"`
	UserEmail string   `json:"userEmail,omitempty"`
	EndFuel   *float64 `json:"endFuel,omitempty"`
}

// OpenTicket handles POST /services.
// Opening a ticket activates its reservation.
func (s *Server) OpenTicket(w http.ResponseWriter, r *http.Request) {
	var body OpenTicketRequest
	if !decodeBody(w, r, &body, "request body must be a JSON object with plate and reservationId") {
		return
	}
	// A blank id reaches the service as uuid.Nil and is reported as a
	// validation error there.
	var reservationID uuid.UUID
	if body.ReservationID != "" {
		id, err := uuid.Parse(body.ReservationID)
		if err != nil {
			badRequest(w, "reservationId must be a UUID")
			return
		}
		reservationID = id
	}

	ticket, err := s.tickets.Open(r.Context(), body.Plate, reservationID)
	if err != nil {
		writeError(w, r, err, "reservation not found")
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// CloseTicket handles PATCH /services/{id}.
// Closing a ticket completes its reservation.
func (s *Server) CloseTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, "id must be a UUID")
		return
	}
	var body CloseTicketRequest
	if !decodeBody(w, r, &body, "request body must be a JSON object with tasks") {
		return
	}

	ticket, err := s.tickets.Close(r.Context(), id, domain.TicketClosure{
		Tasks:     body.Tasks,
		UserEmail: body.UserEmail,
		EndFuel:   body.EndFuel,
	})
	if err != nil {
		writeError(w, r, err, "service ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// GetTicket handles GET /services/{id}.
func (s *Server) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		badRequest(w, "id must be a UUID")
		return
	}

	ticket, err := s.tickets.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "service ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// GetTicketByPlateAndReservation handles
// GET /services/plate/{plate}/reservation/{reservationId}.
func (s *Server) GetTicketByPlateAndReservation(w http.ResponseWriter, r *http.Request) {
	plate, err := pathString(r, "plate")
	if err != nil {
		badRequest(w, "malformed plate")
		return
	}
	reservationID, err := pathUUID(r, "reservationId")
	if err != nil {
		badRequest(w, "reservationId must be a UUID")
		return
	}

	ticket, err := s.tickets.GetByPlateAndReservation(r.Context(), plate, reservationID)
	if err != nil {
		writeError(w, r, err, "service ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}
