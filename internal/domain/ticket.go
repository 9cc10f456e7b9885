package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceTicket is the work record of a maintenance reservation.
// It references the reservation but does not own it. EndDate is nil while
// the ticket is open; once set the ticket is closed and immutable.
type ServiceTicket struct {
	ID            uuid.UUID  `json:"id"`
	Plate         string     `json:"plate"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	UserEmail     string     `json:"user_email"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Tasks         []string   `json:"tasks"`
}

// Closed reports whether the ticket has already been closed.
func (t ServiceTicket) Closed() bool {
	return t.EndDate != nil
}

// TicketClosure carries what a mechanic supplies when finishing a ticket.
type TicketClosure struct {
	Tasks     []string
	UserEmail string
	EndFuel   *float64
}
