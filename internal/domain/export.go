package domain

import "time"

// ExportRow is a single row in the full-data export.
// It is a flat, denormalized view: one row per reservation, with the fields
// of its service ticket appended. Reservations without a ticket yield zero
// values for all ticket fields.
type ExportRow struct {
	ReservationID string
	Status        ReservationStatus
	Plate         string
	OperatorEmail string
	StartTime     time.Time
	EndTime       time.Time

	// Ticket fields, empty when no ticket was opened.
	TicketID        string
	TicketStartDate *time.Time
	TicketEndDate   *time.Time
	Tasks           []string
}
