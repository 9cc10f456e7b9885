// Package domain contains the core data types for the maintenance booking API.
// This package has no dependencies on the other internal packages and is
// imported by every one of them (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a Reservation.
type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "RESERVED"
	StatusActive    ReservationStatus = "ACTIVE"
	StatusComplete  ReservationStatus = "COMPLETE"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusReserved, StatusActive, StatusComplete, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ReservationStatus) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// Occupies reports whether a reservation in state s holds its slot for
// conflict detection purposes.
func (s ReservationStatus) Occupies() bool {
	switch s {
	case StatusReserved, StatusActive, StatusComplete:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
// The legal edges are RESERVED→ACTIVE→COMPLETE and RESERVED→CANCELLED.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusReserved:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusComplete
	}
	return false
}

// BillingStatus tracks whether a reservation has been invoiced.
type BillingStatus string

const (
	BillingOnHold BillingStatus = "ON_HOLD"
	BillingBilled BillingStatus = "BILLED"
	BillingVoided BillingStatus = "VOIDED"
)

// BookingType is the kind of booking. Only maintenance bookings exist today,
// but the set is open.
type BookingType string

const BookingMaintenance BookingType = "MAINTENANCE"

// CarSnapshot is a copy of the car's registry data taken at booking time.
// It is not a live link: later registry edits do not change past reservations.
type CarSnapshot struct {
	Plate string `json:"plate"`
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	Color string `json:"color,omitempty"`
}

// Reservation books one car and one operator for a one-hour maintenance slot.
// StartTime, EndTime and CreatedAt are always UTC.
type Reservation struct {
	ID               uuid.UUID         `json:"id"`
	Status           ReservationStatus `json:"status"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          time.Time         `json:"end_time"`
	StartParkingName string            `json:"start_parking_name"`
	Car              CarSnapshot       `json:"car"`
	OperatorEmail    string            `json:"operator_email"`
	BillingStatus    BillingStatus     `json:"billing_status"`
	FuelStart        float64           `json:"fuel_start"`
	EndFuel          *float64          `json:"end_fuel,omitempty"` // nil until completion
	BookingType      BookingType       `json:"booking_type"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Window returns the reservation's [StartTime, EndTime) interval.
func (r Reservation) Window() Window {
	return Window{Start: r.StartTime, End: r.EndTime}
}
