package domain

import "time"

// User is an operator known to the user directory. Email is the natural key
// that reservations refer to.
type User struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Car is a row of the car registry.
type Car struct {
	Plate string `json:"plate"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Color string `json:"color"`
}

// Snapshot copies the registry data into the form embedded in a reservation.
func (c Car) Snapshot() CarSnapshot {
	return CarSnapshot{Plate: c.Plate, Brand: c.Brand, Model: c.Model, Year: c.Year, Color: c.Color}
}
