package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetcare/maintenance-booking/internal/domain"
)

// ReservationRepo defines the persistence operations for Reservations.
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested with a mock.
type ReservationRepo interface {
	// Create inserts a new reservation and returns the persisted record with its
	// DB-generated id. Returns domain.ErrOperatorBusy or domain.ErrCarBusy when
	// the row would overlap a non-cancelled reservation of the same operator or car.
	Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error)

	// GetByID retrieves a single reservation by its UUID primary key.
	// Returns domain.ErrNotFound if no reservation with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error)

	// List returns all reservations ordered by start_time descending.
	List(ctx context.Context) ([]domain.Reservation, error)

	// ListPaged returns one page of reservations and the total count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error)

	// ListByOperator returns every reservation booked by the operator, in any status.
	ListByOperator(ctx context.Context, email string) ([]domain.Reservation, error)

	// ListByPlate returns every reservation of the car with the given plate, in any status.
	ListByPlate(ctx context.Context, plate string) ([]domain.Reservation, error)

	// UpdateStatus moves a reservation from one status to another and returns
	// the number of rows changed. Zero means the reservation was missing or no
	// longer in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (int64, error)

	// Complete moves an ACTIVE reservation to COMPLETE, recording endFuel when
	// it is not nil, and returns the number of rows changed.
	Complete(ctx context.Context, id uuid.UUID, endFuel *float64) (int64, error)
}

// pgReservationRepo is the Postgres implementation of ReservationRepo.
type pgReservationRepo struct {
	db  db
	loc *time.Location
}

// NewReservationRepo constructs a ReservationRepo backed by the provided db connection.
// loc is the reference timezone used to derive the slot_day column that the
// overlap constraints are keyed on.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewReservationRepo(db db, loc *time.Location) ReservationRepo {
	return &pgReservationRepo{db: db, loc: loc}
}

const reservationColumns = `id, status, start_time, end_time, start_parking_name, car,
		operator_email, billing_status, fuel_start, end_fuel, booking_type, created_at`

// Create inserts a new reservation row and returns the full persisted record.
func (r *pgReservationRepo) Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	const q = `
		INSERT INTO reservations (status, start_time, end_time, slot_day, start_parking_name,
			car_plate, car, operator_email, billing_status, fuel_start, end_fuel, booking_type, created_at)
		VALUES (@status, @start_time, @end_time, @slot_day, @start_parking_name,
			@car_plate, @car, @operator_email, @billing_status, @fuel_start, @end_fuel, @booking_type, @created_at)
		RETURNING ` + reservationColumns

	args := pgx.NamedArgs{
		"status":             string(res.Status),
		"start_time":         res.StartTime.UTC(),
		"end_time":           res.EndTime.UTC(),
		"slot_day":           pgtype.Date{Time: domain.StartOfDay(res.StartTime, r.loc), Valid: true},
		"start_parking_name": res.StartParkingName,
		"car_plate":          res.Car.Plate,
		"car":                res.Car, // encoded as JSONB
		"operator_email":     res.OperatorEmail,
		"billing_status":     string(res.BillingStatus),
		"fuel_start":         res.FuelStart,
		"end_fuel":           res.EndFuel, // nil becomes NULL
		"booking_type":       string(res.BookingType),
		"created_at":         res.CreatedAt.UTC(),
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanReservation(row)
	if err != nil {
		switch constraintViolated(err) {
		case "reservations_operator_no_overlap":
			return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: %w", domain.ErrOperatorBusy)
		case "reservations_car_no_overlap":
			return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: %w", domain.ErrCarBusy)
		}
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a reservation by primary key.
func (r *pgReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns all reservations, most recent slot first.
func (r *pgReservationRepo) List(ctx context.Context) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY start_time DESC`

	result, err := r.query(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("repo.ReservationRepo.List: %w", err)
	}
	return result, nil
}

// ListPaged returns one page of reservations ordered by start_time descending,
// together with the total number of reservations.
func (r *pgReservationRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM reservations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ReservationRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + reservationColumns + `
		FROM reservations
		ORDER BY start_time DESC
		LIMIT @limit OFFSET @offset`

	result, err := r.query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ReservationRepo.ListPaged: %w", err)
	}
	return result, total, nil
}

// ListByOperator returns the operator's full reservation history ordered by start_time.
func (r *pgReservationRepo) ListByOperator(ctx context.Context, email string) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE operator_email = @email
		ORDER BY start_time`

	result, err := r.query(ctx, q, pgx.NamedArgs{"email": email})
	if err != nil {
		return nil, fmt.Errorf("repo.ReservationRepo.ListByOperator: %w", err)
	}
	return result, nil
}

// ListByPlate returns the car's full reservation history ordered by start_time.
func (r *pgReservationRepo) ListByPlate(ctx context.Context, plate string) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE car_plate = @plate
		ORDER BY start_time`

	result, err := r.query(ctx, q, pgx.NamedArgs{"plate": plate})
	if err != nil {
		return nil, fmt.Errorf("repo.ReservationRepo.ListByPlate: %w", err)
	}
	return result, nil
}

// UpdateStatus performs a compare-and-set on the status column.
func (r *pgReservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) (int64, error) {
	const q = `UPDATE reservations SET status = @to WHERE id = @id AND status = @from`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "from": string(from), "to": string(to)})
	if err != nil {
		return 0, fmt.Errorf("repo.ReservationRepo.UpdateStatus: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Complete closes an ACTIVE reservation. A nil endFuel keeps the stored value.
func (r *pgReservationRepo) Complete(ctx context.Context, id uuid.UUID, endFuel *float64) (int64, error) {
	const q = `
		UPDATE reservations
		SET status   = 'COMPLETE',
		    end_fuel = COALESCE(@end_fuel, end_fuel)
		WHERE id = @id AND status = 'ACTIVE'`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "end_fuel": endFuel})
	if err != nil {
		return 0, fmt.Errorf("repo.ReservationRepo.Complete: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgReservationRepo) query(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Reservation, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}

// scanReservation maps a single database row into a domain.Reservation.
// Timestamps are normalized to UTC regardless of the session timezone.
func scanReservation(s scanner) (domain.Reservation, error) {
	var (
		res           domain.Reservation
		id            pgtype.UUID
		status        string
		billingStatus string
		bookingType   string
		endFuel       pgtype.Float8
	)

	err := s.Scan(&id, &status, &res.StartTime, &res.EndTime, &res.StartParkingName, &res.Car,
		&res.OperatorEmail, &billingStatus, &res.FuelStart, &endFuel, &bookingType, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, err
	}

	res.ID = uuid.UUID(id.Bytes)
	res.Status = domain.ReservationStatus(status)
	res.BillingStatus = domain.BillingStatus(billingStatus)
	res.BookingType = domain.BookingType(bookingType)
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	res.CreatedAt = res.CreatedAt.UTC()
	if endFuel.Valid {
		f := endFuel.Float64
		res.EndFuel = &f
	}
	return res, nil
}
