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

// TicketRepo defines the persistence operations for ServiceTickets.
type TicketRepo interface {
	// Create inserts a new ticket and returns the persisted record. A zero ID
	// is replaced by a freshly generated one.
	Create(ctx context.Context, t domain.ServiceTicket) (domain.ServiceTicket, error)

	// GetByID retrieves a ticket by primary key.
	// Returns domain.ErrNotFound if no ticket with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.ServiceTicket, error)

	// GetByPlateAndReservation retrieves the most recent ticket opened for the
	// given plate and reservation. Returns domain.ErrNotFound if there is none.
	GetByPlateAndReservation(ctx context.Context, plate string, reservationID uuid.UUID) (domain.ServiceTicket, error)

	// List returns all tickets ordered by start_date.
	List(ctx context.Context) ([]domain.ServiceTicket, error)

	// Close stores the completed tasks, the closing user and the end date on an
	// open ticket and returns the number of rows changed. Zero means the ticket
	// was missing or already closed.
	Close(ctx context.Context, id uuid.UUID, tasks []string, userEmail string, endDate time.Time) (int64, error)

	// Reopen restores a closed ticket to prev's tasks and user email with no
	// end date. Returns the number of rows changed.
	Reopen(ctx context.Context, prev domain.ServiceTicket) (int64, error)

	// Delete removes a ticket. Deleting a missing ticket is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTicketRepo is the Postgres implementation of TicketRepo.
type pgTicketRepo struct {
	db db
}

// NewTicketRepo constructs a TicketRepo backed by the provided db connection.
func NewTicketRepo(db db) TicketRepo {
	return &pgTicketRepo{db: db}
}

const ticketColumns = `id, plate, reservation_id, user_email, start_date, end_date, tasks`

func (r *pgTicketRepo) Create(ctx context.Context, t domain.ServiceTicket) (domain.ServiceTicket, error) {
	const q = `
		INSERT INTO service_tickets (id, plate, reservation_id, user_email, start_date, tasks)
		VALUES (@id, @plate, @reservation_id, @user_email, @start_date, @tasks)
		RETURNING ` + ticketColumns

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	tasks := t.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	args := pgx.NamedArgs{
		"id":             t.ID,
		"plate":          t.Plate,
		"reservation_id": t.ReservationID,
		"user_email":     t.UserEmail,
		"start_date":     t.StartDate,
		"tasks":          tasks,
	}

	result, err := scanTicket(r.db.QueryRow(ctx, q, args))
	if isForeignKeyViolation(err) {
		return domain.ServiceTicket{}, fmt.Errorf("repo.TicketRepo.Create: reservation %s: %w", t.ReservationID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ServiceTicket{}, fmt.Errorf("repo.TicketRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTicketRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ServiceTicket, error) {
	q := `SELECT ` + ticketColumns + ` FROM service_tickets WHERE id = @id`

	result, err := scanTicket(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.ServiceTicket{}, fmt.Errorf("repo.TicketRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTicketRepo) GetByPlateAndReservation(ctx context.Context, plate string, reservationID uuid.UUID) (domain.ServiceTicket, error) {
	q := `SELECT ` + ticketColumns + `
		FROM service_tickets
		WHERE plate = @plate AND reservation_id = @reservation_id
		ORDER BY start_date DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"plate": plate, "reservation_id": reservationID})
	result, err := scanTicket(row)
	if err != nil {
		return domain.ServiceTicket{}, fmt.Errorf("repo.TicketRepo.GetByPlateAndReservation: %w", err)
	}
	return result, nil
}

func (r *pgTicketRepo) List(ctx context.Context) ([]domain.ServiceTicket, error) {
	q := `SELECT ` + ticketColumns + ` FROM service_tickets ORDER BY start_date`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TicketRepo.List: %w", err)
	}
	defer rows.Close()

	tickets := []domain.ServiceTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TicketRepo.List: scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TicketRepo.List: rows: %w", err)
	}
	return tickets, nil
}

// Close only touches tickets whose end_date is still NULL, so a ticket
// cannot be closed twice even by concurrent callers.
func (r *pgTicketRepo) Close(ctx context.Context, id uuid.UUID, tasks []string, userEmail string, endDate time.Time) (int64, error) {
	const q = `
		UPDATE service_tickets
		SET tasks      = @tasks,
		    end_date   = @end_date,
		    user_email = CASE WHEN @user_email = '' THEN user_email ELSE @user_email END
		WHERE id = @id AND end_date IS NULL`

	args := pgx.NamedArgs{"id": id, "tasks": tasks, "user_email": userEmail, "end_date": endDate}
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("repo.TicketRepo.Close: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgTicketRepo) Reopen(ctx context.Context, prev domain.ServiceTicket) (int64, error) {
	const q = `
		UPDATE service_tickets
		SET tasks      = @tasks,
		    user_email = @user_email,
		    end_date   = NULL
		WHERE id = @id AND end_date IS NOT NULL`

	tasks := prev.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	args := pgx.NamedArgs{"id": prev.ID, "tasks": tasks, "user_email": prev.UserEmail}
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("repo.TicketRepo.Reopen: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgTicketRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM service_tickets WHERE id = @id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id}); err != nil {
		return fmt.Errorf("repo.TicketRepo.Delete: %w", err)
	}
	return nil
}

// scanTicket maps a single database row into a domain.ServiceTicket.
func scanTicket(s scanner) (domain.ServiceTicket, error) {
	var (
		t       domain.ServiceTicket
		id      pgtype.UUID
		resID   pgtype.UUID
		endDate pgtype.Timestamptz
	)

	err := s.Scan(&id, &t.Plate, &resID, &t.UserEmail, &t.StartDate, &endDate, &t.Tasks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ServiceTicket{}, domain.ErrNotFound
		}
		return domain.ServiceTicket{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.ReservationID = uuid.UUID(resID.Bytes)
	if endDate.Valid {
		ed := endDate.Time
		t.EndDate = &ed
	}
	if t.Tasks == nil {
		t.Tasks = []string{}
	}
	return t, nil
}
