package service

import (
	"context"

	"github.com/fleetcare/maintenance-booking/internal/domain"
	"github.com/fleetcare/maintenance-booking/internal/repo"
)

// ExportService assembles a flat export of all reservations and their tickets.
type ExportService struct {
	reservations repo.ReservationRepo
	tickets      repo.TicketRepo
}

// NewExportService constructs an ExportService backed by the provided repos.
func NewExportService(reservations repo.ReservationRepo, tickets repo.TicketRepo) *ExportService {
	return &ExportService{reservations: reservations, tickets: tickets}
}

// Export returns one ExportRow per reservation, most recent slot first.
// When a reservation has several tickets, the latest one is exported.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	reservations, err := s.reservations.List(ctx)
	if err != nil {
		return nil, wrap("service.ExportService.Export", err)
	}
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, wrap("service.ExportService.Export", err)
	}

	// Tickets come ordered by start date, so later ones overwrite earlier ones.
	latest := make(map[string]domain.ServiceTicket, len(tickets))
	for _, t := range tickets {
		latest[t.ReservationID.String()] = t
	}

	rows := make([]domain.ExportRow, 0, len(reservations))
	for _, r := range reservations {
		row := domain.ExportRow{
			ReservationID: r.ID.String(),
			Status:        r.Status,
			Plate:         r.Car.Plate,
			OperatorEmail: r.OperatorEmail,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
		}
		if t, ok := latest[row.ReservationID]; ok {
			start := t.StartDate
			row.TicketID = t.ID.String()
			row.TicketStartDate = &start
			row.TicketEndDate = t.EndDate
			row.Tasks = t.Tasks
		}
		rows = append(rows, row)
	}
	return rows, nil
}
