package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fleetcare/maintenance-booking/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"reservation_id", "status", "plate", "operator_email", "start_time", "end_time",
	"ticket_id", "ticket_start_date", "ticket_end_date", "tasks",
}

// ExportRow is one JSON row of GET /export.
// Ticket fields are omitted for reservations that never had a ticket.
type ExportRow struct {
	ReservationID   string     `json:"reservation_id"`
	Status          string     `json:"status"`
	Plate           string     `json:"plate"`
	OperatorEmail   string     `json:"operator_email"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	TicketID        *string    `json:"ticket_id,omitempty"`
	TicketStartDate *time.Time `json:"ticket_start_date,omitempty"`
	TicketEndDate   *time.Time `json:"ticket_end_date,omitempty"`
	Tasks           []string   `json:"tasks"`
}

// GetExport handles GET /export.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	format, err := queryString(r, "format")
	if err != nil {
		badRequest(w, "malformed format parameter")
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		badRequest(w, "format must be csv or json")
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	if format != nil && *format == "csv" {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, buildJSONRows(rows))
}

// buildJSONRows converts domain rows to their JSON shape.
func buildJSONRows(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domainRowToJSONRow(r))
	}
	return out
}

// writeCSV encodes domain rows as CSV.
// Tasks within a row are pipe-separated ("|") to keep each reservation on a
// single CSV line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(buf.Bytes())
}

// domainRowToJSONRow maps a domain.ExportRow to its JSON shape.
// An empty ticket id becomes a nil pointer (omitted in JSON).
func domainRowToJSONRow(r domain.ExportRow) ExportRow {
	row := ExportRow{
		ReservationID:   r.ReservationID,
		Status:          string(r.Status),
		Plate:           r.Plate,
		OperatorEmail:   r.OperatorEmail,
		StartTime:       r.StartTime.UTC(),
		EndTime:         r.EndTime.UTC(),
		TicketStartDate: r.TicketStartDate,
		TicketEndDate:   r.TicketEndDate,
		Tasks:           r.Tasks,
	}
	if r.TicketID != "" {
		row.TicketID = &r.TicketID
	}
	if row.Tasks == nil {
		row.Tasks = []string{}
	}
	return row
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// Nil time pointers are encoded as empty strings.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.ReservationID,
		string(r.Status),
		r.Plate,
		r.OperatorEmail,
		r.StartTime.UTC().Format(time.RFC3339),
		r.EndTime.UTC().Format(time.RFC3339),
		r.TicketID,
		formatOptionalTime(r.TicketStartDate),
		formatOptionalTime(r.TicketEndDate),
		strings.Join(r.Tasks, "|"),
	}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
// Ticket dates keep their reference-timezone offset.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
