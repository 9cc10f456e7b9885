package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fleetcare/maintenance-booking/internal/domain"
)

// ErrorDetail is the machine-readable code and human-readable message of a
// failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client is gone if this fails; nothing left to do.
	json.NewEncoder(w).Encode(v)
}

// badRequest rejects a request before it reaches the service layer
// (e.g. missing or malformed body, unparseable path parameter).
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: "bad_request", Message: message}})
}

// decodeBody decodes the JSON request body into v. A body cut off by the
// size limit gets 413, anything else that does not decode gets 400 with
// malformed as the message. Returns false when a response was written.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, malformed string) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{Code: "payload_too_large", Message: "request body too large"}})
		return false
	}
	badRequest(w, malformed)
	return false
}

// writeError maps a service error onto its HTTP status and error body.
// The handler is the layer that knows what was being looked up, so callers
// pass the not-found message.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("validation_error", err))
	case errors.Is(err, domain.ErrOperatorNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: "operator not found"}})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: notFound}})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict", err))
	case errors.Is(err, domain.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorBody("invalid_state", err))
	case errors.Is(err, domain.ErrStorage):
		slog.ErrorContext(r.Context(), "storage failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: ErrorDetail{Code: "storage_error", Message: "storage unavailable, retry later"}})
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{Code: "internal_error", Message: "internal server error"}})
	}
}

func errorBody(code string, err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: unwrapMessage(err)}}
}

// unwrapMessage drops the "pkg.Type.Method: " operation prefixes that the
// service and repo layers add while wrapping.
// e.g. "service.ReservationService.Create: conflict: car busy" → "conflict: car busy"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	parts := strings.Split(err.Error(), ": ")
	for len(parts) > 1 && isOpName(parts[0]) {
		parts = parts[1:]
	}
	return strings.Join(parts, ": ")
}

// isOpName reports whether s looks like an operation prefix such as
// "service.TicketService.Close", optionally followed by one qualifier as in
// "events.Bus.Publish ticket.opened".
func isOpName(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 || fields[0] != s[:len(fields[0])] {
		return false
	}
	return strings.Count(fields[0], ".") >= 2
}
