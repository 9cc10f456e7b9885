package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcare/maintenance-booking/internal/domain"
	"github.com/fleetcare/maintenance-booking/internal/handler"
	"github.com/fleetcare/maintenance-booking/internal/middleware"
)

// mockReservationServicer is a test double for handler.ReservationServicer.
// Set only the method fields your test needs.
type mockReservationServicer struct {
	create    func(ctx context.Context, car domain.CarSnapshot, email, day, tod string) (domain.Reservation, error)
	cancel    func(ctx context.Context, id uuid.UUID) (bool, error)
	getByID   func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error)
	listToday func(ctx context.Context, email string) ([]domain.Reservation, error)
}

func (m *mockReservationServicer) Create(ctx context.Context, car domain.CarSnapshot, email, day, tod string) (domain.Reservation, error) {
	return m.create(ctx, car, email, day, tod)
}
func (m *mockReservationServicer) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.cancel(ctx, id)
}
func (m *mockReservationServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return m.getByID(ctx, id)
}
func (m *mockReservationServicer) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockReservationServicer) ListTodayForOperator(ctx context.Context, email string) ([]domain.Reservation, error) {
	return m.listToday(ctx, email)
}

// compile-time check: mockReservationServicer must satisfy handler.ReservationServicer.
var _ handler.ReservationServicer = (*mockReservationServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newReservationHTTPHandler wires a Server with the given mock into the chi
// router, the same way main.go does in production.
func newReservationHTTPHandler(svc handler.ReservationServicer) http.Handler {
	return handler.NewServer(svc, nil, nil, nil).Handler()
}

func reservationFixture() domain.Reservation {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Reservation{
		ID:            uuid.New(),
		Status:        domain.StatusReserved,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Car:           domain.CarSnapshot{Plate: "ABC123", Brand: "Fiat"},
		OperatorEmail: "ana@x.com",
		BillingStatus: domain.BillingOnHold,
		BookingType:   domain.BookingMaintenance,
		CreatedAt:     time.Date(2024, 2, 28, 15, 0, 0, 0, time.UTC),
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// ---- POST /reservations ----------------------------------------------------

func TestCreateReservation_201(t *testing.T) {
	fixture := reservationFixture()
	var gotCar domain.CarSnapshot
	var gotEmail, gotDay, gotTime string
	svc := &mockReservationServicer{
		create: func(_ context.Context, car domain.CarSnapshot, email, day, tod string) (domain.Reservation, error) {
			gotCar, gotEmail, gotDay, gotTime = car, email, day, tod
			return fixture, nil
		},
	}

	body := jsonBody(t, map[string]any{
		"car":             map[string]any{"plate": "ABC123", "brand": "Fiat"},
		"employeeMail":    "ana@x.com",
		"reservationDay":  "2024-03-01",
		"reservationTime": "09:00",
	})
	req := httptest.NewRequest(http.MethodPost, "/reservations", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ABC123", gotCar.Plate)
	assert.Equal(t, "ana@x.com", gotEmail)
	assert.Equal(t, "2024-03-01", gotDay)
	assert.Equal(t, "09:00", gotTime)

	var resp domain.Reservation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.ID)
	assert.Equal(t, domain.StatusReserved, resp.Status)
	assert.True(t, fixture.StartTime.Equal(resp.StartTime))
}

func TestCreateReservation_400_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	newReservationHTTPHandler(&mockReservationServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReservation_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", fmt.Errorf("%w: car, operator email, day and time are required", domain.ErrValidation), http.StatusUnprocessableEntity, "validation_error"},
		{"operator unknown", fmt.Errorf("service.ReservationService.Create: %w", domain.ErrOperatorNotFound), http.StatusNotFound, "not_found"},
		{"operator busy", fmt.Errorf("service.ReservationService.Create: %w", domain.ErrOperatorBusy), http.StatusConflict, "conflict"},
		{"car busy", fmt.Errorf("service.ReservationService.Create: %w", domain.ErrCarBusy), http.StatusConflict, "conflict"},
		{"storage", fmt.Errorf("service.ReservationService.Create: %w: no identifier returned", domain.ErrStorage), http.StatusServiceUnavailable, "storage_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockReservationServicer{
				create: func(context.Context, domain.CarSnapshot, string, string, string) (domain.Reservation, error) {
					return domain.Reservation{}, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/reservations", jsonBody(t, map[string]any{"employeeMail": "ana@x.com"}))
			rec := httptest.NewRecorder()

			newReservationHTTPHandler(svc).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantBody, decodeError(t, rec).Error.Code)
		})
	}
}

func TestCreateReservation_409_MessageHasNoOperationPrefix(t *testing.T) {
	svc := &mockReservationServicer{
		create: func(context.Context, domain.CarSnapshot, string, string, string) (domain.Reservation, error) {
			return domain.Reservation{}, fmt.Errorf("service.ReservationService.Create: %w", domain.ErrCarBusy)
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/reservations", jsonBody(t, map[string]any{}))
	rec := httptest.NewRecorder()

	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict: car busy", decodeError(t, rec).Error.Message)
}

// ---- GET /reservations -----------------------------------------------------

func TestListReservations_200_Paged(t *testing.T) {
	var got domain.PaginationParams
	svc := &mockReservationServicer{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
			got = p
			return []domain.Reservation{reservationFixture()}, 7, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/reservations?page=2&limit=5", nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 5}, got)

	var resp handler.ReservationPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, handler.Pagination{Page: 2, Limit: 5, Total: 7, Pages: 2}, resp.Pagination)
}

func TestListReservations_Defaults(t *testing.T) {
	var got domain.PaginationParams
	svc := &mockReservationServicer{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
			got = p
			return []domain.Reservation{}, 0, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: 20}, got)
}

func TestListReservations_400_BadPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reservations?page=two", nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(&mockReservationServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- GET /reservations/{id} ------------------------------------------------

func TestGetReservation_200(t *testing.T) {
	fixture := reservationFixture()
	svc := &mockReservationServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Reservation, error) {
			if id != fixture.ID {
				return domain.Reservation{}, domain.ErrNotFound
			}
			return fixture, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/reservations/"+fixture.ID.String(), nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.Reservation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.ID)
	assert.Equal(t, "ABC123", resp.Car.Plate)
}

func TestGetReservation_404(t *testing.T) {
	svc := &mockReservationServicer{
		getByID: func(context.Context, uuid.UUID) (domain.Reservation, error) {
			return domain.Reservation{}, fmt.Errorf("service.ReservationService.GetByID: %w", domain.ErrNotFound)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/reservations/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "reservation not found", decodeError(t, rec).Error.Message)
}

func TestGetReservation_400_InvalidUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reservations/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(&mockReservationServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- DELETE /reservations/{id} ---------------------------------------------

func TestCancelReservation_200(t *testing.T) {
	id := uuid.New()
	svc := &mockReservationServicer{
		cancel: func(_ context.Context, got uuid.UUID) (bool, error) {
			assert.Equal(t, id, got)
			return true, nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/reservations/"+id.String(), nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.CancelResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Cancelled)
}

func TestCancelReservation_409_InvalidState(t *testing.T) {
	for _, sentinel := range []error{
		domain.ErrCannotCancelActive,
		domain.ErrCannotCancelCompleted,
		domain.ErrAlreadyCancelled,
		domain.ErrCannotCancelPast,
	} {
		svc := &mockReservationServicer{
			cancel: func(context.Context, uuid.UUID) (bool, error) {
				return false, fmt.Errorf("service.ReservationService.Cancel: %w", sentinel)
			},
		}

		req := httptest.NewRequest(http.MethodDelete, "/reservations/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		newReservationHTTPHandler(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code, sentinel.Error())
		assert.Equal(t, "invalid_state", decodeError(t, rec).Error.Code)
	}
}

// ---- GET /operators/{email}/reservations/today -----------------------------

func TestListTodayReservations_200_DecodesEmail(t *testing.T) {
	var gotEmail string
	svc := &mockReservationServicer{
		listToday: func(_ context.Context, email string) ([]domain.Reservation, error) {
			gotEmail = email
			return []domain.Reservation{reservationFixture()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/operators/ana%40x.com/reservations/today", nil)
	rec := httptest.NewRecorder()
	newReservationHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@x.com", gotEmail)
	var resp []domain.Reservation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp, 1)
}

// ---- body size limit ------------------------------------------------------

// streamedRequest builds a request without a Content-Length, the way chunked
// uploads arrive, so only the body reader can enforce the size limit.
func streamedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.ContentLength = -1
	return req
}

// withBodyLimit serves h behind the body size middleware, as cmd/api does.
func withBodyLimit(h http.Handler) http.Handler {
	return middleware.NewMaxBodySizeHandler(64)(h)
}

func TestCreateReservation_413_StreamedBodyTooLarge(t *testing.T) {
	called := false
	svc := &mockReservationServicer{
		create: func(context.Context, domain.CarSnapshot, string, string, string) (domain.Reservation, error) {
			called = true
			return domain.Reservation{}, nil
		},
	}

	body := `{"employeeMail":"` + strings.Repeat("a", 200) + `@x.com"}`
	rec := httptest.NewRecorder()
	withBodyLimit(newReservationHTTPHandler(svc)).ServeHTTP(rec, streamedRequest(http.MethodPost, "/reservations", body))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, rec).Error.Code)
	assert.False(t, called)
}

func TestCreateReservation_400_MalformedBodyWithinLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	withBodyLimit(newReservationHTTPHandler(&mockReservationServicer{})).
		ServeHTTP(rec, streamedRequest(http.MethodPost, "/reservations", `{"car":`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeError(t, rec).Error.Code)
}
