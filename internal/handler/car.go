package handler

import (
	"context"
	"net/http"
)

// CarCommandResponse is the body of the car open/close endpoints.
type CarCommandResponse struct {
	OK bool `json:"ok"`
}

// ListCars handles GET /cars.
func (s *Server) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.cars.List(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

// OpenCar handles POST /cars/{plate}/open.
func (s *Server) OpenCar(w http.ResponseWriter, r *http.Request) {
	s.carCommand(w, r, s.cars.Open)
}

// CloseCar handles POST /cars/{plate}/close.
func (s *Server) CloseCar(w http.ResponseWriter, r *http.Request) {
	s.carCommand(w, r, s.cars.Close)
}

func (s *Server) carCommand(w http.ResponseWriter, r *http.Request, cmd func(ctx context.Context, plate string) (bool, error)) {
	plate, err := pathString(r, "plate")
	if err != nil {
		badRequest(w, "malformed plate")
		return
	}
	ok, err := cmd(r.Context(), plate)
	if err != nil {
		writeError(w, r, err, "car not found")
		return
	}
	writeJSON(w, http.StatusOK, CarCommandResponse{OK: ok})
}
