package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fleetcare/maintenance-booking/internal/domain"
	"github.com/fleetcare/maintenance-booking/internal/repo"
)

// CarService exposes the car registry and the remote open/close commands.
// The commands are stubs until the telematics integration exists: they
// validate the plate, log the request and report success.
type CarService struct {
	cars repo.CarRepo
	log  *slog.Logger
}

// NewCarService constructs a CarService.
func NewCarService(cars repo.CarRepo, log *slog.Logger) *CarService {
	return &CarService{cars: cars, log: log}
}

// List returns every registered car.
func (s *CarService) List(ctx context.Context) ([]domain.Car, error) {
	cars, err := s.cars.List(ctx)
	if err != nil {
		return nil, wrap("service.CarService.List", err)
	}
	if cars == nil {
		return []domain.Car{}, nil
	}
	return cars, nil
}

// Open unlocks the car.
func (s *CarService) Open(ctx context.Context, plate string) (bool, error) {
	return s.command(ctx, "open", plate)
}

// Close locks the car.
func (s *CarService) Close(ctx context.Context, plate string) (bool, error) {
	return s.command(ctx, "close", plate)
}

func (s *CarService) command(ctx context.Context, cmd, plate string) (bool, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return false, fmt.Errorf("%w: plate is required", domain.ErrValidation)
	}
	s.log.InfoContext(ctx, "car command", "command", cmd, "plate", plate)
	return true, nil
}
