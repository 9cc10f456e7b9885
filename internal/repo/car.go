package repo

import (
	"context"
	"fmt"

	"github.com/fleetcare/maintenance-booking/internal/domain"
)

// CarRepo is the read side of the car registry.
type CarRepo interface {
	// List returns every registered car ordered by plate.
	List(ctx context.Context) ([]domain.Car, error)
}

type pgCarRepo struct {
	db db
}

// NewCarRepo constructs a CarRepo backed by the provided db connection.
func NewCarRepo(db db) CarRepo {
	return &pgCarRepo{db: db}
}

func (r *pgCarRepo) List(ctx context.Context) ([]domain.Car, error) {
	const q = `SELECT plate, brand, model, year, color FROM cars ORDER BY plate`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.CarRepo.List: %w", err)
	}
	defer rows.Close()

	cars := []domain.Car{}
	for rows.Next() {
		var c domain.Car
		if err := rows.Scan(&c.Plate, &c.Brand, &c.Model, &c.Year, &c.Color); err != nil {
			return nil, fmt.Errorf("repo.CarRepo.List: scan: %w", err)
		}
		cars = append(cars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.CarRepo.List: rows: %w", err)
	}
	return cars, nil
}
