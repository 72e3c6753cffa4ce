package aircraft

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

// NewPostgresRepository creates a new PostgreSQL flight leg repository.
// A nil clock uses the real clock.
func NewPostgresRepository(pool *pgxpool.Pool, clock clockwork.Clock) *PostgresRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostgresRepository{pool: pool, clock: clock}
}

// List returns every flight leg in insertion order.
func (r *PostgresRepository) List(ctx context.Context) ([]*FlightLeg, error) {
	query := `
		SELECT id, aircraft_no, origin, destination, departure, created_at
		FROM flight_legs
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing flight legs: %w", err)
	}
	defer rows.Close()

	legs := []*FlightLeg{}
	for rows.Next() {
		var leg FlightLeg
		err := rows.Scan(
			&leg.ID,
			&leg.AircraftNo,
			&leg.Origin,
			&leg.Destination,
			&leg.Departure,
			&leg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning flight leg: %w", err)
		}
		legs = append(legs, &leg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return legs, nil
}

// Append stores a flight leg, assigning its ID and CreatedAt.
// The table is locked for the duration of the insert so concurrent appends
// cannot compute the same ID.
func (r *PostgresRepository) Append(ctx context.Context, leg *FlightLeg) (*FlightLeg, error) {
	stored := *leg
	stored.CreatedAt = r.clock.Now().UTC()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE flight_legs IN EXCLUSIVE MODE`); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(id), 0) + 1 FROM flight_legs`,
		).Scan(&stored.ID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO flight_legs (id, aircraft_no, origin, destination, departure, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			stored.ID,
			stored.AircraftNo,
			stored.Origin,
			stored.Destination,
			stored.Departure,
			stored.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("appending flight leg: %w", err)
	}

	return &stored, nil
}

// Exists reports whether a flight leg with the given ID is stored.
func (r *PostgresRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM flight_legs WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking flight leg: %w", err)
	}
	return exists, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
