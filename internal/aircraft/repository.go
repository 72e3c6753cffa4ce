package aircraft

import "context"

// Repository defines the interface for flight leg persistence.
type Repository interface {
	// List returns every flight leg in insertion order.
	List(ctx context.Context) ([]*FlightLeg, error)

	// Append stores a flight leg, assigning its ID and CreatedAt.
	// IDs are one more than the last stored ID, starting at 1.
	Append(ctx context.Context, leg *FlightLeg) (*FlightLeg, error)

	// Exists reports whether a flight leg with the given ID is stored.
	Exists(ctx context.Context, id int) (bool, error)
}
