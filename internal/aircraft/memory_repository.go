package aircraft

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used for local development and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	legs  []*FlightLeg
	clock clockwork.Clock
}

// NewInMemoryRepository creates a new in-memory flight leg repository.
// A nil clock uses the real clock.
func NewInMemoryRepository(clock clockwork.Clock) *InMemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InMemoryRepository{clock: clock}
}

// List returns every flight leg in insertion order.
func (r *InMemoryRepository) List(_ context.Context) ([]*FlightLeg, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	legs := make([]*FlightLeg, 0, len(r.legs))
	for _, leg := range r.legs {
		cpy := *leg
		legs = append(legs, &cpy)
	}
	return legs, nil
}

// Append stores a flight leg, assigning its ID and CreatedAt.
func (r *InMemoryRepository) Append(_ context.Context, leg *FlightLeg) (*FlightLeg, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *leg
	stored.ID = 1
	if n := len(r.legs); n > 0 {
		stored.ID = r.legs[n-1].ID + 1
	}
	stored.CreatedAt = r.clock.Now().UTC()

	r.legs = append(r.legs, &stored)

	result := stored
	return &result, nil
}

// Exists reports whether a flight leg with the given ID is stored.
func (r *InMemoryRepository) Exists(_ context.Context, id int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, leg := range r.legs {
		if leg.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
