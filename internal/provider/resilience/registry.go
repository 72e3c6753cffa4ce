package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one provider.
type ProviderHealth struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string

	// OpenedAt is when the circuit last opened. Trips counts how often it
	// has opened since startup.
	OpenedAt *time.Time
	Trips    int
}

// Available reports whether calls currently reach the provider.
func (h ProviderHealth) Available() bool {
	return h.State != gobreaker.StateOpen
}

// Recovering reports whether the circuit is half-open and probing.
func (h ProviderHealth) Recovering() bool {
	return h.State == gobreaker.StateHalfOpen
}

// LastCallFailed reports whether the most recent recorded call failed.
func (h ProviderHealth) LastCallFailed() bool {
	if h.LastFailureAt == nil {
		return false
	}
	return h.LastSuccessAt == nil || h.LastFailureAt.After(*h.LastSuccessAt)
}

// Registry tracks provider clients and the outcome of their calls.
type Registry struct {
	mu        sync.RWMutex
	clock     clockwork.Clock
	providers map[string]*providerEntry
}

type providerEntry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
	openedAt      *time.Time
	trips         int
}

// NewRegistry creates a registry using the wall clock.
func NewRegistry() *Registry {
	return NewRegistryWithClock(clockwork.NewRealClock())
}

// NewRegistryWithClock creates a registry that timestamps events with clock.
func NewRegistryWithClock(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:     clock,
		providers: make(map[string]*providerEntry),
	}
}

// Register adds a client under its name, replacing any previous client.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[c.Name()] = &providerEntry{client: c}
}

// RecordSuccess notes a call that returned data or a definite "no data".
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(e *providerEntry, now time.Time) {
		e.lastSuccessAt = &now
	})
}

// RecordFailure notes a call that failed.
func (r *Registry) RecordFailure(name string, err error) {
	r.update(name, func(e *providerEntry, now time.Time) {
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	})
}

// recordTransition is called by the breaker. It must not touch the breaker.
func (r *Registry) recordTransition(name string, to gobreaker.State) {
	if to != gobreaker.StateOpen {
		return
	}
	r.update(name, func(e *providerEntry, now time.Time) {
		e.openedAt = &now
		e.trips++
	})
}

func (r *Registry) update(name string, fn func(e *providerEntry, now time.Time)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		fn(e, r.clock.Now())
	}
}

// Health returns the health of one provider.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	e, ok := r.providers[name]
	var h ProviderHealth
	if ok {
		h = e.snapshot(name)
	}
	r.mu.RUnlock()

	if !ok {
		return ProviderHealth{}, false
	}
	// Breaker state is read outside the registry lock; the breaker calls
	// back into the registry while holding its own lock.
	h.State, h.Counts = e.client.State(), e.client.Counts()
	return h, true
}

// Snapshot returns the health of every provider, sorted by name.
func (r *Registry) Snapshot() []ProviderHealth {
	r.mu.RLock()
	health := make([]ProviderHealth, 0, len(r.providers))
	clients := make([]*Client, 0, len(r.providers))
	for name, e := range r.providers {
		health = append(health, e.snapshot(name))
		clients = append(clients, e.client)
	}
	r.mu.RUnlock()

	for i, c := range clients {
		health[i].State, health[i].Counts = c.State(), c.Counts()
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })
	return health
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *providerEntry) snapshot(name string) ProviderHealth {
	return ProviderHealth{
		Name:          name,
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
		OpenedAt:      e.openedAt,
		Trips:         e.trips,
	}
}
