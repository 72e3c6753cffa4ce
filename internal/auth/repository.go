package auth

import (
	"context"
	"sort"
	"sync"
)

// InMemoryUserRepository is an in-memory implementation of UserRepository.
// Used for local development and tests.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by username
}

var _ UserRepository = (*InMemoryUserRepository)(nil)

// NewInMemoryUserRepository creates a new in-memory user repository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*User),
	}
}

// FindByUsername finds a user by their login name.
func (r *InMemoryUserRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}

	// Return a copy to avoid mutation
	userCopy := *user
	return &userCopy, nil
}

// Create stores a new user. Returns ErrUserExists if the username is taken.
func (r *InMemoryUserRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return ErrUserExists
	}

	userCopy := *user
	r.users[user.Username] = &userCopy

	return nil
}

// Exists reports whether a user with the given username is stored.
func (r *InMemoryUserRepository) Exists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[username]
	return ok, nil
}

// List returns all users ordered by username.
func (r *InMemoryUserRepository) List(_ context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*User, 0, len(r.users))
	for _, user := range r.users {
		userCopy := *user
		users = append(users, &userCopy)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})

	return users, nil
}
