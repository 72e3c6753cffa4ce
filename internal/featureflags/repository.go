package featureflags

import (
	"context"
	"errors"
)

// Feature flag errors.
var (
	ErrFlagNotFound = errors.New("feature flag not found")
	ErrUnknownFlag  = errors.New("unknown feature flag")
)

// Repository stores flag overrides. A key without a stored override falls
// back to its code default.
type Repository interface {
	// GetFlag returns the override for key, or ErrFlagNotFound.
	GetFlag(ctx context.Context, key string) (*Flag, error)

	// GetAllFlags returns every stored override keyed by flag key.
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	// SetFlags writes all overrides or none.
	SetFlags(ctx context.Context, flags []*Flag) error

	// DeleteFlag drops the override for key. Deleting a missing key is not
	// an error.
	DeleteFlag(ctx context.Context, key string) error
}
