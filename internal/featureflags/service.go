package featureflags

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const defaultCacheTTL = time.Minute

type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL bounds how stale a read may be after another replica
	// changes a flag. Defaults to one minute.
	CacheTTL time.Duration

	// DefaultFlags overrides the built-in defaults, mainly for tests.
	DefaultFlags map[string]*Flag

	Clock clockwork.Clock
}

type cacheEntry struct {
	flag    *Flag
	expires time.Time
}

// Service resolves flags: cache, then repository, then defaults. A failing
// repository degrades to the defaults instead of failing the caller.
type Service struct {
	repo     Repository
	log      zerolog.Logger
	ttl      time.Duration
	defaults map[string]*Flag
	clock    clockwork.Clock

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:     cfg.Repository,
		log:      cfg.Logger,
		ttl:      cfg.CacheTTL,
		defaults: cfg.DefaultFlags,
		clock:    cfg.Clock,
		cache:    make(map[string]cacheEntry),
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.defaults == nil {
		s.defaults = DefaultFlags(s.clock.Now())
	}
	return s
}

// GetFlag resolves key, or returns nil for a key the service does not know.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if flag, ok := s.cached(key); ok {
		return flag
	}

	flag, err := s.repo.GetFlag(ctx, key)
	switch {
	case err == nil:
		s.remember(flag)
		return flag
	case errors.Is(err, ErrFlagNotFound):
		if def, ok := s.defaults[key]; ok {
			s.remember(def)
			return def
		}
		return nil
	default:
		s.log.Warn().Err(err).Str("flag", key).Msg("feature flag lookup failed, serving default")
		return s.defaults[key]
	}
}

// GetAllFlags returns every known flag plus any stored override, always
// reading through to the repository.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	all := make(map[string]*Flag, len(s.defaults))
	for key, def := range s.defaults {
		all[key] = def
	}

	stored, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("feature flag listing failed, serving defaults")
		return all
	}
	for key, flag := range stored {
		all[key] = flag
	}
	for _, flag := range all {
		s.remember(flag)
	}
	return all
}

// SetFlags stores overrides on behalf of actor. All updates are validated
// before any is written; an unknown key or a value whose type differs from
// the default fails the whole batch with ErrUnknownFlag.
func (s *Service) SetFlags(ctx context.Context, actor string, updates []FlagUpdate) ([]*Flag, error) {
	for _, u := range updates {
		if err := s.validate(u); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	flags := make([]*Flag, len(updates))
	for i, u := range updates {
		flags[i] = &Flag{Key: u.Key, Value: u.Value, UpdatedAt: now, UpdatedBy: actor}
	}

	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return nil, fmt.Errorf("store feature flags: %w", err)
	}
	for _, flag := range flags {
		s.remember(flag)
	}
	return flags, nil
}

// ResetFlag deletes the override for key and returns the default now in
// effect.
func (s *Service) ResetFlag(ctx context.Context, key string) (*Flag, error) {
	def, ok := s.defaults[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}
	if err := s.repo.DeleteFlag(ctx, key); err != nil {
		return nil, fmt.Errorf("reset feature flag: %w", err)
	}
	s.remember(def)
	return def, nil
}

// InvalidateCache forgets every cached value.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// IsEnabled reports whether key resolves to an enabled switch.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

// IsPreserveZeroValuesEnabled reports whether normalization keeps zero
// readings.
func (s *Service) IsPreserveZeroValuesEnabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagMetarPreserveZeroValues)
}

func (s *Service) validate(u FlagUpdate) error {
	def, ok := s.defaults[u.Key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, u.Key)
	}
	if !sameKind(def.Value, u.Value) {
		return fmt.Errorf("%w: %s expects a %T value", ErrUnknownFlag, u.Key, def.Value)
	}
	return nil
}

func (s *Service) cached(key string) (*Flag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache[key]
	if !ok || !s.clock.Now().Before(e.expires) {
		return nil, false
	}
	return e.flag, true
}

func (s *Service) remember(flag *Flag) {
	s.mu.Lock()
	s.cache[flag.Key] = cacheEntry{flag: flag, expires: s.clock.Now().Add(s.ttl)}
	s.mu.Unlock()
}
