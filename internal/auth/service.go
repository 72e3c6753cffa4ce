package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Demo account seeded on startup.
const (
	DemoUsername = "demo"
	DemoPassword = "demo123"
)

// Predefined service errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrValidation         = errors.New("validation error")
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// FindByUsername finds a user by their login name.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// Exists reports whether a username is taken.
	Exists(ctx context.Context, username string) (bool, error)

	// List returns all users.
	List(ctx context.Context) ([]*User, error)
}

// Service provides authentication operations.
type Service struct {
	jwtService *JWTService
	userRepo   UserRepository
	clock      clockwork.Clock
	logger     zerolog.Logger
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
	UserRepo   UserRepository
	Clock      clockwork.Clock
	Logger     zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		jwtService: cfg.JWTService,
		userRepo:   cfg.UserRepo,
		clock:      clock,
		logger:     cfg.Logger,
	}
}

// Login checks a username/password pair and returns an access token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	creds := Credentials{Username: username, Password: password}
	creds.Normalize()
	if len(creds.Validate()) > 0 {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, creds.Password) {
		s.logger.Info().Str("username", creds.Username).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	return s.generateToken(user)
}

// CreateUser registers a new account.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*User, error) {
	creds := Credentials{Username: username, Password: password}
	creds.Normalize()
	if errs := creds.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, errs[0].Message)
	}

	exists, err := s.userRepo.Exists(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("checking user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           generateUserID(),
		Username:     creds.Username,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user created")

	return user, nil
}

// EnsureDemoUser creates the demo account if it does not exist yet.
func (s *Service) EnsureDemoUser(ctx context.Context) error {
	exists, err := s.userRepo.Exists(ctx, DemoUsername)
	if err != nil {
		return fmt.Errorf("checking demo user: %w", err)
	}
	if exists {
		return nil
	}

	_, err = s.CreateUser(ctx, DemoUsername, DemoPassword)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	return err
}

// ListUsers returns all registered users.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.userRepo.List(ctx)
}

// ValidateAccessToken validates an access token and returns the caller.
func (s *Service) ValidateAccessToken(tokenString string) (*Principal, error) {
	claims, err := s.jwtService.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return &Principal{UserID: claims.UserID(), Username: claims.Username}, nil
}

// generateToken issues an access token for a user.
func (s *Service) generateToken(user *User) (*TokenResponse, error) {
	issued, err := s.jwtService.Issue(user)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtService.TTL().Seconds()),
		User:        user,
	}, nil
}

// generateUserID generates a unique user ID with prefix.
func generateUserID() string {
	return "usr_" + uuid.New().String()[:22]
}
