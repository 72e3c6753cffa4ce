package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// AccessTokenExpiry is the default lifetime of an access token. There is no
// refresh flow; clients log in again once a token expires.
const AccessTokenExpiry = time.Hour

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
)

// Claims are carried by every access token. The subject is the user ID.
type Claims struct {
	jwt.RegisteredClaims

	Username string `json:"usr,omitempty"`
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// IssuedToken is a signed access token and the instant it stops being valid.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// JWTConfig configures token signing. SigningKey must be non-empty.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string

	// TTL defaults to AccessTokenExpiry.
	TTL time.Duration

	Clock clockwork.Clock
}

// JWTService signs and verifies HS256 access tokens.
type JWTService struct {
	key    []byte
	cfg    JWTConfig
	parser *jwt.Parser
}

// NewJWTService creates a JWTService.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = AccessTokenExpiry
	}

	return &JWTService{
		key: []byte(cfg.SigningKey),
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Clock.Now),
		),
	}
}

// TTL returns the configured token lifetime.
func (s *JWTService) TTL() time.Duration { return s.cfg.TTL }

// Issue signs a token for user.
func (s *JWTService) Issue(user *User) (IssuedToken, error) {
	now := s.cfg.Clock.Now().Truncate(time.Second)
	expiresAt := now.Add(s.cfg.TTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username: user.Username,
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and the registered claims of a token.
// Expired tokens yield ErrAccessTokenExpired; every other failure wraps
// ErrInvalidAccessToken.
func (s *JWTService) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidAccessToken)
	}
	return &claims, nil
}
