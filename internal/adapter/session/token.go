package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "mailgate/internal/domain/session"
)

// ErrInvalidToken is returned for tokens that fail signature, algorithm or expiry checks.
var ErrInvalidToken = errors.New("invalid session token")

// claims is the JWT payload stored in the session cookie.
type claims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider"`
}

// TokenManager issues and verifies HS256-signed session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	maxAge time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager. The secret must be non-empty.
func NewTokenManager(secret, issuer string, maxAge time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if maxAge <= 0 {
		return nil, errors.New("session max age must be positive")
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// MaxAge returns how long issued sessions live.
func (m *TokenManager) MaxAge() time.Duration {
	return m.maxAge
}

// Issue signs a session token for identity.
func (m *TokenManager) Issue(identity domain.Identity) (string, time.Time, error) {
	if identity.UserID == "" {
		return "", time.Time{}, errors.New("identity has no user id")
	}

	// JWT timestamps are whole seconds.
	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.maxAge)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:     identity.Name,
		Email:    identity.Email,
		Provider: identity.Provider,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a session token and returns the session it carries.
func (m *TokenManager) Parse(raw string) (*domain.Session, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &domain.Session{
		Identity: domain.Identity{
			UserID:   c.Subject,
			Name:     c.Name,
			Email:    c.Email,
			Provider: c.Provider,
		},
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}, nil
}
