package auth

import (
	"errors"
	"time"

	"rest-polls/internal/app"
	"rest-polls/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("auth secret not configured")
)

// Manager issues and verifies HS256 bearer tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

type Claims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

// NewManager requires a non-empty secret; anyone could mint staff tokens otherwise.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for subject.
func (m *Manager) Issue(subject string, staff bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Staff: staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Actor verifies token and returns the caller it identifies.
func (m *Manager) Actor(token string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return domain.Actor{}, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{Subject: claims.Subject, Staff: claims.Staff}, nil
}

// Gate grants writes to staff actors only.
type Gate struct{}

var _ app.PermissionGate = Gate{}

func (Gate) CanWrite(actor domain.Actor) bool {
	return actor.Staff
}
