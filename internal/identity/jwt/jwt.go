// Package jwt issues and validates the access and refresh tokens used by
// the authentication flows. Access and refresh tokens are signed with
// separate secrets; a refresh token additionally carries the access token
// it was issued alongside.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feldgrau/accountd/internal/domain"
)

// Config holds signing secrets and token lifetimes.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims is the payload carried by both token kinds. AccessToken is only
// set on refresh tokens.
type Claims struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	AccessToken string      `json:"accessToken,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned for tokens that fail parsing, signature
// verification, or expiry checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// Manager signs and validates token pairs.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager creates a token manager.
func NewManager(config Config) (*Manager, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, errors.New("jwt: both secrets are required")
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = 2 * time.Hour
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Manager{config: config, now: time.Now}, nil
}

// Pair is an issued access and refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issue creates a new token pair for the customer.
func (m *Manager) Issue(customer *domain.Customer) (*Pair, error) {
	accessToken, err := m.sign(customer, "", m.config.AccessSecret, m.config.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := m.sign(customer, accessToken, m.config.RefreshSecret, m.config.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (m *Manager) sign(customer *domain.Customer, accessToken, secret string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:      customer.ID,
		Email:       customer.Email,
		Role:        customer.Role,
		AccessToken: accessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAccess parses and verifies an access token.
func (m *Manager) ValidateAccess(tokenString string) (*Claims, error) {
	return m.validate(tokenString, m.config.AccessSecret)
}

// ValidateRefresh parses and verifies a refresh token.
func (m *Manager) ValidateRefresh(tokenString string) (*Claims, error) {
	return m.validate(tokenString, m.config.RefreshSecret)
}

func (m *Manager) validate(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
