package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/store"
)

const (
	issuer               = "spbe-devops-academy"
	purposePasswordReset = "password_reset"
)

// Claims are the JWT claims of session and password-reset tokens.
type Claims struct {
	Email    string `json:"email"`
	Provider string `json:"provider,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

// NewTokens creates a token helper.
func NewTokens(secret string, accessTTL, resetTTL time.Duration) *Tokens {
	return &Tokens{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		resetTTL:  resetTTL,
		now:       time.Now,
	}
}

// Issue creates a session token for u.
func (t *Tokens) Issue(u store.User, provider string) (string, time.Time, error) {
	expires := t.now().Add(t.accessTTL)
	token, err := t.sign(Claims{
		Email:            u.Email,
		Provider:         provider,
		RegisteredClaims: t.registered(u.ID, expires),
	})
	return token, expires, err
}

// IssueReset creates a single-purpose password reset token.
func (t *Tokens) IssueReset(u store.User) (string, error) {
	return t.sign(Claims{
		Email:            u.Email,
		Purpose:          purposePasswordReset,
		RegisteredClaims: t.registered(u.ID, t.now().Add(t.resetTTL)),
	})
}

// Parse verifies a session token.
func (t *Tokens) Parse(token string) (*Claims, error) {
	claims, err := t.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, fmt.Errorf("token purpose %q: %w", claims.Purpose, apperr.ErrNotAuthenticated)
	}
	return claims, nil
}

// ParseReset verifies a password reset token.
func (t *Tokens) ParseReset(token string) (*Claims, error) {
	claims, err := t.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purposePasswordReset {
		return nil, fmt.Errorf("not a reset token: %w", apperr.ErrNotAuthenticated)
	}
	return claims, nil
}

func (t *Tokens) registered(subject string, expires time.Time) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}

func (t *Tokens) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %v: %w", err, apperr.ErrNotAuthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token without subject: %w", apperr.ErrNotAuthenticated)
	}
	return claims, nil
}
