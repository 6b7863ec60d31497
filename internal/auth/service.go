// Package auth issues and validates operator bearer tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

const (
	issuer       = "camp-everyday"
	RoleOperator = "operator"
	// DefaultTokenTTL is how long an operator token stays valid.
	DefaultTokenTTL = 12 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Operator is the single finance operator allowed to trigger reconciliations.
type Operator struct {
	Email        string
	PasswordHash string // bcrypt
}

type Service interface {
	Login(ctx context.Context, email, password string) (string, error)
	// ValidateToken returns the subject and role of a valid token.
	ValidateToken(ctx context.Context, token string) (string, string, error)
}

type service struct {
	secret   []byte
	operator Operator
	ttl      time.Duration
	now      func() time.Time
}

func NewService(secret string, operator Operator, ttl time.Duration) Service {
	return newService(secret, operator, ttl, time.Now)
}

func newService(secret string, operator Operator, ttl time.Duration, now func() time.Time) *service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &service{secret: []byte(secret), operator: operator, ttl: ttl, now: now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	if s.operator.Email == "" || s.operator.PasswordHash == "" {
		return "", apperr.New(apperr.ErrUnauthorized, "operator login is not configured")
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(s.operator.Email))) == 1
	// Always run bcrypt so a wrong email costs the same as a wrong password.
	pwErr := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(password))
	if !emailOK || pwErr != nil {
		return "", apperr.Wrap(apperr.ErrUnauthorized, ErrInvalidCredentials, "login")
	}
	return s.issueToken(s.operator.Email, RoleOperator)
}

func (s *service) issueToken(subject, role string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInternal, err, "sign token")
	}
	return signed, nil
}

func (s *service) ValidateToken(ctx context.Context, token string) (string, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", "", apperr.Wrap(apperr.ErrUnauthorized, err, "invalid token")
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return "", "", apperr.New(apperr.ErrUnauthorized, "invalid token")
	}
	return c.Subject, c.Role, nil
}
