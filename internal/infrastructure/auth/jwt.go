// Package auth verifies bearer tokens issued by the account service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
)

var (
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrNotConfigured = errors.New("auth: jwt secret is not configured")
)

type claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWT verifies (and, for tests and tooling, issues) HS256 tokens carrying sub, email and role.
type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

func (j *JWT) Verify(token string) (*domain.Identity, error) {
	if len(j.secret) == 0 {
		return nil, ErrNotConfigured
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role := domain.Role(c.Role)
	switch role {
	case domain.RoleCustomer, domain.RoleModerator, domain.RoleAdmin:
	case "":
		role = domain.RoleCustomer
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}
	return &domain.Identity{UserID: c.Subject, Email: c.Email, Role: role}, nil
}

func (j *JWT) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	if len(j.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := time.Now()
	c := claims{
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
}
