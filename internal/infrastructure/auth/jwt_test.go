package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
)

func TestIssueAndVerify(t *testing.T) {
	j := NewJWT("s3cret")
	tok, err := j.Issue(domain.Identity{UserID: "u1", Email: "a@b.co", Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	id, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "a@b.co", id.Email)
	assert.True(t, id.IsAdmin())
}

func TestVerifyRejectsWrongSecretAndExpired(t *testing.T) {
	tok, err := NewJWT("other").Issue(domain.Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = NewJWT("s3cret").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWT("s3cret").Issue(domain.Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = NewJWT("s3cret").Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = NewJWT("s3cret").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMissingRoleDefaultsToCustomer(t *testing.T) {
	j := NewJWT("s3cret")
	tok, err := j.Issue(domain.Identity{UserID: "u2"}, time.Hour)
	require.NoError(t, err)
	id, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, id.Role)
	assert.False(t, id.IsAdmin())
}
