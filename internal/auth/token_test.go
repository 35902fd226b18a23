package auth

import (
	"testing"
	"time"

	"hrportal/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	id := model.Identity{UserID: uuid.New(), Username: "hr.jane", Role: model.RoleHR}

	signed, err := tokens.Issue(id, time.Now())
	require.NoError(t, err)

	got, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	id := model.Identity{UserID: uuid.New(), Username: "ana", Role: model.RoleEmployee}

	expired, err := tokens.Issue(id, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = tokens.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewTokens([]byte("other"), time.Hour).Issue(id, time.Now())
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.UserID.String(),
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := badRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
