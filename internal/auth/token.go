package auth

import (
	"errors"
	"fmt"
	"time"

	"hrportal/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Tokens signs and verifies HS256 access tokens carrying the caller identity
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl}
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed access token for id
func (t *Tokens) Issue(id model.Identity, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      id.UserID.String(),
		"username": id.Username,
		"role":     id.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(t.ttl).Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenString and returns the identity it asserts
func (t *Tokens) Parse(tokenString string) (model.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Identity{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	role, _ := claims["role"].(string)
	if !model.ValidRole(role) {
		return model.Identity{}, fmt.Errorf("%w: unknown role", ErrInvalidToken)
	}
	username, _ := claims["username"].(string)

	return model.Identity{UserID: userID, Username: username, Role: role}, nil
}
