package token

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTIssuer signs HS256 bearer tokens. Clients treat them as opaque; each
// carries a fresh jti so two logins in the same second still differ.
type JWTIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewJWTIssuer(key []byte, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{key: key, ttl: ttl, now: time.Now}
}

func (i *JWTIssuer) Issue(user *domain.User) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(i.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (i *JWTIssuer) TTL() time.Duration {
	return i.ttl
}
