package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	// CookieName carries the bearer token for browser clients.
	CookieName = "auth_token"

	errUnauthenticated = "Unauthenticated."

	ctxUserID = "userID"
	ctxToken  = "authToken"
	ctxUser   = "user"
)

// Authenticator resolves the user whose current token is token.
type Authenticator interface {
	Authenticate(ctx context.Context, userID, token string) (*domain.User, error)
}

// Auth requires a valid HS256 token that is also the user's current stored
// token. It sets "userID" and "user" in the gin context.
func Auth(hmacKey []byte, authn Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := rawToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthenticated})
			return
		}

		userID, err := verify(raw, hmacKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthenticated})
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), userID, raw)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				logger.ErrorContext(c.Request.Context(), "authenticate", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthenticated})
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxToken, raw)
		c.Set(ctxUser, user)
		c.Next()
	}
}

// OptionalAuth records "userID" and the raw token when the request carries
// a verifiable token, and lets every request through.
func OptionalAuth(hmacKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := rawToken(c); raw != "" {
			if userID, err := verify(raw, hmacKey); err == nil {
				c.Set(ctxUserID, userID)
				c.Set(ctxToken, raw)
			}
		}
		c.Next()
	}
}

// Session returns what Auth or OptionalAuth stored. Empty strings when absent.
func Session(c *gin.Context) (userID, token string) {
	return c.GetString(ctxUserID), c.GetString(ctxToken)
}

// CurrentUser returns the user set by Auth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}

// rawToken prefers the Authorization header and falls back to the cookie.
func rawToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

func verify(raw string, hmacKey []byte) (string, error) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, hmacKey), jwt.WithValidate(true))
	if err != nil {
		return "", err
	}
	if tok.Subject() == "" {
		return "", domain.ErrTokenInvalid
	}
	return tok.Subject(), nil
}
