package httptransport

import (
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/credential-gateway/internal/transport/http/handler"
	"github.com/ErlanBelekov/credential-gateway/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterConfig struct {
	HMACKey        []byte
	CORSOrigins    []string
	TrustedProxies []string
}

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, authn middleware.Authenticator, cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New()
	// nil disables X-Forwarded-For trust; login throttling keys on the peer address then.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	auth := r.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", middleware.OptionalAuth(cfg.HMACKey), authHandler.Logout)
	auth.GET("/me", middleware.Auth(cfg.HMACKey, authn, logger), authHandler.Me)

	return r, nil
}
