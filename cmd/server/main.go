package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/credential-gateway/config"
	"github.com/ErlanBelekov/credential-gateway/internal/dns"
	"github.com/ErlanBelekov/credential-gateway/internal/email"
	"github.com/ErlanBelekov/credential-gateway/internal/health"
	"github.com/ErlanBelekov/credential-gateway/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/credential-gateway/internal/log"
	"github.com/ErlanBelekov/credential-gateway/internal/metrics"
	"github.com/ErlanBelekov/credential-gateway/internal/notification"
	"github.com/ErlanBelekov/credential-gateway/internal/password"
	"github.com/ErlanBelekov/credential-gateway/internal/ratelimit"
	"github.com/ErlanBelekov/credential-gateway/internal/token"
	httptransport "github.com/ErlanBelekov/credential-gateway/internal/transport/http"
	"github.com/ErlanBelekov/credential-gateway/internal/transport/http/handler"
	"github.com/ErlanBelekov/credential-gateway/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}

	metrics.Register()

	healthDeps := map[string]health.Pinger{"postgres": pool}
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	// Rate limiting and notifications: Redis-backed when REDIS_URL is set,
	// in-process otherwise.
	var (
		limiter  ratelimit.Limiter
		notifier notification.Dispatcher
		shutdown []func()
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis url: %v", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		healthDeps["redis"] = health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		limiter = ratelimit.NewRedisLimiter(rdb, rateLimitPrefix)

		queueOpts, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("asynq redis uri: %v", err)
		}
		client := asynq.NewClient(queueOpts)
		defer client.Close()
		notifier = notification.NewQueueDispatcher(client, logger)
		logger.Info("redis enabled", "rate_limiter", "redis", "notifications", "queue")
	} else {
		mem := ratelimit.NewMemoryLimiter()
		janitor, err := ratelimit.NewJanitor(mem, "@every 1m", func(n int) {
			metrics.RateLimiterPrunedTotal.Add(float64(n))
		})
		if err != nil {
			stop()
			log.Fatalf("limiter janitor: %v", err)
		}
		janitor.Start()
		shutdown = append(shutdown, func() { <-janitor.Stop().Done() })
		limiter = mem

		inline := notification.NewInlineDispatcher(sender, cfg.AppName, logger)
		shutdown = append(shutdown, inline.Wait)
		notifier = inline
		logger.Warn("REDIS_URL not set: rate limits are per process and notifications are sent inline")
	}

	checker := health.NewChecker(healthDeps, logger, prometheus.DefaultRegisterer)

	userRepo := postgres.NewUserRepository(pool)
	tokens := token.NewJWTIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	authUsecase := usecase.NewAuthUsecase(usecase.AuthDeps{
		Users:    userRepo,
		Hasher:   password.NewBcryptHasher(cfg.BcryptCost),
		Tokens:   tokens,
		Limiter:  limiter,
		MX:       dns.NewMXChecker(net.DefaultResolver, cfg.MXLookupTimeout, logger),
		Notifier: notifier,
		Logger:   logger,
	}, usecase.AuthOptions{
		MaxLoginAttempts: cfg.LoginMaxAttempts,
		LoginDecay:       cfg.LoginDecay,
		RevokeOnLogout:   cfg.RevokeTokenOnLogout,
	})
	authHandler := handler.NewAuthHandler(authUsecase, handler.CookieConfig{
		Domain: cfg.CookieDomain,
		MaxAge: int(tokens.TTL().Seconds()),
		Secure: cfg.CookieSecure,
	}, logger)

	router, err := httptransport.NewRouter(logger, authHandler, authUsecase, httptransport.RouterConfig{
		HMACKey:        []byte(cfg.JWTSecret),
		CORSOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		stop()
		log.Fatalf("router: %v", err)
	}

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	for _, fn := range shutdown {
		fn()
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
