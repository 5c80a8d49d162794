// notifier delivers queued registration emails. It needs REDIS_URL; the
// server enqueues to the same Redis.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/credential-gateway/config"
	"github.com/ErlanBelekov/credential-gateway/internal/email"
	"github.com/ErlanBelekov/credential-gateway/internal/health"
	ctxlog "github.com/ErlanBelekov/credential-gateway/internal/log"
	"github.com/ErlanBelekov/credential-gateway/internal/metrics"
	"github.com/ErlanBelekov/credential-gateway/internal/notification"
	"github.com/hibiken/asynq"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		stop()
		log.Fatalf("redis uri: %v", err)
	}

	metrics.Register()

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.NotifyConcurrency,
		Queues:          map[string]int{notification.Queue: 1},
		Logger:          newAsynqLogger(logger),
		LogLevel:        asynqLevel(cfg.SlogLevel()),
		ShutdownTimeout: 15 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.ErrorContext(ctx, "notification task failed",
				"type", task.Type(),
				"retry", retried,
				"max_retry", maxRetry,
				"error", err,
			)
		}),
	})

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	h := notification.NewHandler(sender, cfg.AppName, logger)

	if err := srv.Start(h.Mux()); err != nil {
		stop()
		log.Fatalf("start notifier: %v", err)
	}
	logger.Info("notifier started", "concurrency", cfg.NotifyConcurrency, "queue", notification.Queue)

	checker := health.NewChecker(map[string]health.Pinger{
		"redis": health.PingFunc(func(context.Context) error { return srv.Ping() }),
	}, logger, prometheus.DefaultRegisterer)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	// Shutdown waits up to ShutdownTimeout for in-flight sends.
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("notifier shut down")
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
