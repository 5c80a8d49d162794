package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	"github.com/ErlanBelekov/credential-gateway/internal/email"
	"github.com/ErlanBelekov/credential-gateway/internal/metrics"
	"github.com/hibiken/asynq"
)

const (
	TypeRegister = "notification:register"
	Queue        = "notifications"

	maxRetry    = 3
	taskTimeout = 30 * time.Second
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher enqueues notifications for cmd/notifier to deliver.
type QueueDispatcher struct {
	client Enqueuer
	logger *slog.Logger
}

func NewQueueDispatcher(client Enqueuer, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		client: client,
		logger: logger.With("component", "notifier", "channel", "queue"),
	}
}

func (d *QueueDispatcher) NotifyRegistered(ctx context.Context, user *domain.User) error {
	task, err := NewRegisterTask(NewRegisterNotification(user))
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task,
		asynq.Queue(Queue),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
	)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("queue", "enqueue_failed").Inc()
		return fmt.Errorf("enqueue registration notification: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("queue", "enqueued").Inc()
	d.logger.DebugContext(ctx, "registration notification enqueued", "task_id", info.ID, "user_id", user.ID)
	return nil
}

func NewRegisterTask(n RegisterNotification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return asynq.NewTask(TypeRegister, payload), nil
}

// Handler delivers queued registration notifications. It implements asynq.Handler.
type Handler struct {
	sender  email.Sender
	appName string
	logger  *slog.Logger
}

func NewHandler(sender email.Sender, appName string, logger *slog.Logger) *Handler {
	return &Handler{
		sender:  sender,
		appName: appName,
		logger:  logger.With("component", "notification_worker"),
	}
}

func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var n RegisterNotification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		h.logger.ErrorContext(ctx, "drop malformed notification", "error", err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if n.Email == "" {
		return fmt.Errorf("notification for user %q has no email: %w", n.UserID, asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, n.Message(h.appName)); err != nil {
		metrics.NotificationsTotal.WithLabelValues("queue", "failed").Inc()
		return fmt.Errorf("send registration email: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("queue", "sent").Inc()
	h.logger.InfoContext(ctx, "registration email sent", "user_id", n.UserID)
	return nil
}

// Mux routes notification task types to h.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeRegister, h)
	return mux
}
