package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	"github.com/ErlanBelekov/credential-gateway/internal/email"
	"github.com/ErlanBelekov/credential-gateway/internal/metrics"
)

const inlineSendTimeout = 10 * time.Second

// InlineDispatcher sends from a background goroutine in this process.
// Call Wait during shutdown so in-flight emails are not cut off.
type InlineDispatcher struct {
	sender  email.Sender
	appName string
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewInlineDispatcher(sender email.Sender, appName string, logger *slog.Logger) *InlineDispatcher {
	return &InlineDispatcher{
		sender:  sender,
		appName: appName,
		logger:  logger.With("component", "notifier", "channel", "inline"),
	}
}

func (d *InlineDispatcher) NotifyRegistered(ctx context.Context, user *domain.User) error {
	n := NewRegisterNotification(user)

	// Outlive the request but keep its values (request_id) for logging.
	sendCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(sendCtx, inlineSendTimeout)
		defer cancel()

		if err := d.sender.Send(ctx, n.Message(d.appName)); err != nil {
			metrics.NotificationsTotal.WithLabelValues("inline", "failed").Inc()
			d.logger.ErrorContext(ctx, "send registration email", "user_id", n.UserID, "error", err)
			return
		}
		metrics.NotificationsTotal.WithLabelValues("inline", "sent").Inc()
	}()
	return nil
}

// Wait blocks until every dispatched send has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
