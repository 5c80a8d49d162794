// Package notification delivers the welcome message sent after a user
// registers. Delivery never blocks the registration response: the inline
// dispatcher sends from a goroutine, the queue dispatcher hands the work to
// the notifier worker through asynq.
package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	"github.com/ErlanBelekov/credential-gateway/internal/email"
)

const tagRegister = "registration"

// Dispatcher accepts a registration notification for delivery. A nil error
// means the notification was accepted, not that it was delivered.
type Dispatcher interface {
	NotifyRegistered(ctx context.Context, user *domain.User) error
}

type RegisterNotification struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func NewRegisterNotification(user *domain.User) RegisterNotification {
	return RegisterNotification{UserID: user.ID, Email: user.Email}
}

func (n RegisterNotification) Subject(appName string) string {
	return fmt.Sprintf("Welcome to %s", appName)
}

func (n RegisterNotification) Body(appName string) string {
	app := html.EscapeString(appName)
	return fmt.Sprintf(
		`<p>Hi %s,</p><p>Your %s account has been created. You can now sign in with this email address.</p>`,
		html.EscapeString(n.Email), app,
	)
}

func (n RegisterNotification) Text(appName string) string {
	return fmt.Sprintf("Hi %s,\n\nYour %s account has been created. You can now sign in with this email address.\n", n.Email, appName)
}

// Message renders n as the email sent to the new user.
func (n RegisterNotification) Message(appName string) email.Message {
	return email.Message{
		To:      n.Email,
		Subject: n.Subject(appName),
		HTML:    n.Body(appName),
		Text:    n.Text(appName),
		Tag:     tagRegister,
	}
}
