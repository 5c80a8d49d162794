package repository

import (
	"context"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
)

// UseCase depends on interface, not concrete implementation, so tests can
// pass a fake and the store can be swapped without touching the usecase.
type UserRepository interface {
	// Create inserts a user. Returns domain.ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, email, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// PasswordInUse reports whether any stored password column equals value.
	PasswordInUse(ctx context.Context, value string) (bool, error)

	Update(ctx context.Context, id string, fields domain.UserUpdate) error

	// ClearAuthToken nulls the user's token only if it still equals token.
	// Reports whether a row was changed.
	ClearAuthToken(ctx context.Context, id, token string) (bool, error)
}
