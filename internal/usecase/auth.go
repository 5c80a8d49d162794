package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/credential-gateway/internal/dns"
	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	"github.com/ErlanBelekov/credential-gateway/internal/metrics"
	"github.com/ErlanBelekov/credential-gateway/internal/notification"
	"github.com/ErlanBelekov/credential-gateway/internal/ratelimit"
	"github.com/ErlanBelekov/credential-gateway/internal/repository"
)

const (
	defaultMaxLoginAttempts = 5
	defaultLoginDecay       = time.Minute

	loginKeyPrefix = "login:"

	msgEmailTaken    = "The email has already been taken."
	msgPasswordTaken = "The password has already been taken."
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
	NeedsRehash(hash string) bool
}

type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

type MXChecker interface {
	HasMX(ctx context.Context, domain string) bool
}

// AuthDeps are the collaborators the gateway delegates to.
type AuthDeps struct {
	Users    repository.UserRepository
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Limiter  ratelimit.Limiter
	MX       MXChecker
	Notifier notification.Dispatcher
	Logger   *slog.Logger
}

type AuthOptions struct {
	MaxLoginAttempts int
	LoginDecay       time.Duration
	RevokeOnLogout   bool
}

type AuthUsecase struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	limiter  ratelimit.Limiter
	mx       MXChecker
	notifier notification.Dispatcher
	logger   *slog.Logger

	maxAttempts    int
	decay          time.Duration
	revokeOnLogout bool
}

func NewAuthUsecase(deps AuthDeps, opts AuthOptions) *AuthUsecase {
	if opts.MaxLoginAttempts <= 0 {
		opts.MaxLoginAttempts = defaultMaxLoginAttempts
	}
	if opts.LoginDecay <= 0 {
		opts.LoginDecay = defaultLoginDecay
	}
	return &AuthUsecase{
		users:          deps.Users,
		hasher:         deps.Hasher,
		tokens:         deps.Tokens,
		limiter:        deps.Limiter,
		mx:             deps.MX,
		notifier:       deps.Notifier,
		logger:         deps.Logger.With("component", "auth_usecase"),
		maxAttempts:    opts.MaxLoginAttempts,
		decay:          opts.LoginDecay,
		revokeOnLogout: opts.RevokeOnLogout,
	}
}

// RegisterInput has already passed format validation (required, email
// syntax, length, character classes, confirmation).
type RegisterInput struct {
	Email    string
	Password string
}

// Register checks uniqueness and the email domain, stores the user with a
// hashed password and dispatches the welcome notification without waiting
// for delivery.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	verr, err := u.CheckUnique(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if !verr.Empty() {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, verr
	}

	if !u.mx.HasMX(ctx, dns.EmailDomain(in.Email)) {
		metrics.RegistrationsTotal.WithLabelValues("invalid_domain").Inc()
		return nil, domain.ErrInvalidEmailDomain
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, in.Email, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			// Lost a race with a concurrent registration.
			verr.Add("email", msgEmailTaken)
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			return nil, verr
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := u.notifier.NotifyRegistered(ctx, user); err != nil {
		u.logger.WarnContext(ctx, "registration notification not dispatched", "user_id", user.ID, "error", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	u.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// CheckUnique reports the email and password uniqueness failures for a
// registration. Empty values are not looked up. The handler also calls it
// when format rules fail so that every field error is reported together.
func (u *AuthUsecase) CheckUnique(ctx context.Context, email, password string) (*domain.ValidationError, error) {
	verr := domain.NewValidationError()

	if email != "" {
		taken, err := u.users.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			verr.Add("email", msgEmailTaken)
		}
	}

	// Compared against the stored column as is; see PasswordInUse.
	if password != "" {
		taken, err := u.users.PasswordInUse(ctx, password)
		if err != nil {
			return nil, fmt.Errorf("check password: %w", err)
		}
		if taken {
			verr.Add("password", msgPasswordTaken)
		}
	}

	return verr, nil
}

type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

type LoginResult struct {
	User  *domain.User
	Token string
}

// Login throttles by client IP, then verifies credentials and replaces the
// user's current token with a fresh one.
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	key := loginKeyPrefix + in.ClientIP

	limited, err := u.limiter.TooManyAttempts(ctx, key, u.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("check rate limit: %w", err)
	}
	if limited {
		retryAfter, err := u.limiter.AvailableIn(ctx, key)
		if err != nil {
			u.logger.WarnContext(ctx, "rate limit ttl", "error", err)
		}
		metrics.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
		return nil, &domain.RateLimitError{RetryAfter: retryAfter}
	}

	if _, err := u.limiter.Hit(ctx, key, u.decay); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	user, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("email_not_found").Inc()
			return nil, domain.ErrEmailNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := u.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		metrics.LoginAttemptsTotal.WithLabelValues("password_incorrect").Inc()
		return nil, domain.ErrPasswordIncorrect
	}

	token, err := u.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	update := domain.UserUpdate{AuthToken: &token}
	if u.hasher.NeedsRehash(user.PasswordHash) {
		rehashed, err := u.hasher.Hash(in.Password)
		if err != nil {
			u.logger.WarnContext(ctx, "rehash password", "user_id", user.ID, "error", err)
		} else {
			update.PasswordHash = &rehashed
		}
	}

	if err := u.users.Update(ctx, user.ID, update); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	user.AuthToken = &token
	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	u.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{User: user, Token: token}, nil
}

// Logout revokes the caller's server-side token when revocation is enabled
// and the token is still the user's current one. userID and token are empty
// when the request carried no verifiable token. Reports whether a token was
// revoked.
func (u *AuthUsecase) Logout(ctx context.Context, userID, token string) (bool, error) {
	if !u.revokeOnLogout || userID == "" || token == "" {
		metrics.LogoutsTotal.WithLabelValues("false").Inc()
		return false, nil
	}

	revoked, err := u.users.ClearAuthToken(ctx, userID, token)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	metrics.LogoutsTotal.WithLabelValues(fmt.Sprint(revoked)).Inc()
	return revoked, nil
}

// Authenticate resolves the user whose current token is token.
func (u *AuthUsecase) Authenticate(ctx context.Context, userID, token string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.AuthToken == nil || subtle.ConstantTimeCompare([]byte(*user.AuthToken), []byte(token)) != 1 {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}
