package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	"github.com/ErlanBelekov/credential-gateway/internal/transport/http/middleware"
	"github.com/ErlanBelekov/credential-gateway/internal/usecase"
	"github.com/ErlanBelekov/credential-gateway/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// DefaultCookieMaxAge is 30 days in seconds.
const DefaultCookieMaxAge = 60 * 60 * 24 * 30

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*domain.User, error)
	CheckUnique(ctx context.Context, email, password string) (*domain.ValidationError, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginResult, error)
	Logout(ctx context.Context, userID, token string) (bool, error)
}

// CookieConfig controls the auth_token cookie. The cookie is always
// HttpOnly and SameSite=Strict.
type CookieConfig struct {
	Domain string
	MaxAge int
	Secure bool
}

type AuthHandler struct {
	authUsecase authUsecaser
	cookie      CookieConfig
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	validation.BindGin()
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = DefaultCookieMaxAge
	}
	return &AuthHandler{
		authUsecase: authUsecase,
		cookie:      cookie,
		logger:      logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Email                string `json:"email"                 binding:"required,email,max=255"`
	Password             string `json:"password"              binding:"required,min=12,max=255,has_upper,has_lower,has_digit,has_symbol,not_common"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

type registerResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	Token   string `json:"token"`
}

type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// POST /auth/register
// 201 {message, email}; 422 {message, errors} on any rule, including an
// email domain without MX records. Uniqueness failures are reported in the
// same 422 as format failures.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	fields, ok := h.decode(c, &req)
	if !ok {
		return
	}
	if fields != nil {
		unique, err := h.authUsecase.CheckUnique(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
			return
		}
		for field, msgs := range unique.Fields {
			fields[field] = append(fields[field], msgs...)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": errValidation, "errors": fields})
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": errValidation, "errors": verr.Fields})
		case errors.Is(err, domain.ErrInvalidEmailDomain):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": errInvalidDomain,
				"errors":  gin.H{"email": []string{errInvalidDomain}},
			})
		default:
			h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusCreated, registerResponse{Message: msgUserCreated, Email: user.Email})
}

// POST /auth/login
// 200 {message, email, token} + auth_token cookie; 401 with a message that
// tells a missing email from a wrong password; 429 with Retry-After.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		var rlErr *domain.RateLimitError
		switch {
		case errors.As(err, &rlErr):
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rlErr)))
			c.JSON(http.StatusTooManyRequests, gin.H{"message": errTooManyAttempts})
		case errors.Is(err, domain.ErrEmailNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"message": errEmailNotFound})
		case errors.Is(err, domain.ErrPasswordIncorrect):
			c.JSON(http.StatusUnauthorized, gin.H{"message": errPasswordWrong})
		default:
			h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		}
		return
	}

	h.setCookie(c, res.Token, h.cookie.MaxAge)
	c.JSON(http.StatusOK, loginResponse{
		Message: msgLoginSuccess,
		Email:   res.User.Email,
		Token:   res.Token,
	})
}

// POST /auth/logout
// Always 200 and always clears the cookie, with or without a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, token := middleware.Session(c)
	if _, err := h.authUsecase.Logout(c.Request.Context(), userID, token); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "logout", "user_id", userID, "error", err)
	}

	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": msgLoggedOut})
}

// GET /auth/me, behind middleware.Auth.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": errUnauthenticated})
		return
	}
	c.JSON(http.StatusOK, meResponse{ID: user.ID, Email: user.Email})
}

// bind decodes and validates the JSON body, writing the error response
// itself when it returns false.
func (h *AuthHandler) bind(c *gin.Context, req any) bool {
	fields, ok := h.decode(c, req)
	if !ok {
		return false
	}
	if fields != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": errValidation, "errors": fields})
		return false
	}
	return true
}

// decode binds the JSON body into req and returns the per-field rule
// failures, nil when there are none. ok is false when the body could not
// be decoded at all; the 400 has been written then. An empty body is
// validated as an empty object so missing fields are reported individually.
func (h *AuthHandler) decode(c *gin.Context, req any) (fields map[string][]string, ok bool) {
	err := c.ShouldBindJSON(req)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(req)
	}
	if err == nil {
		return nil, true
	}

	if fields, ok := validation.Fields(err); ok {
		return fields, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": errMalformedBody})
	return nil, false
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CookieName, value, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func retryAfterSeconds(e *domain.RateLimitError) int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
