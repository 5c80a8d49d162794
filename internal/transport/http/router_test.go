package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErlanBelekov/credential-gateway/internal/domain"
	httptransport "github.com/ErlanBelekov/credential-gateway/internal/transport/http"
	"github.com/ErlanBelekov/credential-gateway/internal/transport/http/handler"
	"github.com/ErlanBelekov/credential-gateway/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsecase struct{}

func (stubUsecase) Register(_ context.Context, in usecase.RegisterInput) (*domain.User, error) {
	return &domain.User{ID: "user-1", Email: in.Email}, nil
}

func (stubUsecase) CheckUnique(context.Context, string, string) (*domain.ValidationError, error) {
	return domain.NewValidationError(), nil
}

func (stubUsecase) Login(context.Context, usecase.LoginInput) (*usecase.LoginResult, error) {
	return nil, domain.ErrEmailNotFound
}

func (stubUsecase) Logout(context.Context, string, string) (bool, error) { return false, nil }

func (stubUsecase) Authenticate(context.Context, string, string) (*domain.User, error) {
	return nil, domain.ErrUnauthorized
}

func newRouter(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := stubUsecase{}
	h := handler.NewAuthHandler(uc, handler.CookieConfig{Secure: true}, logger)

	r, err := httptransport.NewRouter(logger, h, uc, httptransport.RouterConfig{
		HMACKey:     []byte("router-test-secret-32-characters!"),
		CORSOrigins: origins,
	})
	require.NoError(t, err)
	return r
}

func TestRouter_Routes(t *testing.T) {
	r := newRouter(t, nil)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/auth/register", `{"email":"a@validmx.com","password":"Abcdef1!2345","password_confirmation":"Abcdef1!2345"}`, http.StatusCreated},
		{http.MethodPost, "/auth/login", `{"email":"a@validmx.com","password":"x"}`, http.StatusUnauthorized},
		{http.MethodPost, "/auth/logout", "", http.StatusOK},
		{http.MethodGet, "/auth/me", "", http.StatusUnauthorized},
		{http.MethodGet, "/jobs", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newRouter(t, []string{"https://app.example.com"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_CORSUnknownOriginRejected(t *testing.T) {
	r := newRouter(t, []string{"https://app.example.com"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_InvalidTrustedProxy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewAuthHandler(stubUsecase{}, handler.CookieConfig{}, logger)

	_, err := httptransport.NewRouter(logger, h, stubUsecase{}, httptransport.RouterConfig{
		TrustedProxies: []string{"not-an-ip"},
	})
	assert.Error(t, err)
}
