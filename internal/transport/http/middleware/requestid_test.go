package middleware_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/ErlanBelekov/credential-gateway/internal/reqctx"
	"github.com/ErlanBelekov/credential-gateway/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func newRequestIDEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		ctx := c.Request.Context()
		c.String(http.StatusOK, "%s|%s", reqctx.RequestID(ctx), reqctx.ClientIP(ctx))
	})
	return r
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	w := get(newRequestIDEngine(), "/", func(r *http.Request) { r.RemoteAddr = "198.51.100.4:1234" })

	id := w.Header().Get("X-Request-ID")
	if len(id) != 36 {
		t.Fatalf("X-Request-ID = %q, want a uuid", id)
	}
	if want := id + "|198.51.100.4"; w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}
}

func TestRequestID_KeepsWellFormedIncoming(t *testing.T) {
	w := get(newRequestIDEngine(), "/", func(r *http.Request) { r.Header.Set("X-Request-ID", "edge-42.a_b") })

	if got := w.Header().Get("X-Request-ID"); got != "edge-42.a_b" {
		t.Errorf("X-Request-ID = %q, want edge-42.a_b", got)
	}
}

func TestRequestID_ReplacesMalformedIncoming(t *testing.T) {
	for _, bad := range []string{"has space", "new\nline", strings.Repeat("a", 65)} {
		w := get(newRequestIDEngine(), "/", func(r *http.Request) { r.Header["X-Request-Id"] = []string{bad} })

		if got := w.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("incoming %q: X-Request-ID = %q, want a fresh uuid", bad, got)
		}
	}
}
