package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	ctxlog "github.com/ErlanBelekov/credential-gateway/internal/log"
	"github.com/ErlanBelekov/credential-gateway/internal/reqctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(ctxlog.NewContextHandler(slog.NewJSONHandler(buf, nil)))
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestContextHandler_AddsRequestAttrs(t *testing.T) {
	var buf bytes.Buffer
	ctx := reqctx.WithRequestID(context.Background(), "req-1")
	ctx = reqctx.WithClientIP(ctx, "203.0.113.7")

	newLogger(&buf).With("component", "test").InfoContext(ctx, "hello")

	rec := lastRecord(t, &buf)
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "203.0.113.7", rec["client_ip"])
	assert.Equal(t, "test", rec["component"])
}

func TestContextHandler_NoContextValues(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf).InfoContext(context.Background(), "hello")

	rec := lastRecord(t, &buf)
	assert.NotContains(t, rec, "request_id")
	assert.NotContains(t, rec, "client_ip")
}
