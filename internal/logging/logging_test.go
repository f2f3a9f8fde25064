package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WithContext(r.Context()).Info("inside")
		seen = w.Header().Get("X-Request-ID")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/media/1", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "request completed", entries[1].Message)
	assert.Equal(t, int64(http.StatusTeapot), entries[1].ContextMap()["status"])
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	h := Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	require.NoError(t, Init(Config{Level: "bogus", Format: "console", OutputPath: "stderr"}))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
}
