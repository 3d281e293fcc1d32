package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRecoverPanic(t *testing.T) {
	app, _ := newTestApplication(t, "")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	app.recoverPanic(next).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
	assert.Contains(t, gjson.Get(rr.Body.String(), "error").String(), "could not process your request")
}

func TestMetrics(t *testing.T) {
	app, _ := newTestApplication(t, "")

	before := totalResponsesSent.Value()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	app.metrics(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, before+1, totalResponsesSent.Value())
	assert.NotNil(t, totalResponsesSentByStatus.Get("418"))
}

func TestEnableCORS(t *testing.T) {
	app, _ := newTestApplication(t, "")
	app.config.cors.trustedOrigins = []string{"https://tunesmith.dev"}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := app.enableCORS(next)

	t.Run("trusted preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/v1/agent/requests", nil)
		r.Header.Set("Origin", "https://tunesmith.dev")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "https://tunesmith.dev", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("untrusted origin", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
		r.Header.Set("Origin", "https://evil.example")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	app, _ := newTestApplication(t, "")
	app.config.limiter.enabled = true
	app.config.limiter.rps = 1
	app.config.limiter.burst = 2

	handler := app.rateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var codes []int
	for range 3 {
		rr := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rr, r)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestAuthenticateDropsUnreadableToken(t *testing.T) {
	app, _ := newTestApplication(t, "")

	var seen *credentials
	handler := app.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = app.contextGetCredentials(r)
	}))

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	ctx, err := app.sessions.Load(r.Context(), "")
	require.NoError(t, err)
	app.sessions.Put(ctx, sessionTokenKey, []byte("not sealed"))

	handler.ServeHTTP(rr, r.WithContext(ctx))

	require.NotNil(t, seen)
	assert.True(t, seen.IsAnonymous())
	assert.False(t, app.sessions.Exists(ctx, sessionTokenKey))
}
