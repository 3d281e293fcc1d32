package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHealthcheck(t *testing.T) {
	app, _ := newTestApplication(t, "")
	ts := newTestServer(t, app)

	code, _, body := ts.do(t, http.MethodGet, "/v1/healthcheck", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "available", gjson.Get(body, "status").String())
	assert.Equal(t, "testing", gjson.Get(body, "system_info.environment").String())
}

func TestAuthStatus(t *testing.T) {
	app, _ := newTestApplication(t, "")
	ts := newTestServer(t, app)

	_, _, body := ts.do(t, http.MethodGet, "/v1/auth/status", nil)
	assert.JSONEq(t, `{"authenticated": false}`, body)

	ts.login(t, uuid.New())

	_, _, body = ts.do(t, http.MethodGet, "/v1/auth/status", nil)
	assert.JSONEq(t, `{"authenticated": true}`, body)
}

func startLogin(t *testing.T, ts *testServer) string {
	t.Helper()

	code, _, body := ts.do(t, http.MethodGet, "/v1/auth/login", nil)
	require.Equal(t, http.StatusOK, code)

	authURL, err := url.Parse(gjson.Get(body, "auth_url").String())
	require.NoError(t, err)

	state := authURL.Query().Get("state")
	require.Len(t, state, stateLength)
	return state
}

func TestCallbackRejections(t *testing.T) {
	app, _ := newTestApplication(t, "")
	ts := newTestServer(t, app)

	t.Run("state mismatch", func(t *testing.T) {
		startLogin(t, ts)

		code, _, body := ts.do(t, http.MethodGet, "/v1/auth/callback?state=forged&code=abc", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "State mismatch. Possible CSRF attack.", gjson.Get(body, "error").String())
	})

	t.Run("state is single use", func(t *testing.T) {
		state := startLogin(t, ts)

		code, _, _ := ts.do(t, http.MethodGet, "/v1/auth/callback?state="+state, nil)
		assert.Equal(t, http.StatusBadRequest, code)

		_, _, body := ts.do(t, http.MethodGet, "/v1/auth/callback?state="+state+"&code=abc", nil)
		assert.Equal(t, "State mismatch. Possible CSRF attack.", gjson.Get(body, "error").String())
	})

	t.Run("provider error", func(t *testing.T) {
		state := startLogin(t, ts)

		code, _, body := ts.do(t, http.MethodGet, "/v1/auth/callback?error=access_denied&state="+state, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "access_denied", gjson.Get(body, "error").String())
	})

	t.Run("missing code", func(t *testing.T) {
		state := startLogin(t, ts)

		code, _, body := ts.do(t, http.MethodGet, "/v1/auth/callback?state="+state, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "No authorization code provided", gjson.Get(body, "error").String())
	})
}

func TestCallbackExchangeFailure(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
	}))
	defer accounts.Close()

	app, _ := newTestApplication(t, accounts.URL)
	ts := newTestServer(t, app)

	state := startLogin(t, ts)
	code, _, body := ts.do(t, http.MethodGet, "/v1/auth/callback?code=bad&state="+state, nil)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, gjson.Get(body, "error").String(), "Error exchanging authorization code:")
	assert.Zero(t, app.agents.Len())
}

func TestCallbackSuccess(t *testing.T) {
	spotifyAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/token":
			fmt.Fprint(w, `{"access_token":"at1","token_type":"Bearer","refresh_token":"rt1","expires_in":3600}`)
		case "/me":
			assert.Equal(t, "Bearer at1", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"id":"ada","display_name":"Ada","email":"ada@example.com"}`)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer spotifyAPI.Close()

	app, mock := newTestApplication(t, spotifyAPI.URL)
	ts := newTestServer(t, app)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM conversations")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO conversations")).
		WithArgs(sqlmock.AnyArg(), "ada", "Ada", "ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "last_active_at", "version"}).AddRow(now, now, 1))

	state := startLogin(t, ts)
	code, headers, _ := ts.do(t, http.MethodGet, "/v1/auth/callback?code=good&state="+state, nil)

	assert.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/app", headers.Get("Location"))
	assert.Equal(t, 1, app.agents.Len())

	_, _, body := ts.do(t, http.MethodGet, "/v1/auth/status", nil)
	assert.JSONEq(t, `{"authenticated": true}`, body)
}

func TestLogout(t *testing.T) {
	app, mock := newTestApplication(t, "")
	ts := newTestServer(t, app)

	id := uuid.New()
	ts.login(t, id)
	app.agents.Add(id.String(), newRegisteredAgent(t, app, &testProvider{}))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conversations")).
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	code, _, body := ts.do(t, http.MethodPost, "/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"success": true}`, body)
	assert.Zero(t, app.agents.Len())

	_, _, body = ts.do(t, http.MethodGet, "/v1/auth/status", nil)
	assert.JSONEq(t, `{"authenticated": false}`, body)
}
