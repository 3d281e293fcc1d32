package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"api.tunesmith.dev/internal/agent"
	"api.tunesmith.dev/internal/data"
	"api.tunesmith.dev/internal/spotify"
	"api.tunesmith.dev/internal/vault"
)

// testProvider answers the first request with toolCalls, when set, and
// every other request with reply.
type testProvider struct {
	reply     string
	toolCalls []agent.ToolCall
	requests  []agent.Request
}

func (p *testProvider) Name() string { return "test" }

func (p *testProvider) Complete(_ context.Context, req agent.Request) (*agent.Response, error) {
	p.requests = append(p.requests, req)
	if len(p.requests) == 1 && len(p.toolCalls) > 0 {
		return &agent.Response{ToolCalls: p.toolCalls}, nil
	}
	return &agent.Response{Content: p.reply}, nil
}

type testMusic struct{}

func (testMusic) SearchTracks(context.Context, string, int) (*spotify.TrackList, error) {
	return &spotify.TrackList{}, nil
}

func (testMusic) CreatePlaylist(context.Context, string, string, []string) (*spotify.Playlist, error) {
	return &spotify.Playlist{}, nil
}

func (testMusic) ControlPlayback(context.Context, string, string) (*spotify.Playback, error) {
	return &spotify.Playback{}, nil
}

func (testMusic) CurrentUserProfile(context.Context) (*spotify.Profile, error) {
	return &spotify.Profile{}, nil
}

// newTestApplication wires an application against an in-memory session
// store and a mocked database. spotifyURL, when set, serves both the
// accounts service and the Web API.
func newTestApplication(t *testing.T, spotifyURL string) (*application, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	v, err := vault.New("test-secret")
	require.NoError(t, err)

	var cfg config
	cfg.env = "testing"
	cfg.frontendURL = "/app"
	cfg.llm.model = "test-model"
	cfg.llm.memoryWindow = agent.DefaultMemoryWindow
	cfg.session.lifetime = time.Hour

	var opts []spotify.AuthOption
	if spotifyURL != "" {
		opts = append(opts,
			spotify.WithEndpoint(spotifyURL+"/authorize", spotifyURL+"/api/token"),
			spotify.WithAPIBaseURL(spotifyURL+"/"),
		)
	}

	app := &application{
		config:   cfg,
		logger:   slog.New(slog.DiscardHandler),
		models:   data.NewModels(db),
		auth:     spotify.NewAuthenticator("client-id", "secret", "http://127.0.0.1:4000/v1/auth/callback", opts...),
		provider: &testProvider{reply: "ok"},
		agents:   agent.NewRegistry(),
		sessions: newSessionManager(cfg, nil),
		vault:    v,
	}

	return app, mock
}

type testServer struct {
	*httptest.Server
}

// newTestServer serves app's routes plus a /_seed endpoint that logs the
// client in with access token "at" and the given agent id. The token is
// already expired when expired=1 is passed.
func newTestServer(t *testing.T, app *application) *testServer {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle("/", app.routes())
	mux.Handle("/_seed", app.sessions.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}
		if r.URL.Query().Get("expired") == "1" {
			token.Expiry = time.Now().Add(-time.Minute)
		}
		if err := app.putToken(r.Context(), token); err != nil {
			t.Fatal(err)
		}
		app.sessions.Put(r.Context(), sessionAgentKey, r.URL.Query().Get("agent_id"))
	})))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	ts.Client().Jar = jar
	ts.Client().CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &testServer{ts}
}

func (ts *testServer) login(t *testing.T, agentID uuid.UUID) {
	t.Helper()

	code, _, _ := ts.do(t, http.MethodGet, "/_seed?agent_id="+agentID.String(), nil)
	require.Equal(t, http.StatusOK, code)
}

func (ts *testServer) loginExpired(t *testing.T, agentID uuid.UUID) {
	t.Helper()

	code, _, _ := ts.do(t, http.MethodGet, "/_seed?expired=1&agent_id="+agentID.String(), nil)
	require.Equal(t, http.StatusOK, code)
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte) (int, http.Header, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rs, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer rs.Body.Close()

	raw, err := io.ReadAll(rs.Body)
	require.NoError(t, err)

	return rs.StatusCode, rs.Header, string(bytes.TrimSpace(raw))
}
