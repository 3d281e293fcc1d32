package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthURL(t *testing.T) {
	a := NewAuthenticator("client-id", "secret", "http://127.0.0.1:4000/v1/auth/callback")

	raw := a.AuthURL("state123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.spotify.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://127.0.0.1:4000/v1/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state123", q.Get("state"))

	scopes := strings.Fields(q.Get("scope"))
	assert.Contains(t, scopes, "user-modify-playback-state")
	assert.Contains(t, scopes, "playlist-modify-private")
	assert.Contains(t, scopes, "user-read-email")
}

func TestExchange(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))

		if r.PostForm.Get("code") != "good" {
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"access_token":"at1","token_type":"Bearer","refresh_token":"rt1","expires_in":3600}`)
	}))
	defer accounts.Close()

	a := NewAuthenticator("client-id", "secret", "http://localhost/callback",
		WithEndpoint(accounts.URL+"/authorize", accounts.URL+"/api/token"))

	t.Run("success", func(t *testing.T) {
		token, err := a.Exchange(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "at1", token.AccessToken)
		assert.Equal(t, "rt1", token.RefreshToken)
		assert.WithinDuration(t, time.Now().Add(time.Hour), token.Expiry, time.Minute)
	})

	t.Run("invalid code", func(t *testing.T) {
		_, err := a.Exchange(context.Background(), "bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token exchange failed")
	})
}

func TestClientRefreshesAndReportsToken(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt1", r.PostForm.Get("refresh_token"))
		writeJSON(w, http.StatusOK, `{"access_token":"at2","token_type":"Bearer","expires_in":3600}`)
	}))
	defer accounts.Close()

	var seenAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"id":"ada","display_name":"Ada"}`)
	}))
	defer api.Close()

	a := NewAuthenticator("client-id", "secret", "http://localhost/callback",
		WithEndpoint(accounts.URL+"/authorize", accounts.URL+"/api/token"),
		WithAPIBaseURL(api.URL+"/"))

	expired := &oauth2.Token{
		AccessToken:  "at1",
		TokenType:    "Bearer",
		RefreshToken: "rt1",
		Expiry:       time.Now().Add(-time.Hour),
	}

	var refreshed []*oauth2.Token
	c := a.Client(context.Background(), expired, func(token *oauth2.Token) {
		refreshed = append(refreshed, token)
	})

	profile, err := c.CurrentUserProfile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ada", profile.ID)
	assert.Equal(t, "Bearer at2", seenAuth)
	require.Len(t, refreshed, 1)
	assert.Equal(t, "at2", refreshed[0].AccessToken)
	// The refresh token is carried over when the response omits it.
	assert.Equal(t, "rt1", refreshed[0].RefreshToken)
}

type staticSource struct {
	tokens []string
	i      int
}

func (s *staticSource) Token() (*oauth2.Token, error) {
	if s.i >= len(s.tokens) {
		return nil, fmt.Errorf("no more tokens")
	}
	token := &oauth2.Token{AccessToken: s.tokens[s.i]}
	s.i++
	return token, nil
}

func TestRefreshableTokenSource(t *testing.T) {
	var calls []string
	source := &refreshableTokenSource{
		source: &staticSource{tokens: []string{"a", "a", "b", "b"}},
		callback: func(token *oauth2.Token) {
			calls = append(calls, token.AccessToken)
		},
		last: "a",
	}

	for range 4 {
		_, err := source.Token()
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"b"}, calls)

	_, err := source.Token()
	assert.Error(t, err)
}

func TestTokenEncoding(t *testing.T) {
	token := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}

	blob, err := EncodeToken(token)
	require.NoError(t, err)

	decoded, err := DecodeToken(blob)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, decoded.AccessToken)
	assert.Equal(t, token.RefreshToken, decoded.RefreshToken)
	assert.True(t, token.Expiry.Equal(decoded.Expiry))

	_, err = DecodeToken([]byte(`{}`))
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = DecodeToken([]byte(`not json`))
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	assert.True(t, Expired(nil))
	assert.False(t, Expired(&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}))
	assert.True(t, Expired(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(-time.Hour)}))
	assert.False(t, Expired(&oauth2.Token{AccessToken: "a"}))
}
