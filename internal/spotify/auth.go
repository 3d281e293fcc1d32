package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested during the authorization-code flow.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
}

// Authenticator drives the OAuth2 authorization-code flow against Spotify's
// accounts service and builds user-scoped API clients from the tokens it
// obtains.
type Authenticator struct {
	config  *oauth2.Config
	baseURL string
}

type AuthOption func(*Authenticator)

// WithEndpoint overrides the accounts service URLs.
func WithEndpoint(authURL, tokenURL string) AuthOption {
	return func(a *Authenticator) {
		a.config.Endpoint.AuthURL = authURL
		a.config.Endpoint.TokenURL = tokenURL
	}
}

// WithAPIBaseURL overrides the Web API base URL. It must end with a slash.
func WithAPIBaseURL(url string) AuthOption {
	return func(a *Authenticator) {
		a.baseURL = url
	}
}

func NewAuthenticator(clientID, clientSecret, redirectURL string, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyauth.AuthURL,
				TokenURL:  spotifyauth.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// Client returns a user-scoped client that refreshes its token as needed.
// ctx is kept for refresh requests, so it should outlive any single HTTP
// request. onRefresh may be nil.
func (a *Authenticator) Client(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) *UserClient {
	var source oauth2.TokenSource = a.config.TokenSource(ctx, token)
	if onRefresh != nil {
		source = &refreshableTokenSource{
			source:   source,
			callback: onRefresh,
			last:     token.AccessToken,
		}
	}

	var opts []spotify.ClientOption
	if a.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(a.baseURL))
	}

	return NewUserClient(spotify.New(oauth2.NewClient(ctx, source), opts...))
}

// EncodeToken serializes a token for session storage.
func EncodeToken(token *oauth2.Token) ([]byte, error) {
	return json.Marshal(token)
}

func DecodeToken(blob []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(blob, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return &token, nil
}

// Expired reports whether token can no longer be used or refreshed.
func Expired(token *oauth2.Token) bool {
	if token == nil {
		return true
	}
	return token.RefreshToken == "" && !token.Expiry.IsZero() && token.Expiry.Before(time.Now())
}
