package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type contextKey string

const credentialsContextKey = contextKey("credentials")

// credentials are what the session says about the caller: a Spotify token
// and the id of the agent working for them.
type credentials struct {
	token   *oauth2.Token
	agentID uuid.UUID
}

var anonymousCredentials = &credentials{}

func (c *credentials) IsAnonymous() bool {
	return c.token == nil || c.agentID == uuid.Nil
}

func (app *application) contextSetCredentials(r *http.Request, creds *credentials) *http.Request {
	ctx := context.WithValue(r.Context(), credentialsContextKey, creds)
	return r.WithContext(ctx)
}

func (app *application) contextGetCredentials(r *http.Request) *credentials {
	creds, ok := r.Context().Value(credentialsContextKey).(*credentials)
	if !ok {
		panic("missing credentials value in request context")
	}

	return creds
}
