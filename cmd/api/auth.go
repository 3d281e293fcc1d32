package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"api.tunesmith.dev/internal/data"
)

const stateLength = 32

func (app *application) authStatusHandler(w http.ResponseWriter, r *http.Request) {
	creds := app.contextGetCredentials(r)

	err := app.writeJSON(w, http.StatusOK, envelope{"authenticated": creds.token != nil}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	state, err := gonanoid.New(stateLength)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.sessions.Put(r.Context(), sessionStateKey, state)

	err = app.writeJSON(w, http.StatusOK, envelope{"auth_url": app.auth.AuthURL(state)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) callbackHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	state := app.sessions.PopString(r.Context(), sessionStateKey)
	if state == "" || qs.Get("state") != state {
		app.errorResponse(w, r, http.StatusBadRequest, "State mismatch. Possible CSRF attack.")
		return
	}

	if reason := qs.Get("error"); reason != "" {
		app.errorResponse(w, r, http.StatusBadRequest, reason)
		return
	}

	code := qs.Get("code")
	if code == "" {
		app.errorResponse(w, r, http.StatusBadRequest, "No authorization code provided")
		return
	}

	token, err := app.auth.Exchange(r.Context(), code)
	if err != nil {
		app.logger.Warn("authorization code exchange failed", "error", err)
		app.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Error exchanging authorization code: %v", err))
		return
	}

	// New privilege level, new session token.
	err = app.sessions.RenewToken(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.putToken(r.Context(), token)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	agentID := uuid.New()
	app.sessions.Put(r.Context(), sessionAgentKey, agentID.String())
	r = app.contextSetCredentials(r, &credentials{token: token, agentID: agentID})

	conversation, err := app.conversationFor(r)
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	a, err := app.newAgent(agentID, token, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	app.agents.Add(agentID.String(), a)

	app.logger.Info("user logged in", "agent_id", agentID, "spotify_user_id", conversation.SpotifyUserID)

	http.Redirect(w, r, app.config.frontendURL, http.StatusSeeOther)
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	creds := app.contextGetCredentials(r)

	if creds.agentID != uuid.Nil {
		app.agents.Remove(creds.agentID.String())
		app.refreshed.Delete(creds.agentID.String())

		err := app.models.Conversations.Delete(creds.agentID)
		if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	err := app.sessions.Destroy(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"success": true}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
