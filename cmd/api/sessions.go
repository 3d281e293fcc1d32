package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"api.tunesmith.dev/internal/agent"
	"api.tunesmith.dev/internal/data"
	"api.tunesmith.dev/internal/spotify"
)

const (
	sessionTokenKey = "spotify_token"
	sessionAgentKey = "agent_id"
	sessionStateKey = "oauth_state"
)

// putToken seals token and stores it in the caller's session.
func (app *application) putToken(ctx context.Context, token *oauth2.Token) error {
	blob, err := spotify.EncodeToken(token)
	if err != nil {
		return err
	}

	sealed, err := app.vault.Seal(blob)
	if err != nil {
		return err
	}

	app.sessions.Put(ctx, sessionTokenKey, sealed)
	return nil
}

func (app *application) loadToken(ctx context.Context) (*oauth2.Token, error) {
	sealed := app.sessions.GetBytes(ctx, sessionTokenKey)
	if len(sealed) == 0 {
		return nil, spotify.ErrNotAuthenticated
	}

	blob, err := app.vault.Open(sealed)
	if err != nil {
		return nil, err
	}

	return spotify.DecodeToken(blob)
}

func (app *application) loadAgentID(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(app.sessions.GetString(ctx, sessionAgentKey))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// storeRefreshedToken moves a token renewed by the agent's client into the
// session of the current request.
func (app *application) storeRefreshedToken(ctx context.Context, agentID uuid.UUID) {
	value, ok := app.refreshed.LoadAndDelete(agentID.String())
	if !ok {
		return
	}

	if err := app.putToken(ctx, value.(*oauth2.Token)); err != nil {
		app.logger.Error("failed to store refreshed token", "agent_id", agentID, "error", err)
	}
}

// userClient returns a Spotify client bound to the request. Tokens it
// refreshes go straight into the session.
func (app *application) userClient(r *http.Request) *spotify.UserClient {
	creds := app.contextGetCredentials(r)
	ctx := r.Context()

	return app.auth.Client(ctx, creds.token, func(token *oauth2.Token) {
		if err := app.putToken(ctx, token); err != nil {
			app.logger.Error("failed to store refreshed token", "error", err)
		}
	})
}

func (app *application) newAgent(id uuid.UUID, token *oauth2.Token, history []agent.Message) (*agent.Agent, error) {
	// The agent outlives the request that created it, so its client must
	// not be tied to a request context.
	client := app.auth.Client(context.Background(), token, func(token *oauth2.Token) {
		app.refreshed.Store(id.String(), token)
	})

	return agent.New(agent.Config{
		Provider:      app.provider,
		Model:         app.config.llm.model,
		Music:         client,
		MaxIterations: app.config.llm.maxIterations,
		MaxTokens:     app.config.llm.maxTokens,
		MemoryWindow:  app.config.llm.memoryWindow,
		History:       history,
		Logger:        app.logger.With("agent_id", id.String()),
	})
}

// conversationFor returns the stored conversation for the caller's agent,
// recording a new one from the Spotify profile when there is none.
func (app *application) conversationFor(r *http.Request) (*data.Conversation, error) {
	creds := app.contextGetCredentials(r)

	conversation, err := app.models.Conversations.Get(creds.agentID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, data.ErrRecordNotFound) {
		return nil, err
	}

	profile, err := app.userClient(r).CurrentUserProfile(r.Context())
	if err != nil {
		return nil, err
	}

	conversation = &data.Conversation{
		ID:            creds.agentID,
		SpotifyUserID: profile.ID,
		DisplayName:   profile.DisplayName,
		Email:         profile.Email,
	}

	err = app.models.Conversations.Insert(conversation)
	if err != nil {
		return nil, err
	}

	return conversation, nil
}

// agentFor returns the caller's live agent. An agent that was evicted or
// lost in a restart is rebuilt from the session token and stored history.
func (app *application) agentFor(r *http.Request, conversation *data.Conversation) (*agent.Agent, error) {
	creds := app.contextGetCredentials(r)

	if a, ok := app.agents.Get(creds.agentID.String()); ok {
		return a, nil
	}

	stored, err := app.models.Messages.GetForConversation(conversation.ID, app.config.llm.memoryWindow)
	if err != nil {
		return nil, err
	}

	history := make([]agent.Message, 0, len(stored))
	for _, message := range stored {
		history = append(history, agent.Message{Role: message.Role, Content: message.Content})
	}

	a, err := app.newAgent(creds.agentID, creds.token, history)
	if err != nil {
		return nil, fmt.Errorf("failed to recreate agent: %w", err)
	}

	app.agents.Add(creds.agentID.String(), a)
	app.logger.Info("agent recreated", "agent_id", creds.agentID, "history", len(history))

	return a, nil
}
