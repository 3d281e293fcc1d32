package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"api.tunesmith.dev/internal/agent"
	"api.tunesmith.dev/internal/data"
	"api.tunesmith.dev/internal/validator"
)

func (app *application) agentRequestHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Request string `json:"request"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input.Request = strings.TrimSpace(input.Request)
	if input.Request == "" {
		app.errorResponse(w, r, http.StatusBadRequest, "No request provided")
		return
	}

	creds := app.contextGetCredentials(r)

	conversation, err := app.conversationFor(r)
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	a, err := app.agentFor(r, conversation)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	result := a.Process(r.Context(), input.Request)
	app.storeRefreshedToken(r.Context(), creds.agentID)

	if result.Success {
		app.recordExchange(conversation, input.Request, result)
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"result": result}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// recordExchange persists a successful request and its outcome. The agent
// already answered, so failures here are logged rather than returned.
func (app *application) recordExchange(conversation *data.Conversation, request string, result *agent.Result) {
	reply := result.Message
	if result.Type == "playlist" {
		reply = result.RawOutput
	}

	exchange := []*data.Message{
		{ConversationID: conversation.ID, Role: agent.RoleUser, Content: request},
		{ConversationID: conversation.ID, Role: agent.RoleAssistant, Content: reply},
	}

	// The exchange is stored as a pair or not at all.
	v := validator.New()
	for _, message := range exchange {
		data.ValidateMessage(v, message)
	}
	if !v.Valid() {
		app.logger.Warn("exchange not recorded", "conversation_id", conversation.ID, "errors", v.Errors)
		exchange = nil
	}

	for _, message := range exchange {
		if err := app.models.Messages.Insert(message); err != nil {
			app.logger.Error("failed to record message", "conversation_id", conversation.ID, "error", err)
		}
	}

	if err := app.models.Conversations.Touch(conversation); err != nil && !errors.Is(err, data.ErrEditConflict) {
		app.logger.Error("failed to touch conversation", "conversation_id", conversation.ID, "error", err)
	}

	if result.Playlist == nil {
		return
	}

	playlist := &data.Playlist{
		ConversationID: conversation.ID,
		SpotifyID:      result.Playlist.ID,
		Name:           result.Playlist.Name,
		Description:    result.Playlist.Description,
		URL:            result.Playlist.URL,
		CoverImageURL:  result.Playlist.CoverImageURL,
		TrackCount:     result.Playlist.TrackCount,
	}

	tracks := make([]string, 0, len(result.Playlist.TracksPreview))
	for _, track := range result.Playlist.TracksPreview {
		tracks = append(tracks, fmt.Sprintf("%s - %s", track.Name, strings.Join(track.Artists, ", ")))
	}

	app.recordPlaylist(conversation, playlist, tracks)
}

// recordPlaylist stores a newly created playlist and emails the owner about
// it when mail is configured.
func (app *application) recordPlaylist(conversation *data.Conversation, playlist *data.Playlist, tracks []string) {
	v := validator.New()
	data.ValidatePlaylist(v, playlist)
	if !v.Valid() {
		app.logger.Warn("playlist not recorded", "conversation_id", conversation.ID, "errors", v.Errors)
		return
	}

	if err := app.models.Playlists.Insert(playlist); err != nil {
		app.logger.Error("failed to record playlist", "conversation_id", conversation.ID, "error", err)
		return
	}

	if app.mailer == nil || conversation.Email == "" {
		return
	}

	app.background(func() {
		notification := map[string]any{
			"DisplayName":   conversation.DisplayName,
			"Name":          playlist.Name,
			"Description":   playlist.Description,
			"URL":           playlist.URL,
			"CoverImageURL": playlist.CoverImageURL,
			"TrackCount":    playlist.TrackCount,
			"Tracks":        tracks,
		}

		err := app.mailer.Send(conversation.Email, "playlist_created.tmpl", notification)
		if err != nil {
			app.logger.Error("failed to send playlist notification", "conversation_id", conversation.ID, "error", err)
		}
	})
}

func (app *application) showAgentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	creds := app.contextGetCredentials(r)

	v := validator.New()
	limit := app.readInt(r.URL.Query(), "limit", app.config.llm.memoryWindow, v)
	v.Check(limit > 0, "limit", "must be greater than zero")
	v.Check(limit <= 500, "limit", "must be a maximum of 500")

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	messages, err := app.models.Messages.GetForConversation(creds.agentID, limit)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"messages": messages}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) clearAgentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	creds := app.contextGetCredentials(r)

	if a, ok := app.agents.Get(creds.agentID.String()); ok {
		a.Memory().Clear()
	}

	deleted, err := app.models.Messages.DeleteForConversation(creds.agentID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "conversation history cleared", "deleted": deleted}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
