package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"api.tunesmith.dev/internal/validator"
)

var playbackActions = []string{"play", "pause", "next", "previous"}

func (app *application) controlPlaybackHandler(w http.ResponseWriter, r *http.Request) {
	action := httprouter.ParamsFromContext(r.Context()).ByName("action")

	var input struct {
		ContextURI string `json:"context_uri"`
	}

	if r.ContentLength != 0 {
		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	v := validator.New()
	v.Check(validator.PermittedValue(action, playbackActions...), "action", "must be one of play, pause, next, previous")
	if input.ContextURI != "" {
		v.Check(action == "play", "context_uri", "is only supported by the play action")
		v.Check(validator.Matches(input.ContextURI, validator.ContextURIRX), "context_uri", "must be a spotify album, artist, playlist or show uri")
	}

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	playback, err := app.userClient(r).ControlPlayback(r.Context(), action, input.ContextURI)
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"playback": playback}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
