package main

import (
	"net/http"
	"strings"

	"api.tunesmith.dev/internal/validator"
)

func (app *application) showProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := app.userClient(r).CurrentUserProfile(r.Context())
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"profile": profile}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) searchTracksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	query := strings.TrimSpace(app.readString(qs, "q", ""))
	limit := app.readInt(qs, "limit", 10, v)

	v.Check(query != "", "q", "must provide a query")
	v.Check(limit >= 1 && limit <= 50, "limit", "must be between 1 and 50")

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	tracks, err := app.userClient(r).SearchTracks(r.Context(), query, limit)
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"tracks": tracks.Tracks}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
