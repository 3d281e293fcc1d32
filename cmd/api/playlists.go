package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"api.tunesmith.dev/internal/data"
	"api.tunesmith.dev/internal/validator"
)

func (app *application) createPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		TrackURIs   []string `json:"track_uris"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	v.Check(strings.TrimSpace(input.Name) != "", "name", "must be provided")
	v.Check(len(input.Name) <= 100, "name", "must not be more than 100 bytes long")
	v.Check(len(input.Description) <= 300, "description", "must not be more than 300 bytes long")
	v.Check(len(input.TrackURIs) > 0, "track_uris", "must contain at least one track")
	v.Check(validator.Unique(input.TrackURIs), "track_uris", "must not contain duplicate values")

	for _, uri := range input.TrackURIs {
		if !validator.Matches(uri, validator.TrackURIRX) {
			v.AddError("track_uris", fmt.Sprintf("%q is not a spotify track uri", uri))
			break
		}
	}

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	playlist, err := app.userClient(r).CreatePlaylist(r.Context(), input.Name, input.Description, input.TrackURIs)
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	conversation, err := app.conversationFor(r)
	if err != nil {
		app.logError(r, err)
	} else {
		tracks := make([]string, 0, len(playlist.TracksPreview))
		for _, track := range playlist.TracksPreview {
			tracks = append(tracks, fmt.Sprintf("%s - %s", track.Name, strings.Join(track.Artists, ", ")))
		}

		app.recordPlaylist(conversation, &data.Playlist{
			ConversationID: conversation.ID,
			SpotifyID:      playlist.ID,
			Name:           playlist.Name,
			Description:    playlist.Description,
			URL:            playlist.ExternalURLs["spotify"],
			CoverImageURL:  playlist.CoverImageURL,
			TrackCount:     playlist.Tracks.Total,
		}, tracks)
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/playlists/%s/tracks", playlist.ID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"playlist": playlist}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) listPlaylistTracksHandler(w http.ResponseWriter, r *http.Request) {
	playlistID := httprouter.ParamsFromContext(r.Context()).ByName("id")

	tracks, err := app.userClient(r).AllPlaylistItems(r.Context(), playlistID)
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"tracks": tracks.Tracks}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) removePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	playlistID := httprouter.ParamsFromContext(r.Context()).ByName("id")
	uri := app.readString(r.URL.Query(), "uri", "")

	v := validator.New()
	v.Check(uri != "", "uri", "must be provided")
	v.Check(uri == "" || validator.Matches(uri, validator.TrackURIRX), "uri", "must be a spotify track uri")

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	removal, err := app.userClient(r).RemoveTrack(r.Context(), playlistID, uri)
	if err != nil {
		app.spotifyErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"removal": removal}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
