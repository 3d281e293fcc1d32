package main

import (
	"net/http"
	"strings"

	"api.tunesmith.dev/internal/spotify"
	"api.tunesmith.dev/internal/validator"
	"api.tunesmith.dev/internal/youtube"
)

type Source string

const (
	SourceSpotify Source = "spotify"
	SourceYoutube Source = "youtube"
)

type SearchResult struct {
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	MusicURL     string `json:"music_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Source       Source `json:"source"`
}

func fromYoutubeResult(r youtube.SearchResult) SearchResult {
	return SearchResult{Artist: r.Artist, Title: r.Title, MusicURL: r.MusicURL, ThumbnailURL: r.ThumbnailURL, Source: SourceYoutube}
}

func fromSpotifyResult(r spotify.SearchResult) SearchResult {
	return SearchResult{Artist: r.Artist, Title: r.Title, MusicURL: r.MusicURL, ThumbnailURL: r.ThumbnailURL, Source: SourceSpotify}
}

// searchMusicData searches the public catalogs with app credentials, so it
// works without a login. Sources that are not configured are skipped.
func (app *application) searchMusicData(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Sources []string `json:"sources"`
		Query   string   `json:"q"`
	}
	v := validator.New()
	qs := r.URL.Query()

	input.Sources = app.readCSV(qs, "sources", []string{string(SourceSpotify), string(SourceYoutube)})
	input.Query = strings.TrimSpace(app.readString(qs, "q", ""))

	v.Check(len(input.Sources) <= 2, "sources", "must provide at most two sources")
	v.Check(validator.Unique(input.Sources), "sources", "must not contain duplicate values")
	for _, source := range input.Sources {
		if !validator.PermittedValue(Source(source), SourceSpotify, SourceYoutube) {
			v.AddError("sources", "must be spotify or youtube")
			break
		}
	}
	v.Check(input.Query != "", "q", "must provide a query")

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	results := []SearchResult{}

	for _, source := range input.Sources {
		switch Source(source) {
		case SourceYoutube:
			if app.youtube == nil {
				continue
			}
			ytResults, err := app.youtube.SearchMusic(r.Context(), input.Query, app.config.yt.maxResults)
			if err != nil {
				app.upstreamErrorResponse(w, r, err)
				return
			}
			for _, youtubeResult := range ytResults {
				results = append(results, fromYoutubeResult(youtubeResult))
			}

		case SourceSpotify:
			if app.spotify == nil {
				continue
			}
			spResults, err := app.spotify.SearchMusic(r.Context(), input.Query, app.config.sp.maxResults)
			if err != nil {
				app.upstreamErrorResponse(w, r, err)
				return
			}
			for _, spotifyResult := range spResults {
				results = append(results, fromSpotifyResult(spotifyResult))
			}
		}
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"tracks": results}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
